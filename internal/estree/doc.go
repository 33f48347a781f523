// Package estree models ESTree-shaped syntax trees as generic JSON objects.
// Trees come from an external parser (acorn, espree or Babel) and go back to
// an external code generator, so the package only provides typed accessors,
// a deterministic JSON codec and builders for the few node kinds the
// transform emits.
package estree
