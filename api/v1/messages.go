// Package v1 is the wire contract of the flagfold plugin service.
//
// A request Struct carries:
//
//	{ "filename": string, "tree": <ESTree Program or File>, "options": {...} }
//
// and a response Struct carries:
//
//	{ "tree": <mutated tree>, "rewritten": number, "rewrites": {specifier: number},
//	  "pruned": [string], "removed": [string], "diagnostics": [string] }
package v1

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"flagfold/internal/estree"
)

type Request struct {
	Filename string
	Tree     estree.Node
	Options  map[string]any
}

type Response struct {
	Tree        estree.Node
	Rewritten   int
	BySpecifier map[string]int
	Pruned      []string
	Removed     []string
	Diagnostics []string
}

// Changed reports whether the engine mutated the tree.
func (r *Response) Changed() bool {
	return r.Rewritten > 0 || len(r.Pruned) > 0 || len(r.Removed) > 0
}

func (r *Request) Marshal() (*structpb.Struct, error) {
	tree, err := treeStruct(r.Tree)
	if err != nil {
		return nil, err
	}
	opts, err := structpb.NewStruct(r.Options)
	if err != nil {
		return nil, fmt.Errorf("v1: options: %w", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"filename": structpb.NewStringValue(r.Filename),
		"tree":     structpb.NewStructValue(tree),
		"options":  structpb.NewStructValue(opts),
	}}, nil
}

func UnmarshalRequest(s *structpb.Struct) (*Request, error) {
	f := s.GetFields()
	tree, err := structTree(f["tree"].GetStructValue())
	if err != nil {
		return nil, err
	}
	return &Request{
		Filename: f["filename"].GetStringValue(),
		Tree:     tree,
		Options:  f["options"].GetStructValue().AsMap(),
	}, nil
}

func (r *Response) Marshal() (*structpb.Struct, error) {
	tree, err := treeStruct(r.Tree)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"tree":        structpb.NewStructValue(tree),
		"rewritten":   structpb.NewNumberValue(float64(r.Rewritten)),
		"rewrites":    structpb.NewStructValue(counts(r.BySpecifier)),
		"pruned":      stringList(r.Pruned),
		"removed":     stringList(r.Removed),
		"diagnostics": stringList(r.Diagnostics),
	}}, nil
}

func UnmarshalResponse(s *structpb.Struct) (*Response, error) {
	f := s.GetFields()
	tree, err := structTree(f["tree"].GetStructValue())
	if err != nil {
		return nil, err
	}
	return &Response{
		Tree:        tree,
		Rewritten:   int(f["rewritten"].GetNumberValue()),
		BySpecifier: countsOf(f["rewrites"]),
		Pruned:      stringsOf(f["pruned"]),
		Removed:     stringsOf(f["removed"]),
		Diagnostics: stringsOf(f["diagnostics"]),
	}, nil
}

// The tree goes through JSON rather than AsMap so that numbers decode the
// same way as trees read from disk.
func treeStruct(tree estree.Node) (*structpb.Struct, error) {
	if tree == nil {
		return nil, estree.Malformed("v1: missing tree")
	}
	data, err := estree.Encode(tree)
	if err != nil {
		return nil, fmt.Errorf("v1: encode tree: %w", err)
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("v1: tree to struct: %w", err)
	}
	return s, nil
}

func structTree(s *structpb.Struct) (estree.Node, error) {
	if s == nil {
		return nil, estree.Malformed("v1: missing tree")
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("v1: struct to tree: %w", err)
	}
	return estree.Decode(data)
}

func stringList(ss []string) *structpb.Value {
	vals := make([]*structpb.Value, len(ss))
	for i, s := range ss {
		vals[i] = structpb.NewStringValue(s)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func stringsOf(v *structpb.Value) []string {
	vals := v.GetListValue().GetValues()
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	for i, e := range vals {
		out[i] = e.GetStringValue()
	}
	return out
}

func counts(m map[string]int) *structpb.Struct {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(m))}
	for k, n := range m {
		s.Fields[k] = structpb.NewNumberValue(float64(n))
	}
	return s
}

func countsOf(v *structpb.Value) map[string]int {
	out := map[string]int{}
	for k, n := range v.GetStructValue().GetFields() {
		out[k] = int(n.GetNumberValue())
	}
	return out
}
