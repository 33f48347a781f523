package estree

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// codec sorts object keys and keeps numbers as json.Number, so a tree that
// is decoded and re-encoded without changes comes back byte-identical.
var codec = sonic.Config{
	SortMapKeys:    true,
	UseNumber:      true,
	CopyString:     true,
	ValidateString: true,
}.Froze()

// Decode parses a JSON-encoded tree.
func Decode(data []byte) (Node, error) {
	var v any
	if err := codec.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("estree: decode: %w", err)
	}
	n, ok := AsNode(v)
	if !ok {
		return nil, Malformed("root is %T, want a typed object", v)
	}
	return n, nil
}

// Encode serializes a tree compactly with sorted keys.
func Encode(n Node) ([]byte, error) {
	return codec.Marshal(n)
}

// EncodeIndent is Encode with indentation, for human-facing sinks.
func EncodeIndent(n Node, indent string) ([]byte, error) {
	return codec.MarshalIndent(n, "", indent)
}
