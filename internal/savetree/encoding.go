package savetree

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// WriteYAML encodes the tree as YAML.
func WriteYAML(w io.Writer, n *Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return fmt.Errorf("encode save tree: %w", err)
	}
	return enc.Close()
}

// ReadYAML decodes a tree written by WriteYAML.
func ReadYAML(r io.Reader) (*Node, error) {
	var n Node
	if err := yaml.NewDecoder(r).Decode(&n); err != nil {
		return nil, fmt.Errorf("decode save tree: %w", err)
	}
	return &n, nil
}

// EncodeJSON returns the JSON form of the tree, as stored by the SQL repositories.
func EncodeJSON(n *Node) ([]byte, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal save tree: %w", err)
	}
	return b, nil
}

// DecodeJSON parses the JSON form of the tree.
func DecodeJSON(b []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, fmt.Errorf("unmarshal save tree: %w", err)
	}
	return &n, nil
}
