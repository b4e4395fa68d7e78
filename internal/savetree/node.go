// Package savetree is a hierarchical key/value store: named nodes carrying
// ordered string values and named child nodes. It is the on-disk shape of a save slot.
package savetree

// Value is a single name/value pair. Names may repeat within a node.
type Value struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Node is one level of the tree.
type Node struct {
	Name   string  `json:"name" yaml:"name"`
	Values []Value `json:"values,omitempty" yaml:"values,omitempty"`
	Nodes  []*Node `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// New creates an empty node.
func New(name string) *Node {
	return &Node{Name: name}
}

// AddValue appends a value; existing values with the same name are kept.
func (n *Node) AddValue(name, value string) {
	n.Values = append(n.Values, Value{Name: name, Value: value})
}

// SetValue replaces the first value named name, or appends one.
func (n *Node) SetValue(name, value string) {
	for i := range n.Values {
		if n.Values[i].Name == name {
			n.Values[i].Value = value
			return
		}
	}
	n.AddValue(name, value)
}

// GetValue returns the first value named name.
func (n *Node) GetValue(name string) (string, bool) {
	for _, v := range n.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// HasValue reports whether a value named name exists.
func (n *Node) HasValue(name string) bool {
	_, ok := n.GetValue(name)
	return ok
}

// AddNode appends and returns a new child node.
func (n *Node) AddNode(name string) *Node {
	child := New(name)
	n.Nodes = append(n.Nodes, child)
	return child
}

// GetNode returns the first child named name, or nil.
func (n *Node) GetNode(name string) *Node {
	for _, c := range n.Nodes {
		if c != nil && c.Name == name {
			return c
		}
	}
	return nil
}

// HasNode reports whether a child named name exists.
func (n *Node) HasNode(name string) bool {
	return n.GetNode(name) != nil
}

// GetNodes returns every child named name, in order.
func (n *Node) GetNodes(name string) []*Node {
	var out []*Node
	for _, c := range n.Nodes {
		if c != nil && c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// EnsureNode returns the first child named name, creating it if missing.
func (n *Node) EnsureNode(name string) *Node {
	if c := n.GetNode(name); c != nil {
		return c
	}
	return n.AddNode(name)
}

// ClearData removes all values.
func (n *Node) ClearData() { n.Values = nil }

// ClearNodes removes all children.
func (n *Node) ClearNodes() { n.Nodes = nil }
