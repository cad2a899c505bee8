// Package lambda defines the instruction tree passed between the script
// parser and slot handlers. A tree is a named node with an optional cty
// value and ordered children.
package lambda

import (
	"github.com/zclconf/go-cty/cty"
)

// Node is a single node of an instruction tree. Values use cty so that
// HCL-parsed scripts round-trip without a second type system.
type Node struct {
	Name     string
	Value    cty.Value
	Children []*Node

	parent *Node
}

// New creates a node with the given name and no value.
func New(name string) *Node {
	return &Node{Name: name, Value: cty.NilVal}
}

// Add appends child to the node and returns the node for chaining.
func (n *Node) Add(child *Node) *Node {
	child.parent = n
	n.Children = append(n.Children, child)
	return n
}

// Parent returns the node's parent, or nil for a root node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Root walks up the parent chain and returns the topmost node.
func (n *Node) Root() *Node {
	root := n
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Child returns the first child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// GetString returns the string value of the named child.
func (n *Node) GetString(name string) (string, bool) {
	c := n.Child(name)
	if c == nil || c.Value.IsNull() || c.Value.Type() != cty.String {
		return "", false
	}
	return c.Value.AsString(), true
}

// GetInt returns the integer value of the named child.
func (n *Node) GetInt(name string) (int, bool) {
	c := n.Child(name)
	if c == nil || c.Value.IsNull() || c.Value.Type() != cty.Number {
		return 0, false
	}
	v, _ := c.Value.AsBigFloat().Int64()
	return int(v), true
}

// GetBool returns the boolean value of the named child.
func (n *Node) GetBool(name string) (bool, bool) {
	c := n.Child(name)
	if c == nil || c.Value.IsNull() || c.Value.Type() != cty.Bool {
		return false, false
	}
	return c.Value.True(), true
}

// SetString upserts a child with the given name and string value.
func (n *Node) SetString(name, value string) {
	n.set(name, cty.StringVal(value))
}

// SetInt upserts a child with the given name and numeric value.
func (n *Node) SetInt(name string, value int) {
	n.set(name, cty.NumberIntVal(int64(value)))
}

// SetBool upserts a child with the given name and boolean value.
func (n *Node) SetBool(name string, value bool) {
	n.set(name, cty.BoolVal(value))
}

func (n *Node) set(name string, value cty.Value) {
	if c := n.Child(name); c != nil {
		c.Value = value
		return
	}
	c := New(name)
	c.Value = value
	n.Add(c)
}

// Clone returns a deep copy of the node. The copy is a root node; it keeps
// no reference to the original's parent.
func (n *Node) Clone() *Node {
	dup := &Node{Name: n.Name, Value: n.Value}
	for _, c := range n.Children {
		dup.Add(c.Clone())
	}
	return dup
}
