// Package state models opaque decoder state as a recursive tree of
// tensor-like buffers. The decoder never interprets carried state; it only
// relocates buffer leaves to host memory before handing hypotheses back to
// the caller.
package state

import "fmt"

// Buffer is a tensor-like storage leaf that may live off-host.
type Buffer interface {
	// ToHost returns an equivalent buffer resident in host memory.
	ToHost() (Buffer, error)
}

// Tree is either a Leaf or a Node.
type Tree interface {
	isTree()
}

// Leaf wraps a single value. Values implementing Buffer are relocated by
// ToHost; any other value is passed through untouched.
type Leaf struct {
	Value any
}

// Node holds an ordered sequence of subtrees.
type Node struct {
	Children []Tree
}

func (Leaf) isTree() {}
func (Node) isTree() {}

// ToHost relocates every Buffer leaf of t to host memory, preserving the
// tree structure exactly. A nil tree is a no-op. The first relocation
// failure aborts the whole walk.
func ToHost(t Tree) (Tree, error) {
	switch n := t.(type) {
	case nil:
		return nil, nil
	case Leaf:
		buf, ok := n.Value.(Buffer)
		if !ok {
			return n, nil
		}
		host, err := buf.ToHost()
		if err != nil {
			return nil, fmt.Errorf("relocate state leaf: %w", err)
		}
		return Leaf{Value: host}, nil
	case Node:
		kids := make([]Tree, len(n.Children))
		for i, c := range n.Children {
			moved, err := ToHost(c)
			if err != nil {
				return nil, err
			}
			kids[i] = moved
		}
		return Node{Children: kids}, nil
	default:
		return nil, fmt.Errorf("unknown state tree node %T", t)
	}
}

// HostFloat32 is a Buffer already resident in host memory.
type HostFloat32 struct {
	Data []float32
}

// ToHost returns the buffer unchanged.
func (b HostFloat32) ToHost() (Buffer, error) { return b, nil }
