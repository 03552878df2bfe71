// node.go: Node and Container capabilities of the configuration tree
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"strconv"
	"strings"
)

// PathSeparator joins node names into a path.
const PathSeparator = "."

// Node is the capability shared by every element of the tree.
//
// The set of implementations is closed: *Leaf, *Object and *List. Parent is
// a non-owning back reference kept for path reconstruction only; ownership
// always flows from container to child.
type Node interface {
	// Name returns the node name, fixed at construction
	Name() string

	// Parent returns the owning container, or nil for a root or detached node
	Parent() Container

	// IsLeaf discriminates leaves from containers
	IsLeaf() bool

	// Delete is invoked when the node is permanently removed from the tree.
	// It is not called on shutdown.
	Delete() error

	setParent(parent Container)
}

// Container is a node that exclusively owns named or indexed children.
//
// Keys are child names for *Object and decimal indexes for *List. Keys and
// Children return copies, so the container may be mutated while iterating
// over them.
type Container interface {
	Node

	// AddChild attaches node and sets its parent to this container
	AddChild(node Node) (Node, error)

	// RemoveChild detaches the child stored under key. The returned node
	// still reports its former owner as parent.
	RemoveChild(key string) (Node, error)

	// HasChild reports whether a child is stored under key
	HasChild(key string) bool

	// GetChild returns the child stored under key; ok is false if absent
	GetChild(key string) (Node, bool)

	// Keys returns the addressing keys of all children in order
	Keys() []string

	// Children returns all children in order
	Children() []Node

	// Len returns the number of children
	Len() int

	// Clear detaches every child without invoking Delete hooks
	Clear()

	// NewEmpty returns a new empty container of the same variant
	NewEmpty(name string) Container
}

// node holds identity and ownership common to all variants.
type node struct {
	name   string
	parent Container
}

func (n *node) Name() string {
	return n.name
}

func (n *node) Parent() Container {
	return n.parent
}

func (n *node) setParent(parent Container) {
	n.parent = parent
}

// PathOf reconstructs the dotted path of n by walking parent links.
// The root itself has an empty path.
func PathOf(n Node) string {
	var names []string
	for cur := n; cur != nil && cur.Parent() != nil; cur = cur.Parent() {
		names = append(names, keyInParent(cur))
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, PathSeparator)
}

// keyInParent returns the key under which n is addressed by its parent.
func keyInParent(n Node) string {
	if list, ok := n.Parent().(*List); ok {
		if idx := list.indexOf(n); idx >= 0 {
			return strconv.Itoa(idx)
		}
	}
	return n.Name()
}

// JoinPath joins path segments with PathSeparator, skipping empty ones.
func JoinPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, PathSeparator)
}

// SplitPath splits a dotted path into segments. An empty path has none.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSeparator)
}
