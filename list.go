// list.go: Ordered container addressed by index
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"strconv"

	"github.com/agilira/go-errors"
)

// List is a container whose children are addressed by position. The key of
// a child is its decimal index; child names may repeat.
type List struct {
	node
	children []Node
}

// NewList creates an empty, detached list container.
func NewList(name string) *List {
	return &List{node: node{name: name}}
}

// IsLeaf always returns false for containers.
func (l *List) IsLeaf() bool {
	return false
}

// NewEmpty returns an empty list named name.
func (l *List) NewEmpty(name string) Container {
	return NewList(name)
}

// AddChild appends child. It is equivalent to Append.
func (l *List) AddChild(child Node) (Node, error) {
	return l.Append(child)
}

// Append adds child at the end of the list.
func (l *List) Append(child Node) (Node, error) {
	return l.Insert(len(l.children), child)
}

// Insert places child at index, shifting later children. An index equal to
// Len appends.
func (l *List) Insert(index int, child Node) (Node, error) {
	if err := checkAttachable(child); err != nil {
		return nil, err
	}
	if index < 0 || index > len(l.children) {
		return nil, errors.New(ErrCodeNoSuchChild, "list index out of range").
			WithContext("index", index).
			WithContext("length", len(l.children))
	}

	l.children = append(l.children, nil)
	copy(l.children[index+1:], l.children[index:])
	l.children[index] = child
	child.setParent(l)
	return child, nil
}

// RemoveChild removes the child addressed by a decimal index key.
func (l *List) RemoveChild(key string) (Node, error) {
	index, ok := l.parseKey(key)
	if !ok {
		return nil, errors.New(ErrCodeNoSuchChild, "no such child").
			WithContext("key", key).
			WithContext("container", l.name)
	}
	return l.RemoveAt(index)
}

// RemoveAt removes and returns the child at index.
func (l *List) RemoveAt(index int) (Node, error) {
	if index < 0 || index >= len(l.children) {
		return nil, errors.New(ErrCodeNoSuchChild, "list index out of range").
			WithContext("index", index).
			WithContext("length", len(l.children))
	}

	child := l.children[index]
	l.children = append(l.children[:index], l.children[index+1:]...)
	return child, nil
}

// At returns the child at index.
func (l *List) At(index int) (Node, bool) {
	if index < 0 || index >= len(l.children) {
		return nil, false
	}
	return l.children[index], true
}

// HasChild reports whether key addresses an existing position.
func (l *List) HasChild(key string) bool {
	_, ok := l.parseKey(key)
	return ok
}

// GetChild returns the child addressed by a decimal index key.
func (l *List) GetChild(key string) (Node, bool) {
	index, ok := l.parseKey(key)
	if !ok {
		return nil, false
	}
	return l.children[index], true
}

// Keys returns "0" .. "Len-1".
func (l *List) Keys() []string {
	keys := make([]string, len(l.children))
	for i := range l.children {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

// Children returns children in order.
func (l *List) Children() []Node {
	nodes := make([]Node, len(l.children))
	copy(nodes, l.children)
	return nodes
}

// Len returns the number of children.
func (l *List) Len() int {
	return len(l.children)
}

// Clear detaches all children.
func (l *List) Clear() {
	l.children = nil
}

// Delete propagates the removal hook to every child.
func (l *List) Delete() error {
	return deleteChildren(l.Children())
}

func (l *List) parseKey(key string) (int, bool) {
	index, err := strconv.Atoi(key)
	if err != nil || index < 0 || index >= len(l.children) {
		return 0, false
	}
	return index, true
}

func (l *List) indexOf(n Node) int {
	for i, child := range l.children {
		if child == n {
			return i
		}
	}
	return -1
}
