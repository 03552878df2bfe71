// object.go: Keyed container preserving insertion order
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"github.com/agilira/go-errors"
)

// Object is a container whose children are addressed by unique names.
// Enumeration follows insertion order.
type Object struct {
	node
	children map[string]Node
	order    []string
}

// NewObject creates an empty, detached object container.
func NewObject(name string) *Object {
	return &Object{
		node:     node{name: name},
		children: make(map[string]Node),
	}
}

// IsLeaf always returns false for containers.
func (o *Object) IsLeaf() bool {
	return false
}

// NewEmpty returns an empty object named name.
func (o *Object) NewEmpty(name string) Container {
	return NewObject(name)
}

// AddChild stores child under its name. It fails with ErrCodeDuplicateName
// when a sibling already uses the name, leaving that sibling untouched.
func (o *Object) AddChild(child Node) (Node, error) {
	if err := checkAttachable(child); err != nil {
		return nil, err
	}

	name := child.Name()
	if _, exists := o.children[name]; exists {
		return nil, errors.New(ErrCodeDuplicateName, "child name already exists").
			WithContext("name", name).
			WithContext("container", o.name)
	}

	o.children[name] = child
	o.order = append(o.order, name)
	child.setParent(o)
	return child, nil
}

// RemoveChild detaches the named child and returns it.
func (o *Object) RemoveChild(name string) (Node, error) {
	child, exists := o.children[name]
	if !exists {
		return nil, errors.New(ErrCodeNoSuchChild, "no such child").
			WithContext("name", name).
			WithContext("container", o.name)
	}

	delete(o.children, name)
	for i, key := range o.order {
		if key == name {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return child, nil
}

// HasChild reports whether a child named name exists.
func (o *Object) HasChild(name string) bool {
	_, exists := o.children[name]
	return exists
}

// GetChild returns the named child.
func (o *Object) GetChild(name string) (Node, bool) {
	child, exists := o.children[name]
	return child, exists
}

// Keys returns child names in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.order))
	copy(keys, o.order)
	return keys
}

// Children returns children in insertion order.
func (o *Object) Children() []Node {
	nodes := make([]Node, 0, len(o.order))
	for _, key := range o.order {
		nodes = append(nodes, o.children[key])
	}
	return nodes
}

// Len returns the number of children.
func (o *Object) Len() int {
	return len(o.order)
}

// Clear detaches all children.
func (o *Object) Clear() {
	o.children = make(map[string]Node)
	o.order = nil
}

// Delete propagates the removal hook to every child.
func (o *Object) Delete() error {
	return deleteChildren(o.Children())
}

// checkAttachable rejects nil nodes and nodes still owned by a container.
func checkAttachable(child Node) error {
	if child == nil {
		return errors.New(ErrCodeInvalidValue, "child node cannot be nil")
	}
	if parent := child.Parent(); parent != nil {
		// a node removed from its owner keeps the back reference; it is only
		// attached if the owner still holds it
		if owned, ok := parent.GetChild(keyInParent(child)); ok && owned == child {
			return errors.New(ErrCodeAlreadyAttached, "node is already attached to a container").
				WithContext("name", child.Name()).
				WithContext("parent", parent.Name())
		}
	}
	return nil
}

// deleteChildren calls Delete on every node and returns the first error.
func deleteChildren(children []Node) error {
	var first error
	for _, child := range children {
		if err := child.Delete(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
