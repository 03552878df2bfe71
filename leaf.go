// leaf.go: Terminal nodes bound to live accessors or plain stored values
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"github.com/agilira/go-errors"
)

// Getter reads a live value from the application.
type Getter func() (interface{}, error)

// Setter pushes a value into the application.
type Setter func(value interface{}) error

// Deleter releases application resources when a leaf leaves the tree.
type Deleter func() error

// Binding groups the accessors a live leaf defers to. Any of them may be nil:
// a missing Get makes the leaf write-only, a missing Set makes it read-only.
type Binding struct {
	Get    Getter
	Set    Setter
	Delete Deleter
}

// Leaf is a terminal node holding one configuration value.
//
// A live leaf forwards Get/Set/Delete to its Binding. A plain-data leaf, as
// produced inside snapshots, stores the value itself.
type Leaf struct {
	node
	binding Binding
	live    bool
	value   interface{}
}

// NewLeaf creates a live leaf bound to application accessors.
func NewLeaf(name string, binding Binding) *Leaf {
	return &Leaf{
		node:    node{name: name},
		binding: binding,
		live:    true,
	}
}

// NewValueLeaf creates a plain-data leaf holding value.
func NewValueLeaf(name string, value interface{}) *Leaf {
	return &Leaf{
		node:  node{name: name},
		value: cloneValue(value),
	}
}

// IsLeaf always returns true for leaves.
func (l *Leaf) IsLeaf() bool {
	return true
}

// IsLive reports whether the leaf forwards to application accessors.
func (l *Leaf) IsLive() bool {
	return l.live
}

// Readable reports whether Get can succeed.
func (l *Leaf) Readable() bool {
	return !l.live || l.binding.Get != nil
}

// Writable reports whether Set can succeed.
func (l *Leaf) Writable() bool {
	return !l.live || l.binding.Set != nil
}

// Get returns the current value. Live leaves without a getter fail with
// ErrCodeReadDenied, which is distinct from a successfully stored nil.
func (l *Leaf) Get() (interface{}, error) {
	if !l.live {
		return l.value, nil
	}
	if l.binding.Get == nil {
		return nil, errors.New(ErrCodeReadDenied, "leaf is not readable").
			WithContext("leaf", l.name)
	}
	return l.binding.Get()
}

// Set assigns value. Plain leaves keep a deep copy of maps and slices. Live
// leaves without a setter fail with ErrCodeWriteDenied.
func (l *Leaf) Set(value interface{}) error {
	if !l.live {
		l.value = cloneValue(value)
		return nil
	}
	if l.binding.Set == nil {
		return errors.New(ErrCodeWriteDenied, "leaf is not writable").
			WithContext("leaf", l.name)
	}
	return l.binding.Set(value)
}

// Delete runs the deleter hook, if any.
func (l *Leaf) Delete() error {
	if l.binding.Delete == nil {
		return nil
	}
	return l.binding.Delete()
}
