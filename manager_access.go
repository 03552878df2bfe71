// manager_access.go: Locked read, write, create and remove by path
//
// These helpers are the surface used by access adaptors. Each runs under
// the Manager lock and is audited.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"strconv"
	"strings"

	"github.com/agilira/go-errors"
)

// Read returns the value at path: the leaf value for a leaf, nested plain
// data for a container.
func (m *Manager) Read(path string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.getNode(path)
	if err != nil {
		return nil, err
	}
	if leaf, ok := n.(*Leaf); ok {
		return leaf.Get()
	}
	return Export(n)
}

// Write sets the leaf at path.
func (m *Manager) Write(path string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.getNode(path)
	if err != nil {
		return err
	}
	leaf, ok := n.(*Leaf)
	if !ok {
		return errors.New(ErrCodeInvalidValue, "path does not name a leaf").
			WithContext("path", path)
	}

	var old interface{}
	if leaf.Readable() {
		old, _ = leaf.Get()
	}
	if err := leaf.Set(value); err != nil {
		if HasCode(err, ErrCodeWriteDenied) {
			m.audit.Log(AuditSecurity, "write_denied", path, "", nil, nil, nil)
		}
		return err
	}
	m.audit.LogWrite(path, old, value)
	return nil
}

// Create adds a node at path. Maps and slices create containers, anything
// else a leaf. Under config.running, matching routes bind the new nodes.
func (m *Manager) Create(path string, value interface{}) (Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parentPath, name := splitLast(path)
	if name == "" {
		return nil, errors.New(ErrCodeInvalidValue, "path must name a child").
			WithContext("path", path)
	}
	parent, err := m.getContainer(parentPath)
	if err != nil {
		return nil, err
	}

	key := name
	if list, ok := parent.(*List); ok {
		key = strconv.Itoa(list.Len())
	} else if parent.HasChild(name) {
		return nil, errors.New(ErrCodeDuplicateName, "child name already exists").
			WithContext("name", name).
			WithContext("container", parent.Name())
	}
	childPath := JoinPath(parentPath, key)

	switch typed := value.(type) {
	case map[string]interface{}:
		c, err := m.attachContainer(parent, NewObject(name), key, childPath, false)
		if err != nil {
			return nil, err
		}
		return c, m.copyInto(NewTree(name, typed), c)
	case []interface{}:
		c, err := m.attachContainer(parent, NewList(name), key, childPath, false)
		if err != nil {
			return nil, err
		}
		src := buildNode(name, typed).(Container)
		return c, m.copyInto(src, c)
	default:
		if err := m.attachLeaf(parent, name, key, childPath, value, false); err != nil {
			return nil, err
		}
		child, _ := parent.GetChild(key)
		m.audit.LogWrite(childPath, nil, value)
		return child, nil
	}
}

// Remove detaches the node at path and runs its Delete hook. The fixed
// top-level containers cannot be removed.
func (m *Manager) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.getNode(path)
	if err != nil {
		return err
	}
	switch PathOf(n) {
	case "", PathConfig, PathRunning, PathSaved, PathStaged, PathStatus:
		return errors.New(ErrCodeInvalidValue, "fixed tree nodes cannot be removed").
			WithContext("path", path)
	}

	parent, key := n.Parent(), keyInParent(n)
	parentPath := PathOf(parent)
	if err := m.removeChild(parent, key); err != nil {
		return err
	}
	if parentPath == PathSaved {
		delete(m.archived, key)
		m.updateSnapshotGauge()
	}
	m.audit.Log(AuditCritical, "remove_node", path, "", nil, nil, nil)
	return nil
}

// splitLast splits "a.b.c" into "a.b" and "c".
func splitLast(path string) (string, string) {
	idx := strings.LastIndex(path, PathSeparator)
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}
