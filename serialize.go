// serialize.go: Conversion between tree nodes and nested plain data
//
// Snapshots leave the process as nested maps, slices and scalars. Objects
// become map[string]interface{}, lists become []interface{}, and leaves
// become their value.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"sort"
	"strconv"

	"github.com/agilira/go-errors"
)

// Export converts n into nested plain data. Leaves that deny reads are
// omitted from objects and exported as nil inside lists so indexes hold.
func Export(n Node) (interface{}, error) {
	value, _, err := export(n)
	return value, err
}

// ExportMap exports the children of a container as a map keyed by their
// addressing keys.
func ExportMap(c Container) (map[string]interface{}, error) {
	result := make(map[string]interface{}, c.Len())
	for _, key := range c.Keys() {
		child, _ := c.GetChild(key)
		value, ok, err := export(child)
		if err != nil {
			return nil, err
		}
		if ok {
			result[key] = value
		}
	}
	return result, nil
}

func export(n Node) (interface{}, bool, error) {
	switch typed := n.(type) {
	case *Leaf:
		value, err := typed.Get()
		if err != nil {
			if HasCode(err, ErrCodeReadDenied) {
				return nil, false, nil
			}
			return nil, false, errors.Wrap(err, ErrCodeReadDenied, "failed to read leaf").
				WithContext("path", PathOf(typed))
		}
		return value, true, nil
	case *List:
		items := make([]interface{}, 0, typed.Len())
		for _, child := range typed.Children() {
			value, _, err := export(child)
			if err != nil {
				return nil, false, err
			}
			items = append(items, value)
		}
		return items, true, nil
	case Container:
		value, err := ExportMap(typed)
		return value, err == nil, err
	default:
		return nil, false, errors.New(ErrCodeInvalidValue, "unknown node type")
	}
}

// Import builds plain-data children of dst from data. Existing children are
// kept; a clashing key fails with ErrCodeDuplicateName.
func Import(dst Container, data map[string]interface{}) error {
	for _, key := range sortedKeys(data) {
		child := buildNode(key, data[key])
		if _, err := dst.AddChild(child); err != nil {
			return err
		}
	}
	return nil
}

// NewTree builds a detached object named name from nested plain data.
func NewTree(name string, data map[string]interface{}) *Object {
	obj := NewObject(name)
	// a fresh object cannot clash
	_ = Import(obj, data)
	return obj
}

// buildNode turns one plain value into a node: maps become objects, slices
// become lists, anything else a plain-data leaf.
func buildNode(name string, value interface{}) Node {
	switch typed := value.(type) {
	case map[string]interface{}:
		return NewTree(name, typed)
	case []interface{}:
		list := NewList(name)
		for i, item := range typed {
			_, _ = list.Append(buildNode(itemName(name, i), item))
		}
		return list
	default:
		return NewValueLeaf(name, value)
	}
}

func itemName(listName string, index int) string {
	return listName + "[" + strconv.Itoa(index) + "]"
}

func sortedKeys(data map[string]interface{}) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
