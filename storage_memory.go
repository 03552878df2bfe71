// storage_memory.go: In-process snapshot storage
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"context"
	"reflect"
	"sort"
	"sync"
)

// MemoryScheme is the URL scheme of MemoryStorage ("memory://").
const MemoryScheme = "memory"

type memorySnapshot struct {
	data     map[string]interface{}
	archived bool
}

// MemoryStorage keeps snapshots in process memory. It is always registered
// and is useful for tests and for servers that need no durability.
type MemoryStorage struct {
	mu        sync.RWMutex
	serverID  string
	snapshots map[string]*memorySnapshot
	staged    map[string]interface{}
}

// NewMemoryStorage creates an empty store for serverID.
func NewMemoryStorage(serverID string) *MemoryStorage {
	return &MemoryStorage{
		serverID:  serverID,
		snapshots: make(map[string]*memorySnapshot),
	}
}

// LoadCurrent returns the newest non-archived snapshot.
func (m *MemoryStorage) LoadCurrent(ctx context.Context) (string, map[string]interface{}, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := m.listLocked()
	if len(names) == 0 {
		return "", nil, false, nil
	}
	return names[0], CloneData(m.snapshots[names[0]].data), true, nil
}

// LoadStaged returns the staged tree.
func (m *MemoryStorage) LoadStaged(ctx context.Context) (map[string]interface{}, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.staged == nil {
		return nil, false, nil
	}
	return CloneData(m.staged), true, nil
}

// LoadSaved returns the snapshot called name.
func (m *MemoryStorage) LoadSaved(ctx context.Context, name string) (map[string]interface{}, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[name]
	if !ok {
		return nil, false, nil
	}
	return CloneData(snap.data), true, nil
}

// SaveCurrent stores data as snapshot name.
func (m *MemoryStorage) SaveCurrent(ctx context.Context, name string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[name] = &memorySnapshot{data: CloneData(data)}
	return nil
}

// SaveStaged replaces the staged tree.
func (m *MemoryStorage) SaveStaged(ctx context.Context, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staged = CloneData(data)
	return nil
}

// ListSaved returns non-archived names, newest first.
func (m *MemoryStorage) ListSaved(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(), nil
}

// Archive marks snapshots older than cutoff.
func (m *MemoryStorage) Archive(ctx context.Context, cutoff string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, snap := range m.snapshots {
		if name < cutoff {
			snap.archived = true
		}
	}
	return nil
}

// Close is a no-op.
func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) listLocked() []string {
	names := make([]string, 0, len(m.snapshots))
	for name, snap := range m.snapshots {
		if !snap.archived {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}

// CloneData deep-copies nested plain data. Maps and slices are copied;
// scalars are shared.
func CloneData(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		return CloneData(typed)
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return cloneReflect(v)
	}
}

// cloneReflect copies typed maps and slices such as map[string]int or
// []string. Other values are returned as is.
func cloneReflect(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneElem(iter.Value(), rv.Type().Elem()))
		}
		return out.Interface()
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneElem(rv.Index(i), rv.Type().Elem()))
		}
		return out.Interface()
	default:
		return v
	}
}

func cloneElem(v reflect.Value, t reflect.Type) reflect.Value {
	if !v.IsValid() || (v.Kind() == reflect.Interface && v.IsNil()) {
		return reflect.Zero(t)
	}
	cloned := cloneValue(v.Interface())
	if cloned == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(cloned)
}
