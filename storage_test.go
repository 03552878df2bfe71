// storage_test.go: tests for adaptor registries and the in-memory store
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"context"
	"reflect"
	"testing"
)

func TestStorageRegistry(t *testing.T) {
	registry := NewStorageRegistry()
	if got := registry.Schemes(); !reflect.DeepEqual(got, []string{MemoryScheme}) {
		t.Errorf("Schemes() = %v", got)
	}

	var gotServer, gotLocation string
	factory := func(serverID, location string) (StorageAdaptor, error) {
		gotServer, gotLocation = serverID, location
		return NewMemoryStorage(serverID), nil
	}
	if err := registry.Register("test", factory); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := registry.Register("test", factory); !HasCode(err, ErrCodeAdaptorRegistered) {
		t.Errorf("duplicate Register() = %v", err)
	}
	if err := registry.Register("", factory); !HasCode(err, ErrCodeInvalidValue) {
		t.Errorf("Register(\"\") = %v", err)
	}

	adaptor, err := registry.Open("s1", "test:///var/lib/arbor")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = adaptor.Close() }()
	if gotServer != "s1" || gotLocation != "/var/lib/arbor" {
		t.Errorf("factory called with %q, %q", gotServer, gotLocation)
	}

	if _, err := registry.Open("s1", "redis://host"); !HasCode(err, ErrCodeUnknownAdaptorScheme) {
		t.Errorf("Open(redis://) = %v", err)
	}
	for _, url := range []string{"", "sqlite", "://x"} {
		if _, err := registry.Open("s1", url); !HasCode(err, ErrCodeBadStorageURL) {
			t.Errorf("Open(%q) = %v", url, err)
		}
	}
}

func TestAccessRegistry(t *testing.T) {
	registry := NewAccessRegistry()
	var gotLocation string
	err := registry.Register("http", func(m *Manager, location string) (AccessAdaptor, error) {
		gotLocation = location
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := registry.Open(NewManager(), "http://127.0.0.1:0"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if gotLocation != "127.0.0.1:0" {
		t.Errorf("location = %q", gotLocation)
	}
	if _, err := registry.Open(NewManager(), "grpc://x"); !HasCode(err, ErrCodeUnknownAdaptorScheme) {
		t.Errorf("Open(grpc://) = %v", err)
	}
	if got := registry.Schemes(); !reflect.DeepEqual(got, []string{"http"}) {
		t.Errorf("Schemes() = %v", got)
	}
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage("s1")

	if _, _, ok, err := store.LoadCurrent(ctx); ok || err != nil {
		t.Errorf("LoadCurrent() on empty store = %v, %v", ok, err)
	}
	if _, ok, _ := store.LoadStaged(ctx); ok {
		t.Error("LoadStaged() on empty store reported data")
	}

	data := map[string]interface{}{"hosts": []interface{}{"a"}}
	_ = store.SaveCurrent(ctx, "2025-01-01T00:00:00.000000", data)
	_ = store.SaveCurrent(ctx, "2025-02-01T00:00:00.000000", map[string]interface{}{"port": 2})

	// stored data is isolated from the caller
	data["hosts"].([]interface{})[0] = "changed"
	loaded, ok, _ := store.LoadSaved(ctx, "2025-01-01T00:00:00.000000")
	if !ok || loaded["hosts"].([]interface{})[0] != "a" {
		t.Errorf("LoadSaved() = %v", loaded)
	}

	name, current, ok, _ := store.LoadCurrent(ctx)
	if !ok || name != "2025-02-01T00:00:00.000000" || current["port"] != 2 {
		t.Errorf("LoadCurrent() = %s, %v", name, current)
	}

	_ = store.Archive(ctx, "2025-02-01T00:00:00.000000")
	names, _ := store.ListSaved(ctx)
	if !reflect.DeepEqual(names, []string{"2025-02-01T00:00:00.000000"}) {
		t.Errorf("ListSaved() after archive = %v", names)
	}
	if _, ok, _ := store.LoadSaved(ctx, "2025-01-01T00:00:00.000000"); !ok {
		t.Error("archived snapshot no longer loadable")
	}

	_ = store.SaveStaged(ctx, map[string]interface{}{"port": 3})
	staged, ok, _ := store.LoadStaged(ctx)
	if !ok || staged["port"] != 3 {
		t.Errorf("LoadStaged() = %v", staged)
	}
}
