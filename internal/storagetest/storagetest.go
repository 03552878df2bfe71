// Package storagetest checks arbor.StorageAdaptor implementations against
// the behaviour the Manager relies on.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package storagetest

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/agilira/arbor"
)

// Snapshot names used by Run, oldest first.
const (
	Oldest = "2025-01-01T00:00:00.000000"
	Middle = "2025-02-01T00:00:00.000000"
	Newest = "2025-03-01T00:00:00.000000"
)

// Sample returns nested plain data covering every value kind a snapshot
// holds.
func Sample(port int) map[string]interface{} {
	return map[string]interface{}{
		"port":    port,
		"enabled": true,
		"name":    "edge",
		"hosts":   []interface{}{"a", "b"},
		"tls":     map[string]interface{}{"cert": "/etc/cert.pem"},
	}
}

// Run exercises an empty adaptor returned by open. open is called once and
// the adaptor is closed at the end.
func Run(t *testing.T, open func(t *testing.T) arbor.StorageAdaptor) {
	t.Helper()
	ctx := context.Background()
	adaptor := open(t)
	defer func() {
		if err := adaptor.Close(); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	}()

	// empty store
	if _, _, ok, err := adaptor.LoadCurrent(ctx); ok || err != nil {
		t.Fatalf("LoadCurrent() on empty store = %v, %v", ok, err)
	}
	if _, ok, err := adaptor.LoadStaged(ctx); ok || err != nil {
		t.Fatalf("LoadStaged() on empty store = %v, %v", ok, err)
	}
	if names, err := adaptor.ListSaved(ctx); len(names) != 0 || err != nil {
		t.Fatalf("ListSaved() on empty store = %v, %v", names, err)
	}
	if _, ok, err := adaptor.LoadSaved(ctx, Oldest); ok || err != nil {
		t.Fatalf("LoadSaved() on empty store = %v, %v", ok, err)
	}

	for i, name := range []string{Middle, Oldest, Newest} {
		if err := adaptor.SaveCurrent(ctx, name, Sample(i)); err != nil {
			t.Fatalf("SaveCurrent(%s) failed: %v", name, err)
		}
	}
	if err := adaptor.SaveStaged(ctx, Sample(99)); err != nil {
		t.Fatalf("SaveStaged() failed: %v", err)
	}

	ExpectListed(t, adaptor, Newest, Middle, Oldest)

	name, data, ok, err := adaptor.LoadCurrent(ctx)
	if err != nil || !ok || name != Newest {
		t.Fatalf("LoadCurrent() = %s, %v, %v", name, ok, err)
	}
	ExpectSample(t, data, 2)

	staged, ok, err := adaptor.LoadStaged(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadStaged() = %v, %v", ok, err)
	}
	ExpectSample(t, staged, 99)

	if err := adaptor.Archive(ctx, Newest); err != nil {
		t.Fatalf("Archive() failed: %v", err)
	}
	ExpectListed(t, adaptor, Newest)
	if data, ok, err := adaptor.LoadSaved(ctx, Oldest); err != nil || !ok {
		t.Errorf("archived snapshot not loadable: %v, %v", ok, err)
	} else {
		ExpectSample(t, data, 1)
	}

	if err := adaptor.Archive(ctx, "2099-01-01T00:00:00.000000"); err != nil {
		t.Fatalf("Archive() failed: %v", err)
	}
	if _, _, ok, _ := adaptor.LoadCurrent(ctx); ok {
		t.Error("LoadCurrent() found a snapshot after archiving everything")
	}
	if _, ok, _ := adaptor.LoadStaged(ctx); !ok {
		t.Error("archiving removed the staged tree")
	}
}

// ExpectListed checks ListSaved against want.
func ExpectListed(t *testing.T, adaptor arbor.StorageAdaptor, want ...string) {
	t.Helper()
	names, err := adaptor.ListSaved(context.Background())
	if err != nil {
		t.Fatalf("ListSaved() failed: %v", err)
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("ListSaved() = %v, want %v", names, want)
	}
}

// ExpectSample checks data against Sample(port). Numbers are compared by
// their printed form since JSON stores decode them as float64.
func ExpectSample(t *testing.T, data map[string]interface{}, port int) {
	t.Helper()
	if fmt.Sprint(data["port"]) != fmt.Sprint(port) {
		t.Errorf("port = %v, want %d", data["port"], port)
	}
	if data["enabled"] != true || data["name"] != "edge" {
		t.Errorf("scalars = %v, %v", data["enabled"], data["name"])
	}
	if !reflect.DeepEqual(data["hosts"], []interface{}{"a", "b"}) {
		t.Errorf("hosts = %#v", data["hosts"])
	}
	if !reflect.DeepEqual(data["tls"], map[string]interface{}{"cert": "/etc/cert.pem"}) {
		t.Errorf("tls = %#v", data["tls"])
	}
}
