// node_test.go: tests for the node tree containers and leaves
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/agilira/go-errors"
)

func TestObjectAddChildPreservesOrder(t *testing.T) {
	obj := NewObject("server")
	for _, name := range []string{"port", "host", "tls"} {
		if _, err := obj.AddChild(NewValueLeaf(name, nil)); err != nil {
			t.Fatalf("AddChild(%s) failed: %v", name, err)
		}
	}

	if got, want := obj.Keys(), []string{"port", "host", "tls"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if obj.Len() != 3 {
		t.Errorf("Len() = %d, want 3", obj.Len())
	}
	child, ok := obj.GetChild("host")
	if !ok || child.Parent() != Container(obj) {
		t.Errorf("child parent not set to owner")
	}
}

func TestObjectDuplicateName(t *testing.T) {
	obj := NewObject("server")
	first := NewValueLeaf("port", 80)
	if _, err := obj.AddChild(first); err != nil {
		t.Fatal(err)
	}

	_, err := obj.AddChild(NewValueLeaf("port", 443))
	if !HasCode(err, ErrCodeDuplicateName) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}

	child, _ := obj.GetChild("port")
	if child != Node(first) {
		t.Error("existing child was replaced")
	}
	if v, _ := first.Get(); v != 80 {
		t.Errorf("existing child value = %v, want 80", v)
	}
}

func TestObjectRemoveChild(t *testing.T) {
	obj := NewObject("o")
	_, _ = obj.AddChild(NewValueLeaf("a", 1))
	_, _ = obj.AddChild(NewValueLeaf("b", 2))

	removed, err := obj.RemoveChild("a")
	if err != nil {
		t.Fatalf("RemoveChild() failed: %v", err)
	}
	if removed.Name() != "a" {
		t.Errorf("removed %q", removed.Name())
	}
	if obj.HasChild("a") || !reflect.DeepEqual(obj.Keys(), []string{"b"}) {
		t.Errorf("keys after remove = %v", obj.Keys())
	}

	if _, err := obj.RemoveChild("missing"); !HasCode(err, ErrCodeNoSuchChild) {
		t.Errorf("expected no such child, got %v", err)
	}

	// a removed node may be attached elsewhere
	other := NewObject("other")
	if _, err := other.AddChild(removed); err != nil {
		t.Errorf("re-attaching removed node failed: %v", err)
	}
}

func TestAddChildRejectsAttachedNode(t *testing.T) {
	a, b := NewObject("a"), NewObject("b")
	leaf := NewValueLeaf("x", 1)
	if _, err := a.AddChild(leaf); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddChild(leaf); !HasCode(err, ErrCodeAlreadyAttached) {
		t.Errorf("expected already attached, got %v", err)
	}
	if _, err := b.AddChild(nil); !HasCode(err, ErrCodeInvalidValue) {
		t.Errorf("expected invalid value for nil child, got %v", err)
	}
}

func TestListIndexing(t *testing.T) {
	list := NewList("hosts")
	for _, v := range []string{"a", "c"} {
		if _, err := list.Append(NewValueLeaf("hosts", v)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := list.Insert(1, NewValueLeaf("hosts", "b")); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	var values []interface{}
	for _, child := range list.Children() {
		v, _ := child.(*Leaf).Get()
		values = append(values, v)
	}
	if !reflect.DeepEqual(values, []interface{}{"a", "b", "c"}) {
		t.Errorf("values = %v", values)
	}
	if !reflect.DeepEqual(list.Keys(), []string{"0", "1", "2"}) {
		t.Errorf("Keys() = %v", list.Keys())
	}

	// positions, not names, address list children
	if !list.HasChild("2") || list.HasChild("3") || list.HasChild("x") {
		t.Error("HasChild misreports positions")
	}

	if _, err := list.Insert(5, NewValueLeaf("hosts", "z")); !HasCode(err, ErrCodeNoSuchChild) {
		t.Errorf("expected out of range, got %v", err)
	}

	if _, err := list.RemoveChild("0"); err != nil {
		t.Fatalf("RemoveChild() failed: %v", err)
	}
	first, _ := list.At(0)
	if v, _ := first.(*Leaf).Get(); v != "b" {
		t.Errorf("after removal first = %v, want b", v)
	}
	if got := PathOf(first); got != "0" {
		t.Errorf("PathOf() after shift = %q, want 0", got)
	}
}

func TestLeafBindings(t *testing.T) {
	var stored interface{} = 1
	deleted := false
	live := NewLeaf("port", Binding{
		Get:    func() (interface{}, error) { return stored, nil },
		Set:    func(v interface{}) error { stored = v; return nil },
		Delete: func() error { deleted = true; return nil },
	})

	if err := live.Set(8080); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if v, _ := live.Get(); v != 8080 || stored != 8080 {
		t.Errorf("Get() = %v, stored = %v", v, stored)
	}
	if err := live.Delete(); err != nil || !deleted {
		t.Errorf("Delete() = %v, deleted = %v", err, deleted)
	}
	if !live.IsLive() || !live.IsLeaf() {
		t.Error("live leaf misreports kind")
	}
}

func TestLeafDenied(t *testing.T) {
	writeOnly := NewLeaf("secret", Binding{Set: func(interface{}) error { return nil }})
	readOnly := NewLeaf("uptime", Binding{Get: func() (interface{}, error) { return 5, nil }})

	if _, err := writeOnly.Get(); !HasCode(err, ErrCodeReadDenied) {
		t.Errorf("expected read denied, got %v", err)
	}
	if err := readOnly.Set(1); !HasCode(err, ErrCodeWriteDenied) {
		t.Errorf("expected write denied, got %v", err)
	}
	if writeOnly.Readable() || !writeOnly.Writable() {
		t.Error("write-only leaf capabilities wrong")
	}
	if !IsDenied(errors.New(ErrCodeWriteDenied, "x")) {
		t.Error("IsDenied() false for write denied")
	}

	// a stored nil is a value, not a denial
	plain := NewValueLeaf("empty", nil)
	if v, err := plain.Get(); v != nil || err != nil {
		t.Errorf("plain nil leaf Get() = %v, %v", v, err)
	}
}

func TestValueLeafCopiesData(t *testing.T) {
	ports := map[string]int{"http": 80}
	leaf := NewValueLeaf("ports", ports)
	ports["http"] = 8080

	items := []interface{}{map[string]interface{}{"a": 1}}
	if err := leaf.Set(items); err != nil {
		t.Fatal(err)
	}
	items[0].(map[string]interface{})["a"] = 2

	v, _ := leaf.Get()
	if got := fmt.Sprint(v); got != "[map[a:1]]" {
		t.Errorf("Get() = %s, want [map[a:1]]", got)
	}

	fresh := NewValueLeaf("ports", ports)
	ports["http"] = 1
	if v, _ := fresh.Get(); v.(map[string]int)["http"] != 8080 {
		t.Errorf("NewValueLeaf kept the caller's map: %v", v)
	}
}

func TestLeafSetterError(t *testing.T) {
	leaf := NewLeaf("port", Binding{
		Get: func() (interface{}, error) { return nil, nil },
		Set: func(v interface{}) error {
			return errors.New(ErrCodeInvalidValue, "port out of range")
		},
	})
	if err := leaf.Set(-1); !HasCode(err, ErrCodeInvalidValue) {
		t.Errorf("setter error not propagated: %v", err)
	}
}

func TestContainerDeletePropagates(t *testing.T) {
	var calls []string
	hook := func(name string) Deleter {
		return func() error { calls = append(calls, name); return nil }
	}

	root := NewObject("root")
	inner := NewList("items")
	_, _ = root.AddChild(NewLeaf("a", Binding{Delete: hook("a")}))
	_, _ = root.AddChild(inner)
	_, _ = inner.Append(NewLeaf("b", Binding{Delete: hook("b")}))

	if err := root.Delete(); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if !reflect.DeepEqual(calls, []string{"a", "b"}) {
		t.Errorf("delete calls = %v", calls)
	}
}

func TestPathOf(t *testing.T) {
	root := NewObject("")
	config := NewObject("config")
	hosts := NewList("hosts")
	_, _ = root.AddChild(config)
	_, _ = config.AddChild(hosts)
	_, _ = hosts.Append(NewValueLeaf("hosts", "a"))
	second, _ := hosts.Append(NewValueLeaf("hosts", "b"))

	if got := PathOf(second); got != "config.hosts.1" {
		t.Errorf("PathOf() = %q, want config.hosts.1", got)
	}
	if got := PathOf(root); got != "" {
		t.Errorf("PathOf(root) = %q", got)
	}
}

func TestSplitJoinPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"", nil},
		{"config", []string{"config"}},
		{"config.running.port", []string{"config", "running", "port"}},
	}
	for _, tt := range tests {
		got := SplitPath(tt.path)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
		if joined := JoinPath(got...); joined != tt.path {
			t.Errorf("JoinPath(%v) = %q, want %q", got, joined, tt.path)
		}
	}
	if got := JoinPath("config", "", "running"); got != "config.running" {
		t.Errorf("JoinPath skips empty segments: got %q", got)
	}
}

func TestErrorCode(t *testing.T) {
	inner := errors.New(ErrCodeNoSuchChild, "inner")
	wrapped := errors.Wrap(inner, ErrCodeStorageError, "outer")

	if got := ErrorCode(wrapped); got != ErrCodeStorageError {
		t.Errorf("ErrorCode() = %q", got)
	}
	if !HasCode(wrapped, ErrCodeStorageError) {
		t.Error("HasCode() misses outer code")
	}
	if ErrorCode(nil) != "" || HasCode(nil, ErrCodeStorageError) {
		t.Error("nil error should carry no code")
	}
}
