// manager_test.go: tests for the Manager topology and lifecycle operations
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"
)

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}

var testEpoch = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// boundValue backs a live leaf with a plain variable.
type boundValue struct {
	value interface{}
	sets  int
}

func (b *boundValue) binding() Binding {
	return Binding{
		Get: func() (interface{}, error) { return b.value, nil },
		Set: func(v interface{}) error { b.value = v; b.sets++; return nil },
	}
}

func addRunning(t *testing.T, m *Manager, n Node) {
	t.Helper()
	err := m.Do(func(Container) error {
		_, err := m.Running().AddChild(n)
		return err
	})
	if err != nil {
		t.Fatalf("failed to attach %s: %v", n.Name(), err)
	}
}

func mustRead(t *testing.T, m *Manager, path string) interface{} {
	t.Helper()
	v, err := m.Read(path)
	if err != nil {
		t.Fatalf("Read(%s) failed: %v", path, err)
	}
	return v
}

func TestManagerLayout(t *testing.T) {
	m := NewManager()

	if got := m.Root().Keys(); !reflect.DeepEqual(got, []string{"config", "status"}) {
		t.Errorf("root keys = %v", got)
	}
	config, err := m.GetNode(PathConfig)
	if err != nil {
		t.Fatalf("GetNode(config) failed: %v", err)
	}
	if got := config.(Container).Keys(); !reflect.DeepEqual(got, []string{"running", "saved", "staged"}) {
		t.Errorf("config keys = %v", got)
	}

	for path, c := range map[string]Container{
		PathRunning: m.Running(),
		PathSaved:   m.Saved(),
		PathStaged:  m.Staged(),
		PathStatus:  m.Status(),
	} {
		if got := PathOf(c); got != path {
			t.Errorf("PathOf() = %q, want %q", got, path)
		}
	}
	if m.ServerID() != "default" {
		t.Errorf("ServerID() = %q", m.ServerID())
	}
}

func TestGetNode(t *testing.T) {
	m := NewManager()
	addRunning(t, m, NewValueLeaf("port", 80))

	root, err := m.GetNode("")
	if err != nil || root != Node(m.Root()) {
		t.Errorf("GetNode(\"\") = %v, %v", root, err)
	}

	leaf, err := m.GetNode("config.running.port")
	if err != nil {
		t.Fatalf("GetNode() failed: %v", err)
	}
	if v, _ := leaf.(*Leaf).Get(); v != 80 {
		t.Errorf("port = %v", v)
	}

	for _, path := range []string{"config.running.nope", "config.running.port.deeper", "nope"} {
		if _, err := m.GetNode(path); !HasCode(err, ErrCodeLookupFailed) {
			t.Errorf("GetNode(%s) expected lookup failure, got %v", path, err)
		}
	}
}

func TestCopySetsLeavesInPlace(t *testing.T) {
	m := NewManager()
	port := &boundValue{value: 80}
	live := NewLeaf("port", port.binding())
	addRunning(t, m, live)

	if err := m.ImportStaged(map[string]interface{}{"port": 8080, "host": "example"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Copy(PathStaged, PathRunning); err != nil {
		t.Fatalf("Copy() failed: %v", err)
	}

	node, _ := m.GetNode("config.running.port")
	if node != Node(live) {
		t.Error("live leaf was replaced instead of set")
	}
	if port.value != 8080 || port.sets != 1 {
		t.Errorf("bound value = %v after %d sets", port.value, port.sets)
	}
	if got := mustRead(t, m, "config.running.host"); got != "example" {
		t.Errorf("host = %v", got)
	}
}

func TestCopyReplacesOnKindClash(t *testing.T) {
	m := NewManager()
	deleted := false
	addRunning(t, m, NewLeaf("tls", Binding{
		Get:    func() (interface{}, error) { return false, nil },
		Set:    func(interface{}) error { return nil },
		Delete: func() error { deleted = true; return nil },
	}))

	if err := m.ImportStaged(map[string]interface{}{
		"tls": map[string]interface{}{"enabled": true},
	}); err != nil {
		t.Fatal(err)
	}
	if err := m.DeployStaged(); err != nil {
		t.Fatalf("DeployStaged() failed: %v", err)
	}

	if !deleted {
		t.Error("Delete hook not run for replaced leaf")
	}
	node, err := m.GetNode("config.running.tls")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := node.(*Object); !ok {
		t.Errorf("tls is %T, want *Object", node)
	}
	if got := mustRead(t, m, "config.running.tls.enabled"); got != true {
		t.Errorf("tls.enabled = %v", got)
	}
}

func TestCopyListReplacementKeepsIndex(t *testing.T) {
	m := NewManager()
	list := NewList("hosts")
	for _, v := range []string{"a", "b", "c"} {
		_, _ = list.Append(NewValueLeaf("hosts", v))
	}
	addRunning(t, m, list)

	if err := m.ImportStaged(map[string]interface{}{
		"hosts": []interface{}{"x", map[string]interface{}{"name": "y"}, "z"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := m.DeployStaged(); err != nil {
		t.Fatalf("DeployStaged() failed: %v", err)
	}

	want := []interface{}{"x", map[string]interface{}{"name": "y"}, "z"}
	if got := mustRead(t, m, "config.running.hosts"); !reflect.DeepEqual(got, want) {
		t.Errorf("hosts = %v, want %v", got, want)
	}
}

func TestCopySkipsWriteDenied(t *testing.T) {
	m := NewManager()
	addRunning(t, m, NewLeaf("uptime", Binding{Get: func() (interface{}, error) { return 42, nil }}))
	addRunning(t, m, NewValueLeaf("port", 80))

	if err := m.ImportStaged(map[string]interface{}{"uptime": 0, "port": 81}); err != nil {
		t.Fatal(err)
	}
	if err := m.DeployStaged(); err != nil {
		t.Fatalf("DeployStaged() failed: %v", err)
	}
	if got := mustRead(t, m, "config.running.uptime"); got != 42 {
		t.Errorf("read-only leaf = %v, want 42", got)
	}
	if got := mustRead(t, m, "config.running.port"); got != 81 {
		t.Errorf("port = %v, want 81", got)
	}
}

func TestCopyUnknownPath(t *testing.T) {
	m := NewManager()
	if _, err := m.Copy("config.nope", PathRunning); !HasCode(err, ErrCodeLookupFailed) {
		t.Errorf("expected lookup failure, got %v", err)
	}
	addRunning(t, m, NewValueLeaf("port", 1))
	if _, err := m.Copy(PathStaged, "config.running.port"); !HasCode(err, ErrCodeNotContainer) {
		t.Errorf("expected not container, got %v", err)
	}
}

func TestCopyIntoOwnSubtree(t *testing.T) {
	m := NewManager()
	sub := NewObject("sub")
	_, _ = sub.AddChild(NewValueLeaf("port", 1))
	addRunning(t, m, sub)

	for _, tt := range []struct{ src, dst string }{
		{PathRunning, PathRunning + ".sub"},
		{PathConfig, PathRunning},
		{PathRunning, PathRunning},
	} {
		if _, err := m.Copy(tt.src, tt.dst); !HasCode(err, ErrCodeInvalidValue) {
			t.Errorf("Copy(%s, %s) = %v, want invalid value", tt.src, tt.dst, err)
		}
	}
	if got := sub.Keys(); !reflect.DeepEqual(got, []string{"port"}) {
		t.Errorf("running.sub keys after rejected copy = %v", got)
	}

	if err := m.RestoreRunning(context.Background(), PathRunning); !HasCode(err, ErrCodeInvalidValue) {
		t.Errorf("RestoreRunning(config.running) = %v", err)
	}

	_, _ = m.Staged().AddChild(NewValueLeaf("mode", "edge"))
	if err := m.SaveToStaged(context.Background(), PathStaged); !HasCode(err, ErrCodeInvalidValue) {
		t.Errorf("SaveToStaged(config.staged) = %v", err)
	}
	if !m.Staged().HasChild("mode") {
		t.Error("staged cleared by a rejected copy")
	}
}

func TestSaveRestoreRunning(t *testing.T) {
	storage := NewMemoryStorage("s1")
	m := NewManager(WithStorage(storage), WithClock(stepClock(testEpoch, time.Second)))
	p1 := &boundValue{value: 1}
	addRunning(t, m, NewLeaf("p1", p1.binding()))

	path, err := m.SaveRunning(context.Background())
	if err != nil {
		t.Fatalf("SaveRunning() failed: %v", err)
	}
	name := FormatSnapshotName(testEpoch)
	if path != JoinPath(PathSaved, name) {
		t.Errorf("SaveRunning() = %q", path)
	}
	if got := mustRead(t, m, path+".p1"); got != 1 {
		t.Errorf("snapshot p1 = %v", got)
	}
	if _, ok, _ := storage.LoadSaved(context.Background(), name); !ok {
		t.Error("snapshot not persisted")
	}

	if err := m.Write("config.running.p1", 2); err != nil {
		t.Fatal(err)
	}
	if p1.value != 2 {
		t.Fatalf("write did not reach the binding")
	}

	if err := m.RestoreRunning(context.Background(), ""); err != nil {
		t.Fatalf("RestoreRunning() failed: %v", err)
	}
	if p1.value != 1 {
		t.Errorf("p1 after restore = %v, want 1", p1.value)
	}
	if got := m.ListSaved(); !reflect.DeepEqual(got, []string{name}) {
		t.Errorf("ListSaved() = %v", got)
	}
}

func TestSnapshotKeepsOwnCopyOfValues(t *testing.T) {
	m := NewManager(WithClock(stepClock(testEpoch, time.Second)))
	shared := map[string]interface{}{"k": 1}
	hosts := []string{"a", "b"}
	addRunning(t, m, NewLeaf("m", Binding{Get: func() (interface{}, error) { return shared, nil }}))
	addRunning(t, m, NewLeaf("hosts", Binding{Get: func() (interface{}, error) { return hosts, nil }}))

	path, err := m.SaveRunning(context.Background())
	if err != nil {
		t.Fatalf("SaveRunning() failed: %v", err)
	}
	shared["k"] = 2
	hosts[0] = "z"

	if got := fmt.Sprint(mustRead(t, m, path+".m")); got != "map[k:1]" {
		t.Errorf("snapshot m = %s, want map[k:1]", got)
	}
	if got := fmt.Sprint(mustRead(t, m, path+".hosts")); got != "[a b]" {
		t.Errorf("snapshot hosts = %s, want [a b]", got)
	}
}

func TestRestoreLiveSliceThroughStorage(t *testing.T) {
	storage := NewMemoryStorage("s1")
	hosts := &boundValue{value: []interface{}{"a", "b"}}

	first := NewManager(WithStorage(storage), WithClock(stepClock(testEpoch, time.Second)))
	addRunning(t, first, NewLeaf("hosts", hosts.binding()))
	if _, err := first.SaveRunning(context.Background()); err != nil {
		t.Fatalf("SaveRunning() failed: %v", err)
	}
	hosts.value = []interface{}{"z"}
	hosts.sets = 0

	deleted := false
	binding := hosts.binding()
	binding.Delete = func() error { deleted = true; return nil }

	second := NewManager(WithStorage(storage))
	addRunning(t, second, NewLeaf("hosts", binding))
	if err := second.RestoreRunning(context.Background(), FormatSnapshotName(testEpoch)); err != nil {
		t.Fatalf("RestoreRunning() failed: %v", err)
	}

	node, err := second.GetNode(PathRunning + ".hosts")
	if err != nil {
		t.Fatal(err)
	}
	if leaf, ok := node.(*Leaf); !ok || !leaf.IsLive() {
		t.Fatalf("running.hosts = %T, want the live leaf", node)
	}
	if deleted {
		t.Error("live leaf was deleted")
	}
	if hosts.sets != 1 || fmt.Sprint(hosts.value) != "[a b]" {
		t.Errorf("hosts = %v after %d sets, want [a b] after 1", hosts.value, hosts.sets)
	}
}

func TestSaveRunningDropsUnpersistedSnapshot(t *testing.T) {
	m := NewManager(WithStorage(failingStorage{NewMemoryStorage("s")}), WithClock(stepClock(testEpoch, time.Second)))
	addRunning(t, m, NewValueLeaf("port", 80))

	if _, err := m.SaveRunning(context.Background()); !HasCode(err, ErrCodeStorageError) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if got := m.ListSaved(); len(got) != 0 {
		t.Errorf("ListSaved() = %v, want none", got)
	}
	if m.Saved().HasChild(FormatSnapshotName(testEpoch)) {
		t.Error("unpersisted snapshot left under config.saved")
	}
}

func TestRestoreRunningSavepoints(t *testing.T) {
	m := NewManager(WithClock(stepClock(testEpoch, time.Second)))
	port := &boundValue{value: 1}
	addRunning(t, m, NewLeaf("port", port.binding()))

	first, _ := m.SaveRunning(context.Background())
	_ = m.Write("config.running.port", 2)
	if _, err := m.SaveRunning(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = m.Write("config.running.port", 3)

	tests := []struct {
		savepoint string
		want      interface{}
	}{
		{CurrentAlias, 2},
		{FormatSnapshotName(testEpoch), 1},
		{first, 1},
	}
	for _, tt := range tests {
		if err := m.RestoreRunning(context.Background(), tt.savepoint); err != nil {
			t.Fatalf("RestoreRunning(%s) failed: %v", tt.savepoint, err)
		}
		if port.value != tt.want {
			t.Errorf("RestoreRunning(%s) port = %v, want %v", tt.savepoint, port.value, tt.want)
		}
	}

	if err := m.RestoreRunning(context.Background(), "2000-01-01T00:00:00.000000"); !HasCode(err, ErrCodeLookupFailed) {
		t.Errorf("expected lookup failure, got %v", err)
	}
}

func TestRestoreRunningWithoutSnapshots(t *testing.T) {
	m := NewManager()
	if err := m.RestoreRunning(context.Background(), ""); !HasCode(err, ErrCodeLookupFailed) {
		t.Errorf("expected lookup failure, got %v", err)
	}
	m = NewManager(WithStorage(NewMemoryStorage("s")))
	if err := m.RestoreRunning(context.Background(), CurrentAlias); !HasCode(err, ErrCodeLookupFailed) {
		t.Errorf("expected lookup failure with storage, got %v", err)
	}
}

func TestSnapshotPathLookup(t *testing.T) {
	m := NewManager(WithClock(func() time.Time { return testEpoch }))
	addRunning(t, m, NewValueLeaf("port", 80))
	path, err := m.SaveRunning(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// snapshot names contain the path separator
	node, err := m.GetNode(path)
	if err != nil {
		t.Fatalf("GetNode(%s) failed: %v", path, err)
	}
	if node.Name() != FormatSnapshotName(testEpoch) {
		t.Errorf("resolved %q", node.Name())
	}
	if got := mustRead(t, m, path+".port"); got != 80 {
		t.Errorf("port = %v", got)
	}

	if err := m.Remove(path); err != nil {
		t.Fatalf("Remove(%s) failed: %v", path, err)
	}
	if len(m.ListSaved()) != 0 {
		t.Errorf("snapshot still listed: %v", m.ListSaved())
	}
}

func TestStagedLifecycle(t *testing.T) {
	storage := NewMemoryStorage("s")
	m := NewManager(WithStorage(storage))
	ctx := context.Background()

	if err := m.RestoreStaged(); !HasCode(err, ErrCodeLookupFailed) {
		t.Errorf("RestoreStaged() without slot = %v", err)
	}

	if err := m.ImportStaged(map[string]interface{}{"port": 1}); err != nil {
		t.Fatal(err)
	}
	if err := m.SaveStaged(ctx); err != nil {
		t.Fatalf("SaveStaged() failed: %v", err)
	}
	persisted, ok, _ := storage.LoadStaged(ctx)
	if !ok || persisted["port"] != 1 {
		t.Errorf("persisted staged = %v", persisted)
	}
	if got := mustRead(t, m, "config.saved.staged.port"); got != 1 {
		t.Errorf("staged slot port = %v", got)
	}

	if err := m.Write("config.staged.port", 2); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create("config.staged.extra", true); err != nil {
		t.Fatal(err)
	}
	if err := m.RestoreStaged(); err != nil {
		t.Fatalf("RestoreStaged() failed: %v", err)
	}
	if got := mustRead(t, m, PathStaged); !reflect.DeepEqual(got, map[string]interface{}{"port": 1}) {
		t.Errorf("staged after restore = %v", got)
	}

	if err := m.DeployStaged(); err != nil {
		t.Fatalf("DeployStaged() failed: %v", err)
	}
	if got := mustRead(t, m, "config.running.port"); got != 1 {
		t.Errorf("running port = %v", got)
	}
	if names := m.ListSaved(); len(names) != 0 {
		t.Errorf("deploy created snapshots: %v", names)
	}
}

func TestSaveToStaged(t *testing.T) {
	m := NewManager(WithClock(stepClock(testEpoch, time.Second)))
	addRunning(t, m, NewValueLeaf("port", 1))
	path, _ := m.SaveRunning(context.Background())
	_ = m.Write("config.running.port", 2)
	_ = m.ImportStaged(map[string]interface{}{"stale": true})

	if err := m.SaveToStaged(context.Background(), ""); err != nil {
		t.Fatalf("SaveToStaged() failed: %v", err)
	}
	if got := mustRead(t, m, PathStaged); !reflect.DeepEqual(got, map[string]interface{}{"port": 2}) {
		t.Errorf("staged from running = %v", got)
	}

	if err := m.SaveToStaged(context.Background(), path); err != nil {
		t.Fatalf("SaveToStaged(%s) failed: %v", path, err)
	}
	if got := mustRead(t, m, "config.staged.port"); got != 1 {
		t.Errorf("staged from snapshot port = %v", got)
	}
}

func TestArchiveAndPruneSaved(t *testing.T) {
	storage := NewMemoryStorage("s")
	m := NewManager(WithStorage(storage), WithClock(stepClock(testEpoch, time.Hour)))
	addRunning(t, m, NewValueLeaf("port", 1))

	var names []string
	for i := 0; i < 3; i++ {
		path, err := m.SaveRunning(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, path[len(PathSaved)+1:])
	}

	cutoff := testEpoch.Add(90 * time.Minute)
	archived, err := m.ArchiveSaved(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ArchiveSaved() failed: %v", err)
	}
	if !reflect.DeepEqual(archived, names[:2]) {
		t.Errorf("archived %v, want %v", archived, names[:2])
	}
	if got := m.ListSaved(); !reflect.DeepEqual(got, names[2:]) {
		t.Errorf("ListSaved() = %v", got)
	}
	if !m.IsArchived(names[0]) || m.IsArchived(names[2]) {
		t.Error("IsArchived() misreports")
	}
	if stored, _ := storage.ListSaved(context.Background()); !reflect.DeepEqual(stored, names[2:]) {
		t.Errorf("storage ListSaved() = %v", stored)
	}

	// archived snapshots stay addressable
	if _, err := m.GetNode(JoinPath(PathSaved, names[0])); err != nil {
		t.Errorf("archived snapshot not addressable: %v", err)
	}

	again, _ := m.ArchiveSaved(context.Background(), cutoff)
	if len(again) != 0 {
		t.Errorf("re-archived %v", again)
	}

	pruned, err := m.PruneSaved(cutoff)
	if err != nil {
		t.Fatalf("PruneSaved() failed: %v", err)
	}
	if !reflect.DeepEqual(pruned, names[:2]) {
		t.Errorf("pruned %v", pruned)
	}
	if got := m.Saved().Keys(); !reflect.DeepEqual(got, names[2:]) {
		t.Errorf("saved keys after prune = %v", got)
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage("s1")
	older := FormatSnapshotName(testEpoch)
	newer := FormatSnapshotName(testEpoch.Add(time.Hour))
	ancient := FormatSnapshotName(testEpoch.Add(-time.Hour))
	_ = store.SaveCurrent(ctx, ancient, map[string]interface{}{"port": 1})
	_ = store.SaveCurrent(ctx, older, map[string]interface{}{"port": 2})
	_ = store.SaveCurrent(ctx, newer, map[string]interface{}{"port": 3, "hosts": []interface{}{"a"}})
	_ = store.SaveStaged(ctx, map[string]interface{}{"port": 4})
	_ = store.Archive(ctx, older)

	registry := NewStorageRegistry()
	if err := registry.Register("fixture", func(serverID, location string) (StorageAdaptor, error) {
		return store, nil
	}); err != nil {
		t.Fatal(err)
	}

	m := NewManager(WithStorageRegistry(registry), WithServerID("s1"))
	if err := m.Load(ctx, "fixture://"); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if got := mustRead(t, m, "config.running.port"); got != 3 {
		t.Errorf("running port = %v", got)
	}
	if got := mustRead(t, m, "config.staged.port"); got != 4 {
		t.Errorf("staged port = %v", got)
	}
	if got := mustRead(t, m, "config.saved.staged.port"); got != 4 {
		t.Errorf("staged slot port = %v", got)
	}
	if got := m.ListSaved(); !reflect.DeepEqual(got, []string{newer, older}) {
		t.Errorf("ListSaved() = %v", got)
	}
	if m.Saved().HasChild(ancient) {
		t.Error("archived snapshot imported")
	}
	if m.Storage() != StorageAdaptor(store) {
		t.Error("storage not attached")
	}

	// next snapshot sorts after everything loaded
	m.clock = func() time.Time { return testEpoch }
	path, err := m.SaveRunning(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if name := path[len(PathSaved)+1:]; name <= newer {
		t.Errorf("new snapshot %s does not sort after %s", name, newer)
	}

	// an archived snapshot is loaded on demand
	if err := m.RestoreRunning(ctx, ancient); err != nil {
		t.Fatalf("RestoreRunning(%s) failed: %v", ancient, err)
	}
	if got := mustRead(t, m, "config.running.port"); got != 1 {
		t.Errorf("port after restoring archived = %v", got)
	}
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	if err := NewManager().Load(ctx, "memory://"); !HasCode(err, ErrCodeInvalidConfig) {
		t.Errorf("Load() without registry = %v", err)
	}
	m := NewManager(WithStorageRegistry(NewStorageRegistry()))
	if err := m.Load(ctx, "nope://x"); !HasCode(err, ErrCodeUnknownAdaptorScheme) {
		t.Errorf("Load(nope://) = %v", err)
	}
	if err := m.Load(ctx, "no-scheme"); !HasCode(err, ErrCodeBadStorageURL) {
		t.Errorf("Load(no-scheme) = %v", err)
	}
	if err := m.Load(ctx, "memory://"); err != nil {
		t.Errorf("Load(memory://) = %v", err)
	}
}

func TestReadWriteCreateRemove(t *testing.T) {
	m := NewManager()

	if _, err := m.Create("config.running.server", map[string]interface{}{"port": 80}); err != nil {
		t.Fatalf("Create(object) failed: %v", err)
	}
	if got := mustRead(t, m, "config.running.server.port"); got != 80 {
		t.Errorf("server.port = %v", got)
	}
	if err := m.Write("config.running.server.port", 443); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if got := mustRead(t, m, "config.running.server"); !reflect.DeepEqual(got, map[string]interface{}{"port": 443}) {
		t.Errorf("server = %v", got)
	}
	if _, err := m.Create("config.running.server", 1); !HasCode(err, ErrCodeDuplicateName) {
		t.Errorf("duplicate Create() = %v", err)
	}
	if err := m.Write("config.running.server", 1); !HasCode(err, ErrCodeInvalidValue) {
		t.Errorf("Write(container) = %v", err)
	}

	if _, err := m.Create("config.running.hosts", []interface{}{"a"}); err != nil {
		t.Fatalf("Create(list) failed: %v", err)
	}
	created, err := m.Create("config.running.hosts.any", "b")
	if err != nil {
		t.Fatalf("Create(list item) failed: %v", err)
	}
	if got := PathOf(created); got != "config.running.hosts.1" {
		t.Errorf("list item path = %q", got)
	}
	if got := mustRead(t, m, "config.running.hosts"); !reflect.DeepEqual(got, []interface{}{"a", "b"}) {
		t.Errorf("hosts = %v", got)
	}

	if err := m.Remove("config.running.server"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if _, err := m.GetNode("config.running.server"); !HasCode(err, ErrCodeLookupFailed) {
		t.Errorf("removed node still reachable: %v", err)
	}
	for _, fixed := range []string{PathRunning, PathSaved, PathConfig, PathStatus} {
		if err := m.Remove(fixed); !HasCode(err, ErrCodeInvalidValue) {
			t.Errorf("Remove(%s) = %v", fixed, err)
		}
	}
	if _, err := m.Create("config.nope.x", 1); !HasCode(err, ErrCodeLookupFailed) {
		t.Errorf("Create under missing parent = %v", err)
	}
}

func TestRoutesBindRunningNodes(t *testing.T) {
	timeouts := make(map[string]interface{})
	var created, deleted []string
	routes := NewRoutes()
	err := routes.Register("sessions.*.timeout", Route{
		Get: func(path []string) (interface{}, error) { return timeouts[path[1]], nil },
		Set: func(path []string, v interface{}) error { timeouts[path[1]] = v; return nil },
		Delete: func(path []string) error {
			deleted = append(deleted, path[1])
			delete(timeouts, path[1])
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = routes.Register("sessions.*", Route{
		Create: func(path []string, v interface{}) error {
			created = append(created, JoinPath(path...))
			return nil
		},
	})

	m := NewManager(WithRoutes(routes))
	_ = m.ImportStaged(map[string]interface{}{
		"sessions": map[string]interface{}{
			"alice": map[string]interface{}{"timeout": 30},
		},
	})
	if err := m.DeployStaged(); err != nil {
		t.Fatalf("DeployStaged() failed: %v", err)
	}

	if timeouts["alice"] != 30 {
		t.Errorf("route setter not called: %v", timeouts)
	}
	if !reflect.DeepEqual(created, []string{"sessions.alice"}) {
		t.Errorf("created = %v", created)
	}
	timeouts["alice"] = 45
	if got := mustRead(t, m, "config.running.sessions.alice.timeout"); got != 45 {
		t.Errorf("route getter not bound: %v", got)
	}

	// staged nodes are plain data
	if err := m.Write("config.staged.sessions.alice.timeout", 10); err != nil {
		t.Fatal(err)
	}
	if timeouts["alice"] != 45 {
		t.Error("staged write reached the application")
	}

	if err := m.Remove("config.running.sessions.alice"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(deleted, []string{"alice"}) {
		t.Errorf("deleted = %v", deleted)
	}
}

func TestCloseReleasesStorage(t *testing.T) {
	m := NewManager(WithStorage(NewMemoryStorage("s")))
	if err := m.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if m.Storage() != nil {
		t.Error("storage still attached")
	}
}

func TestErrorHandler(t *testing.T) {
	var got []string
	m := NewManager(WithErrorHandler(func(err error, operation string) {
		got = append(got, fmt.Sprintf("%s: %s", operation, ErrorCode(err)))
	}))
	m.reportError(nil, "ignored")
	_, err := m.GetNode("nope")
	m.reportError(err, "lookup")
	if !reflect.DeepEqual(got, []string{"lookup: " + ErrCodeLookupFailed}) {
		t.Errorf("handler calls = %v", got)
	}
}
