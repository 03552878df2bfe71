// manager.go: Manager owning the configuration tree and its lifecycle
//
// The Manager builds the fixed top-level layout
//
//	root
//	├── config
//	│   ├── running   live tree bound to the application
//	│   ├── saved     timestamped snapshots plus the "staged" slot
//	│   └── staged    candidate configuration
//	└── status
//
// and moves configuration between these trees with structural copies.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
)

// ErrorHandler receives errors from background work such as scheduled
// snapshots. operation names the failing operation.
type ErrorHandler func(err error, operation string)

// Option configures a Manager.
type Option func(*Manager)

// WithStorage attaches an already opened storage adaptor.
func WithStorage(adaptor StorageAdaptor) Option {
	return func(m *Manager) { m.storage = adaptor }
}

// WithStorageRegistry sets the registry used by Load to open adaptors.
func WithStorageRegistry(registry *StorageRegistry) Option {
	return func(m *Manager) { m.storages = registry }
}

// WithRoutes sets the route table consulted for new running-tree nodes.
func WithRoutes(routes *Routes) Option {
	return func(m *Manager) { m.routes = routes }
}

// WithAuditLogger records lifecycle operations to logger.
func WithAuditLogger(logger *AuditLogger) Option {
	return func(m *Manager) { m.audit = logger }
}

// WithClock replaces time.Now for snapshot naming.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithServerID names the server whose configuration is managed.
func WithServerID(serverID string) Option {
	return func(m *Manager) { m.serverID = serverID }
}

// WithErrorHandler sets the handler for background errors.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(m *Manager) { m.errorHandler = handler }
}

// Manager owns the tree and serializes every operation on it with a single
// mutex. Containers are not synchronized themselves; direct mutation must
// happen inside Do.
type Manager struct {
	mu sync.Mutex

	root    *Object
	config  *Object
	running *Object
	saved   *Object
	staged  *Object
	status  *Object

	serverID     string
	storage      StorageAdaptor
	storages     *StorageRegistry
	routes       *Routes
	audit        *AuditLogger
	clock        func() time.Time
	errorHandler ErrorHandler

	namer    snapshotNamer
	archived map[string]bool
}

// NewManager builds a Manager with the fixed top-level layout.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		root:     NewObject(""),
		config:   NewObject("config"),
		running:  NewObject("running"),
		saved:    NewObject("saved"),
		staged:   NewObject("staged"),
		status:   NewObject("status"),
		serverID: "default",
		clock:    time.Now,
		archived: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.errorHandler == nil {
		m.errorHandler = func(err error, operation string) {
			fmt.Fprintf(os.Stderr, "arbor: %s failed: %v\n", operation, err)
		}
	}

	// fresh containers with distinct names cannot fail
	_, _ = m.config.AddChild(m.running)
	_, _ = m.config.AddChild(m.saved)
	_, _ = m.config.AddChild(m.staged)
	_, _ = m.root.AddChild(m.config)
	_, _ = m.root.AddChild(m.status)
	return m
}

// ServerID returns the managed server identifier.
func (m *Manager) ServerID() string {
	return m.serverID
}

// Root returns the root container.
func (m *Manager) Root() Container { return m.root }

// Running returns config.running.
func (m *Manager) Running() Container { return m.running }

// Saved returns config.saved.
func (m *Manager) Saved() Container { return m.saved }

// Staged returns config.staged.
func (m *Manager) Staged() Container { return m.staged }

// Status returns the status subtree.
func (m *Manager) Status() Container { return m.status }

// Storage returns the attached storage adaptor, or nil.
func (m *Manager) Storage() StorageAdaptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storage
}

// Do runs fn with exclusive access to the tree.
func (m *Manager) Do(fn func(root Container) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.root)
}

// GetNode resolves a dotted path from the root. An empty path returns the
// root. Failure is ErrCodeLookupFailed naming the unresolved segment.
func (m *Manager) GetNode(path string) (Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getNode(path)
}

func (m *Manager) getNode(path string) (Node, error) {
	var cur Node = m.root
	segments := SplitPath(path)
	for i := 0; i < len(segments); i++ {
		container, ok := cur.(Container)
		if !ok {
			return nil, lookupFailed(path, segments[i])
		}
		child, used := childAt(container, segments[i:])
		if child == nil {
			return nil, lookupFailed(path, segments[i])
		}
		cur = child
		i += used - 1
	}
	return cur, nil
}

// childAt looks up segments[0] in c. Child names may themselves contain the
// separator (snapshot names do), so when the single segment is missing the
// following segments are joined on one at a time. It returns the child and
// the number of segments consumed.
func childAt(c Container, segments []string) (Node, int) {
	key := segments[0]
	for used := 1; ; used++ {
		if child, ok := c.GetChild(key); ok {
			return child, used
		}
		if used == len(segments) {
			return nil, 0
		}
		key += PathSeparator + segments[used]
	}
}

func (m *Manager) getContainer(path string) (Container, error) {
	n, err := m.getNode(path)
	if err != nil {
		return nil, err
	}
	c, ok := n.(Container)
	if !ok {
		return nil, errors.New(ErrCodeNotContainer, "path does not name a container").
			WithContext("path", path)
	}
	return c, nil
}

func lookupFailed(path, segment string) error {
	return errors.New(ErrCodeLookupFailed, "path lookup failed").
		WithContext("segment", segment).
		WithContext("path", path)
}

// Copy structurally copies the children of sourcePath into destPath and
// returns destPath. Both paths are resolved before anything is mutated.
// A failure part way through leaves the destination partially updated.
func (m *Manager) Copy(sourcePath, destPath string) (string, error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	src, err := m.getContainer(sourcePath)
	if err == nil {
		var dst Container
		if dst, err = m.getContainer(destPath); err == nil {
			if err = checkCopyTarget(src, dst); err == nil {
				err = m.copyInto(src, dst)
			}
		}
	}
	observeOperation("copy", start, err)
	if err != nil {
		return "", err
	}
	return destPath, nil
}

// SaveRunning snapshots config.running under a new timestamp name and
// returns the snapshot path. The snapshot is persisted when storage is
// attached.
func (m *Manager) SaveRunning(ctx context.Context) (path string, err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.finish(AuditEventSaveRunning, start, err) }()

	name := m.namer.next(m.clock(), m.saved.HasChild)
	snapshot := NewObject(name)
	if _, err = m.saved.AddChild(snapshot); err != nil {
		return "", err
	}
	if err = m.copyInto(m.running, snapshot); err != nil {
		_, _ = m.saved.RemoveChild(name)
		return "", err
	}

	if m.storage != nil {
		data, exportErr := ExportMap(snapshot)
		if exportErr != nil {
			_, _ = m.saved.RemoveChild(name)
			return "", exportErr
		}
		if err = m.storage.SaveCurrent(ctx, name, data); err != nil {
			_, _ = m.saved.RemoveChild(name)
			return "", errors.Wrap(err, ErrCodeStorageError, "failed to persist snapshot").
				WithContext("snapshot", name)
		}
	}

	m.audit.LogSnapshot(AuditEventSaveRunning, name)
	m.updateSnapshotGauge()
	return JoinPath(PathSaved, name), nil
}

// RestoreRunning copies a savepoint into config.running. An empty
// savepoint means CurrentAlias. A savepoint may be a snapshot name,
// StagedSlot, CurrentAlias or a full dotted path.
func (m *Manager) RestoreRunning(ctx context.Context, savepoint string) (err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.finish(AuditEventRestoreRunning, start, err) }()

	if savepoint == "" {
		savepoint = CurrentAlias
	}
	src, err := m.resolveSavepoint(ctx, savepoint)
	if err != nil {
		return err
	}
	if err = checkCopyTarget(src, m.running); err != nil {
		return err
	}
	if err = m.copyInto(src, m.running); err != nil {
		return err
	}
	m.audit.LogSnapshot(AuditEventRestoreRunning, src.Name())
	return nil
}

// SaveStaged copies config.staged into the reserved config.saved.staged
// slot and persists it when storage is attached.
func (m *Manager) SaveStaged(ctx context.Context) (err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.finish(AuditEventSaveStaged, start, err) }()

	slot, err := m.stagedSlot()
	if err != nil {
		return err
	}
	slot.Clear()
	if err = m.copyInto(m.staged, slot); err != nil {
		return err
	}

	if m.storage != nil {
		data, exportErr := ExportMap(slot)
		if exportErr != nil {
			return exportErr
		}
		if err = m.storage.SaveStaged(ctx, data); err != nil {
			return errors.Wrap(err, ErrCodeStorageError, "failed to persist staged configuration")
		}
	}
	m.audit.LogSnapshot(AuditEventSaveStaged, StagedSlot)
	return nil
}

// RestoreStaged replaces config.staged with config.saved.staged.
func (m *Manager) RestoreStaged() (err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.finish(AuditEventRestoreStaged, start, err) }()

	slot, ok := m.saved.GetChild(StagedSlot)
	if !ok {
		return lookupFailed(JoinPath(PathSaved, StagedSlot), StagedSlot)
	}
	m.staged.Clear()
	if err = m.copyInto(slot.(Container), m.staged); err != nil {
		return err
	}
	m.audit.LogSnapshot(AuditEventRestoreStaged, StagedSlot)
	return nil
}

// DeployStaged copies config.staged into config.running. Nothing is
// persisted.
func (m *Manager) DeployStaged() (err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.finish(AuditEventDeployStaged, start, err) }()

	if err = m.copyInto(m.staged, m.running); err != nil {
		return err
	}
	m.audit.LogSnapshot(AuditEventDeployStaged, "")
	return nil
}

// SaveToStaged replaces config.staged with a copy of name. An empty name
// means config.running; a bare snapshot name resolves under config.saved.
func (m *Manager) SaveToStaged(ctx context.Context, name string) (err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.finish(AuditEventSaveToStaged, start, err) }()

	var src Container = m.running
	if name != "" && name != PathRunning {
		if src, err = m.resolveSavepoint(ctx, name); err != nil {
			return err
		}
	}
	if err = checkCopyTarget(src, m.staged); err != nil {
		return err
	}
	m.staged.Clear()
	if err = m.copyInto(src, m.staged); err != nil {
		return err
	}
	m.audit.LogSnapshot(AuditEventSaveToStaged, name)
	return nil
}

// ImportStaged replaces config.staged with nested plain data.
func (m *Manager) ImportStaged(data map[string]interface{}) (err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.finish(AuditEventImportStaged, start, err) }()

	m.staged.Clear()
	return Import(m.staged, data)
}

// ArchiveSaved archives every snapshot strictly older than cutoff and
// returns the newly archived names. Archived snapshots stay addressable by
// path but disappear from ListSaved and from CurrentAlias.
func (m *Manager) ArchiveSaved(ctx context.Context, cutoff time.Time) (names []string, err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.finish(AuditEventArchive, start, err) }()

	cutoffName := FormatSnapshotName(cutoff)
	for _, name := range m.saved.Keys() {
		if IsSnapshotName(name) && name < cutoffName && !m.archived[name] {
			m.archived[name] = true
			names = append(names, name)
		}
	}
	if m.storage != nil {
		if err = m.storage.Archive(ctx, cutoffName); err != nil {
			return names, errors.Wrap(err, ErrCodeStorageError, "failed to archive snapshots").
				WithContext("cutoff", cutoffName)
		}
	}

	m.audit.Log(AuditCritical, AuditEventArchive, PathSaved, cutoffName, nil, len(names), nil)
	m.updateSnapshotGauge()
	return names, nil
}

// PruneSaved removes every snapshot strictly older than cutoff from the
// tree, invoking Delete hooks, and returns the removed names. Persisted
// copies are not touched.
func (m *Manager) PruneSaved(cutoff time.Time) (names []string, err error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.finish(AuditEventPrune, start, err) }()

	cutoffName := FormatSnapshotName(cutoff)
	for _, name := range m.saved.Keys() {
		if !IsSnapshotName(name) || name >= cutoffName {
			continue
		}
		if err = m.removeChild(m.saved, name); err != nil {
			return names, err
		}
		delete(m.archived, name)
		names = append(names, name)
	}

	m.audit.Log(AuditCritical, AuditEventPrune, PathSaved, cutoffName, nil, len(names), nil)
	m.updateSnapshotGauge()
	return names, nil
}

// ListSaved returns non-archived snapshot names, newest first. The staged
// slot is not included.
func (m *Manager) ListSaved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listSaved()
}

func (m *Manager) listSaved() []string {
	var names []string
	for _, name := range m.saved.Keys() {
		if IsSnapshotName(name) && !m.archived[name] {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}

// IsArchived reports whether the snapshot name has been archived.
func (m *Manager) IsArchived(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.archived[name]
}

// Close releases the attached storage adaptor and flushes the audit trail.
// Delete hooks are not invoked.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.storage != nil {
		err = m.storage.Close()
		m.storage = nil
	}
	if flushErr := m.audit.Flush(); err == nil {
		err = flushErr
	}
	return err
}

// resolveSavepoint returns the container a savepoint refers to, loading it
// from storage when it is not yet in the tree.
func (m *Manager) resolveSavepoint(ctx context.Context, savepoint string) (Container, error) {
	if savepoint != CurrentAlias && savepoint != StagedSlot && !IsSnapshotName(savepoint) &&
		strings.Contains(savepoint, PathSeparator) {
		return m.getContainer(savepoint)
	}

	if savepoint == CurrentAlias {
		if m.storage != nil {
			name, data, ok, err := m.storage.LoadCurrent(ctx)
			if err != nil {
				return nil, errors.Wrap(err, ErrCodeStorageError, "failed to load current snapshot")
			}
			if !ok {
				return nil, lookupFailed(JoinPath(PathSaved, CurrentAlias), CurrentAlias)
			}
			return m.cacheSnapshot(name, data)
		}
		names := m.listSaved()
		if len(names) == 0 {
			return nil, lookupFailed(JoinPath(PathSaved, CurrentAlias), CurrentAlias)
		}
		savepoint = names[0]
	}

	if child, ok := m.saved.GetChild(savepoint); ok {
		if c, isContainer := child.(Container); isContainer {
			return c, nil
		}
	}
	if m.storage != nil && IsSnapshotName(savepoint) {
		data, ok, err := m.storage.LoadSaved(ctx, savepoint)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeStorageError, "failed to load snapshot").
				WithContext("snapshot", savepoint)
		}
		if ok {
			return m.cacheSnapshot(savepoint, data)
		}
	}
	return nil, lookupFailed(JoinPath(PathSaved, savepoint), savepoint)
}

// cacheSnapshot returns saved.<name>, importing data when it is missing.
func (m *Manager) cacheSnapshot(name string, data map[string]interface{}) (Container, error) {
	if child, ok := m.saved.GetChild(name); ok {
		if c, isContainer := child.(Container); isContainer {
			return c, nil
		}
	}
	snapshot := NewTree(name, data)
	if _, err := m.saved.AddChild(snapshot); err != nil {
		return nil, err
	}
	m.namer.observe(name)
	return snapshot, nil
}

func (m *Manager) stagedSlot() (Container, error) {
	if child, ok := m.saved.GetChild(StagedSlot); ok {
		if c, isContainer := child.(Container); isContainer {
			return c, nil
		}
		if err := m.removeChild(m.saved, StagedSlot); err != nil {
			return nil, err
		}
	}
	slot := NewObject(StagedSlot)
	if _, err := m.saved.AddChild(slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// removeChild detaches key from parent and runs the Delete hook.
func (m *Manager) removeChild(parent Container, key string) error {
	child, err := parent.RemoveChild(key)
	if err != nil {
		return err
	}
	return child.Delete()
}

// finish records metrics and failures for a lifecycle operation.
func (m *Manager) finish(operation string, start time.Time, err error) {
	observeOperation(operation, start, err)
	if err != nil {
		m.audit.LogFailure(operation, err)
	}
}

func (m *Manager) updateSnapshotGauge() {
	savedSnapshots.WithLabelValues(m.serverID).Set(float64(len(m.listSaved())))
}

// reportError forwards a background error to the configured handler.
func (m *Manager) reportError(err error, operation string) {
	if err != nil && m.errorHandler != nil {
		m.errorHandler(err, operation)
	}
}
