// yaml_storage.go: YAML file snapshot storage for Arbor
//
// Each server owns one document, <dir>/<server>.yaml:
//
//	current: "2025-03-01T10:00:00.000000"
//	staged: {...}
//	snapshots:
//	  "2025-03-01T10:00:00.000000":
//	    archived: false
//	    settings: {...}
//
// Every change rewrites the document through a temporary file and rename.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package yamlfile

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/agilira/arbor"
	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// Scheme is the URL scheme handled by this package.
const Scheme = "yaml"

// Register adds the "yaml" scheme to registry.
func Register(registry *arbor.StorageRegistry) error {
	return registry.Register(Scheme, Open)
}

type snapshotEntry struct {
	Archived bool                   `yaml:"archived"`
	Settings map[string]interface{} `yaml:"settings"`
}

type document struct {
	Current   string                    `yaml:"current,omitempty"`
	Staged    map[string]interface{}    `yaml:"staged,omitempty"`
	Snapshots map[string]*snapshotEntry `yaml:"snapshots,omitempty"`
}

// Storage implements arbor.StorageAdaptor on a YAML document.
type Storage struct {
	mu   sync.Mutex
	path string
	doc  document
}

// Open matches arbor.StorageFactory; dir holds one file per server.
func Open(serverID, dir string) (arbor.StorageAdaptor, error) {
	return New(serverID, dir)
}

// New loads (or starts) the document for serverID in dir.
func New(serverID, dir string) (*Storage, error) {
	if dir == "" {
		return nil, errors.New(arbor.ErrCodeBadStorageURL, "yaml storage requires a directory")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrap(err, arbor.ErrCodeStorageError, "failed to create storage directory").
			WithContext("dir", dir)
	}

	s := &Storage{path: filepath.Join(dir, serverID+".yaml")}
	raw, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.Wrap(err, arbor.ErrCodeStorageError, "failed to read storage file").
			WithContext("path", s.path)
	default:
		if err := yaml.Unmarshal(raw, &s.doc); err != nil {
			return nil, errors.Wrap(err, arbor.ErrCodeStorageError, "corrupt storage file").
				WithContext("path", s.path)
		}
	}
	if s.doc.Snapshots == nil {
		s.doc.Snapshots = make(map[string]*snapshotEntry)
	}
	return s, nil
}

// Path returns the document location.
func (s *Storage) Path() string {
	return s.path
}

// LoadCurrent returns the newest non-archived snapshot.
func (s *Storage) LoadCurrent(ctx context.Context) (string, map[string]interface{}, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := s.listLocked()
	if len(names) == 0 {
		return "", nil, false, nil
	}
	return names[0], s.settings(names[0]), true, nil
}

// LoadStaged returns the staged tree.
func (s *Storage) LoadStaged(ctx context.Context) (map[string]interface{}, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Staged == nil {
		return nil, false, nil
	}
	return arbor.NormalizeData(arbor.CloneData(s.doc.Staged)), true, nil
}

// LoadSaved returns the snapshot called name.
func (s *Storage) LoadSaved(ctx context.Context, name string) (map[string]interface{}, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doc.Snapshots[name]; !ok {
		return nil, false, nil
	}
	return s.settings(name), true, nil
}

func (s *Storage) settings(name string) map[string]interface{} {
	data := arbor.NormalizeData(arbor.CloneData(s.doc.Snapshots[name].Settings))
	if data == nil {
		data = make(map[string]interface{})
	}
	return data
}

// SaveCurrent adds snapshot name and makes it current.
func (s *Storage) SaveCurrent(ctx context.Context, name string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Snapshots[name] = &snapshotEntry{Settings: arbor.CloneData(data)}
	s.doc.Current = s.newestLocked()
	return s.flushLocked()
}

// SaveStaged replaces the staged tree.
func (s *Storage) SaveStaged(ctx context.Context, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Staged = arbor.CloneData(data)
	if s.doc.Staged == nil {
		s.doc.Staged = make(map[string]interface{})
	}
	return s.flushLocked()
}

// ListSaved returns non-archived names, newest first.
func (s *Storage) ListSaved(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(), nil
}

// Archive marks snapshots older than cutoff.
func (s *Storage) Archive(ctx context.Context, cutoff string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for name, entry := range s.doc.Snapshots {
		if name < cutoff && !entry.Archived {
			entry.Archived = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	s.doc.Current = s.newestLocked()
	return s.flushLocked()
}

// Close is a no-op; every change is already on disk.
func (s *Storage) Close() error {
	return nil
}

func (s *Storage) listLocked() []string {
	names := make([]string, 0, len(s.doc.Snapshots))
	for name, entry := range s.doc.Snapshots {
		if !entry.Archived {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}

func (s *Storage) newestLocked() string {
	if names := s.listLocked(); len(names) > 0 {
		return names[0]
	}
	return ""
}

func (s *Storage) flushLocked() error {
	raw, err := yaml.Marshal(&s.doc)
	if err != nil {
		return errors.Wrap(err, arbor.ErrCodeInvalidValue, "failed to encode storage file")
	}
	return arbor.WriteFileAtomic(s.path, raw, 0600)
}
