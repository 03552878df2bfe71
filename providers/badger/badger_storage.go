// badger_storage.go: BadgerDB snapshot storage for Arbor
//
// Key layout, one keyspace per server:
//
//	snap/<server>/<name>    JSON snapshot
//	arch/<server>/<name>    archive marker (empty value)
//	staged/<server>         JSON staged tree
//
// Snapshot names sort chronologically, so a reverse prefix scan yields the
// newest first.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package badger

import (
	"context"
	"encoding/json"

	"github.com/agilira/arbor"
	"github.com/agilira/go-errors"
	"github.com/dgraph-io/badger/v4"
)

// Scheme is the URL scheme handled by this package. "badger://" with an
// empty location opens an in-memory database.
const Scheme = "badger"

// Register adds the "badger" scheme to registry.
func Register(registry *arbor.StorageRegistry) error {
	return registry.Register(Scheme, Open)
}

// Storage implements arbor.StorageAdaptor on BadgerDB.
type Storage struct {
	db       *badger.DB
	serverID string
}

// Open matches arbor.StorageFactory.
func Open(serverID, dir string) (arbor.StorageAdaptor, error) {
	return New(serverID, dir)
}

// New opens the database in dir, or in memory when dir is empty.
func New(serverID, dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, arbor.ErrCodeStorageError, "failed to open BadgerDB").
			WithContext("dir", dir)
	}
	return &Storage{db: db, serverID: serverID}, nil
}

func (s *Storage) snapPrefix() []byte {
	return []byte("snap/" + s.serverID + "/")
}

func (s *Storage) snapKey(name string) []byte {
	return []byte("snap/" + s.serverID + "/" + name)
}

func (s *Storage) archKey(name string) []byte {
	return []byte("arch/" + s.serverID + "/" + name)
}

func (s *Storage) stagedKey() []byte {
	return []byte("staged/" + s.serverID)
}

// LoadCurrent returns the newest non-archived snapshot.
func (s *Storage) LoadCurrent(ctx context.Context) (string, map[string]interface{}, bool, error) {
	names, err := s.ListSaved(ctx)
	if err != nil || len(names) == 0 {
		return "", nil, false, err
	}
	data, ok, err := s.LoadSaved(ctx, names[0])
	return names[0], data, ok, err
}

// LoadStaged returns the staged tree.
func (s *Storage) LoadStaged(ctx context.Context) (map[string]interface{}, bool, error) {
	return s.load(s.stagedKey())
}

// LoadSaved returns the snapshot called name.
func (s *Storage) LoadSaved(ctx context.Context, name string) (map[string]interface{}, bool, error) {
	return s.load(s.snapKey(name))
}

func (s *Storage) load(key []byte) (map[string]interface{}, bool, error) {
	var data map[string]interface{}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &data)
		})
	})
	if err != nil {
		return nil, false, errors.Wrap(err, arbor.ErrCodeStorageError, "failed to load snapshot").
			WithContext("key", string(key))
	}
	if found && data == nil {
		data = make(map[string]interface{})
	}
	return data, found, nil
}

// SaveCurrent stores snapshot name.
func (s *Storage) SaveCurrent(ctx context.Context, name string, data map[string]interface{}) error {
	return s.store(s.snapKey(name), data)
}

// SaveStaged replaces the staged tree.
func (s *Storage) SaveStaged(ctx context.Context, data map[string]interface{}) error {
	return s.store(s.stagedKey(), data)
}

func (s *Storage) store(key []byte, data map[string]interface{}) error {
	value, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, arbor.ErrCodeInvalidValue, "failed to encode snapshot")
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}); err != nil {
		return errors.Wrap(err, arbor.ErrCodeStorageError, "failed to store snapshot").
			WithContext("key", string(key))
	}
	return nil
}

// ListSaved returns non-archived snapshot names, newest first.
func (s *Storage) ListSaved(ctx context.Context) ([]string, error) {
	prefix := s.snapPrefix()
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// reverse iteration starts from the last key sharing the prefix
		seek := append(append([]byte(nil), prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			name := string(it.Item().Key()[len(prefix):])
			if _, err := txn.Get(s.archKey(name)); err == nil {
				continue
			} else if err != badger.ErrKeyNotFound {
				return err
			}
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, arbor.ErrCodeStorageError, "failed to list snapshots")
	}
	return names, nil
}

// Archive writes archive markers for snapshots older than cutoff.
func (s *Storage) Archive(ctx context.Context, cutoff string) error {
	prefix := s.snapPrefix()
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var older []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			name := string(it.Item().Key()[len(prefix):])
			if name >= cutoff {
				break
			}
			older = append(older, name)
		}
		it.Close()

		for _, name := range older {
			if err := txn.Set(s.archKey(name), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, arbor.ErrCodeStorageError, "failed to archive snapshots").
			WithContext("cutoff", cutoff)
	}
	return nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}
