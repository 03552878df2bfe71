// sqlite_storage.go: SQLite snapshot storage for Arbor
//
// Snapshots live in a single table keyed by (server_id, saved). The staged
// tree is stored as a row with a reserved timestamp that sorts before every
// real snapshot name.
//
//	registry := arbor.NewStorageRegistry()
//	_ = sqlite.Register(registry)
//	manager := arbor.NewManager(arbor.WithStorageRegistry(registry))
//	err := manager.Load(ctx, "sqlite:///var/lib/arbor/config.db")
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agilira/arbor"
	"github.com/agilira/go-errors"
	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// StagedTimestamp is the reserved saved value of the staged row.
const StagedTimestamp = "1970-01-01T00:00:00.000000"

const schemaVersion = 1

// Register adds the "sqlite" and "sqlite3" schemes to registry.
func Register(registry *arbor.StorageRegistry) error {
	for _, scheme := range []string{"sqlite", "sqlite3"} {
		if err := registry.Register(scheme, Open); err != nil {
			return err
		}
	}
	return nil
}

// Storage implements arbor.StorageAdaptor on a SQLite database.
type Storage struct {
	db       *sql.DB
	path     string
	serverID string

	loadOne   *sql.Stmt
	loadLast  *sql.Stmt
	list      *sql.Stmt
	upsert    *sql.Stmt
	archiveTo *sql.Stmt
}

// Open opens (creating if needed) the database at path for serverID.
// It matches arbor.StorageFactory.
func Open(serverID, path string) (arbor.StorageAdaptor, error) {
	return New(serverID, path)
}

// New opens the database at path for serverID.
func New(serverID, path string) (*Storage, error) {
	if path == "" {
		return nil, errors.New(arbor.ErrCodeBadStorageURL, "sqlite storage requires a database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, errors.Wrap(err, arbor.ErrCodeStorageError, "failed to create database directory").
				WithContext("path", path)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=1000", path))
	if err != nil {
		return nil, errors.Wrap(err, arbor.ErrCodeStorageError, "failed to open sqlite database").
			WithContext("path", path)
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, arbor.ErrCodeStorageError, "failed to ping sqlite database").
			WithContext("path", path)
	}

	s := &Storage{db: db, path: path, serverID: serverID}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.prepare(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_info (
		version INTEGER PRIMARY KEY,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return errors.Wrap(err, arbor.ErrCodeStorageError, "failed to create schema_info table")
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, arbor.ErrCodeStorageError, "failed to read schema version")
	}
	if version >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, arbor.ErrCodeStorageError, "failed to begin migration")
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS config (
			server_id TEXT NOT NULL,
			saved TEXT NOT NULL,
			archived INTEGER NOT NULL DEFAULT 0,
			settings TEXT NOT NULL,
			PRIMARY KEY (server_id, saved)
		)`,
		"CREATE INDEX IF NOT EXISTS idx_config_current ON config(server_id, archived, saved)",
		"INSERT OR REPLACE INTO schema_info (version, updated_at) VALUES (1, CURRENT_TIMESTAMP)",
	} {
		if _, err := tx.Exec(stmt); err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, arbor.ErrCodeStorageError, "schema migration failed")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, arbor.ErrCodeStorageError, "failed to commit migration")
	}
	return nil
}

func (s *Storage) prepare() (err error) {
	prepare := func(query string) *sql.Stmt {
		if err != nil {
			return nil
		}
		var stmt *sql.Stmt
		stmt, err = s.db.Prepare(query)
		return stmt
	}

	s.loadOne = prepare("SELECT settings FROM config WHERE server_id = ? AND saved = ?")
	s.loadLast = prepare(`SELECT saved, settings FROM config
		WHERE server_id = ? AND archived = 0 AND saved <> ?
		ORDER BY saved DESC LIMIT 1`)
	s.list = prepare(`SELECT saved FROM config
		WHERE server_id = ? AND archived = 0 AND saved <> ?
		ORDER BY saved DESC`)
	s.upsert = prepare("INSERT OR REPLACE INTO config (server_id, saved, archived, settings) VALUES (?, ?, 0, ?)")
	s.archiveTo = prepare("UPDATE config SET archived = 1 WHERE server_id = ? AND saved < ? AND saved <> ?")
	if err != nil {
		return errors.Wrap(err, arbor.ErrCodeStorageError, "failed to prepare statements")
	}
	return nil
}

// LoadCurrent returns the newest non-archived snapshot.
func (s *Storage) LoadCurrent(ctx context.Context) (string, map[string]interface{}, bool, error) {
	var name, settings string
	err := s.loadLast.QueryRowContext(ctx, s.serverID, StagedTimestamp).Scan(&name, &settings)
	if err == sql.ErrNoRows {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, errors.Wrap(err, arbor.ErrCodeStorageError, "failed to load current snapshot")
	}
	data, err := decode(settings)
	if err != nil {
		return "", nil, false, err
	}
	return name, data, true, nil
}

// LoadStaged returns the staged row.
func (s *Storage) LoadStaged(ctx context.Context) (map[string]interface{}, bool, error) {
	return s.loadSaved(ctx, StagedTimestamp)
}

// LoadSaved returns the snapshot called name, archived or not.
func (s *Storage) LoadSaved(ctx context.Context, name string) (map[string]interface{}, bool, error) {
	if name == StagedTimestamp {
		return nil, false, nil
	}
	return s.loadSaved(ctx, name)
}

func (s *Storage) loadSaved(ctx context.Context, saved string) (map[string]interface{}, bool, error) {
	var settings string
	err := s.loadOne.QueryRowContext(ctx, s.serverID, saved).Scan(&settings)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, arbor.ErrCodeStorageError, "failed to load snapshot").
			WithContext("saved", saved)
	}
	data, err := decode(settings)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// SaveCurrent inserts snapshot name.
func (s *Storage) SaveCurrent(ctx context.Context, name string, data map[string]interface{}) error {
	return s.save(ctx, name, data)
}

// SaveStaged replaces the staged row.
func (s *Storage) SaveStaged(ctx context.Context, data map[string]interface{}) error {
	return s.save(ctx, StagedTimestamp, data)
}

func (s *Storage) save(ctx context.Context, saved string, data map[string]interface{}) error {
	settings, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, arbor.ErrCodeInvalidValue, "failed to encode snapshot").
			WithContext("saved", saved)
	}
	if _, err := s.upsert.ExecContext(ctx, s.serverID, saved, string(settings)); err != nil {
		return errors.Wrap(err, arbor.ErrCodeStorageError, "failed to store snapshot").
			WithContext("saved", saved)
	}
	return nil
}

// ListSaved returns non-archived snapshot names, newest first.
func (s *Storage) ListSaved(ctx context.Context) ([]string, error) {
	rows, err := s.list.QueryContext(ctx, s.serverID, StagedTimestamp)
	if err != nil {
		return nil, errors.Wrap(err, arbor.ErrCodeStorageError, "failed to list snapshots")
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, arbor.ErrCodeStorageError, "failed to scan snapshot name")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Archive marks snapshots older than cutoff.
func (s *Storage) Archive(ctx context.Context, cutoff string) error {
	if _, err := s.archiveTo.ExecContext(ctx, s.serverID, cutoff, StagedTimestamp); err != nil {
		return errors.Wrap(err, arbor.ErrCodeStorageError, "failed to archive snapshots").
			WithContext("cutoff", cutoff)
	}
	return nil
}

// Close releases statements and the database handle.
func (s *Storage) Close() error {
	for _, stmt := range []*sql.Stmt{s.loadOne, s.loadLast, s.list, s.upsert, s.archiveTo} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return s.db.Close()
}

func decode(settings string) (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(settings), &data); err != nil {
		return nil, errors.Wrap(err, arbor.ErrCodeStorageError, "corrupt snapshot settings")
	}
	if data == nil {
		data = make(map[string]interface{})
	}
	return data, nil
}
