// audit_backend.go: Storage backends for the Arbor audit trail
//
// Two backends are provided. The SQLite backend keeps a queryable history
// with versioned schema migrations. The JSONL backend appends one event per
// line and is selected by a ".jsonl" OutputFile.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend persists batches of audit events.
type auditBackend interface {
	// Write persists a batch of events. Implementations must be safe for
	// concurrent use.
	Write(events []AuditEvent) error

	// Flush commits pending writes to durable storage
	Flush() error

	// Close releases resources; the backend must not be used afterwards
	Close() error

	// GetStats reports event counts and schema information
	GetStats() (*AuditDatabaseStats, error)
}

// AuditDatabaseStats summarises the contents of an audit backend.
type AuditDatabaseStats struct {
	TotalEvents   int64            `json:"total_events"`
	EventsByName  map[string]int64 `json:"events_by_name"`
	EventsByLevel map[string]int64 `json:"events_by_level"`
	DatabaseSize  int64            `json:"database_size_bytes"`
	SchemaVersion int              `json:"schema_version"`
}

// createAuditBackend selects JSONL for ".jsonl" files and SQLite otherwise,
// falling back to JSONL when SQLite cannot be opened.
func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".jsonl" {
		return newJSONLBackend(config)
	}

	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}

	jsonlBackend, jsonlErr := newJSONLBackend(config)
	if jsonlErr != nil {
		return nil, fmt.Errorf("all audit backends failed - SQLite: %w, JSONL: %v", err, jsonlErr)
	}
	return jsonlBackend, nil
}

// getUnifiedAuditPath returns the shared audit database path.
func getUnifiedAuditPath() string {
	return filepath.Join(os.TempDir(), "arbor", "audit.db")
}

type sqliteAuditBackend struct {
	db         *sql.DB
	dbPath     string
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath := getUnifiedAuditPath()
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".db" {
		dbPath = config.OutputFile
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit database directory: %w", err)
	}

	db, err := openSQLiteDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	backend := &sqliteAuditBackend{db: db, dbPath: dbPath}
	if err := backend.ensureSchemaVersion(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize audit database schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare audit database statements: %w", err)
	}
	return backend, nil
}

// openSQLiteDatabase opens dbPath in WAL mode and verifies the connection.
func openSQLiteDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=1000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database (close error: %v): %w", closeErr, err)
		}
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}
	return db, nil
}

const auditSchemaVersion = 2

// ensureSchemaVersion applies pending migrations inside one transaction.
func (s *sqliteAuditBackend) ensureSchemaVersion() error {
	if _, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_info (
		version INTEGER PRIMARY KEY,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create schema_info table: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check schema version: %w", err)
	}
	if version >= auditSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	for v := version; v < auditSchemaVersion; v++ {
		var migrateErr error
		switch v {
		case 0:
			migrateErr = migrateAuditV1(tx)
		case 1:
			migrateErr = migrateAuditV2(tx)
		default:
			migrateErr = fmt.Errorf("unknown migration path from version %d", v)
		}
		if migrateErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration to v%d failed: %w", v+1, migrateErr)
		}
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO schema_info (version, updated_at) VALUES (?, CURRENT_TIMESTAMP)`, auditSchemaVersion); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return tx.Commit()
}

func migrateAuditV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		event TEXT NOT NULL,
		component TEXT NOT NULL,
		server_id TEXT,
		path TEXT,
		snapshot TEXT,
		old_value TEXT,
		new_value TEXT,
		process_id INTEGER NOT NULL,
		process_name TEXT NOT NULL,
		context TEXT,
		checksum TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

func migrateAuditV2(tx *sql.Tx) error {
	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_server_event ON audit_events(server_id, event, timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_snapshot ON audit_events(snapshot)",
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteAuditBackend) prepareStatements() error {
	stmt, err := s.db.Prepare(`
	INSERT INTO audit_events (
		event_id, timestamp, level, event, component, server_id, path, snapshot,
		old_value, new_value, process_id, process_name, context, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	s.insertStmt = stmt
	return nil
}

func (s *sqliteAuditBackend) Write(events []AuditEvent) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("cannot write to closed SQLite audit backend")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txStmt := tx.Stmt(s.insertStmt)
	defer func() { _ = txStmt.Close() }()

	for _, event := range events {
		if err = insertAuditEvent(txStmt, event); err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}
	return nil
}

func insertAuditEvent(stmt *sql.Stmt, event AuditEvent) error {
	oldValue, err := marshalOptional(event.OldValue)
	if err != nil {
		return err
	}
	newValue, err := marshalOptional(event.NewValue)
	if err != nil {
		return err
	}
	var context string
	if event.Context != nil {
		if context, err = marshalOptional(event.Context); err != nil {
			return err
		}
	}

	_, err = stmt.Exec(
		event.ID,
		event.Timestamp.Format(time.RFC3339Nano),
		event.Level.String(),
		event.Event,
		event.Component,
		event.ServerID,
		event.Path,
		event.Snapshot,
		oldValue,
		newValue,
		event.ProcessID,
		event.ProcessName,
		context,
		event.Checksum,
	)
	return err
}

func marshalOptional(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize audit value: %w", err)
	}
	return string(data), nil
}

func (s *sqliteAuditBackend) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to flush SQLite audit backend: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	stats := &AuditDatabaseStats{
		EventsByName:  make(map[string]int64),
		EventsByLevel: make(map[string]int64),
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM audit_events").Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("failed to get total events count: %w", err)
	}
	if err := s.groupCount("event", stats.EventsByName); err != nil {
		return nil, err
	}
	if err := s.groupCount("level", stats.EventsByLevel); err != nil {
		return nil, err
	}
	err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&stats.SchemaVersion)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

// groupCount fills into with COUNT(*) grouped by column. column is always a
// constant from this file.
func (s *sqliteAuditBackend) groupCount(column string, into map[string]int64) error {
	rows, err := s.db.Query("SELECT " + column + ", COUNT(*) FROM audit_events GROUP BY " + column) // #nosec G202
	if err != nil {
		return fmt.Errorf("failed to group events by %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan %s stats: %w", column, err)
		}
		into[key] = count
	}
	return rows.Err()
}

func (s *sqliteAuditBackend) Close() error {
	if err := s.Flush(); err != nil {
		_ = err // the database is closed regardless
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing SQLite audit backend: %v", errs)
	}
	return nil
}

type jsonlAuditBackend struct {
	file   *os.File
	path   string
	count  int64
	mu     sync.Mutex
	closed bool
}

func newJSONLBackend(config AuditConfig) (*jsonlAuditBackend, error) {
	if config.OutputFile == "" {
		return nil, fmt.Errorf("JSONL backend requires OutputFile to be specified")
	}
	if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0750); err != nil {
		return nil, fmt.Errorf("failed to create JSONL audit log directory: %w", err)
	}
	file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit log file: %w", err)
	}
	return &jsonlAuditBackend{file: file, path: config.OutputFile}, nil
}

func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return fmt.Errorf("cannot write to closed JSONL audit backend")
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize audit event: %w", err)
		}
		if _, err := j.file.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write audit event to JSONL: %w", err)
		}
		j.count++
	}
	return nil
}

func (j *jsonlAuditBackend) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	return j.file.Sync()
}

// GetStats counts events written by this process only.
func (j *jsonlAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	stats := &AuditDatabaseStats{
		TotalEvents:   j.count,
		EventsByName:  make(map[string]int64),
		EventsByLevel: make(map[string]int64),
		SchemaVersion: 1,
	}
	if info, err := os.Stat(j.path); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}
