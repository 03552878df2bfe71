// audit.go: Audit trail for snapshot lifecycle operations
//
// Every operation that moves configuration between trees (save, restore,
// deploy, archive, prune, import) is recorded as an AuditEvent. Events are
// buffered and flushed to a pluggable backend in the background.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/google/uuid"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
	AuditSecurity
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	case AuditSecurity:
		return "SECURITY"
	default:
		return "UNKNOWN"
	}
}

// Audit event names
const (
	AuditEventSaveRunning    = "save_running"
	AuditEventRestoreRunning = "restore_running"
	AuditEventSaveStaged     = "save_staged"
	AuditEventRestoreStaged  = "restore_staged"
	AuditEventDeployStaged   = "deploy_staged"
	AuditEventSaveToStaged   = "save_to_staged"
	AuditEventArchive        = "archive_saved"
	AuditEventPrune          = "prune_saved"
	AuditEventLoad           = "load_storage"
	AuditEventImportStaged   = "import_staged"
	AuditEventWrite          = "write_leaf"
	AuditEventFailure        = "operation_failed"
)

// AuditEvent is one recorded lifecycle operation.
type AuditEvent struct {
	ID          string                 `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	Level       AuditLevel             `json:"level"`
	Event       string                 `json:"event"`
	Component   string                 `json:"component"`
	ServerID    string                 `json:"server_id,omitempty"`
	Path        string                 `json:"path,omitempty"`
	Snapshot    string                 `json:"snapshot,omitempty"`
	OldValue    interface{}            `json:"old_value,omitempty"`
	NewValue    interface{}            `json:"new_value,omitempty"`
	ProcessID   int                    `json:"process_id"`
	ProcessName string                 `json:"process_name"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Checksum    string                 `json:"checksum"`
}

// AuditConfig configures the audit system.
//
// OutputFile selects the backend by extension: ".jsonl" writes JSON lines,
// ".db" writes to that SQLite file, and an empty path uses the shared SQLite
// database under the system temp directory.
type AuditConfig struct {
	Enabled       bool          `json:"enabled"`
	OutputFile    string        `json:"output_file"`
	MinLevel      AuditLevel    `json:"min_level"`
	BufferSize    int           `json:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval"`
}

// DefaultAuditConfig returns an enabled configuration using the shared
// SQLite audit database.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		OutputFile:    "",
		MinLevel:      AuditInfo,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
	}
}

// AuditLogger buffers audit events and flushes them to a backend.
// A nil *AuditLogger is valid and records nothing.
type AuditLogger struct {
	config      AuditConfig
	serverID    string
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
	processID   int
	processName string
}

// NewAuditLogger creates an audit logger for serverID with automatic backend
// selection.
func NewAuditLogger(config AuditConfig, serverID string) (*AuditLogger, error) {
	if config.BufferSize <= 0 {
		config.BufferSize = 1
	}

	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to initialize audit backend").
			WithContext("output_file", config.OutputFile)
	}

	logger := &AuditLogger{
		config:      config,
		serverID:    serverID,
		backend:     backend,
		buffer:      make([]AuditEvent, 0, config.BufferSize),
		stopCh:      make(chan struct{}),
		processID:   os.Getpid(),
		processName: getProcessName(),
	}

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// Log records an audit event.
func (al *AuditLogger) Log(level AuditLevel, event, path, snapshot string, oldVal, newVal interface{}, context map[string]interface{}) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	auditEvent := AuditEvent{
		ID:          uuid.NewString(),
		Timestamp:   timecache.CachedTime(),
		Level:       level,
		Event:       event,
		Component:   "arbor",
		ServerID:    al.serverID,
		Path:        path,
		Snapshot:    snapshot,
		OldValue:    oldVal,
		NewValue:    newVal,
		ProcessID:   al.processID,
		ProcessName: al.processName,
		Context:     context,
	}
	auditEvent.Checksum = al.generateChecksum(auditEvent)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, auditEvent)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe() // retried on the next flush
	}
	al.bufferMu.Unlock()
}

// LogSnapshot records a lifecycle operation that produced or consumed a snapshot.
func (al *AuditLogger) LogSnapshot(event, snapshot string) {
	al.Log(AuditCritical, event, "", snapshot, nil, nil, nil)
}

// LogWrite records a leaf assignment made through an access adaptor.
func (al *AuditLogger) LogWrite(path string, oldVal, newVal interface{}) {
	al.Log(AuditCritical, AuditEventWrite, path, "", oldVal, newVal, nil)
}

// LogFailure records a failed operation.
func (al *AuditLogger) LogFailure(event string, err error) {
	al.Log(AuditWarn, AuditEventFailure, "", "", nil, nil, map[string]interface{}{
		"operation": event,
		"error":     err.Error(),
		"code":      ErrorCode(err),
	})
}

// Flush immediately writes all buffered events
func (al *AuditLogger) Flush() error {
	if al == nil {
		return nil
	}
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushBufferUnsafe()
}

// Stats returns backend statistics.
func (al *AuditLogger) Stats() (*AuditDatabaseStats, error) {
	if al == nil || al.backend == nil {
		return &AuditDatabaseStats{}, nil
	}
	if err := al.Flush(); err != nil {
		return nil, err
	}
	return al.backend.GetStats()
}

// Close flushes pending events and releases the backend. Safe to call twice.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	var closeErr error
	al.closeOnce.Do(func() {
		close(al.stopCh)
		if al.flushTicker != nil {
			al.flushTicker.Stop()
		}
		if err := al.Flush(); err != nil {
			closeErr = fmt.Errorf("failed to flush audit logger during close: %w", err)
			return
		}
		if al.backend != nil {
			if err := al.backend.Close(); err != nil {
				closeErr = fmt.Errorf("failed to close audit backend: %w", err)
			}
		}
	})
	return closeErr
}

func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush()
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes the buffer to the backend (caller must hold bufferMu).
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}
	if err := al.backend.Write(al.buffer); err != nil {
		return fmt.Errorf("failed to write audit events to backend: %w", err)
	}
	al.buffer = al.buffer[:0]
	return nil
}

// generateChecksum creates a tamper-detection checksum using SHA-256
func (al *AuditLogger) generateChecksum(event AuditEvent) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%v:%v",
		event.ID,
		event.Timestamp.Format(time.RFC3339Nano),
		event.Event, event.Path, event.Snapshot, event.OldValue, event.NewValue)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

func getProcessName() string {
	return "arbor"
}
