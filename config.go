// config.go: Server configuration for an Arbor deployment
//
// Copyright (c) 2025 AGILira
// Series: AGILira System Libraries
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agilira/go-errors"
)

// Config describes how a server wires its configuration tree: where
// snapshots are stored, how the tree is exposed, and how often snapshots
// are taken and archived.
type Config struct {
	// ServerID keys persisted snapshots in shared stores
	ServerID string `json:"server_id"`

	// StorageURL selects the storage adaptor, e.g. "sqlite:///var/lib/arbor.db"
	StorageURL string `json:"storage_url"`

	// AccessURL selects the access adaptor, e.g. "http://127.0.0.1:8420"
	AccessURL string `json:"access_url"`

	// SnapshotInterval is the period of scheduled SaveRunning calls.
	// Zero disables scheduled snapshots.
	SnapshotInterval time.Duration `json:"snapshot_interval"`

	// Retention archives snapshots older than this. Zero keeps everything.
	Retention time.Duration `json:"retention"`

	// PruneArchived removes archived snapshots from the tree after archiving
	PruneArchived bool `json:"prune_archived"`

	Audit AuditConfig `json:"audit"`

	// ErrorHandler receives background errors; defaults to stderr
	ErrorHandler ErrorHandler `json:"-"`
}

// Defaults
const (
	DefaultServerID         = "default"
	DefaultStorageURL       = "memory://"
	DefaultAccessURL        = "http://127.0.0.1:8420"
	DefaultSnapshotInterval = 0
	DefaultRetention        = 0
)

// WithDefaults returns a copy of c with unset fields filled in.
func (c *Config) WithDefaults() *Config {
	config := *c

	if config.ServerID == "" {
		config.ServerID = DefaultServerID
	}
	if config.StorageURL == "" {
		config.StorageURL = DefaultStorageURL
	}
	if config.AccessURL == "" {
		config.AccessURL = DefaultAccessURL
	}
	if config.Audit.Enabled {
		if config.Audit.BufferSize <= 0 {
			config.Audit.BufferSize = DefaultAuditConfig().BufferSize
		}
		if config.Audit.FlushInterval <= 0 {
			config.Audit.FlushInterval = DefaultAuditConfig().FlushInterval
		}
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = func(err error, operation string) {
			fmt.Fprintf(os.Stderr, "arbor: %s failed: %v\n", operation, err)
		}
	}
	return &config
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.ServerID == "" {
		return invalidConfig("server id cannot be empty", "server_id", c.ServerID)
	}
	if _, _, err := splitAdaptorURL(c.StorageURL); err != nil {
		return err
	}
	if c.AccessURL != "" {
		if _, _, err := splitAdaptorURL(c.AccessURL); err != nil {
			return err
		}
	}
	if c.SnapshotInterval < 0 {
		return invalidConfig("snapshot interval cannot be negative", "snapshot_interval", c.SnapshotInterval)
	}
	if c.SnapshotInterval > 0 && c.SnapshotInterval < time.Second {
		return invalidConfig("snapshot interval must be at least one second", "snapshot_interval", c.SnapshotInterval)
	}
	if c.Retention < 0 {
		return invalidConfig("retention cannot be negative", "retention", c.Retention)
	}
	if c.PruneArchived && c.Retention == 0 {
		return invalidConfig("prune_archived requires a retention period", "retention", c.Retention)
	}
	return c.validateAudit()
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.BufferSize < 0 {
		return invalidConfig("audit buffer size cannot be negative", "audit.buffer_size", c.Audit.BufferSize)
	}
	if c.Audit.FlushInterval < 0 {
		return invalidConfig("audit flush interval cannot be negative", "audit.flush_interval", c.Audit.FlushInterval)
	}
	if c.Audit.OutputFile != "" {
		switch filepath.Ext(c.Audit.OutputFile) {
		case ".jsonl", ".db":
		default:
			return invalidConfig("audit output file must end in .jsonl or .db", "audit.output_file", c.Audit.OutputFile)
		}
	}
	return nil
}

func invalidConfig(msg, field string, value interface{}) error {
	return errors.New(ErrCodeInvalidConfig, msg).
		WithContext("field", field).
		WithContext("value", value)
}
