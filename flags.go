// flags.go: Command-line flags for Arbor configuration
//
// Sources are layered with precedence flags > environment > defaults:
//
//	config, err := arbor.LoadConfigFromEnv()
//	config, err = arbor.ParseFlags(os.Args[1:], config)
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"sort"
	"time"

	flashflags "github.com/agilira/flash-flags"
	"github.com/agilira/go-errors"
)

// ErrHelpRequested is returned by ParseFlags for -h and --help.
var ErrHelpRequested = errors.New(ErrCodeInvalidConfig, "help requested")

// Flag names
const (
	FlagServerID         = "server-id"
	FlagStorage          = "storage"
	FlagAccess           = "access"
	FlagSnapshotInterval = "snapshot-interval"
	FlagRetention        = "retention"
	FlagPruneArchived    = "prune-archived"
	FlagAuditFile        = "audit-file"
	FlagAuditEnabled     = "audit"
)

// NewFlagSet returns a flag set whose defaults are taken from base.
func NewFlagSet(name string, base *Config) *flashflags.FlagSet {
	if base == nil {
		base = (&Config{}).WithDefaults()
	}
	fs := flashflags.New(name)
	fs.SetDescription("Live hierarchical configuration tree with snapshot lifecycle")
	fs.String(FlagServerID, base.ServerID, "Server identifier used to key persisted snapshots")
	fs.String(FlagStorage, base.StorageURL, "Storage adaptor URL (memory://, sqlite://path, badger://dir, yaml://file)")
	fs.String(FlagAccess, base.AccessURL, "Access adaptor URL (http://host:port)")
	fs.Duration(FlagSnapshotInterval, base.SnapshotInterval, "Interval between scheduled snapshots, 0 to disable")
	fs.Duration(FlagRetention, base.Retention, "Archive snapshots older than this, 0 to keep all")
	fs.Bool(FlagPruneArchived, base.PruneArchived, "Remove archived snapshots from the tree")
	fs.Bool(FlagAuditEnabled, base.Audit.Enabled, "Enable the audit trail")
	fs.String(FlagAuditFile, base.Audit.OutputFile, "Audit output file (.jsonl or .db)")
	return fs
}

// ParseFlags parses args over base and returns the resulting configuration.
// base is not modified.
func ParseFlags(args []string, base *Config) (*Config, error) {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return nil, ErrHelpRequested
		}
	}
	if base == nil {
		base = (&Config{}).WithDefaults()
	}

	fs := NewFlagSet("arbor", base)
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to parse command-line flags")
	}
	return ConfigFromFlags(fs, base), nil
}

// ConfigFromFlags reads the values of a flag set created by NewFlagSet.
func ConfigFromFlags(fs *flashflags.FlagSet, base *Config) *Config {
	config := *base
	config.ServerID = fs.GetString(FlagServerID)
	config.StorageURL = fs.GetString(FlagStorage)
	config.AccessURL = fs.GetString(FlagAccess)
	config.SnapshotInterval = fs.GetDuration(FlagSnapshotInterval)
	config.Retention = fs.GetDuration(FlagRetention)
	config.PruneArchived = fs.GetBool(FlagPruneArchived)
	config.Audit.Enabled = fs.GetBool(FlagAuditEnabled)
	config.Audit.OutputFile = fs.GetString(FlagAuditFile)
	if config.Audit.Enabled && config.Audit.FlushInterval == 0 {
		config.Audit.FlushInterval = 5 * time.Second
	}
	return config.WithDefaults()
}

// FlagNames lists the flags registered by NewFlagSet in sorted order.
func FlagNames() []string {
	var names []string
	NewFlagSet("arbor", nil).VisitAll(func(flag *flashflags.Flag) {
		names = append(names, flag.Name())
	})
	sort.Strings(names)
	return names
}
