// Package cli provides the command-line interface for Arbor configuration trees.
//
// The CLI is built on the Orpheus framework and offers two kinds of commands:
// "serve" runs a server that keeps a live tree behind an access adaptor, and
// the offline commands (snapshots, staged, export) load a tree from a storage
// URL, act on it and exit.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"io"
	"os"

	"github.com/agilira/arbor"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Version is reported by "arbor --version" and "arbor info".
const Version = "1.0.0"

// Manager wires Orpheus commands to Arbor storage and access registries.
type Manager struct {
	app         *orpheus.App
	storage     *arbor.StorageRegistry
	access      *arbor.AccessRegistry
	auditLogger *arbor.AuditLogger // Optional audit integration
	out         io.Writer
}

// NewManager creates a CLI manager. Storage and access schemes are resolved
// through the given registries, which the caller populates.
func NewManager(storage *arbor.StorageRegistry, access *arbor.AccessRegistry) *Manager {
	if storage == nil {
		storage = arbor.NewStorageRegistry()
	}
	if access == nil {
		access = arbor.NewAccessRegistry()
	}

	app := orpheus.New("arbor").
		SetDescription("Live hierarchical configuration trees with snapshots").
		SetVersion(Version)

	manager := &Manager{
		app:     app,
		storage: storage,
		access:  access,
		out:     os.Stdout,
	}

	manager.setupServeCommand()
	manager.setupSnapshotCommands()
	manager.setupStagedCommands()
	manager.setupUtilityCommands()

	return manager
}

// WithAudit records offline tree operations in auditLogger.
func (m *Manager) WithAudit(auditLogger *arbor.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// WithOutput redirects command output, stdout by default.
func (m *Manager) WithOutput(w io.Writer) *Manager {
	m.out = w
	return m
}

// Run executes the CLI application with the provided arguments.
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// addTreeFlags adds the flags every offline command needs to load a tree.
func addTreeFlags(cmd *orpheus.Command) {
	cmd.AddFlag("storage", "s", arbor.GetEnvWithDefault(arbor.EnvStorageURL, arbor.DefaultStorageURL), "Storage URL (sqlite://path, badger://dir, yaml://dir)")
	cmd.AddFlag("server-id", "i", arbor.GetEnvWithDefault(arbor.EnvServerID, arbor.DefaultServerID), "Server identifier")
}

func (m *Manager) setupServeCommand() {
	serveCmd := orpheus.NewCommand("serve", "Run a configuration server").
		SetHandler(m.handleServe)
	// empty defaults let --config and ARBOR_* values through
	serveCmd.AddFlag("storage", "s", "", "Storage URL (memory://, sqlite://path, badger://dir, yaml://dir)")
	serveCmd.AddFlag("server-id", "i", "", "Server identifier")
	serveCmd.AddFlag("access", "a", "", "Access URL (http://host:port)")
	serveCmd.AddFlag("snapshot-interval", "n", "", "Interval between scheduled snapshots (e.g. 1h)")
	serveCmd.AddFlag("retention", "r", "", "Archive snapshots older than this (e.g. 30d, 2w)")
	serveCmd.AddBoolFlag("prune-archived", "p", false, "Remove archived snapshots from the tree")
	serveCmd.AddFlag("audit-file", "", "", "Enable auditing to this file (.jsonl or .db)")
	serveCmd.AddFlag("config", "c", "", "Configuration file (YAML or JSON) used instead of the environment")
	m.app.AddCommand(serveCmd)
}

// setupSnapshotCommands configures the 'snapshots' command group.
func (m *Manager) setupSnapshotCommands() {
	snapshotsCmd := orpheus.NewCommand("snapshots", "Saved snapshot operations")

	// snapshots list
	listCmd := snapshotsCmd.Subcommand("list", "List saved snapshots, newest first", m.handleSnapshotsList)
	addTreeFlags(listCmd)

	// snapshots show <name> [--format=json]
	showCmd := snapshotsCmd.Subcommand("show", "Print a snapshot", m.handleSnapshotsShow)
	addTreeFlags(showCmd)
	showCmd.AddFlag("format", "f", "json", "Output format (json|yaml)")

	// snapshots archive --older-than=30d
	archiveCmd := snapshotsCmd.Subcommand("archive", "Archive old snapshots", m.handleSnapshotsArchive)
	addTreeFlags(archiveCmd)
	archiveCmd.AddFlag("older-than", "o", "30d", "Archive snapshots older than")

	m.app.AddCommand(snapshotsCmd)
}

// setupStagedCommands configures the 'staged' command group.
func (m *Manager) setupStagedCommands() {
	stagedCmd := orpheus.NewCommand("staged", "Staged configuration operations")

	showCmd := stagedCmd.Subcommand("show", "Print the staged configuration", m.handleStagedShow)
	addTreeFlags(showCmd)
	showCmd.AddFlag("format", "f", "json", "Output format (json|yaml)")

	// staged import <file> [--format=auto]
	importCmd := stagedCmd.Subcommand("import", "Replace the staged configuration from a file", m.handleStagedImport)
	addTreeFlags(importCmd)
	importCmd.AddFlag("format", "f", "auto", "Input format (auto|json|yaml)")

	m.app.AddCommand(stagedCmd)
}

func (m *Manager) setupUtilityCommands() {
	// export [--output=file] [--format=json]
	exportCmd := orpheus.NewCommand("export", "Export the current configuration").
		SetHandler(m.handleExport)
	addTreeFlags(exportCmd)
	exportCmd.AddFlag("format", "f", "auto", "Output format (auto|json|yaml)")
	exportCmd.AddFlag("output", "o", "", "Write to file instead of stdout")
	m.app.AddCommand(exportCmd)

	// validate [file]
	validateCmd := orpheus.NewCommand("validate", "Validate a server configuration file or the ARBOR_* environment").
		SetHandler(m.handleValidate)
	m.app.AddCommand(validateCmd)

	infoCmd := orpheus.NewCommand("info", "System information and diagnostics")
	infoCmd.SetHandler(m.handleInfo)
	infoCmd.AddBoolFlag("verbose", "v", false, "Verbose system information")
	m.app.AddCommand(infoCmd)

	completionCmd := orpheus.NewCommand("completion", "Generate shell completion scripts")
	completionCmd.SetHandler(m.handleCompletion)
	m.app.AddCommand(completionCmd)
}
