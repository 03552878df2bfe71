// Command handlers for the Arbor CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/agilira/arbor"
	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// handleServe runs a server until SIGINT or SIGTERM.
func (m *Manager) handleServe(ctx *orpheus.Context) error {
	config, err := m.serveConfig(ctx)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return m.Serve(runCtx, config)
}

// handleSnapshotsList prints saved snapshot names, newest first.
func (m *Manager) handleSnapshotsList(ctx *orpheus.Context) error {
	tree, err := m.openTree(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tree.Close() }()

	names := tree.ListSaved()
	if len(names) == 0 {
		fmt.Fprintln(m.out, "No saved snapshots")
		return nil
	}
	for i, name := range names {
		if i == 0 {
			fmt.Fprintf(m.out, "%s (current)\n", name)
			continue
		}
		fmt.Fprintln(m.out, name)
	}
	return nil
}

// handleSnapshotsShow prints one snapshot. "current" names the newest.
func (m *Manager) handleSnapshotsShow(ctx *orpheus.Context) error {
	name := ctx.GetArg(0)
	if name == "" {
		return errors.New(arbor.ErrCodeInvalidValue, "snapshot name required")
	}

	tree, err := m.openTree(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tree.Close() }()

	if name == arbor.CurrentAlias {
		names := tree.ListSaved()
		if len(names) == 0 {
			return errors.New(arbor.ErrCodeLookupFailed, "no current snapshot")
		}
		name = names[0]
	}
	return m.printSubtree(tree, arbor.JoinPath(arbor.PathSaved, name), m.outputFormat(ctx.GetFlagString("format"), ""))
}

// handleSnapshotsArchive archives snapshots older than --older-than.
func (m *Manager) handleSnapshotsArchive(ctx *orpheus.Context) error {
	age, err := parseExtendedDuration(ctx.GetFlagString("older-than"))
	if err != nil {
		return errors.Wrap(err, arbor.ErrCodeInvalidValue, "invalid --older-than")
	}

	tree, err := m.openTree(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tree.Close() }()

	cutoff := timecache.CachedTime().Add(-age)
	names, err := tree.ArchiveSaved(context.Background(), cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Archived %d snapshot(s) older than %s\n", len(names), arbor.FormatSnapshotName(cutoff))
	for _, name := range names {
		fmt.Fprintf(m.out, "  %s\n", name)
	}
	return nil
}

// handleStagedShow prints the persisted staged configuration.
func (m *Manager) handleStagedShow(ctx *orpheus.Context) error {
	tree, err := m.openTree(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tree.Close() }()

	return m.printSubtree(tree, arbor.PathStaged, m.outputFormat(ctx.GetFlagString("format"), ""))
}

// handleStagedImport replaces the staged configuration with a file's
// contents and persists it. Running configurations are not touched.
func (m *Manager) handleStagedImport(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	if filePath == "" {
		return errors.New(arbor.ErrCodeInvalidValue, "input file required")
	}

	format := m.detectFormat(filePath, ctx.GetFlagString("format"))
	data, err := m.loadFile(filePath, format)
	if err != nil {
		return err
	}

	tree, err := m.openTree(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tree.Close() }()

	if err := tree.ImportStaged(data); err != nil {
		return err
	}
	if err := tree.SaveStaged(context.Background()); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Imported %s into %s\n", filePath, arbor.PathStaged)
	return nil
}

// handleExport writes the current configuration to stdout or --output.
func (m *Manager) handleExport(ctx *orpheus.Context) error {
	output := ctx.GetFlagString("output")

	tree, err := m.openTree(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tree.Close() }()

	format := m.outputFormat(ctx.GetFlagString("format"), output)
	if output == "" {
		return m.printSubtree(tree, arbor.PathRunning, format)
	}

	raw, err := m.encodeSubtree(tree, arbor.PathRunning, format)
	if err != nil {
		return err
	}
	if err := arbor.WriteFileAtomic(output, raw, 0600); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Exported %s (%s) to %s\n", arbor.PathRunning, format, output)
	return nil
}

// handleValidate checks a configuration file, or the environment when no
// file is given, and prints errors and warnings.
func (m *Manager) handleValidate(ctx *orpheus.Context) error {
	var config *arbor.Config
	var err error
	source := ctx.GetArg(0)
	if source != "" {
		config, err = arbor.LoadConfigFile(source)
	} else {
		source = "environment"
		config, err = arbor.LoadConfigFromEnv()
	}
	if err != nil {
		return err
	}

	result := config.ValidateDetailed()
	fmt.Fprintf(m.out, "%s: %s\n", source, result)
	for _, msg := range result.Errors {
		fmt.Fprintf(m.out, "  error: %s\n", msg)
	}
	for _, msg := range result.Warnings {
		fmt.Fprintf(m.out, "  warning: %s\n", msg)
	}
	if !result.Valid {
		return errors.New(arbor.ErrCodeInvalidConfig, "configuration is invalid").
			WithContext("source", source)
	}
	return nil
}

// handleInfo displays system information and diagnostics.
func (m *Manager) handleInfo(ctx *orpheus.Context) error {
	verbose := ctx.GetFlagBool("verbose")

	fmt.Fprintf(m.out, "Arbor Configuration Tree\n")
	fmt.Fprintf(m.out, "Version: %s\n", Version)
	fmt.Fprintf(m.out, "Storage schemes: %s\n", strings.Join(m.storage.Schemes(), ", "))
	fmt.Fprintf(m.out, "Access schemes: %s\n", strings.Join(m.access.Schemes(), ", "))

	if verbose {
		fmt.Fprintf(m.out, "\nSystem Details:\n")
		fmt.Fprintf(m.out, "Go version: %s\n", runtime.Version())
		fmt.Fprintf(m.out, "Snapshot name format: %s (UTC)\n", arbor.SnapshotTimeFormat)
		fmt.Fprintf(m.out, "Export formats: json, yaml\n")
		fmt.Fprintf(m.out, "Audit logging: %v\n", m.auditLogger != nil)
		fmt.Fprintf(m.out, "Flags: --%s\n", strings.Join(arbor.FlagNames(), ", --"))
	}

	return nil
}

// handleCompletion generates shell completion scripts.
func (m *Manager) handleCompletion(ctx *orpheus.Context) error {
	shell := ctx.GetArg(0)
	commands := "serve snapshots staged export validate info completion"

	switch shell {
	case "bash":
		fmt.Fprintf(m.out, "# Bash completion for arbor\n")
		fmt.Fprintf(m.out, "# Add to ~/.bashrc: source <(arbor completion bash)\n")
		fmt.Fprintf(m.out, "_arbor_completion() {\n")
		fmt.Fprintf(m.out, "  COMPREPLY=($(compgen -W '%s' -- \"${COMP_WORDS[COMP_CWORD]}\"))\n", commands)
		fmt.Fprintf(m.out, "}\n")
		fmt.Fprintf(m.out, "complete -F _arbor_completion arbor\n")
	case "zsh":
		fmt.Fprintf(m.out, "#compdef arbor\n")
		fmt.Fprintf(m.out, "_arbor() {\n")
		fmt.Fprintf(m.out, "  _arguments '1: :(%s)'\n", commands)
		fmt.Fprintf(m.out, "}\n")
	case "fish":
		fmt.Fprintf(m.out, "complete -c arbor -f -a '%s'\n", commands)
	default:
		return errors.New(arbor.ErrCodeInvalidConfig, fmt.Sprintf("unsupported shell: %s", shell))
	}

	return nil
}
