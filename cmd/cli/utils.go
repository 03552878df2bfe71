// Utility functions for the Arbor CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/agilira/arbor"
	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
)

var extendedDuration = regexp.MustCompile(`^(\d+)(d|w)$`)

// openTree builds a Manager from --storage and --server-id and loads it.
// The caller closes the returned Manager.
func (m *Manager) openTree(ctx *orpheus.Context) (*arbor.Manager, error) {
	storageURL := ctx.GetFlagString("storage")
	serverID := ctx.GetFlagString("server-id")
	if serverID == "" {
		serverID = arbor.DefaultServerID
	}

	tree := arbor.NewManager(
		arbor.WithStorageRegistry(m.storage),
		arbor.WithServerID(serverID),
		arbor.WithAuditLogger(m.auditLogger),
	)
	if err := tree.Load(context.Background(), storageURL); err != nil {
		_ = tree.Close()
		return nil, err
	}
	return tree, nil
}

// detectFormat returns the explicit format, or the one implied by filePath
// when explicitFormat is empty or "auto".
func (m *Manager) detectFormat(filePath, explicitFormat string) arbor.Format {
	if explicitFormat != "" && explicitFormat != "auto" {
		return arbor.ParseFormat(explicitFormat)
	}
	return arbor.DetectFormat(filePath)
}

// outputFormat is detectFormat with a JSON fallback.
func (m *Manager) outputFormat(explicitFormat, filePath string) arbor.Format {
	format := m.detectFormat(filePath, explicitFormat)
	if format == arbor.FormatUnknown {
		return arbor.FormatJSON
	}
	return format
}

// loadFile reads and decodes a JSON or YAML file.
func (m *Manager) loadFile(filePath string, format arbor.Format) (map[string]interface{}, error) {
	if format == arbor.FormatUnknown {
		return nil, errors.New(arbor.ErrCodeInvalidValue, "cannot detect file format").
			WithContext("path", filePath)
	}

	// #nosec G304 -- operator-supplied path
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, arbor.ErrCodeInvalidValue, "failed to read file").
			WithContext("path", filePath)
	}
	return arbor.Decode(raw, format)
}

func (m *Manager) encodeSubtree(tree *arbor.Manager, path string, format arbor.Format) ([]byte, error) {
	value, err := tree.Read(path)
	if err != nil {
		return nil, err
	}
	data, ok := value.(map[string]interface{})
	if !ok {
		return nil, errors.New(arbor.ErrCodeNotContainer, "path does not name an object").
			WithContext("path", path)
	}
	return arbor.Encode(data, format)
}

func (m *Manager) printSubtree(tree *arbor.Manager, path string, format arbor.Format) error {
	raw, err := m.encodeSubtree(tree, path, format)
	if err != nil {
		return err
	}
	_, err = m.out.Write(raw)
	if err == nil && (len(raw) == 0 || raw[len(raw)-1] != '\n') {
		_, err = fmt.Fprintln(m.out)
	}
	return err
}

// parseExtendedDuration parses duration strings with extended units (d, w).
// Supports all Go standard units (ns, us, ms, s, m, h) plus:
// - d: days (24 hours)
// - w: weeks (7 days)
//
// Examples: "30d", "2w", "7d", "24h", "5m", "30s"
func parseExtendedDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	matches := extendedDuration.FindStringSubmatch(s)
	if len(matches) != 3 {
		_, err := time.ParseDuration(s)
		return 0, err
	}

	value, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", matches[1])
	}

	switch matches[2] {
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	}
}

// optionalDuration parses s, treating "" as zero.
func optionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return parseExtendedDuration(s)
}
