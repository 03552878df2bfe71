// flags_test.go: tests for command-line flag parsing
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"sort"
	"testing"
	"time"
)

func TestParseFlags(t *testing.T) {
	base := (&Config{ServerID: "from-env", StorageURL: "yaml:///etc/arbor"}).WithDefaults()

	config, err := ParseFlags([]string{
		"--storage=sqlite:///tmp/arbor.db",
		"--snapshot-interval=10m",
		"--retention=48h",
		"--prune-archived",
	}, base)
	if err != nil {
		t.Fatalf("ParseFlags() failed: %v", err)
	}
	if config.ServerID != "from-env" {
		t.Errorf("ServerID = %q, want base value", config.ServerID)
	}
	if config.StorageURL != "sqlite:///tmp/arbor.db" {
		t.Errorf("StorageURL = %q", config.StorageURL)
	}
	if config.SnapshotInterval != 10*time.Minute || config.Retention != 48*time.Hour || !config.PruneArchived {
		t.Errorf("schedule = %v, %v, %v", config.SnapshotInterval, config.Retention, config.PruneArchived)
	}
	if base.StorageURL != "yaml:///etc/arbor" {
		t.Error("base modified")
	}
}

func TestParseFlagsHelp(t *testing.T) {
	if _, err := ParseFlags([]string{"--help"}, nil); err != ErrHelpRequested {
		t.Errorf("ParseFlags(--help) = %v", err)
	}
}

func TestParseFlagsAudit(t *testing.T) {
	config, err := ParseFlags([]string{"--audit", "--audit-file=trail.jsonl"}, nil)
	if err != nil {
		t.Fatalf("ParseFlags() failed: %v", err)
	}
	if !config.Audit.Enabled || config.Audit.OutputFile != "trail.jsonl" || config.Audit.FlushInterval == 0 {
		t.Errorf("audit = %+v", config.Audit)
	}
}

func TestFlagNames(t *testing.T) {
	names := FlagNames()
	if !sort.StringsAreSorted(names) {
		t.Errorf("FlagNames() not sorted: %v", names)
	}
	registered := make(map[string]bool, len(names))
	for _, name := range names {
		registered[name] = true
	}
	for _, want := range []string{
		FlagServerID, FlagStorage, FlagAccess, FlagSnapshotInterval,
		FlagRetention, FlagPruneArchived, FlagAuditEnabled, FlagAuditFile,
	} {
		if !registered[want] {
			t.Errorf("flag %q missing from %v", want, names)
		}
	}
}
