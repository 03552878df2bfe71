// snapshot.go: Snapshot naming and well-known tree paths
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"time"

	"github.com/agilira/go-errors"
)

// Well-known paths of the fixed top-level layout.
const (
	PathConfig  = "config"
	PathRunning = "config.running"
	PathSaved   = "config.saved"
	PathStaged  = "config.staged"
	PathStatus  = "status"
)

// Reserved names under config.saved.
const (
	// StagedSlot holds the last staged tree made durable by SaveStaged
	StagedSlot = "staged"

	// CurrentAlias resolves to the latest non-archived snapshot
	CurrentAlias = "current"
)

// SnapshotTimeFormat is the UTC layout of snapshot names. Names sort
// lexicographically in chronological order.
const SnapshotTimeFormat = "2006-01-02T15:04:05.000000"

// FormatSnapshotName renders t as a snapshot name.
func FormatSnapshotName(t time.Time) string {
	return t.UTC().Format(SnapshotTimeFormat)
}

// ParseSnapshotName parses a snapshot name back into a UTC time.
func ParseSnapshotName(name string) (time.Time, error) {
	t, err := time.ParseInLocation(SnapshotTimeFormat, name, time.UTC)
	if err != nil {
		return time.Time{}, errors.Wrap(err, ErrCodeInvalidValue, "invalid snapshot name").
			WithContext("name", name)
	}
	return t, nil
}

// IsSnapshotName reports whether name is a timestamped snapshot, as opposed
// to a reserved slot.
func IsSnapshotName(name string) bool {
	_, err := time.ParseInLocation(SnapshotTimeFormat, name, time.UTC)
	return err == nil
}

// snapshotNamer hands out strictly increasing snapshot names even when the
// clock stalls or steps backwards.
type snapshotNamer struct {
	last time.Time
}

// next returns the name for now, bumped by one microsecond until it is
// later than every name issued before and not reported taken.
func (n *snapshotNamer) next(now time.Time, taken func(string) bool) string {
	t := now.UTC().Truncate(time.Microsecond)
	if !t.After(n.last) {
		t = n.last.Add(time.Microsecond)
	}
	name := FormatSnapshotName(t)
	for taken != nil && taken(name) {
		t = t.Add(time.Microsecond)
		name = FormatSnapshotName(t)
	}
	n.last = t
	return name
}

// observe records an existing name so later names sort after it.
func (n *snapshotNamer) observe(name string) {
	if t, err := ParseSnapshotName(name); err == nil && t.After(n.last) {
		n.last = t
	}
}
