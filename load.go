// load.go: Populating the tree from a storage adaptor
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"context"
	"time"

	"github.com/agilira/go-errors"
)

type loadedState struct {
	staged      map[string]interface{}
	hasStaged   bool
	snapshots   map[string]map[string]interface{}
	names       []string
	currentName string
}

// Load opens the adaptor named by url, attaches it and imports its content:
// the staged tree into config.staged and config.saved.staged, every
// non-archived snapshot under config.saved, and finally the current
// snapshot into config.running. A previously attached adaptor is closed.
//
// Storage is read before the tree is locked.
func (m *Manager) Load(ctx context.Context, url string) (err error) {
	start := time.Now()
	defer func() { m.finish(AuditEventLoad, start, err) }()

	if m.storages == nil {
		return errors.New(ErrCodeInvalidConfig, "no storage registry configured").
			WithContext("url", url)
	}
	adaptor, err := m.storages.Open(m.serverID, url)
	if err != nil {
		return err
	}

	state, err := readStorage(ctx, adaptor)
	if err != nil {
		_ = adaptor.Close()
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.storage != nil {
		_ = m.storage.Close()
	}
	m.storage = adaptor

	if state.hasStaged {
		m.staged.Clear()
		if err = Import(m.staged, state.staged); err != nil {
			return err
		}
		slot, slotErr := m.stagedSlot()
		if slotErr != nil {
			return slotErr
		}
		slot.Clear()
		if err = Import(slot, state.staged); err != nil {
			return err
		}
	}

	for _, name := range state.names {
		if m.saved.HasChild(name) {
			if err = m.removeChild(m.saved, name); err != nil {
				return err
			}
		}
		if _, err = m.cacheSnapshot(name, state.snapshots[name]); err != nil {
			return err
		}
	}

	if state.currentName != "" {
		current, _ := m.saved.GetChild(state.currentName)
		if err = m.copyInto(current.(Container), m.running); err != nil {
			return err
		}
	}

	m.audit.Log(AuditCritical, AuditEventLoad, "", state.currentName, nil, len(state.names), map[string]interface{}{
		"url": url,
	})
	m.updateSnapshotGauge()
	return nil
}

func readStorage(ctx context.Context, adaptor StorageAdaptor) (*loadedState, error) {
	state := &loadedState{snapshots: make(map[string]map[string]interface{})}

	staged, ok, err := adaptor.LoadStaged(ctx)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeStorageError, "failed to load staged configuration")
	}
	state.staged, state.hasStaged = staged, ok

	names, err := adaptor.ListSaved(ctx)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeStorageError, "failed to list snapshots")
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, ok, err := adaptor.LoadSaved(ctx, name)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeStorageError, "failed to load snapshot").
				WithContext("snapshot", name)
		}
		if ok {
			state.snapshots[name] = data
			state.names = append(state.names, name)
		}
	}

	currentName, currentData, ok, err := adaptor.LoadCurrent(ctx)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeStorageError, "failed to load current snapshot")
	}
	if ok {
		if _, listed := state.snapshots[currentName]; !listed {
			state.snapshots[currentName] = currentData
			state.names = append(state.names, currentName)
		}
		state.currentName = currentName
	}
	return state, nil
}
