// scheduler.go: Periodic snapshots and retention
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// Scheduler snapshots config.running every interval and archives (and
// optionally prunes) snapshots older than the retention period.
type Scheduler struct {
	manager   *Manager
	interval  time.Duration
	retention time.Duration
	prune     bool
	onError   ErrorHandler
	now       func() time.Time

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler for m from config. Errors go to
// config.ErrorHandler, or the Manager's handler when that is nil.
func NewScheduler(m *Manager, config Config) *Scheduler {
	onError := config.ErrorHandler
	if onError == nil {
		onError = m.reportError
	}
	return &Scheduler{
		manager:   m,
		interval:  config.SnapshotInterval,
		retention: config.Retention,
		prune:     config.PruneArchived,
		onError:   onError,
		now:       timecache.CachedTime,
	}
}

// Start launches the background loop. It fails with ErrCodeSchedulerBusy if
// already running and ErrCodeInvalidConfig if the interval is not positive.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return errors.New(ErrCodeInvalidConfig, "snapshot interval must be positive").
			WithContext("interval", s.interval)
	}
	if !s.running.CompareAndSwap(false, true) {
		return errors.New(ErrCodeSchedulerBusy, "scheduler is already running")
	}

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.stopCh)
	return nil
}

// Stop ends the loop and waits for an in-flight tick to complete.
func (s *Scheduler) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return errors.New(ErrCodeSchedulerStopped, "scheduler is not running")
	}
	close(s.stopCh)
	s.wg.Wait()
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(context.Background())
		case <-stop:
			return
		}
	}
}

// Tick performs one scheduled round: a snapshot, then retention.
func (s *Scheduler) Tick(ctx context.Context) {
	if _, err := s.manager.SaveRunning(ctx); err != nil {
		s.onError(err, AuditEventSaveRunning)
	}
	if s.retention <= 0 {
		return
	}

	cutoff := s.now().Add(-s.retention)
	if _, err := s.manager.ArchiveSaved(ctx, cutoff); err != nil {
		s.onError(err, AuditEventArchive)
	}
	if s.prune {
		if _, err := s.manager.PruneSaved(cutoff); err != nil {
			s.onError(err, AuditEventPrune)
		}
	}
}
