// serve.go: long-running server composition
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/agilira/arbor"
	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// ShutdownTimeout bounds how long Serve waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// serveConfig merges serve flags over the ARBOR_* environment.
func (m *Manager) serveConfig(ctx *orpheus.Context) (*arbor.Config, error) {
	var config *arbor.Config
	var err error
	if path := ctx.GetFlagString("config"); path != "" {
		config, err = arbor.LoadConfigFile(path)
	} else {
		config, err = arbor.LoadConfigFromEnv()
	}
	if err != nil {
		return nil, err
	}

	if v := ctx.GetFlagString("server-id"); v != "" {
		config.ServerID = v
	}
	if v := ctx.GetFlagString("storage"); v != "" {
		config.StorageURL = v
	}
	if v := ctx.GetFlagString("access"); v != "" {
		config.AccessURL = v
	}
	if v := ctx.GetFlagString("snapshot-interval"); v != "" {
		if config.SnapshotInterval, err = optionalDuration(v); err != nil {
			return nil, errors.Wrap(err, arbor.ErrCodeInvalidConfig, "invalid --snapshot-interval")
		}
	}
	if v := ctx.GetFlagString("retention"); v != "" {
		if config.Retention, err = optionalDuration(v); err != nil {
			return nil, errors.Wrap(err, arbor.ErrCodeInvalidConfig, "invalid --retention")
		}
	}
	if ctx.GetFlagBool("prune-archived") {
		config.PruneArchived = true
	}
	if v := ctx.GetFlagString("audit-file"); v != "" {
		config.Audit.Enabled = true
		config.Audit.OutputFile = v
	}
	return config.WithDefaults(), nil
}

// Serve loads the tree named by config, exposes it through the configured
// access adaptor and runs the snapshot scheduler until ctx is done.
func (m *Manager) Serve(ctx context.Context, config *arbor.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	var auditLogger *arbor.AuditLogger
	if config.Audit.Enabled {
		var err error
		if auditLogger, err = arbor.NewAuditLogger(config.Audit, config.ServerID); err != nil {
			return err
		}
		defer func() { _ = auditLogger.Close() }()
	}

	tree := arbor.NewManager(
		arbor.WithStorageRegistry(m.storage),
		arbor.WithServerID(config.ServerID),
		arbor.WithAuditLogger(auditLogger),
		arbor.WithErrorHandler(config.ErrorHandler),
	)
	defer func() { _ = tree.Close() }()

	if err := tree.Load(ctx, config.StorageURL); err != nil {
		return err
	}

	adaptor, err := m.access.Open(tree, config.AccessURL)
	if err != nil {
		return err
	}
	if err := adaptor.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Serving %s (server %s, storage %s)\n", config.AccessURL, config.ServerID, config.StorageURL)

	if config.SnapshotInterval > 0 {
		scheduler := arbor.NewScheduler(tree, *config)
		if err := scheduler.Start(); err != nil {
			_ = adaptor.Stop(context.Background())
			return err
		}
		defer func() { _ = scheduler.Stop() }()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return adaptor.Stop(shutdownCtx)
}
