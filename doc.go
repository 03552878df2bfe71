// Package arbor provides a live, hierarchical configuration tree for Go
// servers, with timestamped snapshots, a staging area and pluggable storage
// and access adaptors.
//
// # The Tree
//
// Every Manager owns a fixed topology:
//
//	(root)
//	├── config
//	│   ├── running   live configuration, leaves bound to server accessors
//	│   ├── saved     timestamped snapshots plus the reserved "staged" slot
//	│   └── staged    a working copy edited before deployment
//	└── status        read-mostly runtime state
//
// Nodes are either containers (Object with unique names, List with
// positional keys) or leaves. A Leaf holds a plain value or is bound to a
// getter, setter and delete hook, so writing config.running.port can push
// the value straight into the server:
//
//	m := arbor.NewManager()
//	port := arbor.NewLeaf("port", arbor.Binding{
//		Get: func() (interface{}, error) { return srv.Port(), nil },
//		Set: func(v interface{}) error { return srv.SetPort(v) },
//	})
//	_ = m.Do(func(arbor.Container) error {
//		_, err := m.Running().AddChild(port)
//		return err
//	})
//
// Paths are dotted: "config.running.port", "config.running.hosts.0".
// Snapshot names contain a dot themselves and resolve as single segments.
//
// # Lifecycle
//
// The Manager copies subtrees structurally. Copying into live leaves calls
// their setters; copying into a snapshot produces plain values:
//
//	path, _ := m.SaveRunning(ctx)          // config.saved.2025-03-01T10:00:00.000000
//	_ = m.SaveToStaged(ctx, "")            // running -> staged
//	_ = m.Write("config.staged.port", 9090)
//	_ = m.DeployStaged()                   // staged -> running, setters fire
//	_ = m.RestoreRunning(ctx, "current")   // roll back to the newest snapshot
//
// Snapshot names are UTC timestamps with microsecond precision, so
// lexicographic order is chronological order. Names taken within the same
// microsecond are bumped forward. ArchiveSaved hides old snapshots from
// ListSaved and the "current" alias; PruneSaved removes them from the tree.
//
// # Storage and Access
//
// Storage adaptors persist snapshots and the staged tree. They are selected
// by URL scheme through a StorageRegistry owned by the caller:
//
//	registry := arbor.NewStorageRegistry() // "memory" is pre-registered
//	_ = sqlite.Register(registry)          // providers/sqlite
//	m := arbor.NewManager(arbor.WithStorageRegistry(registry))
//	err := m.Load(ctx, "sqlite:///var/lib/arbor/config.db")
//
// Access adaptors expose a Manager to clients, for example the REST adaptor
// in access/rest. Routes bind nodes created under config.running (by Copy
// or Create) to server hooks by path pattern.
//
// # Ambient Services
//
// Lifecycle operations are recorded by an optional AuditLogger (JSONL or
// SQLite backend) and counted in Prometheus metrics. A Scheduler takes
// periodic snapshots and archives old ones. Config can be loaded from
// ARBOR_* environment variables and flash-flags command-line flags.
//
// All errors carry go-errors codes (ErrCode*); use HasCode or ErrorCode to
// inspect them.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package arbor
