// storage.go: Pluggable persistence for configuration snapshots
//
// A StorageAdaptor persists snapshots as nested plain data for one server.
// Adaptors are created by URL through a StorageRegistry owned by the caller:
//
//	registry := arbor.NewStorageRegistry()
//	_ = sqlite.Register(registry)
//	adaptor, err := registry.Open("server-1", "sqlite:///var/lib/arbor/config.db")
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/agilira/go-errors"
)

// StorageAdaptor persists snapshots for a single server.
//
// Snapshot data is the output of ExportMap. Implementations must be safe
// for concurrent use.
type StorageAdaptor interface {
	// LoadCurrent returns the latest non-archived snapshot; ok is false if
	// there is none
	LoadCurrent(ctx context.Context) (name string, data map[string]interface{}, ok bool, err error)

	// LoadStaged returns the persisted staged tree
	LoadStaged(ctx context.Context) (data map[string]interface{}, ok bool, err error)

	// LoadSaved returns one snapshot by name, archived or not
	LoadSaved(ctx context.Context, name string) (data map[string]interface{}, ok bool, err error)

	// SaveCurrent stores a new snapshot under name
	SaveCurrent(ctx context.Context, name string, data map[string]interface{}) error

	// SaveStaged replaces the persisted staged tree
	SaveStaged(ctx context.Context, data map[string]interface{}) error

	// ListSaved returns non-archived snapshot names, newest first
	ListSaved(ctx context.Context) ([]string, error)

	// Archive marks every snapshot whose name sorts before cutoff
	Archive(ctx context.Context, cutoff string) error

	// Close releases the underlying resources
	Close() error
}

// StorageFactory opens an adaptor for serverID. location is the part of the
// URL after "scheme://".
type StorageFactory func(serverID, location string) (StorageAdaptor, error)

// StorageRegistry maps URL schemes to storage factories.
type StorageRegistry struct {
	mu        sync.RWMutex
	factories map[string]StorageFactory
}

// NewStorageRegistry returns a registry with the "memory" scheme registered.
func NewStorageRegistry() *StorageRegistry {
	r := &StorageRegistry{factories: make(map[string]StorageFactory)}
	r.factories[MemoryScheme] = func(serverID, location string) (StorageAdaptor, error) {
		return NewMemoryStorage(serverID), nil
	}
	return r
}

// Register adds factory under scheme. Registering a scheme twice fails with
// ErrCodeAdaptorRegistered.
func (r *StorageRegistry) Register(scheme string, factory StorageFactory) error {
	if scheme == "" || factory == nil {
		return errors.New(ErrCodeInvalidValue, "scheme and factory are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[scheme]; exists {
		return errors.New(ErrCodeAdaptorRegistered, "storage scheme already registered").
			WithContext("scheme", scheme)
	}
	r.factories[scheme] = factory
	return nil
}

// Schemes returns the registered schemes in sorted order.
func (r *StorageRegistry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemes := make([]string, 0, len(r.factories))
	for scheme := range r.factories {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// Open creates the adaptor named by url for serverID.
func (r *StorageRegistry) Open(serverID, url string) (StorageAdaptor, error) {
	scheme, location, err := splitAdaptorURL(url)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	factory, ok := r.factories[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(ErrCodeUnknownAdaptorScheme, "no storage adaptor registered for scheme").
			WithContext("scheme", scheme).
			WithContext("url", url)
	}

	adaptor, err := factory(serverID, location)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeStorageError, "failed to open storage adaptor").
			WithContext("url", url)
	}
	return adaptor, nil
}

// splitAdaptorURL splits "scheme://location". A URL without "://" fails
// with ErrCodeBadStorageURL.
func splitAdaptorURL(url string) (string, string, error) {
	scheme, location, found := strings.Cut(url, "://")
	if !found || scheme == "" {
		return "", "", errors.New(ErrCodeBadStorageURL, "adaptor URL must have the form scheme://location").
			WithContext("url", url)
	}
	return scheme, location, nil
}
