// access.go: Pluggable external access to the tree
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"context"
	"sort"
	"sync"

	"github.com/agilira/go-errors"
)

// AccessAdaptor exposes a Manager to external clients.
type AccessAdaptor interface {
	// Start begins serving; it returns once the adaptor is accepting requests
	Start(ctx context.Context) error

	// Stop shuts the adaptor down, waiting for in-flight requests up to ctx
	Stop(ctx context.Context) error
}

// AccessFactory creates an adaptor serving m at location, the part of the
// URL after "scheme://".
type AccessFactory func(m *Manager, location string) (AccessAdaptor, error)

// AccessRegistry maps URL schemes to access factories.
type AccessRegistry struct {
	mu        sync.RWMutex
	factories map[string]AccessFactory
}

// NewAccessRegistry returns an empty registry.
func NewAccessRegistry() *AccessRegistry {
	return &AccessRegistry{factories: make(map[string]AccessFactory)}
}

// Register adds factory under scheme.
func (r *AccessRegistry) Register(scheme string, factory AccessFactory) error {
	if scheme == "" || factory == nil {
		return errors.New(ErrCodeInvalidValue, "scheme and factory are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[scheme]; exists {
		return errors.New(ErrCodeAdaptorRegistered, "access scheme already registered").
			WithContext("scheme", scheme)
	}
	r.factories[scheme] = factory
	return nil
}

// Schemes returns the registered schemes in sorted order.
func (r *AccessRegistry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemes := make([]string, 0, len(r.factories))
	for scheme := range r.factories {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// Open creates the adaptor named by url for m.
func (r *AccessRegistry) Open(m *Manager, url string) (AccessAdaptor, error) {
	scheme, location, err := splitAdaptorURL(url)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	factory, ok := r.factories[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(ErrCodeUnknownAdaptorScheme, "no access adaptor registered for scheme").
			WithContext("scheme", scheme).
			WithContext("url", url)
	}
	return factory(m, location)
}
