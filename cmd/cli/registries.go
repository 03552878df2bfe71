// registries.go: built-in storage and access adaptors
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"github.com/agilira/arbor"
	"github.com/agilira/arbor/access/rest"
	"github.com/agilira/arbor/providers/badger"
	"github.com/agilira/arbor/providers/sqlite"
	"github.com/agilira/arbor/providers/yamlfile"
)

// NewRegistries returns registries holding every adaptor shipped with Arbor:
// memory, sqlite, badger and yaml storage, and http access.
func NewRegistries() (*arbor.StorageRegistry, *arbor.AccessRegistry, error) {
	storage := arbor.NewStorageRegistry()
	for _, register := range []func(*arbor.StorageRegistry) error{
		sqlite.Register,
		badger.Register,
		yamlfile.Register,
	} {
		if err := register(storage); err != nil {
			return nil, nil, err
		}
	}

	access := arbor.NewAccessRegistry()
	if err := rest.Register(access); err != nil {
		return nil, nil, err
	}
	return storage, access, nil
}
