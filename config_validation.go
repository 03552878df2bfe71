// config_validation.go: detailed validation and file loading for Config
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// ValidationResult holds the outcome of ValidateDetailed.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// String returns a human-readable representation of validation results
func (vr ValidationResult) String() string {
	if vr.Valid {
		if len(vr.Warnings) == 0 {
			return "Configuration is valid"
		}
		return fmt.Sprintf("Configuration is valid with %d warning(s)", len(vr.Warnings))
	}
	return fmt.Sprintf("Configuration is invalid: %d error(s), %d warning(s)",
		len(vr.Errors), len(vr.Warnings))
}

// ValidateDetailed runs Validate and adds operational warnings that do not
// prevent the configuration from being used.
func (c *Config) ValidateDetailed() ValidationResult {
	result := ValidationResult{
		Valid:    true,
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	if err := c.Validate(); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	if strings.HasPrefix(c.StorageURL, MemoryScheme+"://") && c.SnapshotInterval > 0 {
		result.Warnings = append(result.Warnings, "scheduled snapshots use memory storage and are lost on restart")
	}
	if c.Retention > 0 && c.SnapshotInterval > 0 && c.Retention < c.SnapshotInterval {
		result.Warnings = append(result.Warnings, "retention is shorter than the snapshot interval; every snapshot is archived on the next tick")
	}
	if c.Retention > 0 && c.SnapshotInterval == 0 {
		result.Warnings = append(result.Warnings, "retention has no effect without a snapshot interval")
	}
	if addr := strings.TrimPrefix(c.AccessURL, "http://"); strings.HasPrefix(addr, "0.0.0.0:") || strings.HasPrefix(addr, ":") {
		result.Warnings = append(result.Warnings, "access adaptor listens on all interfaces")
	}
	if !c.Audit.Enabled {
		result.Warnings = append(result.Warnings, "audit trail is disabled")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// configFile is the on-disk shape of a Config. Durations are strings
// ("90s", "1h").
type configFile struct {
	ServerID         string `yaml:"server_id"`
	StorageURL       string `yaml:"storage_url"`
	AccessURL        string `yaml:"access_url"`
	SnapshotInterval string `yaml:"snapshot_interval"`
	Retention        string `yaml:"retention"`
	PruneArchived    bool   `yaml:"prune_archived"`
	Audit            struct {
		Enabled       bool   `yaml:"enabled"`
		OutputFile    string `yaml:"output_file"`
		MinLevel      string `yaml:"min_level"`
		BufferSize    int    `yaml:"buffer_size"`
		FlushInterval string `yaml:"flush_interval"`
	} `yaml:"audit"`
}

// LoadConfigFile reads a YAML or JSON configuration file. Unset fields get
// defaults; the result is not validated.
func LoadConfigFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New(ErrCodeInvalidConfig, "configuration file path cannot be empty")
	}
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to read config file").
			WithContext("path", path)
	}

	// YAML is a superset of JSON, one decoder serves both
	var file configFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to parse config file").
			WithContext("path", path)
	}

	config := &Config{
		ServerID:      file.ServerID,
		StorageURL:    file.StorageURL,
		AccessURL:     file.AccessURL,
		PruneArchived: file.PruneArchived,
		Audit: AuditConfig{
			Enabled:    file.Audit.Enabled,
			OutputFile: file.Audit.OutputFile,
			BufferSize: file.Audit.BufferSize,
		},
	}
	for _, d := range []struct {
		field string
		value string
		into  *time.Duration
	}{
		{"snapshot_interval", file.SnapshotInterval, &config.SnapshotInterval},
		{"retention", file.Retention, &config.Retention},
		{"audit.flush_interval", file.Audit.FlushInterval, &config.Audit.FlushInterval},
	} {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, invalidConfig("invalid duration", d.field, d.value)
		}
		*d.into = parsed
	}
	if file.Audit.MinLevel != "" {
		if config.Audit.MinLevel, err = parseAuditLevel(file.Audit.MinLevel); err != nil {
			return nil, err
		}
	}
	return config.WithDefaults(), nil
}

// ValidateConfigFile loads path and validates the result.
func ValidateConfigFile(path string) error {
	config, err := LoadConfigFile(path)
	if err != nil {
		return err
	}
	return config.Validate()
}
