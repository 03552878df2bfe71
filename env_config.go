// env_config.go: Environment variable support for Arbor configuration
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
)

// Environment variable names
const (
	EnvServerID         = "ARBOR_SERVER_ID"
	EnvStorageURL       = "ARBOR_STORAGE_URL"
	EnvAccessURL        = "ARBOR_ACCESS_URL"
	EnvSnapshotInterval = "ARBOR_SNAPSHOT_INTERVAL"
	EnvRetention        = "ARBOR_RETENTION"
	EnvPruneArchived    = "ARBOR_PRUNE_ARCHIVED"

	EnvAuditEnabled       = "ARBOR_AUDIT_ENABLED"
	EnvAuditOutputFile    = "ARBOR_AUDIT_OUTPUT_FILE"
	EnvAuditMinLevel      = "ARBOR_AUDIT_MIN_LEVEL"
	EnvAuditBufferSize    = "ARBOR_AUDIT_BUFFER_SIZE"
	EnvAuditFlushInterval = "ARBOR_AUDIT_FLUSH_INTERVAL"
)

// LoadConfigFromEnv loads configuration from ARBOR_* environment variables
// and applies defaults for anything unset.
func LoadConfigFromEnv() (*Config, error) {
	config := &Config{}
	if err := applyEnv(config); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to load environment configuration")
	}
	return config.WithDefaults(), nil
}

// applyEnv overrides fields of config with the environment variables that
// are set.
func applyEnv(config *Config) error {
	if v := os.Getenv(EnvServerID); v != "" {
		config.ServerID = v
	}
	if v := os.Getenv(EnvStorageURL); v != "" {
		config.StorageURL = v
	}
	if v := os.Getenv(EnvAccessURL); v != "" {
		config.AccessURL = v
	}
	if err := envDuration(EnvSnapshotInterval, &config.SnapshotInterval); err != nil {
		return err
	}
	if err := envDuration(EnvRetention, &config.Retention); err != nil {
		return err
	}
	if v := os.Getenv(EnvPruneArchived); v != "" {
		config.PruneArchived = parseBool(v)
	}
	return applyAuditEnv(&config.Audit)
}

func applyAuditEnv(audit *AuditConfig) error {
	if v := os.Getenv(EnvAuditEnabled); v != "" {
		audit.Enabled = parseBool(v)
	}
	if v := os.Getenv(EnvAuditOutputFile); v != "" {
		audit.OutputFile = v
	}
	if v := os.Getenv(EnvAuditMinLevel); v != "" {
		level, err := parseAuditLevel(v)
		if err != nil {
			return err
		}
		audit.MinLevel = level
	}
	if v := os.Getenv(EnvAuditBufferSize); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 {
			return errors.New(ErrCodeInvalidConfig, "invalid "+EnvAuditBufferSize+" value")
		}
		audit.BufferSize = size
	}
	return envDuration(EnvAuditFlushInterval, &audit.FlushInterval)
}

func envDuration(key string, into *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return errors.New(ErrCodeInvalidConfig, "invalid "+key+" format").
			WithContext("value", v)
	}
	*into = d
	return nil
}

// parseAuditLevel parses an audit level name.
func parseAuditLevel(levelStr string) (AuditLevel, error) {
	switch strings.ToLower(levelStr) {
	case "info":
		return AuditInfo, nil
	case "warn", "warning":
		return AuditWarn, nil
	case "critical", "error":
		return AuditCritical, nil
	case "security":
		return AuditSecurity, nil
	default:
		return AuditInfo, errors.New(ErrCodeInvalidConfig, "invalid audit level").
			WithContext("level", levelStr)
	}
}

// parseBool accepts true/false, 1/0, yes/no, on/off, enabled/disabled.
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on", "enabled":
		return true
	default:
		return false
	}
}

// GetEnvWithDefault returns environment variable value or default if not set
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
