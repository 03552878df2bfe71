// codec.go: JSON and YAML encoding of snapshot data
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// Format is a serialization format for snapshot data.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatUnknown
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "JSON"
	case FormatYAML:
		return "YAML"
	default:
		return "Unknown"
	}
}

// ParseFormat accepts "json", "yaml" and "yml" in any case.
func ParseFormat(name string) Format {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// DetectFormat detects the format from a file extension.
func DetectFormat(path string) Format {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Encode serializes nested plain data.
func Encode(data map[string]interface{}, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidValue, "failed to encode JSON")
		}
		return append(out, '\n'), nil
	case FormatYAML:
		out, err := yaml.Marshal(data)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidValue, "failed to encode YAML")
		}
		return out, nil
	default:
		return nil, errors.New(ErrCodeInvalidValue, "unsupported format").
			WithContext("format", format.String())
	}
}

// Decode parses serialized data into nested plain data with string keys.
func Decode(raw []byte, format Format) (map[string]interface{}, error) {
	var data map[string]interface{}
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidValue, "failed to decode JSON")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidValue, "failed to decode YAML")
		}
	default:
		return nil, errors.New(ErrCodeInvalidValue, "unsupported format").
			WithContext("format", format.String())
	}
	if data == nil {
		data = make(map[string]interface{})
	}
	return NormalizeData(data), nil
}

// NormalizeData converts YAML-style map[interface{}]interface{} values into
// map[string]interface{} throughout data.
func NormalizeData(data map[string]interface{}) map[string]interface{} {
	for k, v := range data {
		data[k] = normalizeValue(v)
	}
	return data
}

func normalizeValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		return NormalizeData(typed)
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, item := range typed {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []interface{}:
		for i, item := range typed {
			typed[i] = normalizeValue(item)
		}
		return typed
	default:
		return v
	}
}

// WriteFileAtomic writes data to path through a temporary file in the same
// directory followed by a rename.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tempPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d", filepath.Base(path), time.Now().UnixNano()))

	if err := os.WriteFile(tempPath, data, perm); err != nil {
		return errors.Wrap(err, ErrCodeStorageError, "failed to write temp file").
			WithContext("path", tempPath)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, ErrCodeStorageError, "failed to rename temp file").
			WithContext("path", path)
	}
	return nil
}
