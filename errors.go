// errors.go: Error codes for the Arbor configuration tree
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	goerrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes for Arbor operations
const (
	ErrCodeDuplicateName        = "ARBOR_DUPLICATE_NAME"
	ErrCodeNoSuchChild          = "ARBOR_NO_SUCH_CHILD"
	ErrCodeLookupFailed         = "ARBOR_LOOKUP_FAILED"
	ErrCodeReadDenied           = "ARBOR_READ_DENIED"
	ErrCodeWriteDenied          = "ARBOR_WRITE_DENIED"
	ErrCodeUnknownAdaptorScheme = "ARBOR_UNKNOWN_ADAPTOR_SCHEME"
	ErrCodeBadStorageURL        = "ARBOR_BAD_STORAGE_URL"
	ErrCodeAlreadyAttached      = "ARBOR_ALREADY_ATTACHED"
	ErrCodeNotContainer         = "ARBOR_NOT_CONTAINER"
	ErrCodeInvalidConfig        = "ARBOR_INVALID_CONFIG"
	ErrCodeStorageError         = "ARBOR_STORAGE_ERROR"
	ErrCodeAdaptorRegistered    = "ARBOR_ADAPTOR_REGISTERED"
	ErrCodeSchedulerBusy        = "ARBOR_SCHEDULER_BUSY"
	ErrCodeSchedulerStopped     = "ARBOR_SCHEDULER_STOPPED"
	ErrCodeInvalidPattern       = "ARBOR_INVALID_PATTERN"
	ErrCodeInvalidValue         = "ARBOR_INVALID_VALUE"
)

// ErrorCode returns the code of the outermost coded error in err's chain,
// or an empty string when err carries no code.
func ErrorCode(err error) string {
	for e := err; e != nil; e = goerrors.Unwrap(e) {
		if coder, ok := e.(errors.ErrorCoder); ok {
			return string(coder.ErrorCode())
		}
	}
	return ""
}

// HasCode reports whether any error in err's chain carries the given code.
//
// Example:
//
//	if _, err := manager.GetNode("config.running.nope"); arbor.HasCode(err, arbor.ErrCodeLookupFailed) {
//		// not found
//	}
func HasCode(err error, code string) bool {
	for e := err; e != nil; e = goerrors.Unwrap(e) {
		if coder, ok := e.(errors.ErrorCoder); ok && string(coder.ErrorCode()) == code {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err means a node or child does not exist.
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeLookupFailed) || HasCode(err, ErrCodeNoSuchChild)
}

// IsDenied reports whether err means a leaf refused a read or a write.
func IsDenied(err error) bool {
	return HasCode(err, ErrCodeReadDenied) || HasCode(err, ErrCodeWriteDenied)
}
