// Package errors provides error handling for the kaasync service.
//
// It re-exports github.com/cockroachdb/errors so the rest of the codebase
// gets stack traces, wrapping, and structured details from a single import:
//
//	if err := store.UpdateJob(job); err != nil {
//	    return errors.Wrap(err, "failed to persist job transition")
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New       = crdb.New
	Newf      = crdb.Newf
	Wrap      = crdb.Wrap
	Wrapf     = crdb.Wrapf
	WithStack = crdb.WithStack
)

// Structured details for observability
var (
	WithDetail    = crdb.WithDetail
	WithDetailf   = crdb.WithDetailf
	WithHint      = crdb.WithHint
	GetAllDetails = crdb.GetAllDetails
)

// Error inspection
var (
	Is     = crdb.Is
	As     = crdb.As
	Unwrap = crdb.Unwrap
)

// Sentinel errors shared across the sync subsystem.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrJobNotFound indicates the requested sync job does not exist
	ErrJobNotFound = New("sync job not found")

	// ErrNotConfigured indicates the Notion integration has no credentials;
	// trigger hooks short-circuit to a no-op when they see this state
	ErrNotConfigured = New("notion sync not configured")
)

// IsJobNotFound checks if an error is or wraps ErrJobNotFound.
func IsJobNotFound(err error) bool {
	return err != nil && Is(err, ErrJobNotFound)
}
