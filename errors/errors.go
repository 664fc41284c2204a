// Package errors provides custom error types for the field sync engine.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the sync condition that produced it.
type Kind string

const (
	// KindInvalidRule marks a field rule that must never reach the
	// transformer (empty local or remote field name).
	KindInvalidRule Kind = "INVALID_RULE_DEFINITION"

	// KindMissingRequired marks a push blocked because a non-nillable
	// remote field had no source value. Retryable once the data is fixed.
	KindMissingRequired Kind = "MISSING_REQUIRED_REMOTE_FIELD"

	// KindTempIDMisuse marks an attempt to persist a temporary identifier
	// without the pending action. Integration error, never retryable.
	KindTempIDMisuse Kind = "TEMPORARY_IDENTIFIER_MISUSE"

	// KindLedgerCollision marks a uniqueness conflict on ledger insert,
	// resolved by returning the canonical existing row.
	KindLedgerCollision Kind = "LEDGER_UNIQUENESS_COLLISION"

	// KindMultipleCorrespondence marks a lookup that matched more than one
	// ledger row. Informational; the first row is treated as canonical.
	KindMultipleCorrespondence Kind = "MULTIPLE_CORRESPONDENCE"

	KindTransportFailure Kind = "TRANSPORT_FAILURE"
	KindStorageFailure   Kind = "STORAGE_FAILURE"
)

// Operation represents the sync operation during which an error occurred.
type Operation string

const (
	OpMapParams       Operation = "map_params"
	OpSelectMappings  Operation = "select_mappings"
	OpCreateObjectMap Operation = "create_object_map"
	OpLookup          Operation = "lookup"
	OpUpdate          Operation = "update"
	OpDelete          Operation = "delete"
	OpInventory       Operation = "inventory"
	OpPush            Operation = "push"
	OpPull            Operation = "pull"
	OpTransport       Operation = "transport"
	OpStore           Operation = "store"
	OpLoad            Operation = "load"
)

// SyncError represents an error that occurred during synchronization.
type SyncError struct {
	// Operation during which the error occurred
	Op Operation

	// Component that generated the error (e.g., "ledger", "transform")
	Component string

	// Kind of sync condition
	Kind Kind

	// Underlying error
	Err error

	// Whether the operation can be retried
	Retryable bool

	// Metadata for additional context
	Metadata map[string]interface{}
}

func (e *SyncError) Error() string {
	var msg string
	if e.Component != "" {
		msg = fmt.Sprintf("%s operation failed in %s component", e.Op, e.Component)
	} else {
		msg = fmt.Sprintf("%s operation failed", e.Op)
	}

	if e.Kind != "" {
		msg += fmt.Sprintf(" [%s]", e.Kind)
	}

	return msg + fmt.Sprintf(": %v", e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// WithMetadata attaches a key/value pair for diagnostic context.
func (e *SyncError) WithMetadata(key string, value interface{}) *SyncError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// NewInvalidRule creates an error for a rule definition that failed validation.
func NewInvalidRule(op Operation, cause error) *SyncError {
	return &SyncError{
		Kind:      KindInvalidRule,
		Op:        op,
		Component: "mapping",
		Err:       cause,
		Retryable: false,
	}
}

// NewMissingRequired creates the soft-fail error raised when a push lacks a
// value for a required remote field.
func NewMissingRequired(op Operation, cause error) *SyncError {
	return &SyncError{
		Kind:      KindMissingRequired,
		Op:        op,
		Component: "transform",
		Err:       cause,
		Retryable: true,
	}
}

// NewTempIDMisuse creates an error for a temporary identifier persisted
// without the pending acknowledgement.
func NewTempIDMisuse(op Operation, cause error) *SyncError {
	return &SyncError{
		Kind:      KindTempIDMisuse,
		Op:        op,
		Component: "ledger",
		Err:       cause,
		Retryable: false,
	}
}

// NewLedgerCollision creates the recoverable error raised when a ledger
// insert hit a uniqueness conflict.
func NewLedgerCollision(op Operation, cause error) *SyncError {
	return &SyncError{
		Kind:      KindLedgerCollision,
		Op:        op,
		Component: "ledger",
		Err:       cause,
		Retryable: false,
	}
}

// NewTransportError creates a transport-related SyncError.
func NewTransportError(op Operation, cause error) *SyncError {
	return &SyncError{
		Kind:      KindTransportFailure,
		Op:        op,
		Component: "transport",
		Err:       cause,
		Retryable: true,
	}
}

// NewStorageError creates a storage-related SyncError.
func NewStorageError(op Operation, cause error) *SyncError {
	return &SyncError{
		Kind:      KindStorageFailure,
		Op:        op,
		Component: "storage",
		Err:       cause,
		Retryable: true,
	}
}

// New creates a new SyncError.
func New(op Operation, err error) *SyncError {
	return &SyncError{
		Op:  op,
		Err: err,
	}
}

// NewWithComponent creates a new SyncError with component information.
func NewWithComponent(op Operation, component string, err error) *SyncError {
	return &SyncError{
		Op:        op,
		Component: component,
		Err:       err,
	}
}

// IsRetryable checks if an error is a retryable SyncError.
func IsRetryable(err error) bool {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Retryable
	}
	return false
}

// IsKind reports whether err is a SyncError of the given kind.
func IsKind(err error, kind Kind) bool {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err, or the empty Kind for foreign errors.
func KindOf(err error) Kind {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind
	}
	return ""
}
