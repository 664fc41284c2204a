// Package fieldsync reconciles records between two independently-evolving
// data systems. It translates field-level values in both directions,
// enforces remote-side validation constraints before transmission, and
// maintains a durable correspondence between local and remote record
// identities so that repeated synchronization is idempotent and recoverable
// after partial failure.
package fieldsync

import (
	"context"
	"time"

	"github.com/c0deZ3R0/go-field-sync/mapping"
	"github.com/c0deZ3R0/go-field-sync/transform"
)

// RemoteTransport performs the actual remote create/update/delete. The wire
// format and retry policy belong to the implementation; the coordinator only
// hands over parameter sets and descriptors and expects a resolved
// identifier or a structured failure.
type RemoteTransport interface {
	// Create writes a new remote record, using the key descriptors for
	// identifier-based upsert and the prematch descriptors to look up a
	// likely-existing counterpart first. Returns the resolved remote
	// identifier.
	Create(ctx context.Context, remoteObject string, params map[string]any, keys, prematch []transform.KeyDescriptor) (string, error)

	// Update writes changed fields to an existing remote record.
	Update(ctx context.Context, remoteObject, remoteID string, params map[string]any) error

	// Delete removes a remote record.
	Delete(ctx context.Context, remoteObject, remoteID string) error

	// SupportsInlineKeys reports whether the transport accepts upsert-key
	// values inside the main parameter set in addition to the descriptors.
	SupportsInlineKeys() bool
}

// LocalStore applies pulled values to the local system using the method
// references carried by each PullValue.
type LocalStore interface {
	// Create builds a new local record from the pulled values and returns
	// its identifier. asDraft requests draft state where supported.
	Create(ctx context.Context, localType string, pulls []transform.PullValue, asDraft bool) (string, error)

	// Apply writes pulled values onto an existing local record.
	Apply(ctx context.Context, localType, localID string, pulls []transform.PullValue, asDraft bool) error

	// Delete removes a local record.
	Delete(ctx context.Context, localType, localID string) error

	// FlagMissingRequired marks a local record as blocked on missing
	// required data so the push can be retried once the data is corrected.
	FlagMissingRequired(ctx context.Context, localType, localID string, fields []string) error
}

// Event is one incoming sync trigger: an origin system, object types, an
// optional remote record subtype, identifiers and the record payload.
type Event struct {
	Trigger mapping.SyncEvent

	LocalType  string
	RemoteType string
	RecordType string

	LocalID  string
	RemoteID string

	Record transform.Record
}

// DeferredPush names a mapping whose push is handed to the external job
// scheduler instead of executed inline.
type DeferredPush struct {
	MappingID string
	Event     Event
}

// BlockedRecord reports a record whose push was suppressed by the
// missing-required-field condition.
type BlockedRecord struct {
	MappingID string
	LocalID   string
	Fields    []string
}

// Result summarizes one coordinated reconciliation pass.
type Result struct {
	// MappingsPushed is the number of mappings whose remote write succeeded.
	MappingsPushed int

	// MappingsPulled is the number of mappings whose local apply succeeded.
	MappingsPulled int

	// Skipped counts mappings that produced nothing to synchronize.
	Skipped int

	// Deferred lists async mappings for the external scheduler.
	Deferred []DeferredPush

	// Blocked lists records suppressed by missing required data.
	Blocked []BlockedRecord

	// Errors contains non-fatal errors; the pass completed degraded.
	Errors []error

	StartTime time.Time
	Duration  time.Duration
}
