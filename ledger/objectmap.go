// Package ledger maintains the durable correspondence between local and
// remote record identities, including the temporary-identity protocol used
// while a create is in flight.
package ledger

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Action annotations on a ledger row.
const (
	// ActionPending marks a row whose remote identifier is a temporary
	// placeholder for an in-flight create.
	ActionPending = "pending"

	// ActionResolved is the empty annotation of a settled row.
	ActionResolved = ""
)

// Temporary-identifier prefixes, tagged by direction.
const (
	TempPushPrefix = "tmp-push-"
	TempPullPrefix = "tmp-pull-"
)

// Direction of the sync attempt a temporary identifier belongs to.
type Direction int

const (
	Push Direction = iota
	Pull
)

// NewTemporaryID issues a placeholder identifier for the given direction.
// Suffixes are ULIDs: globally unique per attempt and lexically sortable,
// so stuck rows list in issue order. Issuance is idempotent per attempt in
// the sense that every attempt gets its own placeholder; colliding inserts
// are resolved by the ledger, not prevented here.
func NewTemporaryID(d Direction) string {
	if d == Pull {
		return TempPullPrefix + ulid.Make().String()
	}
	return TempPushPrefix + ulid.Make().String()
}

// IsTemporaryPush reports whether id is a push placeholder.
func IsTemporaryPush(id string) bool {
	return strings.HasPrefix(id, TempPushPrefix)
}

// IsTemporaryPull reports whether id is a pull placeholder.
func IsTemporaryPull(id string) bool {
	return strings.HasPrefix(id, TempPullPrefix)
}

// ObjectMap is one correspondence ledger row. Its remote identifier is
// either a well-formed remote identifier or a temporary placeholder; it is
// never empty.
type ObjectMap struct {
	// ID is the surrogate row identifier (a UUID assigned on insert).
	ID string

	// LocalType is the local object-type name.
	LocalType string

	// LocalID identifies the local entity.
	LocalID string

	// RemoteID identifies the remote entity, or holds a temporary
	// placeholder while a create is in flight.
	RemoteID string

	// Action is ActionPending while the row is provisional, ActionResolved
	// once settled.
	Action string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPending reports whether the row is in the provisional state.
func (m *ObjectMap) IsPending() bool {
	return m.Action == ActionPending
}

// HasTemporaryRemoteID reports whether the remote slot still holds a
// placeholder of either direction.
func (m *ObjectMap) HasTemporaryRemoteID() bool {
	return IsTemporaryPush(m.RemoteID) || IsTemporaryPull(m.RemoteID)
}
