package ledger

import (
	"context"
	"errors"
)

// ErrDuplicate is returned (possibly wrapped) by Store.Insert when the row
// violates the (local type, local id, remote id) uniqueness constraint.
// Implementations must detect this via the storage engine's native conflict
// reporting, atomically with the insert, never by check-then-insert.
var ErrDuplicate = errors.New("object map row already exists")

// ErrNotFound is returned when a lookup by surrogate ID matches nothing.
var ErrNotFound = errors.New("object map row not found")

// IsDuplicate reports whether err marks a uniqueness conflict.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// Store persists ledger rows. Implementations can use any relational
// backend (see storage/sqlite and storage/postgres).
type Store interface {
	// Insert persists a new row, assigning CreatedAt/UpdatedAt when unset.
	// Returns ErrDuplicate (wrapped) on a uniqueness conflict.
	Insert(ctx context.Context, row *ObjectMap) error

	// GetByLocal returns all rows for a (local type, local id) pair,
	// ordered by (updated_at DESC, created_at DESC).
	GetByLocal(ctx context.Context, localType, localID string) ([]*ObjectMap, error)

	// GetByRemote returns all rows for a remote identifier, ordered by
	// (updated_at DESC, created_at DESC).
	GetByRemote(ctx context.Context, remoteID string) ([]*ObjectMap, error)

	// Update rewrites a row by surrogate ID. UpdatedAt is refreshed unless
	// the caller supplied one newer than the stored value.
	Update(ctx context.Context, row *ObjectMap) error

	// Delete removes rows by surrogate ID. The batch succeeds or fails as
	// a unit.
	Delete(ctx context.Context, ids ...string) error

	// FailureInventory returns rows whose remote identifier still carries
	// the push placeholder prefix plus rows whose local identifier carries
	// the pull placeholder prefix: syncs that never completed.
	FailureInventory(ctx context.Context) ([]*ObjectMap, error)
}
