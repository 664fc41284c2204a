package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"

	syncErrors "github.com/c0deZ3R0/go-field-sync/errors"
	"github.com/c0deZ3R0/go-field-sync/logging"
)

// Ledger enforces the correspondence invariants over a Store: the
// temporary-identity guard on create, duplicate resolution on uniqueness
// conflicts, and canonical-row selection on ambiguous lookups.
type Ledger struct {
	store Store
	diag  logging.Diagnostics
}

// New creates a Ledger over the given store. A nil diagnostics collaborator
// is replaced with a no-op.
func New(store Store, diag logging.Diagnostics) *Ledger {
	if diag == nil {
		diag = logging.NopDiagnostics{}
	}
	return &Ledger{store: store, diag: diag}
}

// Create inserts a correspondence row and returns the remote identifier the
// caller should continue with. That is row.RemoteID on a clean insert, or
// the canonical existing row's remote identifier when the insert collided.
//
// A remote identifier carrying the push placeholder prefix is rejected
// outright unless the row is explicitly marked pending: a placeholder must
// never be persisted as if it were a final identifier.
func (l *Ledger) Create(ctx context.Context, row *ObjectMap) (string, error) {
	if row.RemoteID == "" {
		return "", syncErrors.NewInvalidRule(syncErrors.OpCreateObjectMap,
			fmt.Errorf("object map for %s/%s has empty remote identifier", row.LocalType, row.LocalID))
	}

	if IsTemporaryPush(row.RemoteID) && !row.IsPending() {
		err := syncErrors.NewTempIDMisuse(syncErrors.OpCreateObjectMap,
			fmt.Errorf("refusing to persist temporary identifier %q for %s/%s without pending action",
				row.RemoteID, row.LocalType, row.LocalID))
		l.diag.Report(ctx, logging.SeverityError, "temporary identifier misuse", spew.Sdump(row))
		return "", err
	}

	err := l.store.Insert(ctx, row)
	if err == nil {
		return row.RemoteID, nil
	}
	if !IsDuplicate(err) {
		return "", syncErrors.NewStorageError(syncErrors.OpCreateObjectMap, err)
	}

	// Uniqueness conflict: a concurrent attempt already established the
	// correspondence. Resolve to the canonical existing row and report.
	// This is a safety net, not a normal code path.
	existing, lookupErr := l.store.GetByRemote(ctx, row.RemoteID)
	if lookupErr != nil {
		return "", syncErrors.NewStorageError(syncErrors.OpCreateObjectMap, lookupErr)
	}
	if len(existing) == 0 {
		return "", syncErrors.NewLedgerCollision(syncErrors.OpCreateObjectMap,
			fmt.Errorf("insert conflicted for %s/%s → %s but no existing row found",
				row.LocalType, row.LocalID, row.RemoteID))
	}

	canonical := existing[0]
	collision := syncErrors.NewLedgerCollision(syncErrors.OpCreateObjectMap,
		fmt.Errorf("duplicate object map for %s/%s → %s", row.LocalType, row.LocalID, row.RemoteID)).
		WithMetadata("canonical_row_id", canonical.ID)
	l.diag.Report(ctx, logging.SeverityError, collision.Error(), spew.Sdump(existing))

	return canonical.RemoteID, nil
}

// LookupByLocal returns all rows for a (local type, local id) pair, newest
// first. Callers needing "the" single current correspondence take the first.
func (l *Ledger) LookupByLocal(ctx context.Context, localType, localID string) ([]*ObjectMap, error) {
	rows, err := l.store.GetByLocal(ctx, localType, localID)
	if err != nil {
		return nil, syncErrors.NewStorageError(syncErrors.OpLookup, err)
	}
	return rows, nil
}

// CurrentForLocal returns the canonical row for a local entity, or nil when
// no correspondence exists.
func (l *Ledger) CurrentForLocal(ctx context.Context, localType, localID string) (*ObjectMap, error) {
	rows, err := l.LookupByLocal(ctx, localType, localID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		// One local entity mapped to several remote identifiers is
		// permitted, but surfaced for operator visibility.
		l.diag.Report(ctx, logging.SeverityNotice,
			fmt.Sprintf("local entity %s/%s has %d remote correspondences; using %s",
				localType, localID, len(rows), rows[0].RemoteID),
			spew.Sdump(rows))
	}
	return rows[0], nil
}

// LookupByRemote returns the canonical row for a remote identifier. More
// than one match is legitimate (one remote record mapped from multiple local
// entities) and surfaced as a notice, not an error; synchronization
// continues with the first row by (update time, creation time).
func (l *Ledger) LookupByRemote(ctx context.Context, remoteID string) (*ObjectMap, error) {
	rows, err := l.store.GetByRemote(ctx, remoteID)
	if err != nil {
		return nil, syncErrors.NewStorageError(syncErrors.OpLookup, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		l.diag.Report(ctx, logging.SeverityNotice,
			fmt.Sprintf("multiple object map rows for remote identifier %s; using %s", remoteID, rows[0].ID),
			spew.Sdump(rows))
	}
	return rows[0], nil
}

// Resolve settles a provisional row: the placeholder is replaced with the
// final remote identifier and the pending action cleared.
func (l *Ledger) Resolve(ctx context.Context, row *ObjectMap, remoteID string) error {
	row.RemoteID = remoteID
	row.Action = ActionResolved
	row.UpdatedAt = time.Time{} // store refreshes
	if err := l.store.Update(ctx, row); err != nil {
		return syncErrors.NewStorageError(syncErrors.OpUpdate, err)
	}
	return nil
}

// ResolveLocal settles a provisional pull row: the local placeholder is
// replaced with the identifier the local system assigned and the pending
// action cleared.
func (l *Ledger) ResolveLocal(ctx context.Context, row *ObjectMap, localID string) error {
	row.LocalID = localID
	row.Action = ActionResolved
	row.UpdatedAt = time.Time{}
	if err := l.store.Update(ctx, row); err != nil {
		return syncErrors.NewStorageError(syncErrors.OpUpdate, err)
	}
	return nil
}

// Touch refreshes a row's update timestamp after a successful sync of the
// pair it records.
func (l *Ledger) Touch(ctx context.Context, row *ObjectMap) error {
	row.UpdatedAt = time.Time{}
	if err := l.store.Update(ctx, row); err != nil {
		return syncErrors.NewStorageError(syncErrors.OpUpdate, err)
	}
	return nil
}

// Break deletes correspondence rows by surrogate ID, as a unit.
func (l *Ledger) Break(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := l.store.Delete(ctx, ids...); err != nil {
		return syncErrors.NewStorageError(syncErrors.OpDelete, err)
	}
	return nil
}

// BreakForLocal deletes every correspondence row of a local entity. Used
// when the entity is deleted or the correspondence intentionally broken.
func (l *Ledger) BreakForLocal(ctx context.Context, localType, localID string) error {
	rows, err := l.LookupByLocal(ctx, localType, localID)
	if err != nil {
		return err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return l.Break(ctx, ids...)
}

// BreakForRemote deletes every correspondence row referencing a remote
// identifier.
func (l *Ledger) BreakForRemote(ctx context.Context, remoteID string) error {
	rows, err := l.store.GetByRemote(ctx, remoteID)
	if err != nil {
		return syncErrors.NewStorageError(syncErrors.OpLookup, err)
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return l.Break(ctx, ids...)
}

// StuckSyncs returns the failure inventory: rows still carrying a
// temporary identifier, representing syncs that never completed and need
// operator or retry-job attention.
func (l *Ledger) StuckSyncs(ctx context.Context) ([]*ObjectMap, error) {
	rows, err := l.store.FailureInventory(ctx)
	if err != nil {
		return nil, syncErrors.NewStorageError(syncErrors.OpInventory, err)
	}
	return rows, nil
}
