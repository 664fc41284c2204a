package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncErrors "github.com/c0deZ3R0/go-field-sync/errors"
	"github.com/c0deZ3R0/go-field-sync/logging"
)

// memStore is an in-memory Store for exercising the Ledger invariants.
type memStore struct {
	rows   map[string]*ObjectMap
	nextID int
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*ObjectMap)}
}

func (s *memStore) Insert(_ context.Context, row *ObjectMap) error {
	for _, existing := range s.rows {
		if existing.LocalType == row.LocalType && existing.LocalID == row.LocalID && existing.RemoteID == row.RemoteID {
			return fmt.Errorf("%w: %s/%s", ErrDuplicate, row.LocalType, row.LocalID)
		}
	}
	s.nextID++
	if row.ID == "" {
		row.ID = fmt.Sprintf("row-%d", s.nextID)
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = now
	}
	clone := *row
	s.rows[row.ID] = &clone
	return nil
}

func (s *memStore) collect(match func(*ObjectMap) bool) []*ObjectMap {
	var out []*ObjectMap
	for _, r := range s.rows {
		if match(r) {
			clone := *r
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *memStore) GetByLocal(_ context.Context, localType, localID string) ([]*ObjectMap, error) {
	return s.collect(func(r *ObjectMap) bool {
		return r.LocalType == localType && r.LocalID == localID
	}), nil
}

func (s *memStore) GetByRemote(_ context.Context, remoteID string) ([]*ObjectMap, error) {
	return s.collect(func(r *ObjectMap) bool { return r.RemoteID == remoteID }), nil
}

func (s *memStore) Update(_ context.Context, row *ObjectMap) error {
	if _, ok := s.rows[row.ID]; !ok {
		return ErrNotFound
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	clone := *row
	s.rows[row.ID] = &clone
	return nil
}

func (s *memStore) Delete(_ context.Context, ids ...string) error {
	for _, id := range ids {
		if _, ok := s.rows[id]; !ok {
			return ErrNotFound
		}
	}
	for _, id := range ids {
		delete(s.rows, id)
	}
	return nil
}

func (s *memStore) FailureInventory(_ context.Context) ([]*ObjectMap, error) {
	return s.collect(func(r *ObjectMap) bool {
		return IsTemporaryPush(r.RemoteID) || IsTemporaryPull(r.LocalID)
	}), nil
}

// recordingDiag counts reports by severity.
type recordingDiag struct {
	errors  []string
	notices []string
}

func (d *recordingDiag) Report(_ context.Context, severity logging.Severity, msg string, _ string) {
	switch severity {
	case logging.SeverityError:
		d.errors = append(d.errors, msg)
	case logging.SeverityNotice:
		d.notices = append(d.notices, msg)
	}
}

func TestNewTemporaryID(t *testing.T) {
	pushID := NewTemporaryID(Push)
	pullID := NewTemporaryID(Pull)

	assert.True(t, IsTemporaryPush(pushID))
	assert.False(t, IsTemporaryPull(pushID))
	assert.True(t, IsTemporaryPull(pullID))
	assert.NotEqual(t, NewTemporaryID(Push), NewTemporaryID(Push))
}

func TestCreateRejectsUnacknowledgedTemporaryID(t *testing.T) {
	store := newMemStore()
	diag := &recordingDiag{}
	l := New(store, diag)

	_, err := l.Create(context.Background(), &ObjectMap{
		LocalType: "contacts",
		LocalID:   "42",
		RemoteID:  NewTemporaryID(Push),
	})
	require.Error(t, err)
	assert.True(t, syncErrors.IsKind(err, syncErrors.KindTempIDMisuse))
	assert.Empty(t, store.rows, "rejected create must not insert")
	assert.Len(t, diag.errors, 1)
}

func TestCreateAcceptsPendingTemporaryID(t *testing.T) {
	store := newMemStore()
	l := New(store, logging.NopDiagnostics{})

	tempID := NewTemporaryID(Push)
	remoteID, err := l.Create(context.Background(), &ObjectMap{
		LocalType: "contacts",
		LocalID:   "42",
		RemoteID:  tempID,
		Action:    ActionPending,
	})
	require.NoError(t, err)
	assert.Equal(t, tempID, remoteID)
	assert.Len(t, store.rows, 1)
}

func TestCreateRejectsEmptyRemoteID(t *testing.T) {
	l := New(newMemStore(), logging.NopDiagnostics{})
	_, err := l.Create(context.Background(), &ObjectMap{LocalType: "contacts", LocalID: "42"})
	require.Error(t, err)
}

func TestCreateDuplicateResolvesToCanonicalRow(t *testing.T) {
	store := newMemStore()
	diag := &recordingDiag{}
	l := New(store, diag)
	ctx := context.Background()

	_, err := l.Create(ctx, &ObjectMap{LocalType: "contacts", LocalID: "42", RemoteID: "SF001"})
	require.NoError(t, err)

	// Same triple again: conflict, resolved by returning the existing row.
	remoteID, err := l.Create(ctx, &ObjectMap{LocalType: "contacts", LocalID: "42", RemoteID: "SF001"})
	require.NoError(t, err)
	assert.Equal(t, "SF001", remoteID)
	assert.Len(t, store.rows, 1)
	require.Len(t, diag.errors, 1, "collision is reported once")
	assert.Contains(t, diag.errors[0], "LEDGER_UNIQUENESS_COLLISION")
}

func TestLookupByRemoteMultiMatchNotice(t *testing.T) {
	store := newMemStore()
	diag := &recordingDiag{}
	l := New(store, diag)
	ctx := context.Background()

	older := &ObjectMap{
		LocalType: "contacts", LocalID: "1", RemoteID: "SF001",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &ObjectMap{
		LocalType: "contacts", LocalID: "2", RemoteID: "SF001",
		CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Insert(ctx, older))
	require.NoError(t, store.Insert(ctx, newer))

	row, err := l.LookupByRemote(ctx, "SF001")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "2", row.LocalID, "latest (update time, creation time) row is canonical")
	assert.Len(t, diag.notices, 1, "exactly one notice")
	assert.Empty(t, diag.errors)
}

func TestLookupByRemoteSingleMatchNoNotice(t *testing.T) {
	store := newMemStore()
	diag := &recordingDiag{}
	l := New(store, diag)
	ctx := context.Background()

	_, err := l.Create(ctx, &ObjectMap{LocalType: "contacts", LocalID: "1", RemoteID: "SF001"})
	require.NoError(t, err)

	row, err := l.LookupByRemote(ctx, "SF001")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Empty(t, diag.notices)
}

func TestLookupByRemoteNoMatch(t *testing.T) {
	l := New(newMemStore(), logging.NopDiagnostics{})
	row, err := l.LookupByRemote(context.Background(), "SF404")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestResolveSettlesPendingRow(t *testing.T) {
	store := newMemStore()
	l := New(store, logging.NopDiagnostics{})
	ctx := context.Background()

	row := &ObjectMap{
		LocalType: "contacts", LocalID: "42",
		RemoteID: NewTemporaryID(Push),
		Action:   ActionPending,
	}
	_, err := l.Create(ctx, row)
	require.NoError(t, err)

	require.NoError(t, l.Resolve(ctx, row, "SF001"))

	stored := store.rows[row.ID]
	assert.Equal(t, "SF001", stored.RemoteID)
	assert.False(t, stored.IsPending())
	assert.False(t, stored.HasTemporaryRemoteID())
}

func TestResolveLocalSettlesPullRow(t *testing.T) {
	store := newMemStore()
	l := New(store, logging.NopDiagnostics{})
	ctx := context.Background()

	row := &ObjectMap{
		LocalType: "contacts",
		LocalID:   NewTemporaryID(Pull),
		RemoteID:  "SF001",
		Action:    ActionPending,
	}
	_, err := l.Create(ctx, row)
	require.NoError(t, err)

	require.NoError(t, l.ResolveLocal(ctx, row, "77"))

	stored := store.rows[row.ID]
	assert.Equal(t, "77", stored.LocalID)
	assert.False(t, stored.IsPending())
}

func TestStuckSyncs(t *testing.T) {
	store := newMemStore()
	l := New(store, logging.NopDiagnostics{})
	ctx := context.Background()

	_, err := l.Create(ctx, &ObjectMap{
		LocalType: "contacts", LocalID: "1",
		RemoteID: NewTemporaryID(Push), Action: ActionPending,
	})
	require.NoError(t, err)
	_, err = l.Create(ctx, &ObjectMap{
		LocalType: "contacts", LocalID: NewTemporaryID(Pull),
		RemoteID: "SF002", Action: ActionPending,
	})
	require.NoError(t, err)
	_, err = l.Create(ctx, &ObjectMap{LocalType: "contacts", LocalID: "3", RemoteID: "SF003"})
	require.NoError(t, err)

	stuck, err := l.StuckSyncs(ctx)
	require.NoError(t, err)
	assert.Len(t, stuck, 2)
	for _, row := range stuck {
		assert.True(t,
			strings.HasPrefix(row.RemoteID, TempPushPrefix) || strings.HasPrefix(row.LocalID, TempPullPrefix))
	}
}

// failingStore simulates a storage-layer outage on insert.
type failingStore struct {
	*memStore
}

func (s *failingStore) Insert(context.Context, *ObjectMap) error {
	return fmt.Errorf("database is locked")
}

func TestStoreFailureSurfacesAsRetryableStorageError(t *testing.T) {
	l := New(&failingStore{newMemStore()}, logging.NopDiagnostics{})

	_, err := l.Create(context.Background(), &ObjectMap{
		LocalType: "contacts", LocalID: "1", RemoteID: "SF001",
	})
	require.Error(t, err)
	assert.True(t, syncErrors.IsKind(err, syncErrors.KindStorageFailure))
	assert.True(t, syncErrors.IsRetryable(err))
}

func TestBreakForLocal(t *testing.T) {
	store := newMemStore()
	l := New(store, logging.NopDiagnostics{})
	ctx := context.Background()

	_, err := l.Create(ctx, &ObjectMap{LocalType: "contacts", LocalID: "42", RemoteID: "SF001"})
	require.NoError(t, err)
	_, err = l.Create(ctx, &ObjectMap{LocalType: "contacts", LocalID: "42", RemoteID: "SF002"})
	require.NoError(t, err)
	_, err = l.Create(ctx, &ObjectMap{LocalType: "contacts", LocalID: "7", RemoteID: "SF003"})
	require.NoError(t, err)

	require.NoError(t, l.BreakForLocal(ctx, "contacts", "42"))

	rows, err := l.LookupByLocal(ctx, "contacts", "42")
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = l.LookupByLocal(ctx, "contacts", "7")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestBreakForRemote(t *testing.T) {
	store := newMemStore()
	l := New(store, logging.NopDiagnostics{})
	ctx := context.Background()

	_, err := l.Create(ctx, &ObjectMap{LocalType: "contacts", LocalID: "1", RemoteID: "SF001"})
	require.NoError(t, err)
	_, err = l.Create(ctx, &ObjectMap{LocalType: "contacts", LocalID: "2", RemoteID: "SF001"})
	require.NoError(t, err)

	require.NoError(t, l.BreakForRemote(ctx, "SF001"))
	assert.Empty(t, store.rows)
}
