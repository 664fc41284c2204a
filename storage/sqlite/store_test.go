package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c0deZ3R0/go-field-sync/ledger"
	"github.com/c0deZ3R0/go-field-sync/mapping"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewWithDataSource(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndGetByLocal(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	row := &ledger.ObjectMap{
		LocalType: "contacts",
		LocalID:   "42",
		RemoteID:  "SF001",
	}
	require.NoError(t, store.Insert(ctx, row))
	assert.NotEmpty(t, row.ID, "surrogate ID assigned on insert")
	assert.False(t, row.CreatedAt.IsZero())

	rows, err := store.GetByLocal(ctx, "contacts", "42")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SF001", rows[0].RemoteID)
	assert.Equal(t, "", rows[0].Action)
}

func TestInsertDuplicateDetectedAtomically(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	row := &ledger.ObjectMap{LocalType: "contacts", LocalID: "42", RemoteID: "SF001"}
	require.NoError(t, store.Insert(ctx, row))

	dup := &ledger.ObjectMap{LocalType: "contacts", LocalID: "42", RemoteID: "SF001"}
	err := store.Insert(ctx, dup)
	require.Error(t, err)
	assert.True(t, ledger.IsDuplicate(err), "constraint violation maps to ErrDuplicate, got: %v", err)
}

func TestSameRemoteDifferentLocalAllowed(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &ledger.ObjectMap{LocalType: "contacts", LocalID: "1", RemoteID: "SF001"}))
	require.NoError(t, store.Insert(ctx, &ledger.ObjectMap{LocalType: "contacts", LocalID: "2", RemoteID: "SF001"}))

	rows, err := store.GetByRemote(ctx, "SF001")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGetByRemoteOrdering(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	older := &ledger.ObjectMap{
		LocalType: "contacts", LocalID: "1", RemoteID: "SF001",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &ledger.ObjectMap{
		LocalType: "contacts", LocalID: "2", RemoteID: "SF001",
		CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Insert(ctx, older))
	require.NoError(t, store.Insert(ctx, newer))

	rows, err := store.GetByRemote(ctx, "SF001")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0].LocalID, "newest (updated_at, created_at) first")
}

func TestUpdateRefreshesTimestamp(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	row := &ledger.ObjectMap{
		LocalType: "contacts", LocalID: "42", RemoteID: "SF001",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Insert(ctx, row))

	row.RemoteID = "SF002"
	row.UpdatedAt = time.Time{}
	require.NoError(t, store.Update(ctx, row))

	rows, err := store.GetByLocal(ctx, "contacts", "42")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SF002", rows[0].RemoteID)
	assert.True(t, rows[0].UpdatedAt.After(rows[0].CreatedAt))
}

func TestUpdateKeepsCallerSuppliedTimestamp(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	row := &ledger.ObjectMap{LocalType: "contacts", LocalID: "42", RemoteID: "SF001"}
	require.NoError(t, store.Insert(ctx, row))

	explicit := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	row.UpdatedAt = explicit
	require.NoError(t, store.Update(ctx, row))

	rows, err := store.GetByLocal(ctx, "contacts", "42")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].UpdatedAt.Equal(explicit))
}

func TestUpdateMissingRow(t *testing.T) {
	store := setupTestStore(t)
	err := store.Update(context.Background(), &ledger.ObjectMap{ID: "nope", RemoteID: "SF001"})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestBatchDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := &ledger.ObjectMap{LocalType: "contacts", LocalID: "1", RemoteID: "SF001"}
	b := &ledger.ObjectMap{LocalType: "contacts", LocalID: "2", RemoteID: "SF002"}
	require.NoError(t, store.Insert(ctx, a))
	require.NoError(t, store.Insert(ctx, b))

	require.NoError(t, store.Delete(ctx, a.ID, b.ID))

	rows, err := store.GetByRemote(ctx, "SF001")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFailureInventory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	stuckPush := &ledger.ObjectMap{
		LocalType: "contacts", LocalID: "1",
		RemoteID: ledger.NewTemporaryID(ledger.Push),
		Action:   ledger.ActionPending,
	}
	stuckPull := &ledger.ObjectMap{
		LocalType: "contacts", LocalID: ledger.NewTemporaryID(ledger.Pull),
		RemoteID: "SF002",
		Action:   ledger.ActionPending,
	}
	settled := &ledger.ObjectMap{LocalType: "contacts", LocalID: "3", RemoteID: "SF003"}
	require.NoError(t, store.Insert(ctx, stuckPush))
	require.NoError(t, store.Insert(ctx, stuckPull))
	require.NoError(t, store.Insert(ctx, settled))

	rows, err := store.FailureInventory(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestStoreClosed(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Close())

	err := store.Insert(context.Background(), &ledger.ObjectMap{LocalType: "c", LocalID: "1", RemoteID: "r"})
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = store.GetByLocal(context.Background(), "c", "1")
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestMappingRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := &mapping.FieldMapping{
		Label:        "Contacts",
		LocalObject:  "contacts",
		RemoteObject: "Contact",
		Weight:       2,
		Triggers:     mapping.NewTriggerSet(mapping.LocalCreate, mapping.RemoteUpdate),
		Rules: []mapping.FieldRule{
			{
				Local:     mapping.LocalField{Name: "email"},
				Remote:    mapping.RemoteField{Name: "Email", Kind: mapping.KindText, Updateable: true, Creatable: true, Nillable: true},
				IsKey:     true,
				Direction: mapping.Bidirectional,
			},
		},
	}
	require.NoError(t, store.SaveMapping(ctx, m))
	assert.NotEmpty(t, m.ID)

	got, err := store.GetMapping(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestSaveMappingRejectsInvalid(t *testing.T) {
	store := setupTestStore(t)

	bad := &mapping.FieldMapping{
		Label:        "bad",
		LocalObject:  "contacts",
		RemoteObject: "Contact",
		Rules: []mapping.FieldRule{
			{Remote: mapping.RemoteField{Name: "Email"}},
		},
	}
	err := store.SaveMapping(context.Background(), bad)
	require.Error(t, err)
}

func TestListMappingsOrdered(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, tc := range []struct {
		id     string
		weight int
	}{
		{"heavy", 9},
		{"light", 1},
	} {
		m := &mapping.FieldMapping{
			ID:           tc.id,
			Label:        tc.id,
			LocalObject:  "contacts",
			RemoteObject: "Contact",
			Weight:       tc.weight,
			Triggers:     mapping.AllTriggers(),
		}
		require.NoError(t, store.SaveMapping(ctx, m))
	}

	mappings, err := store.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	assert.Equal(t, "light", mappings[0].ID)
	assert.Equal(t, "heavy", mappings[1].ID)
}

func TestSaveMappingUpsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := &mapping.FieldMapping{
		ID:           "m1",
		Label:        "before",
		LocalObject:  "contacts",
		RemoteObject: "Contact",
		Triggers:     mapping.AllTriggers(),
	}
	require.NoError(t, store.SaveMapping(ctx, m))

	m.Label = "after"
	require.NoError(t, store.SaveMapping(ctx, m))

	got, err := store.GetMapping(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "after", got.Label)

	mappings, err := store.ListMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, mappings, 1)
}

func TestDeleteMapping(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := &mapping.FieldMapping{
		ID: "m1", Label: "m1", LocalObject: "contacts", RemoteObject: "Contact",
		Triggers: mapping.AllTriggers(),
	}
	require.NoError(t, store.SaveMapping(ctx, m))
	require.NoError(t, store.DeleteMapping(ctx, "m1"))

	_, err := store.GetMapping(ctx, "m1")
	assert.ErrorIs(t, err, ErrMappingNotFound)
}
