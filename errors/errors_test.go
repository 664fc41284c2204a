package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncErrorMessage(t *testing.T) {
	cause := fmt.Errorf("boom")

	e := NewWithComponent(OpPush, "coordinator", cause)
	assert.Equal(t, "push operation failed in coordinator component: boom", e.Error())

	e = New(OpPull, cause)
	assert.Equal(t, "pull operation failed: boom", e.Error())

	e = NewLedgerCollision(OpCreateObjectMap, cause)
	assert.Contains(t, e.Error(), "LEDGER_UNIQUENESS_COLLISION")
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("underlying")
	e := NewTransportError(OpTransport, cause)
	assert.ErrorIs(t, e, cause)
}

func TestRetryablePolicy(t *testing.T) {
	cause := fmt.Errorf("x")

	assert.True(t, IsRetryable(NewMissingRequired(OpMapParams, cause)))
	assert.True(t, IsRetryable(NewTransportError(OpTransport, cause)))
	assert.True(t, IsRetryable(NewStorageError(OpStore, cause)))

	assert.False(t, IsRetryable(NewInvalidRule(OpMapParams, cause)))
	assert.False(t, IsRetryable(NewTempIDMisuse(OpCreateObjectMap, cause)))
	assert.False(t, IsRetryable(NewLedgerCollision(OpCreateObjectMap, cause)))
	assert.False(t, IsRetryable(cause), "foreign errors are not retryable")
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := NewMissingRequired(OpMapParams, fmt.Errorf("last_name"))
	wrapped := fmt.Errorf("push contacts/42: %w", inner)

	assert.True(t, IsKind(wrapped, KindMissingRequired))
	assert.False(t, IsKind(wrapped, KindTempIDMisuse))
	assert.Equal(t, KindMissingRequired, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
}

func TestWrapOpComponent(t *testing.T) {
	assert.Nil(t, WrapOpComponent(nil, OpStore, "sqlite"))

	cause := fmt.Errorf("disk full")
	err := WrapOpComponent(cause, OpStore, "sqlite")
	require.Error(t, err)

	var syncErr *SyncError
	require.True(t, stderrors.As(err, &syncErr))
	assert.Equal(t, OpStore, syncErr.Op)
	assert.Equal(t, "sqlite", syncErr.Component)
	assert.ErrorIs(t, err, cause)
}

func TestWrapOpComponentKind(t *testing.T) {
	assert.Nil(t, WrapOpComponentKind(nil, OpStore, "storage/sqlite", KindStorageFailure))

	cause := fmt.Errorf("locked")
	err := WrapOpComponentKind(cause, OpStore, "storage/sqlite", KindStorageFailure)
	require.Error(t, err)

	var syncErr *SyncError
	require.True(t, stderrors.As(err, &syncErr))
	assert.Equal(t, "storage/sqlite", syncErr.Component)
	assert.True(t, IsKind(err, KindStorageFailure))
	assert.ErrorIs(t, err, cause)
}

func TestWithMetadata(t *testing.T) {
	e := NewLedgerCollision(OpCreateObjectMap, fmt.Errorf("dup")).
		WithMetadata("canonical_row_id", "row-1")
	assert.Equal(t, "row-1", e.Metadata["canonical_row_id"])
}
