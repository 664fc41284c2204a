// Package postgres provides a PostgreSQL implementation of the ledger.Store
// and mapping.MappingStore persistence collaborators.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	stdSync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	syncErrors "github.com/c0deZ3R0/go-field-sync/errors"
	"github.com/c0deZ3R0/go-field-sync/ledger"
	"github.com/c0deZ3R0/go-field-sync/logging"
	"github.com/c0deZ3R0/go-field-sync/mapping"
)

// Operation constants for consistent error reporting
const (
	opInsert    = "postgres.Insert"
	opGet       = "postgres.Get"
	opUpdate    = "postgres.Update"
	opDelete    = "postgres.Delete"
	opInventory = "postgres.FailureInventory"
	opMapping   = "postgres.Mapping"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = pq.ErrorCode("23505")

// Custom errors for better error handling
var (
	ErrStoreClosed     = errors.New("store is closed")
	ErrMappingNotFound = errors.New("field mapping not found")
)

// Config holds configuration options for the Store.
type Config struct {
	// DataSourceName is the PostgreSQL connection string.
	DataSourceName string

	// Logger is an optional logger for internal operations.
	Logger *logging.Logger

	// Connection pool settings for production workloads.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// setDefaults applies default values to the config
func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = logging.NewNopLogger()
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
}

// DefaultConfig returns a Config with production-ready defaults.
func DefaultConfig(dataSourceName string) *Config {
	config := &Config{
		DataSourceName: dataSourceName,
	}
	config.setDefaults()
	return config
}

// Store implements ledger.Store and mapping.MappingStore over PostgreSQL.
type Store struct {
	db     *sql.DB
	mu     stdSync.RWMutex
	closed bool
	logger *logging.Logger
}

// Compile-time checks to ensure Store satisfies the collaborator interfaces
var (
	_ ledger.Store         = (*Store)(nil)
	_ mapping.MappingStore = (*Store)(nil)
)

// New creates a new Store from a Config.
func New(config *Config) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	config.setDefaults()

	if config.DataSourceName == "" {
		return nil, fmt.Errorf("DataSourceName is required")
	}

	logger := config.Logger.WithComponent(logging.Component("postgres-store"))
	logger.InfoContext(context.Background(), "Opening PostgreSQL database")

	db, err := sql.Open("postgres", config.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres database: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := config.Logger.LogOperation(context.Background(), "setup_schema", "postgres-store", store.setupSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database schema: %w", err)
	}

	logger.InfoContext(context.Background(), "PostgreSQL store initialized",
		slog.Int("max_open_conns", config.MaxOpenConns),
	)
	return store, nil
}

// setupSchema creates the ledger and mapping tables if they don't exist.
func (s *Store) setupSchema() error {
	query := `
    CREATE TABLE IF NOT EXISTS object_maps (
        id          TEXT PRIMARY KEY,
        local_type  TEXT NOT NULL,
        local_id    TEXT NOT NULL,
        remote_id   TEXT NOT NULL,
        action      TEXT NOT NULL DEFAULT '',
        created_at  TIMESTAMPTZ NOT NULL,
        updated_at  TIMESTAMPTZ NOT NULL,
        UNIQUE (local_type, local_id, remote_id)
    );
    CREATE INDEX IF NOT EXISTS idx_object_maps_local ON object_maps (local_type, local_id);
    CREATE INDEX IF NOT EXISTS idx_object_maps_remote ON object_maps (remote_id);

    CREATE TABLE IF NOT EXISTS field_mappings (
        id            TEXT PRIMARY KEY,
        label         TEXT NOT NULL,
        local_object  TEXT NOT NULL,
        remote_object TEXT NOT NULL,
        weight        INTEGER NOT NULL DEFAULT 0,
        definition    JSONB NOT NULL,
        updated_at    TIMESTAMPTZ NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_field_mappings_local ON field_mappings (local_object);
    `
	_, err := s.db.Exec(query)
	return err
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Insert persists a new ledger row. Uniqueness conflicts surface as the
// driver's 23505 error class, atomically with the insert.
func (s *Store) Insert(ctx context.Context, row *ledger.ObjectMap) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = now
	}

	query := `INSERT INTO object_maps (id, local_type, local_id, remote_id, action, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		row.ID, row.LocalType, row.LocalID, row.RemoteID, row.Action, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s/%s -> %s", ledger.ErrDuplicate, row.LocalType, row.LocalID, row.RemoteID)
		}
		return syncErrors.WrapOpComponentKind(err, opInsert, "storage/postgres", syncErrors.KindStorageFailure)
	}
	return nil
}

// GetByLocal returns all rows for a (local type, local id) pair, newest first.
func (s *Store) GetByLocal(ctx context.Context, localType, localID string) ([]*ledger.ObjectMap, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `SELECT id, local_type, local_id, remote_id, action, created_at, updated_at
	          FROM object_maps WHERE local_type = $1 AND local_id = $2
	          ORDER BY updated_at DESC, created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, localType, localID)
	if err != nil {
		return nil, syncErrors.WrapOpComponentKind(err, opGet, "storage/postgres", syncErrors.KindStorageFailure)
	}
	defer rows.Close()

	return scanObjectMaps(rows)
}

// GetByRemote returns all rows for a remote identifier, newest first.
func (s *Store) GetByRemote(ctx context.Context, remoteID string) ([]*ledger.ObjectMap, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `SELECT id, local_type, local_id, remote_id, action, created_at, updated_at
	          FROM object_maps WHERE remote_id = $1
	          ORDER BY updated_at DESC, created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, remoteID)
	if err != nil {
		return nil, syncErrors.WrapOpComponentKind(err, opGet, "storage/postgres", syncErrors.KindStorageFailure)
	}
	defer rows.Close()

	return scanObjectMaps(rows)
}

// Update rewrites a row by surrogate ID, refreshing updated_at unless the
// caller supplied a timestamp.
func (s *Store) Update(ctx context.Context, row *ledger.ObjectMap) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}

	query := `UPDATE object_maps SET local_type = $1, local_id = $2, remote_id = $3, action = $4, updated_at = $5
	          WHERE id = $6`
	res, err := s.db.ExecContext(ctx, query,
		row.LocalType, row.LocalID, row.RemoteID, row.Action, row.UpdatedAt, row.ID)
	if err != nil {
		return syncErrors.WrapOpComponentKind(err, opUpdate, "storage/postgres", syncErrors.KindStorageFailure)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return syncErrors.WrapOpComponentKind(err, opUpdate, "storage/postgres", syncErrors.KindStorageFailure)
	}
	if affected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Delete removes rows by surrogate ID in a single transaction.
func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	query := `DELETE FROM object_maps WHERE id = ANY($1)`
	_, err := s.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return syncErrors.WrapOpComponentKind(err, opDelete, "storage/postgres", syncErrors.KindStorageFailure)
	}
	return nil
}

// FailureInventory returns stuck pushes and stuck pulls.
func (s *Store) FailureInventory(ctx context.Context) ([]*ledger.ObjectMap, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `SELECT id, local_type, local_id, remote_id, action, created_at, updated_at
	          FROM object_maps
	          WHERE remote_id LIKE $1 OR local_id LIKE $2
	          ORDER BY updated_at DESC, created_at DESC`
	rows, err := s.db.QueryContext(ctx, query,
		ledger.TempPushPrefix+"%", ledger.TempPullPrefix+"%")
	if err != nil {
		return nil, syncErrors.WrapOpComponentKind(err, opInventory, "storage/postgres", syncErrors.KindStorageFailure)
	}
	defer rows.Close()

	return scanObjectMaps(rows)
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// scanObjectMaps is a helper to scan sql.Rows into ledger rows.
func scanObjectMaps(rows *sql.Rows) ([]*ledger.ObjectMap, error) {
	var out []*ledger.ObjectMap
	for rows.Next() {
		row := &ledger.ObjectMap{}
		if err := rows.Scan(&row.ID, &row.LocalType, &row.LocalID, &row.RemoteID,
			&row.Action, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan object map row: %w", err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return out, nil
}
