// Package sqlite provides a SQLite implementation of the ledger.Store and
// mapping.MappingStore persistence collaborators.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	stdSync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	syncErrors "github.com/c0deZ3R0/go-field-sync/errors"
	"github.com/c0deZ3R0/go-field-sync/ledger"
	"github.com/c0deZ3R0/go-field-sync/logging"
	"github.com/c0deZ3R0/go-field-sync/mapping"
)

// Operation constants for consistent error reporting
const (
	opInsert    = "sqlite.Insert"
	opGet       = "sqlite.Get"
	opUpdate    = "sqlite.Update"
	opDelete    = "sqlite.Delete"
	opInventory = "sqlite.FailureInventory"
	opMapping   = "sqlite.Mapping"
)

// Custom errors for better error handling
var (
	ErrStoreClosed     = errors.New("store is closed")
	ErrMappingNotFound = errors.New("field mapping not found")
)

// Config holds configuration options for the Store.
//
// Production-ready defaults are applied by DefaultConfig() including:
//   - WAL mode enabled for better concurrency
//   - Connection pool with 25 max open, 5 max idle connections
//   - Connection lifetimes of 1 hour max, 5 minutes max idle
type Config struct {
	// DataSourceName is the connection string for the SQLite database.
	DataSourceName string

	// EnableWAL enables Write-Ahead Logging mode for better concurrency.
	// When true, automatically appends "?_journal_mode=WAL" to DataSourceName.
	EnableWAL bool

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
	if strings.Contains(c.DataSourceName, ":memory:") {
		// Every pooled connection to an in-memory database sees its own
		// empty database. One shared connection keeps a single one alive.
		c.MaxOpenConns = 1
		c.MaxIdleConns = 1
		c.EnableWAL = false
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
	if c.EnableWAL {
		if !strings.Contains(c.DataSourceName, "?_journal_mode=") {
			c.DataSourceName += "?_journal_mode=WAL"
		}
	}
}

// DefaultConfig returns a Config with production-ready defaults for SQLite.
func DefaultConfig(dataSourceName string) *Config {
	config := &Config{
		DataSourceName: dataSourceName,
		EnableWAL:      true,
	}
	config.setDefaults()
	return config
}

// NewWithDataSource is a convenience constructor
func NewWithDataSource(dataSourceName string) (*Store, error) {
	return New(DefaultConfig(dataSourceName))
}

// Store implements ledger.Store and mapping.MappingStore over SQLite.
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

	logger := config.Logger.WithComponent(logging.Component("sqlite-store"))
	logger.InfoContext(context.Background(), "Opening SQLite database",
		slog.String("data_source", config.DataSourceName),
		slog.Bool("wal_enabled", config.EnableWAL),
	)

	db, err := sql.Open("sqlite3", config.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := config.Logger.LogOperation(context.Background(), "setup_schema", "sqlite-store", store.setupSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database schema: %w", err)
	}

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
        created_at  TIMESTAMP NOT NULL,
        updated_at  TIMESTAMP NOT NULL,
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
        definition    TEXT NOT NULL,
        updated_at    TIMESTAMP NOT NULL
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

// Insert persists a new ledger row. Uniqueness conflicts are detected via
// the driver's typed constraint error, atomically with the insert.
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
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		row.ID, row.LocalType, row.LocalID, row.RemoteID, row.Action, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s/%s -> %s", ledger.ErrDuplicate, row.LocalType, row.LocalID, row.RemoteID)
		}
		return syncErrors.WrapOpComponentKind(err, opInsert, "storage/sqlite", syncErrors.KindStorageFailure)
	}
	return nil
}

// GetByLocal returns all rows for a (local type, local id) pair, newest first.
func (s *Store) GetByLocal(ctx context.Context, localType, localID string) ([]*ledger.ObjectMap, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `SELECT id, local_type, local_id, remote_id, action, created_at, updated_at
	          FROM object_maps WHERE local_type = ? AND local_id = ?
	          ORDER BY updated_at DESC, created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, localType, localID)
	if err != nil {
		return nil, syncErrors.WrapOpComponentKind(err, opGet, "storage/sqlite", syncErrors.KindStorageFailure)
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
	          FROM object_maps WHERE remote_id = ?
	          ORDER BY updated_at DESC, created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, remoteID)
	if err != nil {
		return nil, syncErrors.WrapOpComponentKind(err, opGet, "storage/sqlite", syncErrors.KindStorageFailure)
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

	query := `UPDATE object_maps SET local_type = ?, local_id = ?, remote_id = ?, action = ?, updated_at = ?
	          WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query,
		row.LocalType, row.LocalID, row.RemoteID, row.Action, row.UpdatedAt, row.ID)
	if err != nil {
		return syncErrors.WrapOpComponentKind(err, opUpdate, "storage/sqlite", syncErrors.KindStorageFailure)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return syncErrors.WrapOpComponentKind(err, opUpdate, "storage/sqlite", syncErrors.KindStorageFailure)
	}
	if affected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Delete removes rows by surrogate ID in a single transaction: the batch
// succeeds or fails as a unit.
func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return syncErrors.WrapOpComponentKind(err, opDelete, "storage/sqlite", syncErrors.KindStorageFailure)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM object_maps WHERE id = ?`)
	if err != nil {
		return syncErrors.WrapOpComponentKind(err, opDelete, "storage/sqlite", syncErrors.KindStorageFailure)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err = stmt.ExecContext(ctx, id); err != nil {
			return syncErrors.WrapOpComponentKind(err, opDelete, "storage/sqlite", syncErrors.KindStorageFailure)
		}
	}

	if err = tx.Commit(); err != nil {
		return syncErrors.WrapOpComponentKind(err, opDelete, "storage/sqlite", syncErrors.KindStorageFailure)
	}
	return nil
}

// FailureInventory returns stuck pushes (temporary push prefix in the
// remote slot) and stuck pulls (temporary pull prefix in the local slot).
func (s *Store) FailureInventory(ctx context.Context) ([]*ledger.ObjectMap, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `SELECT id, local_type, local_id, remote_id, action, created_at, updated_at
	          FROM object_maps
	          WHERE remote_id LIKE ? OR local_id LIKE ?
	          ORDER BY updated_at DESC, created_at DESC`
	rows, err := s.db.QueryContext(ctx, query,
		ledger.TempPushPrefix+"%", ledger.TempPullPrefix+"%")
	if err != nil {
		return nil, syncErrors.WrapOpComponentKind(err, opInventory, "storage/sqlite", syncErrors.KindStorageFailure)
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

// Stats returns database statistics for monitoring
func (s *Store) Stats() sql.DBStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return sql.DBStats{}
	}

	return s.db.Stats()
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
