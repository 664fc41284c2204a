package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	syncErrors "github.com/c0deZ3R0/go-field-sync/errors"
	"github.com/c0deZ3R0/go-field-sync/mapping"
)

// SaveMapping inserts or replaces a mapping configuration row. Invalid
// mappings are rejected before touching the database so a bad rule can
// never reach the transformer through persistence.
func (s *Store) SaveMapping(ctx context.Context, m *mapping.FieldMapping) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	definition, err := mapping.EncodeMapping(m)
	if err != nil {
		return syncErrors.WrapOpComponentKind(err, opMapping, "storage/sqlite", syncErrors.KindStorageFailure)
	}

	query := `INSERT INTO field_mappings (id, label, local_object, remote_object, weight, definition, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT (id) DO UPDATE SET
	              label = excluded.label,
	              local_object = excluded.local_object,
	              remote_object = excluded.remote_object,
	              weight = excluded.weight,
	              definition = excluded.definition,
	              updated_at = excluded.updated_at`
	_, err = s.db.ExecContext(ctx, query,
		m.ID, m.Label, m.LocalObject, m.RemoteObject, m.Weight, string(definition), time.Now().UTC())
	if err != nil {
		return syncErrors.WrapOpComponentKind(err, opMapping, "storage/sqlite", syncErrors.KindStorageFailure)
	}
	return nil
}

// GetMapping retrieves a mapping configuration row by ID.
func (s *Store) GetMapping(ctx context.Context, id string) (*mapping.FieldMapping, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var definition string
	query := `SELECT definition FROM field_mappings WHERE id = ?`
	err := s.db.QueryRowContext(ctx, query, id).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, syncErrors.WrapOpComponentKind(err, opMapping, "storage/sqlite", syncErrors.KindStorageFailure)
	}

	return mapping.DecodeMapping([]byte(definition))
}

// ListMappings retrieves every mapping configuration row in (weight, id) order.
func (s *Store) ListMappings(ctx context.Context) ([]*mapping.FieldMapping, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `SELECT definition FROM field_mappings ORDER BY weight ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, syncErrors.WrapOpComponentKind(err, opMapping, "storage/sqlite", syncErrors.KindStorageFailure)
	}
	defer rows.Close()

	var out []*mapping.FieldMapping
	for rows.Next() {
		var definition string
		if err := rows.Scan(&definition); err != nil {
			return nil, syncErrors.WrapOpComponentKind(err, opMapping, "storage/sqlite", syncErrors.KindStorageFailure)
		}
		m, err := mapping.DecodeMapping([]byte(definition))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, syncErrors.WrapOpComponentKind(err, opMapping, "storage/sqlite", syncErrors.KindStorageFailure)
	}
	return out, nil
}

// DeleteMapping removes a mapping configuration row by ID.
func (s *Store) DeleteMapping(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM field_mappings WHERE id = ?`, id)
	if err != nil {
		return syncErrors.WrapOpComponentKind(err, opMapping, "storage/sqlite", syncErrors.KindStorageFailure)
	}
	return nil
}
