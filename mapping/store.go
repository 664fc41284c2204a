package mapping

import "context"

// MappingStore persists field mapping configuration rows. Implementations
// can use any storage backend (see storage/sqlite and storage/postgres).
type MappingStore interface {
	// SaveMapping inserts or replaces a mapping by ID. The mapping must
	// already be validated; stores reject invalid rules.
	SaveMapping(ctx context.Context, m *FieldMapping) error

	// GetMapping retrieves a mapping by ID.
	GetMapping(ctx context.Context, id string) (*FieldMapping, error)

	// ListMappings retrieves every mapping, in stable (weight, id) order.
	ListMappings(ctx context.Context) ([]*FieldMapping, error)

	// DeleteMapping removes a mapping by ID.
	DeleteMapping(ctx context.Context, id string) error
}
