package mapping

import (
	"context"
	"sort"
)

// Catalog holds the active field mappings and answers selection queries.
// It is immutable after construction; rebuild it to pick up edits.
type Catalog struct {
	mappings []*FieldMapping
}

// NewCatalog builds a catalog from validated mappings. Invalid mappings are
// rejected so they can never reach the transformer.
func NewCatalog(mappings []*FieldMapping) (*Catalog, error) {
	for _, m := range mappings {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}
	out := make([]*FieldMapping, len(mappings))
	copy(out, mappings)
	return &Catalog{mappings: out}, nil
}

// LoadCatalog builds a catalog from every mapping in the store.
func LoadCatalog(ctx context.Context, store MappingStore) (*Catalog, error) {
	mappings, err := store.ListMappings(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(mappings)
}

// Len returns the number of mappings in the catalog.
func (c *Catalog) Len() int {
	return len(c.mappings)
}

// ForLocalObject returns the mappings that apply to a local object type and
// optional remote record subtype, ordered by weight. No match is not an
// error: it means nothing to synchronize.
func (c *Catalog) ForLocalObject(localObject, recordType string) []*FieldMapping {
	return c.selectMappings(func(m *FieldMapping) bool {
		return m.LocalObject == localObject && m.AcceptsRecordType(recordType)
	})
}

// ForRemoteObject is the remote-side counterpart of ForLocalObject.
func (c *Catalog) ForRemoteObject(remoteObject, recordType string) []*FieldMapping {
	return c.selectMappings(func(m *FieldMapping) bool {
		return m.RemoteObject == remoteObject && m.AcceptsRecordType(recordType)
	})
}

func (c *Catalog) selectMappings(match func(*FieldMapping) bool) []*FieldMapping {
	var out []*FieldMapping
	for _, m := range c.mappings {
		if m.Triggers.IsEmpty() {
			continue
		}
		if match(m) {
			out = append(out, m)
		}
	}
	// Stable so equal weights keep catalog order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight < out[j].Weight })
	return out
}
