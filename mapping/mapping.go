package mapping

import (
	"fmt"

	syncErrors "github.com/c0deZ3R0/go-field-sync/errors"
)

// RecordTypeAny is the unrestricted record-subtype sentinel. A mapping whose
// DefaultRecordType is RecordTypeAny accepts every subtype regardless of its
// allowed set.
const RecordTypeAny = ""

// FieldMapping is an ordered collection of field rules plus mapping-level
// policy. It is authored by an administrator and read-only to the engine.
type FieldMapping struct {
	ID    string
	Label string

	// LocalObject and RemoteObject name the object types on each side.
	LocalObject  string
	RemoteObject string

	// Rules in iteration order. Order is significant: later rules win on
	// conflicting writes to the same target key.
	Rules []FieldRule

	// Triggers declares which events this mapping responds to. Empty
	// disables the mapping.
	Triggers TriggerSet

	// AllowedRecordTypes restricts the remote record subtypes this mapping
	// applies to. Empty means unrestricted.
	AllowedRecordTypes []string

	// DefaultRecordType is the subtype assigned to records pushed through
	// this mapping. RecordTypeAny lifts the allowed-subtype restriction.
	DefaultRecordType string

	PushAsync    bool
	PushDrafts   bool
	PullToDrafts bool

	// Weight orders multiple mappings that apply to the same object type.
	Weight int
}

// Validate checks the mapping and every rule it carries.
func (m *FieldMapping) Validate() error {
	if m.LocalObject == "" {
		return syncErrors.NewInvalidRule(syncErrors.OpStore,
			fmt.Errorf("mapping %q has empty local object type", m.Label))
	}
	if m.RemoteObject == "" {
		return syncErrors.NewInvalidRule(syncErrors.OpStore,
			fmt.Errorf("mapping %q has empty remote object type", m.Label))
	}
	for i, r := range m.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("mapping %q rule %d: %w", m.Label, i, err)
		}
	}
	return nil
}

// RespondsTo reports whether the mapping is triggered by the given event.
func (m *FieldMapping) RespondsTo(event SyncEvent) bool {
	return m.Triggers.Has(event)
}

// AcceptsRecordType reports whether the mapping applies to the given remote
// record subtype. The empty subtype matches everything; a mapping with an
// unrestricted default subtype ignores its allowed set.
func (m *FieldMapping) AcceptsRecordType(recordType string) bool {
	if recordType == RecordTypeAny {
		return true
	}
	if len(m.AllowedRecordTypes) == 0 || m.DefaultRecordType == RecordTypeAny {
		return true
	}
	for _, rt := range m.AllowedRecordTypes {
		if rt == recordType {
			return true
		}
	}
	return false
}

// ActiveRules returns the rules not marked for removal, preserving order.
func (m *FieldMapping) ActiveRules() []FieldRule {
	out := make([]FieldRule, 0, len(m.Rules))
	for _, r := range m.Rules {
		if !r.MarkedForRemoval {
			out = append(out, r)
		}
	}
	return out
}
