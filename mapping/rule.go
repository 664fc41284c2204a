package mapping

import (
	"fmt"

	"github.com/c0deZ3R0/go-field-sync/config"
	syncErrors "github.com/c0deZ3R0/go-field-sync/errors"
)

// MethodRefs names the local storage methods the coordinator invokes to
// apply a pulled value. References are opaque to the engine; the local
// storage collaborator interprets them.
type MethodRefs struct {
	Read   string
	Create string
	Update string
	Delete string
	Match  string
}

// IsZero reports whether no method references are set.
func (m MethodRefs) IsZero() bool {
	return m == MethodRefs{}
}

// LocalField describes the local half of a field rule.
type LocalField struct {
	// Name identifies the field in source records.
	Name string

	// Label is the display label; used for record access when the schema
	// compatibility mode is FieldsByLabel.
	Label string

	// TypeHint is the locally declared type ("datetime", "date", "bool", ...).
	// Pull coercion of remote date-time values keys off it.
	TypeHint string

	// Read and Update are the default method references for this field.
	Read   string
	Update string

	// Methods overrides the defaults per triggering event.
	Methods map[SyncEvent]MethodRefs
}

// Identifier returns the key used to address this field in source records,
// honoring the configured schema compatibility mode.
func (f LocalField) Identifier(mode config.SchemaCompatibilityMode) string {
	if mode == config.FieldsByLabel && f.Label != "" {
		return f.Label
	}
	return f.Name
}

// MethodsFor resolves the method references for a specific triggering event,
// falling back to the field's default read/update references.
func (f LocalField) MethodsFor(event SyncEvent) MethodRefs {
	if refs, ok := f.Methods[event]; ok {
		return refs
	}
	return MethodRefs{Read: f.Read, Update: f.Update}
}

// RemoteField describes the remote half of a field rule.
type RemoteField struct {
	Name string
	Kind RemoteFieldKind

	// Updateable: the remote system accepts writes to this field on update.
	Updateable bool

	// Nillable: the remote system accepts an absent value. A false value
	// makes the field required on push.
	Nillable bool

	// Creatable: the remote system accepts this field on create.
	Creatable bool
}

// FieldRule is one local↔remote field correspondence plus its policy flags.
type FieldRule struct {
	Local  LocalField
	Remote RemoteField

	// IsKey: this rule supplies the external-id upsert key on the remote side.
	IsKey bool

	// IsPrematch: this rule is used to look up an existing remote record
	// before creating a new one.
	IsPrematch bool

	Direction SyncDirection

	// MarkedForRemoval excludes the rule from processing without losing its
	// position in the ordered list, so re-editing stays stable.
	MarkedForRemoval bool
}

// Validate rejects rules that must never be persisted or processed.
func (r FieldRule) Validate() error {
	if r.Local.Name == "" {
		return syncErrors.NewInvalidRule(syncErrors.OpStore,
			fmt.Errorf("field rule has empty local field name (remote %q)", r.Remote.Name))
	}
	if r.Remote.Name == "" {
		return syncErrors.NewInvalidRule(syncErrors.OpStore,
			fmt.Errorf("field rule has empty remote field name (local %q)", r.Local.Name))
	}
	return nil
}
