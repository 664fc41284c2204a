// Package mapping defines the rule model for field-level synchronization:
// sync events and trigger sets, directions, remote field kinds, field rules
// and field mappings, plus weight-ordered mapping selection.
package mapping

import (
	"sort"
	"strings"
)

// SyncEvent is one of the six atomic events a mapping can respond to.
type SyncEvent int

const (
	LocalCreate SyncEvent = iota
	LocalUpdate
	LocalDelete
	RemoteCreate
	RemoteUpdate
	RemoteDelete

	numSyncEvents = 6
)

var syncEventNames = [numSyncEvents]string{
	"local_create",
	"local_update",
	"local_delete",
	"remote_create",
	"remote_update",
	"remote_delete",
}

func (e SyncEvent) String() string {
	if e < 0 || int(e) >= numSyncEvents {
		return "unknown"
	}
	return syncEventNames[e]
}

// IsLocal reports whether the event originated in the local system. Local
// events trigger pushes.
func (e SyncEvent) IsLocal() bool {
	return e == LocalCreate || e == LocalUpdate || e == LocalDelete
}

// IsRemote reports whether the event originated in the remote system. Remote
// events trigger pulls.
func (e SyncEvent) IsRemote() bool {
	return e == RemoteCreate || e == RemoteUpdate || e == RemoteDelete
}

// IsCreate reports whether the event introduces a new record on either side.
func (e SyncEvent) IsCreate() bool {
	return e == LocalCreate || e == RemoteCreate
}

// IsDelete reports whether the event removes a record on either side.
func (e SyncEvent) IsDelete() bool {
	return e == LocalDelete || e == RemoteDelete
}

// Bit returns the event's position in the compact persisted form. Only the
// persistence boundary should care about this.
func (e SyncEvent) Bit() uint8 {
	return 1 << uint(e)
}

// TriggerSet is the set of events a field mapping responds to. The zero
// value is the empty set, which disables the mapping.
type TriggerSet struct {
	events map[SyncEvent]struct{}
}

// NewTriggerSet builds a set from the given events.
func NewTriggerSet(events ...SyncEvent) TriggerSet {
	s := TriggerSet{}
	for _, e := range events {
		s.Add(e)
	}
	return s
}

// AllTriggers returns the set containing all six events.
func AllTriggers() TriggerSet {
	return NewTriggerSet(LocalCreate, LocalUpdate, LocalDelete, RemoteCreate, RemoteUpdate, RemoteDelete)
}

// Add inserts an event into the set.
func (s *TriggerSet) Add(e SyncEvent) {
	if e < 0 || int(e) >= numSyncEvents {
		return
	}
	if s.events == nil {
		s.events = make(map[SyncEvent]struct{}, numSyncEvents)
	}
	s.events[e] = struct{}{}
}

// Remove deletes an event from the set.
func (s *TriggerSet) Remove(e SyncEvent) {
	delete(s.events, e)
}

// Has reports whether the set contains e.
func (s TriggerSet) Has(e SyncEvent) bool {
	_, ok := s.events[e]
	return ok
}

// IsEmpty reports whether no events are set. An empty trigger set disables
// the mapping.
func (s TriggerSet) IsEmpty() bool {
	return len(s.events) == 0
}

// Events returns the members in declaration order.
func (s TriggerSet) Events() []SyncEvent {
	out := make([]SyncEvent, 0, len(s.events))
	for e := range s.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s TriggerSet) String() string {
	names := make([]string, 0, len(s.events))
	for _, e := range s.Events() {
		names = append(names, e.String())
	}
	return strings.Join(names, ",")
}

// Bits encodes the set as a bit field for compact persistence.
func (s TriggerSet) Bits() uint8 {
	var b uint8
	for e := range s.events {
		b |= e.Bit()
	}
	return b
}

// TriggersFromBits decodes the compact persisted form.
func TriggersFromBits(b uint8) TriggerSet {
	s := TriggerSet{}
	for e := SyncEvent(0); int(e) < numSyncEvents; e++ {
		if b&e.Bit() != 0 {
			s.Add(e)
		}
	}
	return s
}

// SyncDirection declares which way a field rule flows.
type SyncDirection int

const (
	LocalToRemote SyncDirection = iota
	RemoteToLocal
	Bidirectional
)

func (d SyncDirection) String() string {
	switch d {
	case LocalToRemote:
		return "local_to_remote"
	case RemoteToLocal:
		return "remote_to_local"
	case Bidirectional:
		return "bidirectional"
	}
	return "unknown"
}

// AllowsPush reports whether the rule contributes on local-originated events.
func (d SyncDirection) AllowsPush() bool {
	return d == LocalToRemote || d == Bidirectional
}

// AllowsPull reports whether the rule contributes on remote-originated events.
func (d SyncDirection) AllowsPull() bool {
	return d == RemoteToLocal || d == Bidirectional
}

// RemoteFieldKind classifies a remote field's storage type. Coercion policy
// is selected by kind, never by field name.
type RemoteFieldKind int

const (
	KindText RemoteFieldKind = iota
	KindMultiValueText
	KindDate
	KindDateTime
	KindInteger
	KindBoolean
	KindURL
	KindOther
)

var remoteFieldKindNames = map[RemoteFieldKind]string{
	KindText:           "text",
	KindMultiValueText: "multivaluetext",
	KindDate:           "date",
	KindDateTime:       "datetime",
	KindInteger:        "integer",
	KindBoolean:        "boolean",
	KindURL:            "url",
	KindOther:          "other",
}

func (k RemoteFieldKind) String() string {
	if name, ok := remoteFieldKindNames[k]; ok {
		return name
	}
	return "other"
}

// ParseRemoteFieldKind maps a remote schema type name onto a kind. Unknown
// names fall back to KindOther, which gets pass-through coercion.
func ParseRemoteFieldKind(s string) RemoteFieldKind {
	switch strings.ToLower(s) {
	case "text", "string", "textarea", "picklist":
		return KindText
	case "multivaluetext", "multipicklist", "multienum":
		return KindMultiValueText
	case "date":
		return KindDate
	case "datetime", "datetimecombo":
		return KindDateTime
	case "integer", "int":
		return KindInteger
	case "boolean", "bool":
		return KindBoolean
	case "url", "link":
		return KindURL
	default:
		return KindOther
	}
}
