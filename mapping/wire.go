package mapping

import (
	"encoding/json"
	"fmt"
)

// Wire form for persisted mapping definitions. Trigger sets serialize as
// their compact bit encoding at this boundary only; in memory they stay a
// real set type.

type wireMapping struct {
	ID                 string     `json:"id"`
	Label              string     `json:"label"`
	LocalObject        string     `json:"local_object"`
	RemoteObject       string     `json:"remote_object"`
	Rules              []wireRule `json:"rules"`
	TriggerBits        uint8      `json:"trigger_bits"`
	AllowedRecordTypes []string   `json:"allowed_record_types,omitempty"`
	DefaultRecordType  string     `json:"default_record_type,omitempty"`
	PushAsync          bool       `json:"push_async,omitempty"`
	PushDrafts         bool       `json:"push_drafts,omitempty"`
	PullToDrafts       bool       `json:"pull_to_drafts,omitempty"`
	Weight             int        `json:"weight"`
}

type wireRule struct {
	LocalName        string                `json:"local_name"`
	LocalLabel       string                `json:"local_label,omitempty"`
	LocalTypeHint    string                `json:"local_type_hint,omitempty"`
	LocalRead        string                `json:"local_read,omitempty"`
	LocalUpdate      string                `json:"local_update,omitempty"`
	LocalMethods     map[string]MethodRefs `json:"local_methods,omitempty"`
	RemoteName       string                `json:"remote_name"`
	RemoteKind       string                `json:"remote_kind"`
	Updateable       bool                  `json:"updateable"`
	Nillable         bool                  `json:"nillable"`
	Creatable        bool                  `json:"creatable"`
	IsKey            bool                  `json:"is_key,omitempty"`
	IsPrematch       bool                  `json:"is_prematch,omitempty"`
	Direction        string                `json:"direction"`
	MarkedForRemoval bool                  `json:"marked_for_removal,omitempty"`
}

var wireDirections = map[string]SyncDirection{
	"local_to_remote": LocalToRemote,
	"remote_to_local": RemoteToLocal,
	"bidirectional":   Bidirectional,
}

var wireEvents = func() map[string]SyncEvent {
	m := make(map[string]SyncEvent, numSyncEvents)
	for e := SyncEvent(0); int(e) < numSyncEvents; e++ {
		m[e.String()] = e
	}
	return m
}()

// EncodeMapping serializes a mapping definition for persistence.
func EncodeMapping(m *FieldMapping) ([]byte, error) {
	w := wireMapping{
		ID:                 m.ID,
		Label:              m.Label,
		LocalObject:        m.LocalObject,
		RemoteObject:       m.RemoteObject,
		TriggerBits:        m.Triggers.Bits(),
		AllowedRecordTypes: m.AllowedRecordTypes,
		DefaultRecordType:  m.DefaultRecordType,
		PushAsync:          m.PushAsync,
		PushDrafts:         m.PushDrafts,
		PullToDrafts:       m.PullToDrafts,
		Weight:             m.Weight,
	}
	for _, r := range m.Rules {
		wr := wireRule{
			LocalName:        r.Local.Name,
			LocalLabel:       r.Local.Label,
			LocalTypeHint:    r.Local.TypeHint,
			LocalRead:        r.Local.Read,
			LocalUpdate:      r.Local.Update,
			RemoteName:       r.Remote.Name,
			RemoteKind:       r.Remote.Kind.String(),
			Updateable:       r.Remote.Updateable,
			Nillable:         r.Remote.Nillable,
			Creatable:        r.Remote.Creatable,
			IsKey:            r.IsKey,
			IsPrematch:       r.IsPrematch,
			Direction:        r.Direction.String(),
			MarkedForRemoval: r.MarkedForRemoval,
		}
		if len(r.Local.Methods) > 0 {
			wr.LocalMethods = make(map[string]MethodRefs, len(r.Local.Methods))
			for e, refs := range r.Local.Methods {
				wr.LocalMethods[e.String()] = refs
			}
		}
		w.Rules = append(w.Rules, wr)
	}
	return json.Marshal(w)
}

// DecodeMapping deserializes a persisted mapping definition.
func DecodeMapping(data []byte) (*FieldMapping, error) {
	var w wireMapping
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode mapping definition: %w", err)
	}

	m := &FieldMapping{
		ID:                 w.ID,
		Label:              w.Label,
		LocalObject:        w.LocalObject,
		RemoteObject:       w.RemoteObject,
		Triggers:           TriggersFromBits(w.TriggerBits),
		AllowedRecordTypes: w.AllowedRecordTypes,
		DefaultRecordType:  w.DefaultRecordType,
		PushAsync:          w.PushAsync,
		PushDrafts:         w.PushDrafts,
		PullToDrafts:       w.PullToDrafts,
		Weight:             w.Weight,
	}
	for _, wr := range w.Rules {
		direction, ok := wireDirections[wr.Direction]
		if !ok {
			return nil, fmt.Errorf("decode mapping definition: unknown direction %q", wr.Direction)
		}
		r := FieldRule{
			Local: LocalField{
				Name:     wr.LocalName,
				Label:    wr.LocalLabel,
				TypeHint: wr.LocalTypeHint,
				Read:     wr.LocalRead,
				Update:   wr.LocalUpdate,
			},
			Remote: RemoteField{
				Name:       wr.RemoteName,
				Kind:       ParseRemoteFieldKind(wr.RemoteKind),
				Updateable: wr.Updateable,
				Nillable:   wr.Nillable,
				Creatable:  wr.Creatable,
			},
			IsKey:            wr.IsKey,
			IsPrematch:       wr.IsPrematch,
			Direction:        direction,
			MarkedForRemoval: wr.MarkedForRemoval,
		}
		if len(wr.LocalMethods) > 0 {
			r.Local.Methods = make(map[SyncEvent]MethodRefs, len(wr.LocalMethods))
			for name, refs := range wr.LocalMethods {
				e, ok := wireEvents[name]
				if !ok {
					return nil, fmt.Errorf("decode mapping definition: unknown event %q", name)
				}
				r.Local.Methods[e] = refs
			}
		}
		m.Rules = append(m.Rules, r)
	}
	return m, nil
}
