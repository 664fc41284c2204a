// Package transform implements the value-transformation engine: a pure
// function from (field mapping, source record, triggering event) to the
// parameter set for the target system. Coercion policy is selected by
// remote field kind, never by field name, so the same engine handles any
// remote schema.
package transform

import (
	"github.com/c0deZ3R0/go-field-sync/config"
	"github.com/c0deZ3R0/go-field-sync/mapping"
)

// Record is an untyped source payload keyed by field identifier.
type Record map[string]any

// KeyDescriptor carries an upsert-key or prematch value extracted from the
// parameter set. Kept as a structured result field, never interleaved with
// ordinary field values, so a field literally named "key" stays unambiguous.
type KeyDescriptor struct {
	RemoteField string
	LocalField  string
	Value       any
}

// PrematchMethods names the local methods used to resolve a prematch
// candidate on pull.
type PrematchMethods struct {
	Match  string
	Read   string
	Create string
	Update string
}

// PullValue is one coerced remote value plus the method references the
// coordinator needs to apply it locally.
type PullValue struct {
	LocalField string
	Value      any
	Methods    mapping.MethodRefs
	Prematch   *PrematchMethods
}

// Result is the transformer output for one mapping and one record.
type Result struct {
	// Params is the main output parameter set, keyed by remote field name
	// on push and consumed by the transport collaborator.
	Params map[string]any

	// Keys holds upsert-key descriptors extracted from Params.
	Keys []KeyDescriptor

	// Prematch holds prematch descriptors for candidate lookup.
	Prematch []KeyDescriptor

	// Pulls holds per-field application instructions on pull.
	Pulls []PullValue

	// MissingRequired signals that a non-nillable remote field had no
	// source value. When set, all other output is cleared and the caller
	// must not attempt the remote write.
	MissingRequired bool

	// MissingFields names the remote fields that raised the condition.
	MissingFields []string
}

// Options adjusts transformation for the caller's transport and record state.
type Options struct {
	// InlineKeys keeps upsert-key values in Params in addition to the Keys
	// descriptors, for transports that support inline key submission.
	InlineKeys bool

	// NewRecord marks a create: create method references are selected and
	// non-creatable remote fields are stripped from the output.
	NewRecord bool
}

// URLSanitizer cleans an incoming URL value on pull. Sanitization belongs to
// the web layer; the engine only calls through this boundary.
type URLSanitizer func(string) string

// Transformer converts source records into target parameter sets. It is a
// pure computation over in-memory structures and safe for concurrent use.
type Transformer struct {
	cfg      *config.Config
	sanitize URLSanitizer
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithURLSanitizer replaces the default URL sanitizer.
func WithURLSanitizer(s URLSanitizer) Option {
	return func(t *Transformer) { t.sanitize = s }
}

// New creates a Transformer for the given engine configuration.
func New(cfg *config.Config, opts ...Option) *Transformer {
	if cfg == nil {
		cfg = config.Default()
	}
	t := &Transformer{
		cfg:      cfg,
		sanitize: sanitizeURL,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MapParams applies every active rule of the mapping to the source record,
// in rule order. Local-originated events produce push output (Params, Keys,
// Prematch); remote-originated events produce pull output (Pulls). When a
// required remote field has no source value the result is emptied and
// MissingRequired is set.
func (t *Transformer) MapParams(m *mapping.FieldMapping, rec Record, event mapping.SyncEvent, opts Options) *Result {
	res := &Result{Params: make(map[string]any)}

	push := event.IsLocal()
	for _, rule := range m.ActiveRules() {
		if push {
			t.pushRule(res, rule, rec, opts)
		} else if rule.Direction.AllowsPull() {
			t.pullRule(res, rule, rec, event)
		}
	}

	if res.MissingRequired {
		// Whole-record suppression: one missing required field blocks the
		// entire write for this mapping.
		res.Params = make(map[string]any)
		res.Keys = nil
		res.Prematch = nil
		res.Pulls = nil
	}
	return res
}

// pushRule coerces one local value into its remote representation. The value
// is computed and required-checked even when the rule's direction excludes
// push; it is only then discarded from the output.
func (t *Transformer) pushRule(res *Result, rule mapping.FieldRule, rec Record, opts Options) {
	raw := rec[rule.Local.Identifier(t.cfg.SchemaCompat)]
	val := t.coercePush(raw, rule.Remote.Kind)

	// Required-field detection uses the pre-filter source value: a field
	// stripped for transport reasons still blocks the sync when required.
	if !rule.Remote.Nillable && isEmptyValue(raw) {
		res.MissingRequired = true
		res.MissingFields = append(res.MissingFields, rule.Remote.Name)
	}

	if !rule.Direction.AllowsPush() {
		return
	}

	res.Params[rule.Remote.Name] = val

	if rule.IsKey {
		res.Keys = append(res.Keys, KeyDescriptor{
			RemoteField: rule.Remote.Name,
			LocalField:  rule.Local.Name,
			Value:       val,
		})
		if !opts.InlineKeys {
			delete(res.Params, rule.Remote.Name)
		}
	}

	if rule.IsPrematch {
		res.Prematch = append(res.Prematch, KeyDescriptor{
			RemoteField: rule.Remote.Name,
			LocalField:  rule.Local.Name,
			Value:       val,
		})
	}

	if !rule.Remote.Updateable || (opts.NewRecord && !rule.Remote.Creatable) {
		// Key and prematch descriptors survive; the main field does not.
		// An inline key stays because the transport demands it there.
		if !(rule.IsKey && opts.InlineKeys) {
			delete(res.Params, rule.Remote.Name)
		}
	}
}

// pullRule coerces one remote value into its local representation plus the
// method references needed to apply it.
func (t *Transformer) pullRule(res *Result, rule mapping.FieldRule, rec Record, event mapping.SyncEvent) {
	raw := rec[rule.Remote.Name]

	var val any
	switch rule.Remote.Kind {
	case mapping.KindMultiValueText:
		s := toString(raw)
		if s == "" {
			return
		}
		val = splitMultiValue(s, t.cfg.Delimiter)
	case mapping.KindDate:
		val = t.coercePullDate(raw)
	case mapping.KindDateTime:
		val = t.coercePullDateTime(raw, rule.Local.TypeHint)
	case mapping.KindInteger, mapping.KindBoolean:
		// Booleans travel as integers on the local side; absent means 0.
		val = toInt(raw)
	case mapping.KindText:
		val = toString(raw)
	case mapping.KindURL:
		val = t.sanitize(toString(raw))
	default:
		val = raw
	}

	// The local system must not be told to overwrite a field with emptiness
	// from this path.
	if isEmptyValue(val) {
		return
	}

	pv := PullValue{
		LocalField: rule.Local.Name,
		Value:      val,
		Methods:    rule.Local.MethodsFor(event),
	}
	if rule.IsPrematch {
		refs := rule.Local.MethodsFor(event)
		pv.Prematch = &PrematchMethods{
			Match:  refs.Match,
			Read:   refs.Read,
			Create: refs.Create,
			Update: refs.Update,
		}
	}
	res.Pulls = append(res.Pulls, pv)
}
