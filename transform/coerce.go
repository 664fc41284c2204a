package transform

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/c0deZ3R0/go-field-sync/mapping"
)

// Wire formats used on the remote side. DateTime values travel as RFC 3339
// in UTC; Date values are bare calendar days with no time component.
const (
	remoteDateLayout     = "2006-01-02"
	remoteDateTimeLayout = time.RFC3339
)

// coercePush converts a decoded local value into its remote representation.
func (t *Transformer) coercePush(raw any, kind mapping.RemoteFieldKind) any {
	// Sequences collapse to a single delimited string before any
	// kind-specific handling.
	if seq, ok := asStringSlice(raw); ok {
		raw = strings.Join(seq, t.cfg.Delimiter)
	}

	switch kind {
	case mapping.KindDate, mapping.KindDateTime:
		if isEmptyValue(raw) {
			return nil
		}
		ts, ok := t.parseTimestamp(raw)
		if !ok {
			// Fallback: treat the raw value as already in wire form.
			return raw
		}
		if kind == mapping.KindDateTime {
			return ts.UTC().Format(remoteDateTimeLayout)
		}
		return ts.Format(remoteDateLayout)
	case mapping.KindBoolean:
		// Strict boolean; this kind never carries null.
		return toBool(raw)
	default:
		return raw
	}
}

// coercePullDate reformats a remote calendar date. Date values represent a
// day with no time component and are never time-zone-shifted.
func (t *Transformer) coercePullDate(raw any) any {
	s := toString(raw)
	if s == "" {
		return ""
	}
	for _, layout := range []string{remoteDateLayout, remoteDateTimeLayout} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format(t.cfg.DateFormat)
		}
	}
	return s
}

// coercePullDateTime converts a remote date-time, assumed UTC, into the
// configured local time zone. The target layout follows the local field's
// declared type: "datetime" gets the combined format, anything else the
// date format.
func (t *Transformer) coercePullDateTime(raw any, typeHint string) any {
	s := toString(raw)
	if s == "" {
		return ""
	}

	var ts time.Time
	if parsed, err := time.Parse(remoteDateTimeLayout, s); err == nil {
		ts = parsed
	} else if parsed, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC); err == nil {
		ts = parsed
	} else {
		return s
	}

	local := ts.In(t.cfg.Location())
	if strings.EqualFold(typeHint, "datetime") {
		return local.Format(t.cfg.DateTimeFormat)
	}
	return local.Format(t.cfg.DateFormat)
}

// parseTimestamp decodes a local timestamp value from the formats the local
// system produces.
func (t *Transformer) parseTimestamp(raw any) (time.Time, bool) {
	if ts, ok := raw.(time.Time); ok {
		return ts, true
	}
	s := toString(raw)
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		remoteDateTimeLayout,
		t.cfg.DateTimeFormat,
		t.cfg.DateFormat,
		"2006-01-02 15:04:05",
		remoteDateLayout,
	}
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, s, t.cfg.Location()); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// splitMultiValue splits delimited remote content into an ordered sequence.
func splitMultiValue(s, delimiter string) []string {
	return strings.Split(s, delimiter)
}

// asStringSlice decodes sequence-shaped values into []string.
func asStringSlice(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = toString(item)
		}
		return out, true
	default:
		return nil, false
	}
}

// isEmptyValue reports whether a value counts as absent for required-field
// detection and pull skipping. Zero numbers and false booleans are values,
// not absences.
func isEmptyValue(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func toString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		}
		return false
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return false
	}
}

func toInt(raw any) int {
	switch v := raw.(type) {
	case nil:
		return 0
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// sanitizeURL is the default URL sanitizer: it keeps http/https URLs that
// parse cleanly and drops everything else.
func sanitizeURL(s string) string {
	if s == "" {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "http", "https":
		return u.String()
	case "":
		// Scheme-less values pass through as host-relative links.
		return u.String()
	default:
		return ""
	}
}
