// Package models defines the data shapes shared by the offline engine: the
// generic domain record, the pending-change queue item, and the registry of
// known domains.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// IDField is the primary-identifier key used by the remote data API.
const IDField = "Id"

// Record is a generic domain record as returned by the remote data API:
// a JSON object, possibly with nested child collections. The engine never
// interprets fields beyond the identifier and the per-domain descriptor.
type Record map[string]any

// ID returns the record's primary identifier in string form, or "" when the
// record carries none. Numeric identifiers (which arrive as json float64)
// are rendered without a fractional part.
func (r Record) ID() string {
	v, ok := r[IDField]
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case json.Number:
		return id.String()
	default:
		return fmt.Sprintf("%v", id)
	}
}

// WithID returns a copy of the record with the primary identifier set.
func (r Record) WithID(id string) Record {
	out := r.Clone()
	out[IDField] = id
	return out
}

// Descriptor returns the record's human-readable descriptor field as a
// string, or "" when absent.
func (r Record) Descriptor(field string) string {
	v, ok := r[field]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// Clone returns a shallow copy of the record. Nested collections are shared;
// callers only ever replace top-level fields.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a copy of r overlaid with the fields of partial. Used to
// build the full intended post-write record from a partial update.
func (r Record) Merge(partial Record) Record {
	out := r.Clone()
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// MarshalData renders the record as its canonical JSON blob for local storage.
func (r Record) MarshalData() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalData parses a stored JSON blob back into a Record.
func UnmarshalData(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return r, nil
}
