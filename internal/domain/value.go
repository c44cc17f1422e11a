// Package domain – serializable value types.
//
// This file defines the column codecs used for set- and document-valued
// fields: StringSet (unique user identifiers with union semantics), Payload
// (opaque structured event data), and Attachments (ordered opaque attachment
// descriptors). All three round-trip through a JSON TEXT column via
// database/sql's Valuer/Scanner so GORM can persist them on any driver.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// StringSet is an ordered set of strings with unique membership. The zero
// value is an empty, usable set. Mutating helpers return a new slice so a
// shared set is never changed in place; persistence-level merging is done
// with Union, which makes concurrent read-receipt additions commutative.
type StringSet []string

// NewStringSet builds a set from vals, dropping duplicates and empty strings
// while preserving first-seen order.
func NewStringSet(vals ...string) StringSet {
	out := make(StringSet, 0, len(vals))
	for _, v := range vals {
		if v == "" || out.Has(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Has reports whether v is a member of the set.
func (s StringSet) Has(v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// Add returns a set containing v and reports whether v was newly added.
// The receiver is never modified.
func (s StringSet) Add(v string) (StringSet, bool) {
	if v == "" || s.Has(v) {
		return s, false
	}
	out := make(StringSet, len(s), len(s)+1)
	copy(out, s)
	return append(out, v), true
}

// Union returns the set union of s and other, preserving the order of s and
// appending unseen members of other. Union is the merge operation applied
// when two read-receipt updates race: the result is independent of
// interleaving.
func (s StringSet) Union(other StringSet) StringSet {
	out := make(StringSet, len(s), len(s)+len(other))
	copy(out, s)
	for _, v := range other {
		if v != "" && !out.Has(v) {
			out = append(out, v)
		}
	}
	return out
}

// Value implements driver.Valuer; an empty set serializes as "[]" so the
// column is never NULL.
func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for TEXT/BLOB columns.
func (s *StringSet) Scan(src any) error {
	b, err := columnBytes(src)
	if err != nil {
		return fmt.Errorf("scan StringSet: %w", err)
	}
	if len(b) == 0 {
		*s = StringSet{}
		return nil
	}
	var vals []string
	if err := json.Unmarshal(b, &vals); err != nil {
		return fmt.Errorf("scan StringSet: %w", err)
	}
	*s = NewStringSet(vals...)
	return nil
}

// GormDataType tells GORM which column type to use for StringSet fields.
func (StringSet) GormDataType() string { return "text" }

// Payload is an opaque structured value (JSON object) attached to a
// notification event. The core never inspects its keys; it only guarantees
// round-trip fidelity.
type Payload map[string]any

// Value implements driver.Valuer; a nil payload serializes as "{}".
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Payload) Scan(src any) error {
	b, err := columnBytes(src)
	if err != nil {
		return fmt.Errorf("scan Payload: %w", err)
	}
	if len(b) == 0 {
		*p = Payload{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("scan Payload: %w", err)
	}
	*p = m
	return nil
}

// GormDataType tells GORM which column type to use for Payload fields.
func (Payload) GormDataType() string { return "text" }

// Attachments is the ordered list of opaque attachment descriptors carried by
// a message. Each entry is a free-form JSON object; order is preserved.
type Attachments []Payload

// Value implements driver.Valuer; a nil list serializes as "[]".
func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Payload(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *Attachments) Scan(src any) error {
	b, err := columnBytes(src)
	if err != nil {
		return fmt.Errorf("scan Attachments: %w", err)
	}
	if len(b) == 0 {
		*a = Attachments{}
		return nil
	}
	var out []Payload
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("scan Attachments: %w", err)
	}
	*a = out
	return nil
}

// GormDataType tells GORM which column type to use for Attachments fields.
func (Attachments) GormDataType() string { return "text" }

// columnBytes normalizes the raw column value handed to Scan.
func columnBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported column type")
	}
}
