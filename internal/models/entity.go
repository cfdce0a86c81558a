// Package models defines the domain types for mockbox.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Reserved entity keys. They are owned by the storage service and never taken
// from a client payload.
const (
	KeyID        = "id"
	KeyCreatedAt = "createdAt"
	KeyUpdatedAt = "updatedAt"
)

// TimeLayout is the ISO-8601 layout used for createdAt/updatedAt (UTC, millisecond precision).
const TimeLayout = "2006-01-02T15:04:05.000Z"

// ErrNotObject is returned when a payload is valid JSON but not an object.
var ErrNotObject = errors.New("payload must be a JSON object")

// Entity is one record of an entity type: string keys to JSON values, in key order.
type Entity = orderedmap.OrderedMap[string, any]

// Document is the full persisted state: entity type -> ordered entities.
type Document = orderedmap.OrderedMap[string, []*Entity]

// NewEntity returns an empty entity.
func NewEntity() *Entity {
	return orderedmap.New[string, any]()
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return orderedmap.New[string, []*Entity]()
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// IsReserved reports whether key is one of id, createdAt, updatedAt.
func IsReserved(key string) bool {
	return key == KeyID || key == KeyCreatedAt || key == KeyUpdatedAt
}

// EntityID returns the entity's id, or "" when absent or not a string.
func EntityID(e *Entity) string {
	return stringField(e, KeyID)
}

// CreatedAt returns the createdAt field as stored.
func CreatedAt(e *Entity) string {
	return stringField(e, KeyCreatedAt)
}

// UpdatedAt returns the updatedAt field as stored.
func UpdatedAt(e *Entity) string {
	return stringField(e, KeyUpdatedAt)
}

func stringField(e *Entity, key string) string {
	if e == nil {
		return ""
	}
	v, ok := e.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// UserData returns a copy of e without the reserved keys.
func UserData(e *Entity) *Entity {
	out := NewEntity()
	if e == nil {
		return out
	}
	for pair := e.Oldest(); pair != nil; pair = pair.Next() {
		if IsReserved(pair.Key) {
			continue
		}
		out.Set(pair.Key, cloneValue(pair.Value))
	}
	return out
}

// CloneEntity deep-copies e, including nested objects and arrays.
func CloneEntity(e *Entity) *Entity {
	if e == nil {
		return nil
	}
	out := NewEntity()
	for pair := e.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, cloneValue(pair.Value))
	}
	return out
}

// CloneEntities deep-copies a slice of entities. The result is never nil.
func CloneEntities(in []*Entity) []*Entity {
	out := make([]*Entity, 0, len(in))
	for _, e := range in {
		out = append(out, CloneEntity(e))
	}
	return out
}

// CloneDocument deep-copies d.
func CloneDocument(d *Document) *Document {
	out := NewDocument()
	if d == nil {
		return out
	}
	for pair := d.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, CloneEntities(pair.Value))
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	case *Entity:
		return CloneEntity(t)
	default:
		return v
	}
}

// FromMap builds an entity from an unordered map. Keys are sorted so the
// result is deterministic.
func FromMap(m map[string]any) *Entity {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := NewEntity()
	for _, k := range keys {
		out.Set(k, cloneValue(m[k]))
	}
	return out
}

// DecodeEntity parses a JSON object, keeping its top-level key order. An
// empty body decodes to an empty entity.
func DecodeEntity(data []byte) (*Entity, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return NewEntity(), nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	if data[0] != '{' {
		return nil, ErrNotObject
	}
	e := NewEntity()
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return e, nil
}

// DecodeDocument parses a persisted document. Any shape other than an object
// of arrays of objects is rejected.
func DecodeDocument(data []byte) (*Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("document is not a JSON object")
	}
	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			doc.Set(pair.Key, []*Entity{})
			continue
		}
		for i, e := range pair.Value {
			if e == nil {
				return nil, fmt.Errorf("decode document: %s[%d] is not an object", pair.Key, i)
			}
		}
	}
	return doc, nil
}

// EncodeDocument renders d as pretty-printed JSON with a trailing newline.
func EncodeDocument(d *Document) ([]byte, error) {
	if d == nil {
		d = NewDocument()
	}
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(out, '\n'), nil
}
