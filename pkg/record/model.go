package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/core"
)

// Model is a hydrated document: an ordered field set carrying the native
// _id once persisted, plus the string alias "id" derived from it.
type Model struct {
	kind   *Kind
	fields bson.D
}

// Kind returns the kind the model belongs to, or nil for a detached model.
func (m *Model) Kind() *Kind {
	return m.kind
}

// ID returns the friendly identifier: the 24 hex digits of an ObjectID _id,
// the _id itself when it is a string, "" when the model has no _id.
func (m *Model) ID() string {
	v, ok := core.Lookup(m.fields, core.IDField)
	if !ok || v == nil {
		return ""
	}
	switch id := v.(type) {
	case bson.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

// ObjectID returns the native identifier when _id is an ObjectID.
func (m *Model) ObjectID() (core.Identifier, bool) {
	v, _ := core.Lookup(m.fields, core.IDField)
	id, ok := v.(bson.ObjectID)
	return id, ok
}

// Get returns a field value. "id" resolves to the alias.
func (m *Model) Get(key string) (any, bool) {
	if key == core.AliasField {
		if id := m.ID(); id != "" {
			return id, true
		}
	}
	return core.Lookup(m.fields, key)
}

// String returns a string field, or "" when it is missing or not a string.
func (m *Model) String(key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

// Set assigns a field, appending it when new. Setting "id" to a 24 hex digit
// string sets _id instead.
func (m *Model) Set(key string, value any) {
	if key == core.AliasField {
		if s, ok := value.(string); ok && core.IsIdentifier(s) {
			id, _ := core.ParseIdentifier(s)
			key, value = core.IDField, id
		}
	}
	for i := range m.fields {
		if m.fields[i].Key == key {
			m.fields[i].Value = value
			return
		}
	}
	if key == core.IDField {
		m.fields = append(bson.D{{Key: key, Value: value}}, m.fields...)
		return
	}
	m.fields = append(m.fields, bson.E{Key: key, Value: value})
}

// Unset removes a field.
func (m *Model) Unset(key string) {
	for i := range m.fields {
		if m.fields[i].Key == key {
			m.fields = append(m.fields[:i:i], m.fields[i+1:]...)
			return
		}
	}
}

// Document returns a copy of the stored fields, _id included.
func (m *Model) Document() bson.D {
	out := make(bson.D, len(m.fields))
	copy(out, m.fields)
	return out
}

// Decode unmarshals the model into v using its bson struct tags.
func (m *Model) Decode(v any) error {
	data, err := bson.Marshal(m.fields)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	if err := bson.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}
	return nil
}

// Save persists the model through the kind it was created or loaded by.
func (m *Model) Save(ctx context.Context) error {
	if m.kind == nil {
		return errors.New("model is detached (no kind)")
	}
	return m.kind.Save(ctx, m)
}

// Public returns the outward representation of the model: every field but
// _id in stored order, nested _id keys renamed to id and identifiers rendered
// as hex, then the id alias last.
func (m *Model) Public() bson.D {
	out := make(bson.D, 0, len(m.fields)+1)
	for _, e := range m.fields {
		if e.Key == core.IDField || e.Key == core.AliasField {
			continue
		}
		out = append(out, bson.E{Key: e.Key, Value: hexIdentifiers(core.RenameKeys(core.IDField, core.AliasField, e.Value))})
	}
	if id := m.ID(); id != "" {
		out = append(out, bson.E{Key: core.AliasField, Value: id})
	}
	return out
}

// MarshalJSON renders Public() as relaxed Extended JSON, so
// {"_id": ObjectID("512c..."), "title": "My life"} becomes
// {"title":"My life","id":"512c..."}.
func (m *Model) MarshalJSON() ([]byte, error) {
	return bson.MarshalExtJSON(m.Public(), false, false)
}

func hexIdentifiers(value any) any {
	switch v := value.(type) {
	case bson.ObjectID:
		return v.Hex()
	case bson.D:
		out := make(bson.D, len(v))
		for i, e := range v {
			out[i] = bson.E{Key: e.Key, Value: hexIdentifiers(e.Value)}
		}
		return out
	case bson.M:
		out := make(bson.M, len(v))
		for k, val := range v {
			out[k] = hexIdentifiers(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = hexIdentifiers(val)
		}
		return out
	case bson.A:
		out := make(bson.A, len(v))
		for i, item := range v {
			out[i] = hexIdentifiers(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = hexIdentifiers(item)
		}
		return out
	default:
		return value
	}
}

var _ json.Marshaler = (*Model)(nil)
