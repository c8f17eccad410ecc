package material

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object is a JSON object that preserves key order and unknown fields
// on round-trip. The engine tooling diffs metadata files, so rewriting
// one must not reshuffle or drop anything it does not understand.
type Object struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{values: make(map[string]json.RawMessage)}
}

// Get returns the raw value for key.
func (o *Object) Get(key string) (json.RawMessage, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set stores a raw value, appending the key if it is new.
func (o *Object) Set(key string, value json.RawMessage) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Keys returns the keys in insertion order. The caller must not modify
// the returned slice.
func (o *Object) Keys() []string { return o.keys }

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// GetString decodes the value for key as a string.
func (o *Object) GetString(key string) (string, bool) {
	raw, ok := o.values[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// SetString stores a string value for key.
func (o *Object) SetString(key, value string) {
	raw, _ := json.Marshal(value)
	o.Set(key, raw)
}

// GetObject decodes the value for key as a nested ordered object.
func (o *Object) GetObject(key string) (*Object, bool, error) {
	raw, ok := o.values[key]
	if !ok {
		return nil, false, nil
	}
	nested := NewObject()
	if err := json.Unmarshal(raw, nested); err != nil {
		return nil, true, fmt.Errorf("field %q: %w", key, err)
	}
	return nested, true, nil
}

// SetObject stores a nested object for key.
func (o *Object) SetObject(key string, nested *Object) error {
	raw, err := json.Marshal(nested)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	o.Set(key, raw)
	return nil
}

// UnmarshalJSON decodes a JSON object keeping key order. Values stay
// raw; nested objects are only decoded on demand via GetObject.
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	o.keys = nil
	o.values = make(map[string]json.RawMessage)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("value for key %q: %w", key, err)
		}
		o.Set(key, raw)
	}
	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the object with its keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(o.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
