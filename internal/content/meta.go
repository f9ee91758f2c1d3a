package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Meta is an insertion-ordered string map with lowercase keys.
// The zero value is ready to use.
type Meta struct {
	keys   []string
	values map[string]string
}

func NewMeta() *Meta {
	return &Meta{values: make(map[string]string)}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (m *Meta) Get(key string) (string, bool) {
	if m == nil || m.values == nil {
		return "", false
	}
	v, ok := m.values[normalizeKey(key)]
	return v, ok
}

// Set stores value under the lowercased key. Existing keys keep their position.
func (m *Meta) Set(key, value string) {
	key = normalizeKey(key)
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *Meta) Delete(key string) {
	if m == nil || m.values == nil {
		return
	}
	key = normalizeKey(key)
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *Meta) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Meta) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *Meta) Clone() *Meta {
	out := NewMeta()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

// Merge sets every key of other on m, in other's order.
func (m *Meta) Merge(other *Meta) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		m.Set(k, other.values[k])
	}
}

func (m *Meta) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		for i, k := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(m.values[k])
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps the key order of the object. Non-string values are kept
// as their JSON text so records written by other tools still load.
func (m *Meta) UnmarshalJSON(data []byte) error {
	*m = Meta{values: make(map[string]string)}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("meta: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("meta: expected string key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			m.Set(key, s)
			continue
		}
		m.Set(key, string(raw))
	}
	_, err = dec.Token()
	return err
}
