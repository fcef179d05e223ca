package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Option is a single answer choice: a short stable key ("A".."D") and its text.
type Option struct {
	Key  string
	Text string
}

// OptionList holds a question's answer choices in canonical display order.
// It serializes as a JSON object whose key order is preserved on both
// marshal and unmarshal, because generators emit options as an object and
// the object's key order is the display order.
type OptionList []Option

// Has reports whether key is a member of the option set.
func (o OptionList) Has(key string) bool {
	for _, opt := range o {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// Get returns the text for key, or "" if absent.
func (o OptionList) Get(key string) string {
	for _, opt := range o {
		if opt.Key == key {
			return opt.Text
		}
	}
	return ""
}

// Keys returns the option keys in display order.
func (o OptionList) Keys() []string {
	keys := make([]string, len(o))
	for i, opt := range o {
		keys[i] = opt.Key
	}
	return keys
}

// UnmarshalJSON decodes a JSON object into an OptionList, walking the token
// stream so that key order survives. Duplicate keys are rejected.
func (o *OptionList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("options: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("options: expected JSON object, got %v", tok)
	}

	var list OptionList
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("options: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("options: non-string key %v", keyTok)
		}
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("options[%s]: %w", key, err)
		}
		if seen[key] {
			return fmt.Errorf("options: duplicate key %q", key)
		}
		seen[key] = true
		list = append(list, Option{Key: key, Text: text})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("options: %w", err)
	}

	*o = list
	return nil
}

// MarshalJSON encodes the options as a JSON object in display order.
func (o OptionList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, opt := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(opt.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(opt.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
