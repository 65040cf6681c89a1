// Package wire encodes cache entries for the backing store.
//
// An entry is persisted as a JSON object: string keys, JSON-native values.
// Tagged keys ("name:code") carry codec-encoded field values; they are part
// of the persisted form and are resolved above this package.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
)

var ErrCorrupt = errors.New("matcache: corrupt entry")

// Encode serializes an attribute mapping to its persisted JSON form.
func Encode(attrs map[string]any) ([]byte, error) {
	return json.Marshal(attrs)
}

// Decode parses persisted bytes back into an attribute mapping.
// Anything that is not a JSON object is corrupt.
func Decode(b []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, ErrCorrupt
	}
	return m, nil
}

// Equal reports structural equality of two attribute mappings in their
// persisted form. Both sides are canonicalized through json.Marshal (which
// sorts object keys and renders integral floats without a fraction), so a
// freshly serialized mapping compares equal to its decoded round trip.
func Equal(a, b map[string]any) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
