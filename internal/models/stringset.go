package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// EncodeStringSet stores values as a JSON array, dropping duplicates and
// keeping first-seen order. Matching is case-sensitive.
func EncodeStringSet(values []string) datatypes.JSON {
	set := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		set = append(set, v)
	}
	return datatypes.JSON(marshalPlain(set))
}

// DecodeStringSet parses a stored JSON array. An empty or null column decodes
// to an empty slice.
func DecodeStringSet(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return []string{}, fmt.Errorf("malformed string set %q: %w", string(raw), err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// QuoteJSONString returns s as it appears inside an encoded string set.
func QuoteJSONString(s string) string {
	return string(marshalPlain(s))
}

// marshalPlain encodes v without HTML escaping so stored text stays
// comparable with what Postgres renders back from jsonb.
func marshalPlain(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return bytes.TrimRight(buf.Bytes(), "\n")
}
