package agents

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// fields is a model response object read one key at a time, so a missing or
// mistyped key only loses that key.
type fields map[string]json.RawMessage

func decodeObject(raw string) (fields, error) {
	var obj fields
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("response is not a JSON object")
	}
	return obj, nil
}

// score reads a number, or a numeric string, clamped to [0,1].
func (f fields) score(key string) (float64, bool) {
	raw, ok := f[key]
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, false
		}
		parsed, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if perr != nil {
			return 0, false
		}
		n = parsed
	}
	switch {
	case n < 0:
		n = 0
	case n > 1:
		n = 1
	}
	return n, true
}

// strings reads a list of strings. Non-string items are skipped and a lone
// string becomes a one-item list.
func (f fields) strings(key string) []string {
	out := []string{}
	raw, ok := f[key]
	if !ok {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		var single string
		if json.Unmarshal(raw, &single) == nil && strings.TrimSpace(single) != "" {
			out = append(out, strings.TrimSpace(single))
		}
		return out
	}
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// boolean reads true/false, or the strings "true"/"false".
func (f fields) boolean(key string) (bool, bool) {
	raw, ok := f[key]
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return parsed, true
		}
	}
	return false, false
}

func (f fields) text(key string) string {
	raw, ok := f[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
