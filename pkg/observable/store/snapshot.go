package store

import (
	"bytes"
	"encoding/json"

	"github.com/randalmurphal/observable/pkg/observable"
)

// decodeSnapshot decodes a JSON snapshot against the model's current
// attributes. A key whose current value encodes to the same JSON keeps the
// current Go value, so restoring an unchanged snapshot reports no changes.
// Other numbers decode as int64 when integral and float64 otherwise.
func decodeSnapshot(data []byte, current observable.Attributes) (observable.Attributes, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	attrs := make(observable.Attributes, len(raw))
	for k, v := range raw {
		if cur, ok := current[k]; ok && sameJSON(cur, v) {
			attrs[k] = cur
			continue
		}
		attrs[k] = numbers(v)
	}
	return attrs, nil
}

func sameJSON(a, b any) bool {
	ea, err := json.Marshal(a)
	if err != nil {
		return false
	}
	eb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

// numbers replaces json.Number values throughout v.
func numbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case map[string]any:
		for k, e := range v {
			v[k] = numbers(e)
		}
		return v
	case []any:
		for i, e := range v {
			v[i] = numbers(e)
		}
		return v
	default:
		return v
	}
}
