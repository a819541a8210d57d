package operation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Ref is a value pointing at another collaborative object by id.
type Ref string

// Wire tags of an encoded value.
const (
	valueTagRef  = 0
	valueTagJSON = 1
)

var ErrMalformedValue = errors.New("malformed value")

// Normalize converts v into its canonical JSON form (nil, bool, float64, string,
// []any, map[string]any). Refs are kept as is.
func Normalize(v any) (any, error) {
	switch v := v.(type) {
	case nil, bool, float64, string, Ref:
		return v, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize %T: %w", v, err)
	}

	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("normalize %T: %w", v, err)
	}

	return out, nil
}

// encodeValue returns the wire form of a value: [0,"id"] for a Ref, [1,data] otherwise.
// A nil value is encoded as JSON null so an absent map entry round-trips.
func encodeValue(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case Ref:
		return []any{valueTagRef, string(v)}
	default:
		return []any{valueTagJSON, v}
	}
}

func encodeValues(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = encodeValue(v)
	}
	return out
}

func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return nil, fmt.Errorf("%w: %s", ErrMalformedValue, raw)
	}

	var tag int
	if err := json.Unmarshal(pair[0], &tag); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedValue, raw)
	}

	switch tag {
	case valueTagRef:
		var id string
		if err := json.Unmarshal(pair[1], &id); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedValue, raw)
		}
		return Ref(id), nil
	case valueTagJSON:
		var data any
		if err := json.Unmarshal(pair[1], &data); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedValue, raw)
		}
		return data, nil
	}

	return nil, fmt.Errorf("%w: unknown tag %d", ErrMalformedValue, tag)
}

func decodeValues(raws []json.RawMessage) ([]any, error) {
	out := make([]any, len(raws))
	for i, raw := range raws {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
