package operation

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedComponent = errors.New("malformed component")
	ErrUnknownType        = errors.New("unknown component type")
)

// wireComponent is the decoding view of a JSON component. Fields that don't apply
// to a given type are simply left empty.
type wireComponent struct {
	Type             Type              `json:"type"`
	ID               string            `json:"id"`
	SubType          SubType           `json:"subType"`
	Key              string            `json:"key"`
	OldValue         json.RawMessage   `json:"oldValue"`
	NewValue         json.RawMessage   `json:"newValue"`
	Index            int               `json:"index"`
	Values           []json.RawMessage `json:"values"`
	OldValues        []json.RawMessage `json:"oldValues"`
	NewValues        []json.RawMessage `json:"newValues"`
	Text             string            `json:"text"`
	ReferencedObject string            `json:"referencedObject"`
	NewIndex         int               `json:"newIndex"`
	OldIndex         int               `json:"oldIndex"`
	CanBeDeleted     bool              `json:"canBeDeleted"`
}

// fields returns the JSON object form of a component.
func fields(c Component) map[string]any {
	m := map[string]any{
		"type": c.Type(),
		"id":   c.ObjectID(),
	}

	switch c := c.(type) {
	case Create:
		m["subType"] = c.SubType
	case MapSet:
		m["key"] = c.Key
		m["oldValue"] = encodeValue(c.OldValue)
		m["newValue"] = encodeValue(c.NewValue)
	case ListInsert:
		m["index"] = c.Index
		m["values"] = encodeValues(c.Values)
	case ListDelete:
		m["index"] = c.Index
		m["values"] = encodeValues(c.Values)
	case ListReplace:
		m["index"] = c.Index
		m["oldValues"] = encodeValues(c.OldValues)
		m["newValues"] = encodeValues(c.NewValues)
	case StringInsert:
		m["index"] = c.Index
		m["text"] = c.Text
	case StringDelete:
		m["index"] = c.Index
		m["text"] = c.Text
	case ReferenceShifted:
		m["referencedObject"] = c.ReferencedObject
		m["newIndex"] = c.NewIndex
		m["oldIndex"] = c.OldIndex
		m["canBeDeleted"] = c.CanBeDeleted
	}

	return m
}

// MarshalComponent encodes a single component as a JSON object.
func MarshalComponent(c Component) ([]byte, error) {
	return json.Marshal(fields(c))
}

// MarshalComponents encodes components as a JSON array, the snapshot wire format.
func MarshalComponents(cs []Component) ([]byte, error) {
	out := make([]map[string]any, len(cs))
	for i, c := range cs {
		out[i] = fields(c)
	}
	return json.Marshal(out)
}

// Size returns the serialized length of a component in bytes.
func Size(c Component) int {
	b, err := MarshalComponent(c)
	if err != nil {
		return 0
	}
	return len(b)
}

// DecodeComponent decodes a single JSON component.
// Creation subtypes are not validated here; an unknown subtype is rejected when
// the component is applied.
func DecodeComponent(data []byte) (Component, error) {
	var w wireComponent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedComponent, err)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedComponent)
	}

	switch w.Type {
	case TypeCreate:
		return Create{ID: w.ID, SubType: w.SubType}, nil

	case TypeMapSet:
		oldValue, err := decodeValue(w.OldValue)
		if err != nil {
			return nil, err
		}
		newValue, err := decodeValue(w.NewValue)
		if err != nil {
			return nil, err
		}
		return MapSet{ID: w.ID, Key: w.Key, OldValue: oldValue, NewValue: newValue}, nil

	case TypeListInsert, TypeListDelete:
		values, err := decodeValues(w.Values)
		if err != nil {
			return nil, err
		}
		if w.Type == TypeListInsert {
			return ListInsert{ID: w.ID, Index: w.Index, Values: values}, nil
		}
		return ListDelete{ID: w.ID, Index: w.Index, Values: values}, nil

	case TypeListReplace:
		oldValues, err := decodeValues(w.OldValues)
		if err != nil {
			return nil, err
		}
		newValues, err := decodeValues(w.NewValues)
		if err != nil {
			return nil, err
		}
		return ListReplace{ID: w.ID, Index: w.Index, OldValues: oldValues, NewValues: newValues}, nil

	case TypeStringInsert:
		return StringInsert{ID: w.ID, Index: w.Index, Text: w.Text}, nil

	case TypeStringDelete:
		return StringDelete{ID: w.ID, Index: w.Index, Text: w.Text}, nil

	case TypeReferenceShifted:
		return ReferenceShifted{
			ID:               w.ID,
			ReferencedObject: w.ReferencedObject,
			NewIndex:         w.NewIndex,
			OldIndex:         w.OldIndex,
			CanBeDeleted:     w.CanBeDeleted,
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownType, w.Type)
}

// DecodeComponents decodes a JSON array of components.
func DecodeComponents(data []byte) ([]Component, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedComponent, err)
	}

	cs := make([]Component, 0, len(raws))
	for i, raw := range raws {
		c, err := DecodeComponent(raw)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		cs = append(cs, c)
	}

	return cs, nil
}
