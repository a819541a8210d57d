package operation

import (
	"encoding/json"
	"fmt"
)

// Operation is an ordered, attributed batch of components.
// Operations are never modified once built; Invert and Concat return new ones.
type Operation struct {
	UserID     string
	SessionID  string
	Components []Component
}

// New returns an operation attributed to the given user and session.
func New(userID, sessionID string, components ...Component) *Operation {
	return &Operation{UserID: userID, SessionID: sessionID, Components: components}
}

// Len returns the number of components in the operation.
func (op *Operation) Len() int {
	return len(op.Components)
}

// Invert returns the operation undoing op: components are inverted and reversed.
// Creation components have no inverse and are dropped; the created objects stay
// in the registry, detached.
func (op *Operation) Invert() *Operation {
	inverted := make([]Component, 0, len(op.Components))
	for i := len(op.Components) - 1; i >= 0; i-- {
		if c := op.Components[i].Invert(); c != nil {
			inverted = append(inverted, c)
		}
	}
	return New(op.UserID, op.SessionID, inverted...)
}

// Concat joins operations into one, keeping the attribution of the first.
func Concat(ops ...*Operation) *Operation {
	if len(ops) == 0 {
		return nil
	}

	var components []Component
	for _, op := range ops {
		components = append(components, op.Components...)
	}
	return New(ops[0].UserID, ops[0].SessionID, components...)
}

type wireOperation struct {
	UserID    string            `json:"userId"`
	SessionID string            `json:"sessionId"`
	Op        []json.RawMessage `json:"op"`
}

// MarshalJSON encodes the operation as {"userId","sessionId","op":[components]}.
func (op *Operation) MarshalJSON() ([]byte, error) {
	w := wireOperation{UserID: op.UserID, SessionID: op.SessionID, Op: make([]json.RawMessage, len(op.Components))}
	for i, c := range op.Components {
		b, err := MarshalComponent(c)
		if err != nil {
			return nil, err
		}
		w.Op[i] = b
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes an operation produced by MarshalJSON.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var w wireOperation
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	components := make([]Component, len(w.Op))
	for i, raw := range w.Op {
		c, err := DecodeComponent(raw)
		if err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
		components[i] = c
	}

	op.UserID = w.UserID
	op.SessionID = w.SessionID
	op.Components = components
	return nil
}

// String returns the JSON form of the operation, for logs.
func (op *Operation) String() string {
	b, err := op.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid operation: %v>", err)
	}
	return string(b)
}
