package realtime

import (
	"fmt"

	"github.com/burntcarrot/rtdoc/operation"
)

// List is a collaborative ordered list of values.
type List struct {
	object
	values []any
}

func newList(m *Model, id string) *List {
	return &List{object: object{model: m, id: id}}
}

func (l *List) SubType() operation.SubType { return operation.SubTypeList }

// Length returns the number of values.
func (l *List) Length() int {
	return len(l.values)
}

func (l *List) length() int {
	return len(l.values)
}

// Get returns the value at index.
func (l *List) Get(index int) (any, error) {
	if index < 0 || index >= len(l.values) {
		return nil, fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, index, len(l.values))
	}
	return l.model.resolve(l.values[index]), nil
}

// Values returns a copy of every value.
func (l *List) Values() []any {
	return l.model.resolveAll(l.values)
}

// Insert inserts values at index.
func (l *List) Insert(index int, values ...any) error {
	if index < 0 || index > len(l.values) {
		return fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, index, len(l.values))
	}
	if len(values) == 0 {
		return nil
	}

	vs, err := l.model.toValues(values)
	if err != nil {
		return err
	}
	return l.model.bridge.consumeAndSubmit(operation.ListInsert{ID: l.id, Index: index, Values: vs})
}

// Push appends values to the end of the list.
func (l *List) Push(values ...any) error {
	return l.Insert(len(l.values), values...)
}

// Remove removes the value at index.
func (l *List) Remove(index int) error {
	return l.RemoveRange(index, index+1)
}

// RemoveRange removes the values in [start, end).
func (l *List) RemoveRange(start, end int) error {
	if start < 0 || end > len(l.values) || start > end {
		return fmt.Errorf("%w: [%d, %d) (length %d)", ErrIndexOutOfRange, start, end, len(l.values))
	}
	if start == end {
		return nil
	}

	removed := append([]any(nil), l.values[start:end]...)
	return l.model.bridge.consumeAndSubmit(operation.ListDelete{ID: l.id, Index: start, Values: removed})
}

// Set overwrites the value at index.
func (l *List) Set(index int, value any) error {
	if index < 0 || index >= len(l.values) {
		return fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, index, len(l.values))
	}

	v, err := l.model.toValue(value)
	if err != nil {
		return err
	}
	return l.model.bridge.consumeAndSubmit(operation.ListReplace{
		ID:        l.id,
		Index:     index,
		OldValues: []any{l.values[index]},
		NewValues: []any{v},
	})
}

// Clear removes every value.
func (l *List) Clear() error {
	return l.RemoveRange(0, len(l.values))
}

func (l *List) consume(userID, sessionID string, c operation.Component) error {
	switch c := c.(type) {
	case operation.ListInsert:
		if c.Index < 0 || c.Index > len(l.values) {
			return l.malformed(c, "insert index %d out of range (length %d)", c.Index, len(l.values))
		}
		if err := l.model.checkRefs(c.Values...); err != nil {
			return err
		}

		values := make([]any, 0, len(l.values)+len(c.Values))
		values = append(values, l.values[:c.Index]...)
		values = append(values, c.Values...)
		l.values = append(values, l.values[c.Index:]...)

		l.fire(EventValuesAdded, &ValuesAddedEvent{
			BaseModelEvent: l.baseEvent(EventValuesAdded, l, userID, sessionID),
			Index:          c.Index,
			Values:         l.model.resolveAll(c.Values),
		})
		l.model.shiftReferences(l.id, c.Index, len(c.Values), userID, sessionID)

	case operation.ListDelete:
		if c.Index < 0 || c.Index > len(l.values)-len(c.Values) {
			return l.malformed(c, "delete of %d value(s) at %d out of range (length %d)", len(c.Values), c.Index, len(l.values))
		}
		end := c.Index + len(c.Values)

		removed := append([]any(nil), l.values[c.Index:end]...)
		l.values = append(l.values[:c.Index], l.values[end:]...)

		l.fire(EventValuesRemoved, &ValuesRemovedEvent{
			BaseModelEvent: l.baseEvent(EventValuesRemoved, l, userID, sessionID),
			Index:          c.Index,
			Values:         l.model.resolveAll(removed),
		})
		l.model.shiftReferences(l.id, c.Index, -len(removed), userID, sessionID)

	case operation.ListReplace:
		if c.Index < 0 || c.Index > len(l.values)-len(c.NewValues) {
			return l.malformed(c, "replace of %d value(s) at %d out of range (length %d)", len(c.NewValues), c.Index, len(l.values))
		}
		end := c.Index + len(c.NewValues)
		if err := l.model.checkRefs(c.NewValues...); err != nil {
			return err
		}

		old := append([]any(nil), l.values[c.Index:end]...)
		copy(l.values[c.Index:end], c.NewValues)

		l.fire(EventValuesSet, &ValuesSetEvent{
			BaseModelEvent: l.baseEvent(EventValuesSet, l, userID, sessionID),
			Index:          c.Index,
			OldValues:      l.model.resolveAll(old),
			NewValues:      l.model.resolveAll(c.NewValues),
		})

	default:
		return l.malformed(c, "not a list component")
	}

	return nil
}

func (l *List) malformed(c operation.Component, format string, args ...any) error {
	return &MalformedComponentError{ID: l.id, Type: c.Type(), Reason: fmt.Sprintf(format, args...)}
}

func (l *List) toInitialization() []operation.Component {
	components := []operation.Component{operation.Create{ID: l.id, SubType: operation.SubTypeList}}
	if len(l.values) > 0 {
		components = append(components, operation.ListInsert{
			ID:     l.id,
			Index:  0,
			Values: append([]any(nil), l.values...),
		})
	}
	return components
}

func (l *List) toJSON(seen map[string]bool) any {
	out := make([]any, len(l.values))
	for i, v := range l.values {
		out[i] = l.model.render(v, seen)
	}
	return out
}
