package realtime

import (
	"sort"

	"github.com/burntcarrot/rtdoc/operation"
)

// Map is a collaborative map with string keys.
type Map struct {
	object
	values map[string]any
}

func newMap(m *Model, id string) *Map {
	return &Map{object: object{model: m, id: id}, values: make(map[string]any)}
}

func (mp *Map) SubType() operation.SubType { return operation.SubTypeMap }

// Get returns the value stored under key. Referenced objects are returned as
// CollaborativeObject; a missing key returns nil.
func (mp *Map) Get(key string) any {
	return mp.model.resolve(mp.values[key])
}

// Has reports whether key is set.
func (mp *Map) Has(key string) bool {
	_, ok := mp.values[key]
	return ok
}

// Keys returns the keys in sorted order.
func (mp *Map) Keys() []string {
	keys := make([]string, 0, len(mp.values))
	for k := range mp.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size returns the number of keys.
func (mp *Map) Size() int {
	return len(mp.values)
}

// Set stores value under key. A nil value removes the key.
func (mp *Map) Set(key string, value any) error {
	v, err := mp.model.toValue(value)
	if err != nil {
		return err
	}

	old := mp.values[key]
	if v == nil && old == nil {
		return nil
	}

	return mp.model.bridge.consumeAndSubmit(operation.MapSet{ID: mp.id, Key: key, OldValue: old, NewValue: v})
}

// Delete removes key.
func (mp *Map) Delete(key string) error {
	return mp.Set(key, nil)
}

// Clear removes every key as a single undo unit.
func (mp *Map) Clear() error {
	mp.model.BeginCompoundOperation()
	defer mp.model.EndCompoundOperation()

	for _, k := range mp.Keys() {
		if err := mp.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (mp *Map) consume(userID, sessionID string, c operation.Component) error {
	set, ok := c.(operation.MapSet)
	if !ok {
		return &MalformedComponentError{ID: mp.id, Type: c.Type(), Reason: "not a map component"}
	}
	if err := mp.model.checkRefs(set.NewValue); err != nil {
		return err
	}

	old := mp.values[set.Key]
	if set.NewValue == nil {
		delete(mp.values, set.Key)
	} else {
		mp.values[set.Key] = set.NewValue
	}

	mp.fire(EventValueChanged, &ValueChangedEvent{
		BaseModelEvent: mp.baseEvent(EventValueChanged, mp, userID, sessionID),
		Property:       set.Key,
		NewValue:       mp.model.resolve(set.NewValue),
		OldValue:       mp.model.resolve(old),
	})
	return nil
}

func (mp *Map) toInitialization() []operation.Component {
	components := []operation.Component{operation.Create{ID: mp.id, SubType: operation.SubTypeMap}}
	for _, k := range mp.Keys() {
		components = append(components, operation.MapSet{ID: mp.id, Key: k, NewValue: mp.values[k]})
	}
	return components
}

func (mp *Map) toJSON(seen map[string]bool) any {
	out := make(map[string]any, len(mp.values))
	for k, v := range mp.values {
		out[k] = mp.model.render(v, seen)
	}
	return out
}
