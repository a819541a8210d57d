package realtime

import (
	"fmt"

	"github.com/burntcarrot/rtdoc/operation"
)

// IndexReference points at a position inside a List or a String and follows it as
// values or text are inserted and deleted before it.
type IndexReference struct {
	object
	referencedObject string
	index            int
	canBeDeleted     bool
}

func newIndexReference(m *Model, id string) *IndexReference {
	return &IndexReference{object: object{model: m, id: id}, index: -1}
}

func (r *IndexReference) SubType() operation.SubType { return operation.SubTypeIndexReference }

// Index returns the referenced position, or -1 if it was deleted.
func (r *IndexReference) Index() int {
	return r.index
}

// ReferencedObject returns the object the reference points into, or nil.
func (r *IndexReference) ReferencedObject() CollaborativeObject {
	if r.referencedObject == "" {
		return nil
	}
	return r.model.objects[r.referencedObject]
}

// CanBeDeleted reports whether deleting the referenced position invalidates the reference.
func (r *IndexReference) CanBeDeleted() bool {
	return r.canBeDeleted
}

// SetIndex moves the reference to index, which must lie within [0, length] of the
// referenced object.
func (r *IndexReference) SetIndex(index int) error {
	target, ok := r.ReferencedObject().(indexed)
	if !ok {
		return fmt.Errorf("index reference %s points nowhere", r.id)
	}
	if index < 0 || index > target.length() {
		return fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, index, target.length())
	}
	if index == r.index {
		return nil
	}
	return r.model.bridge.consumeAndSubmit(operation.ReferenceShifted{
		ID:               r.id,
		ReferencedObject: r.referencedObject,
		NewIndex:         index,
		OldIndex:         r.index,
		CanBeDeleted:     r.canBeDeleted,
	})
}

func (r *IndexReference) consume(userID, sessionID string, c operation.Component) error {
	shifted, ok := c.(operation.ReferenceShifted)
	if !ok {
		return &MalformedComponentError{ID: r.id, Type: c.Type(), Reason: "not an index reference component"}
	}

	target, err := r.model.GetObject(shifted.ReferencedObject)
	if err != nil {
		return err
	}
	if _, ok := target.(indexed); !ok {
		return &MalformedComponentError{
			ID:     r.id,
			Type:   c.Type(),
			Reason: fmt.Sprintf("referenced object %s is a %s", target.ID(), target.SubType()),
		}
	}

	r.model.registerReference(r, shifted.ReferencedObject)
	r.referencedObject = shifted.ReferencedObject
	r.canBeDeleted = shifted.CanBeDeleted
	r.moveTo(shifted.NewIndex, userID, sessionID)
	return nil
}

// shift follows an insertion (count > 0) or a deletion (count < 0) at index in the
// referenced object.
func (r *IndexReference) shift(index, count int, userID, sessionID string) {
	if r.index < 0 || count == 0 {
		return
	}

	newIndex := r.index
	switch {
	case count > 0:
		if r.index >= index {
			newIndex += count
		}
	case r.index >= index-count:
		newIndex += count
	case r.index >= index:
		if r.canBeDeleted {
			newIndex = -1
		} else {
			newIndex = index
		}
	}

	r.moveTo(newIndex, userID, sessionID)
}

func (r *IndexReference) moveTo(index int, userID, sessionID string) {
	if index == r.index {
		return
	}

	old := r.index
	r.index = index

	r.fire(EventReferenceShifted, &ReferenceShiftedEvent{
		BaseModelEvent: r.baseEvent(EventReferenceShifted, r, userID, sessionID),
		OldIndex:       old,
		NewIndex:       index,
	})
}

func (r *IndexReference) toInitialization() []operation.Component {
	components := []operation.Component{operation.Create{ID: r.id, SubType: operation.SubTypeIndexReference}}
	if r.referencedObject != "" {
		components = append(components, operation.ReferenceShifted{
			ID:               r.id,
			ReferencedObject: r.referencedObject,
			NewIndex:         r.index,
			OldIndex:         -1,
			CanBeDeleted:     r.canBeDeleted,
		})
	}
	return components
}

func (r *IndexReference) toJSON(map[string]bool) any {
	return map[string]any{
		"referencedObject": r.referencedObject,
		"index":            r.index,
		"canBeDeleted":     r.canBeDeleted,
	}
}
