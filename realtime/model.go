package realtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/burntcarrot/rtdoc/operation"
	"github.com/oklog/ulid/v2"
)

// RootID is the reserved id of the root map.
const RootID = "root"

// objectIDPrefix prefixes every generated object id.
const objectIDPrefix = "gde"

var ErrNoCompoundOperation = errors.New("no compound operation in progress")

// CollaborativeObject is a node of the shared document graph. Objects are owned by
// the Model and only ever built from a creation component.
type CollaborativeObject interface {
	ID() string
	SubType() operation.SubType

	// consume applies a component addressed to the object.
	consume(userID, sessionID string, c operation.Component) error

	// toInitialization returns the creation component followed by the components
	// rebuilding the current state.
	toInitialization() []operation.Component

	// toJSON renders the current state. seen holds the ids on the current path.
	toJSON(seen map[string]bool) any
}

// constructors maps each creatable subtype to the function building it.
var constructors = map[operation.SubType]func(m *Model, id string) CollaborativeObject{
	operation.SubTypeMap:            func(m *Model, id string) CollaborativeObject { return newMap(m, id) },
	operation.SubTypeList:           func(m *Model, id string) CollaborativeObject { return newList(m, id) },
	operation.SubTypeString:         func(m *Model, id string) CollaborativeObject { return newString(m, id) },
	operation.SubTypeIndexReference: func(m *Model, id string) CollaborativeObject { return newIndexReference(m, id) },
}

// Model is the object registry of a document.
type Model struct {
	bridge *Bridge

	objects map[string]CollaborativeObject
	// order holds ids in creation order. Ids are never removed.
	order []string

	// references indexes index references by the id of the object they point into.
	references map[string][]*IndexReference

	bytesUsed     int
	canUndo       bool
	canRedo       bool
	compoundDepth int
}

func newModel(b *Bridge) *Model {
	return &Model{
		bridge:     b,
		objects:    make(map[string]CollaborativeObject),
		references: make(map[string][]*IndexReference),
	}
}

// GetObject returns the object registered under id.
func (m *Model) GetObject(id string) (CollaborativeObject, error) {
	obj, ok := m.objects[id]
	if !ok {
		return nil, &UnknownObjectError{ID: id}
	}
	return obj, nil
}

// Root returns the root map, or nil if it hasn't been created.
func (m *Model) Root() *Map {
	root, _ := m.objects[RootID].(*Map)
	return root
}

// Len returns the number of registered objects.
func (m *Model) Len() int {
	return len(m.order)
}

// BytesUsed returns the running size estimate of the created objects.
func (m *Model) BytesUsed() int {
	return m.bytesUsed
}

func (m *Model) CanUndo() bool { return m.canUndo }
func (m *Model) CanRedo() bool { return m.canRedo }

// create registers the object introduced by c. Re-creating an existing id with the
// same subtype is a no-op, which happens when a batch containing a creation is redone.
func (m *Model) create(c operation.Create) error {
	if existing, ok := m.objects[c.ID]; ok {
		if existing.SubType() == c.SubType {
			return nil
		}
		return &MalformedComponentError{
			ID:     c.ID,
			Type:   operation.TypeCreate,
			Reason: fmt.Sprintf("id already used by a %s", existing.SubType()),
		}
	}

	build, ok := constructors[c.SubType]
	if !ok {
		return &UnsupportedSubtypeError{ID: c.ID, SubType: c.SubType}
	}

	m.objects[c.ID] = build(m, c.ID)
	m.order = append(m.order, c.ID)
	m.bytesUsed += operation.Size(c) + 1

	return nil
}

// newObjectID generates a fresh object id.
func (m *Model) newObjectID() string {
	return objectIDPrefix + strings.ToLower(ulid.Make().String())
}

// CreateRoot creates the root map if it doesn't exist yet.
func (m *Model) CreateRoot() (*Map, error) {
	if root := m.Root(); root != nil {
		return root, nil
	}
	if err := m.bridge.consumeAndSubmit(operation.Create{ID: RootID, SubType: operation.SubTypeMap}); err != nil {
		return nil, err
	}
	return m.Root(), nil
}

// createObject submits a creation component for a new id and returns the object.
func (m *Model) createObject(subType operation.SubType) (CollaborativeObject, error) {
	id := m.newObjectID()
	if err := m.bridge.consumeAndSubmit(operation.Create{ID: id, SubType: subType}); err != nil {
		return nil, err
	}
	return m.objects[id], nil
}

// CreateMap creates a map holding initial.
func (m *Model) CreateMap(initial map[string]any) (*Map, error) {
	obj, err := m.createObject(operation.SubTypeMap)
	if err != nil {
		return nil, err
	}
	mp := obj.(*Map)

	keys := make([]string, 0, len(initial))
	for k := range initial {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := mp.Set(k, initial[k]); err != nil {
			return nil, err
		}
	}
	return mp, nil
}

// CreateList creates a list holding values.
func (m *Model) CreateList(values ...any) (*List, error) {
	obj, err := m.createObject(operation.SubTypeList)
	if err != nil {
		return nil, err
	}
	list := obj.(*List)

	if len(values) > 0 {
		if err := list.Push(values...); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// CreateString creates a string holding text.
func (m *Model) CreateString(text string) (*String, error) {
	obj, err := m.createObject(operation.SubTypeString)
	if err != nil {
		return nil, err
	}
	s := obj.(*String)

	if text != "" {
		if err := s.Insert(0, text); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CreateIndexReference creates a reference to index inside target, which must be a
// List or a String. When canBeDeleted is true, deleting the referenced position
// moves the reference to -1.
func (m *Model) CreateIndexReference(target CollaborativeObject, index int, canBeDeleted bool) (*IndexReference, error) {
	seq, ok := target.(indexed)
	if !ok {
		return nil, fmt.Errorf("index reference target %s is a %s", target.ID(), target.SubType())
	}
	if index < 0 || index > seq.length() {
		return nil, fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, index, seq.length())
	}

	obj, err := m.createObject(operation.SubTypeIndexReference)
	if err != nil {
		return nil, err
	}
	ref := obj.(*IndexReference)

	err = m.bridge.consumeAndSubmit(operation.ReferenceShifted{
		ID:               ref.id,
		ReferencedObject: target.ID(),
		NewIndex:         index,
		OldIndex:         ref.index,
		CanBeDeleted:     canBeDeleted,
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// BeginCompoundOperation starts grouping local edits into a single undo unit.
// Calls may be nested; the unit ends with the outermost EndCompoundOperation.
func (m *Model) BeginCompoundOperation() {
	if m.compoundDepth == 0 {
		m.bridge.undoManager.Checkpoint()
	}
	m.compoundDepth++
}

// EndCompoundOperation ends the innermost compound operation.
func (m *Model) EndCompoundOperation() error {
	if m.compoundDepth == 0 {
		return ErrNoCompoundOperation
	}
	m.compoundDepth--
	if m.compoundDepth == 0 {
		m.bridge.undoManager.Checkpoint()
	}
	return nil
}

// IsInCompoundOperation reports whether a compound operation is in progress.
func (m *Model) IsInCompoundOperation() bool {
	return m.compoundDepth > 0
}

// toValue converts a value passed to a mutator into its component form.
func (m *Model) toValue(v any) (any, error) {
	if obj, ok := v.(CollaborativeObject); ok {
		if m.objects[obj.ID()] != obj {
			return nil, fmt.Errorf("object %s belongs to another document", obj.ID())
		}
		return operation.Ref(obj.ID()), nil
	}
	return operation.Normalize(v)
}

func (m *Model) toValues(vs []any) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		value, err := m.toValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = value
	}
	return out, nil
}

// checkRefs fails if any of vs references an unknown object.
func (m *Model) checkRefs(vs ...any) error {
	for _, v := range vs {
		if ref, ok := v.(operation.Ref); ok {
			if _, err := m.GetObject(string(ref)); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve returns the object behind a Ref, or v itself.
func (m *Model) resolve(v any) any {
	if ref, ok := v.(operation.Ref); ok {
		if obj, ok := m.objects[string(ref)]; ok {
			return obj
		}
	}
	return v
}

func (m *Model) resolveAll(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = m.resolve(v)
	}
	return out
}

// render returns the JSON form of a value, expanding referenced objects.
// A reference back to an object on the current path is rendered as {"ref": id}.
func (m *Model) render(v any, seen map[string]bool) any {
	ref, ok := v.(operation.Ref)
	if !ok {
		return v
	}

	id := string(ref)
	obj, ok := m.objects[id]
	if !ok || seen[id] {
		return map[string]any{"ref": id}
	}

	seen[id] = true
	out := obj.toJSON(seen)
	delete(seen, id)
	return out
}

// registerReference indexes ref under the object it points into.
func (m *Model) registerReference(ref *IndexReference, target string) {
	if ref.referencedObject == target {
		return
	}
	if ref.referencedObject != "" {
		refs := m.references[ref.referencedObject]
		for i, r := range refs {
			if r == ref {
				m.references[ref.referencedObject] = append(refs[:i:i], refs[i+1:]...)
				break
			}
		}
	}
	if target != "" {
		m.references[target] = append(m.references[target], ref)
	}
}

// shiftReferences moves the references pointing into target after an insertion
// (count > 0) or a deletion (count < 0) at index.
func (m *Model) shiftReferences(target string, index, count int, userID, sessionID string) {
	for _, ref := range m.references[target] {
		ref.shift(index, count, userID, sessionID)
	}
}
