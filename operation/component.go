package operation

// Type represents the kind of a component.
type Type string

// SubType represents the kind of collaborative object introduced by a Create component.
type SubType string

const (
	TypeCreate           Type = "create"
	TypeMapSet           Type = "map"
	TypeListInsert       Type = "list_insert"
	TypeListDelete       Type = "list_delete"
	TypeListReplace      Type = "list_replace"
	TypeStringInsert     Type = "string_insert"
	TypeStringDelete     Type = "string_delete"
	TypeReferenceShifted Type = "reference_shifted"
)

// Currently, four object kinds can be created:
// - MAP (string keyed properties)
// - LIST (ordered values)
// - STRING (text)
// - INDEX_REFERENCE (a position inside a list or a string)

const (
	SubTypeMap            SubType = "MAP"
	SubTypeList           SubType = "LIST"
	SubTypeString         SubType = "STRING"
	SubTypeIndexReference SubType = "INDEX_REFERENCE"
)

// Component is the smallest addressed unit of change inside an operation.
type Component interface {
	// Type returns the component kind.
	Type() Type

	// ObjectID returns the id of the object the component is addressed to.
	// For a Create component, this is the id being introduced.
	ObjectID() string

	// Invert returns the component undoing this one, or nil if there is none.
	Invert() Component
}

// Create introduces a new object into the registry.
type Create struct {
	ID      string
	SubType SubType
}

func (c Create) Type() Type        { return TypeCreate }
func (c Create) ObjectID() string  { return c.ID }
func (c Create) Invert() Component { return nil }

// MapSet changes a single property of a map. A nil NewValue removes the key.
type MapSet struct {
	ID       string
	Key      string
	OldValue any
	NewValue any
}

func (c MapSet) Type() Type       { return TypeMapSet }
func (c MapSet) ObjectID() string { return c.ID }
func (c MapSet) Invert() Component {
	return MapSet{ID: c.ID, Key: c.Key, OldValue: c.NewValue, NewValue: c.OldValue}
}

// ListInsert inserts values at an index of a list.
type ListInsert struct {
	ID     string
	Index  int
	Values []any
}

func (c ListInsert) Type() Type       { return TypeListInsert }
func (c ListInsert) ObjectID() string { return c.ID }
func (c ListInsert) Invert() Component {
	return ListDelete(c)
}

// ListDelete removes values starting at an index of a list.
// Values holds the removed values so the deletion can be inverted.
type ListDelete struct {
	ID     string
	Index  int
	Values []any
}

func (c ListDelete) Type() Type       { return TypeListDelete }
func (c ListDelete) ObjectID() string { return c.ID }
func (c ListDelete) Invert() Component {
	return ListInsert(c)
}

// ListReplace overwrites values starting at an index of a list.
type ListReplace struct {
	ID        string
	Index     int
	OldValues []any
	NewValues []any
}

func (c ListReplace) Type() Type       { return TypeListReplace }
func (c ListReplace) ObjectID() string { return c.ID }
func (c ListReplace) Invert() Component {
	return ListReplace{ID: c.ID, Index: c.Index, OldValues: c.NewValues, NewValues: c.OldValues}
}

// StringInsert inserts text at a rune index of a string.
type StringInsert struct {
	ID    string
	Index int
	Text  string
}

func (c StringInsert) Type() Type       { return TypeStringInsert }
func (c StringInsert) ObjectID() string { return c.ID }
func (c StringInsert) Invert() Component {
	return StringDelete(c)
}

// StringDelete removes text at a rune index of a string.
type StringDelete struct {
	ID    string
	Index int
	Text  string
}

func (c StringDelete) Type() Type       { return TypeStringDelete }
func (c StringDelete) ObjectID() string { return c.ID }
func (c StringDelete) Invert() Component {
	return StringInsert(c)
}

// ReferenceShifted moves an index reference, optionally re-targeting it.
type ReferenceShifted struct {
	ID               string
	ReferencedObject string
	NewIndex         int
	OldIndex         int
	CanBeDeleted     bool
}

func (c ReferenceShifted) Type() Type       { return TypeReferenceShifted }
func (c ReferenceShifted) ObjectID() string { return c.ID }
func (c ReferenceShifted) Invert() Component {
	return ReferenceShifted{
		ID:               c.ID,
		ReferencedObject: c.ReferencedObject,
		NewIndex:         c.OldIndex,
		OldIndex:         c.NewIndex,
		CanBeDeleted:     c.CanBeDeleted,
	}
}

// IsCreate reports whether the component introduces a new object.
func IsCreate(c Component) bool {
	return c.Type() == TypeCreate
}
