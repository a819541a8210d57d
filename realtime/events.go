package realtime

// EventType names a kind of document event.
type EventType string

const (
	EventValueChanged         EventType = "value_changed"
	EventValuesAdded          EventType = "values_added"
	EventValuesRemoved        EventType = "values_removed"
	EventValuesSet            EventType = "values_set"
	EventTextInserted         EventType = "text_inserted"
	EventTextDeleted          EventType = "text_deleted"
	EventReferenceShifted     EventType = "reference_shifted"
	EventUndoRedoStateChanged EventType = "undo_redo_state_changed"
)

// EventAddrPrefix is the namespace of every document event address.
const EventAddrPrefix = "realtime.event."

// EventAddr returns the bus address events of type t for document docID are published on.
func EventAddr(t EventType, docID string) string {
	return EventAddrPrefix + string(t) + ":" + docID
}

// BaseModelEvent holds the fields shared by all object events.
type BaseModelEvent struct {
	Type      EventType
	Target    CollaborativeObject
	SessionID string
	UserID    string

	// IsLocal is true when the change was made by this session.
	IsLocal bool
}

// ValueChangedEvent is fired when a map property changes.
type ValueChangedEvent struct {
	BaseModelEvent
	Property string
	NewValue any
	OldValue any
}

// ValuesAddedEvent is fired when values are inserted into a list.
type ValuesAddedEvent struct {
	BaseModelEvent
	Index  int
	Values []any
}

// ValuesRemovedEvent is fired when values are removed from a list.
type ValuesRemovedEvent struct {
	BaseModelEvent
	Index  int
	Values []any
}

// ValuesSetEvent is fired when list values are overwritten.
type ValuesSetEvent struct {
	BaseModelEvent
	Index     int
	OldValues []any
	NewValues []any
}

// TextInsertedEvent is fired when text is inserted into a string.
type TextInsertedEvent struct {
	BaseModelEvent
	Index int
	Text  string
}

// TextDeletedEvent is fired when text is removed from a string.
type TextDeletedEvent struct {
	BaseModelEvent
	Index int
	Text  string
}

// ReferenceShiftedEvent is fired when an index reference moves.
type ReferenceShiftedEvent struct {
	BaseModelEvent
	OldIndex int
	NewIndex int
}

// UndoRedoStateChangedEvent is fired when the ability to undo or redo changes.
type UndoRedoStateChangedEvent struct {
	CanUndo bool
	CanRedo bool
}
