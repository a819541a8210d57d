package realtime

import (
	"errors"
	"fmt"

	"github.com/burntcarrot/rtdoc/operation"
)

var (
	ErrNilStore        = errors.New("store must not be nil")
	ErrClosed          = errors.New("document is closed")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// UnknownObjectError is returned when a component addresses an id that is not in the registry.
type UnknownObjectError struct {
	ID string
}

func (e *UnknownObjectError) Error() string {
	return fmt.Sprintf("unknown object %q", e.ID)
}

// UnsupportedSubtypeError is returned when a creation component names an unknown object kind.
type UnsupportedSubtypeError struct {
	ID      string
	SubType operation.SubType
}

func (e *UnsupportedSubtypeError) Error() string {
	return fmt.Sprintf("unsupported subtype %q for object %q", e.SubType, e.ID)
}

// MalformedComponentError is returned when a component's payload can't be applied
// to the object it addresses.
type MalformedComponentError struct {
	ID     string
	Type   operation.Type
	Reason string
}

func (e *MalformedComponentError) Error() string {
	return fmt.Sprintf("malformed %s component for object %q: %s", e.Type, e.ID, e.Reason)
}

// MalformedSnapshotError is returned when a snapshot can't be replayed.
type MalformedSnapshotError struct {
	// Index is the position of the offending component, or -1 if the snapshot
	// couldn't be decoded.
	Index int
	Err   error
}

func (e *MalformedSnapshotError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed snapshot: %v", e.Err)
	}
	return fmt.Sprintf("malformed snapshot at component %d: %v", e.Index, e.Err)
}

func (e *MalformedSnapshotError) Unwrap() error { return e.Err }

// Error is handed to the document's ErrorHandler when an operation fails to apply.
type Error struct {
	DocumentID string
	Operation  *operation.Operation

	// Index is the position of the failing component inside Operation, or -1.
	Index int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("document %s: component %d: %v", e.DocumentID, e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorHandler receives failures of operations applied to a document.
// It must not panic.
type ErrorHandler func(err *Error)

// applyError ties a failure to the component that caused it.
type applyError struct {
	index int
	err   error
}

func (e *applyError) Error() string { return e.err.Error() }
func (e *applyError) Unwrap() error { return e.err }
