// Package undo keeps the undo and redo history of locally authored operations.
package undo

import "github.com/burntcarrot/rtdoc/operation"

// DefaultMaxDepth is the number of undo units kept when no limit is configured.
const DefaultMaxDepth = 100

// Manager records operations and computes the operations that undo or redo them.
type Manager interface {
	// UndoableOp records a locally authored operation. It joins the open undo
	// unit, or opens a new one after a checkpoint, and clears the redo history.
	UndoableOp(op *operation.Operation)

	// NonUndoableOp records an operation the local user did not author.
	// It is never undone or redone.
	NonUndoableOp(op *operation.Operation)

	// Checkpoint closes the open undo unit.
	Checkpoint()

	CanUndo() bool
	CanRedo() bool

	// Undo returns the operation reverting the newest undo unit, or nil.
	Undo() *operation.Operation

	// Redo returns the operation re-applying the newest undone unit, or nil.
	Redo() *operation.Operation

	// Interleaved returns the number of non-undoable operations recorded since
	// the newest undo unit was opened.
	Interleaved() int
}

// unit is a batch of operations undone together.
type unit struct {
	ops         []*operation.Operation
	interleaved int
}

func (u *unit) inverse() *operation.Operation {
	inverted := make([]*operation.Operation, len(u.ops))
	for i, op := range u.ops {
		inverted[len(u.ops)-1-i] = op.Invert()
	}
	return operation.Concat(inverted...)
}

func (u *unit) forward() *operation.Operation {
	return operation.Concat(u.ops...)
}

// Stack is the recording Manager.
type Stack struct {
	undo     []*unit
	redo     []*unit
	open     bool
	maxDepth int
}

// Option configures a Stack.
type Option func(*Stack)

// WithMaxDepth bounds the number of undo units kept. Older units are dropped.
func WithMaxDepth(n int) Option {
	return func(s *Stack) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// New returns a recording undo manager.
func New(opts ...Option) *Stack {
	s := &Stack{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stack) UndoableOp(op *operation.Operation) {
	if op == nil {
		return
	}

	s.redo = nil

	if !s.open || len(s.undo) == 0 {
		s.undo = append(s.undo, &unit{})
		if len(s.undo) > s.maxDepth {
			s.undo = s.undo[len(s.undo)-s.maxDepth:]
		}
		s.open = true
	}

	top := s.undo[len(s.undo)-1]
	top.ops = append(top.ops, op)
}

func (s *Stack) NonUndoableOp(op *operation.Operation) {
	if op == nil || len(s.undo) == 0 {
		return
	}
	s.undo[len(s.undo)-1].interleaved++
}

func (s *Stack) Checkpoint() {
	s.open = false
}

func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }

func (s *Stack) Undo() *operation.Operation {
	if len(s.undo) == 0 {
		return nil
	}

	u := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, u)
	s.open = false

	return u.inverse()
}

func (s *Stack) Redo() *operation.Operation {
	if len(s.redo) == 0 {
		return nil
	}

	u := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	u.interleaved = 0
	s.undo = append(s.undo, u)
	s.open = false

	return u.forward()
}

func (s *Stack) Interleaved() int {
	if len(s.undo) == 0 {
		return 0
	}
	return s.undo[len(s.undo)-1].interleaved
}

type noOp struct{}

// NoOp returns the Manager used while undo is disabled. It records nothing.
func NoOp() Manager {
	return noOp{}
}

func (noOp) UndoableOp(*operation.Operation)    {}
func (noOp) NonUndoableOp(*operation.Operation) {}
func (noOp) Checkpoint()                        {}
func (noOp) CanUndo() bool                      { return false }
func (noOp) CanRedo() bool                      { return false }
func (noOp) Undo() *operation.Operation         { return nil }
func (noOp) Redo() *operation.Operation         { return nil }
func (noOp) Interleaved() int                   { return 0 }
