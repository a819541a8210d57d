// Package realtime implements the client side of a collaborative document: the object
// registry, the collaborative objects and the bridge applying operations to them.
//
// A Bridge is not safe for concurrent use. All calls for one document must come from
// the same goroutine; events are delivered later through the store's bus.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/burntcarrot/rtdoc/operation"
	"github.com/burntcarrot/rtdoc/undo"
	"github.com/sirupsen/logrus"
)

// Bridge applies local and remote operations to a document's registry, records local
// ones for undo and forwards them to the output sink.
type Bridge struct {
	store        Store
	id           string
	model        *Model
	errorHandler ErrorHandler
	logger       *logrus.Entry

	undoManager undo.Manager
	undoEnabled bool
	undoDepth   int

	outputSink OutputSink
	closed     bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used by the bridge.
func WithLogger(logger *logrus.Entry) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithUndoDepth bounds the undo history once undo is enabled.
func WithUndoDepth(n int) Option {
	return func(b *Bridge) {
		b.undoDepth = n
	}
}

// NewBridge returns the bridge of document id. If components is not empty, it is
// replayed as the initial state; a failure aborts construction with a
// *MalformedSnapshotError. Undo is disabled until SetUndoEnabled(true).
func NewBridge(store Store, id string, components []operation.Component, errorHandler ErrorHandler, opts ...Option) (*Bridge, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	b := &Bridge{
		store:        store,
		id:           id,
		errorHandler: errorHandler,
		undoManager:  undo.NoOp(),
		undoDepth:    undo.DefaultMaxDepth,
		outputSink:   VoidSink,
	}
	b.logger = logrus.WithFields(logrus.Fields{"doc": id, "session": store.SessionID()})
	for _, opt := range opts {
		opt(b)
	}
	b.model = newModel(b)

	if len(components) > 0 {
		op := operation.New(store.UserID(), store.SessionID(), components...)
		if err := b.replay(op); err != nil {
			index, cause := unwrapApplyError(err)
			return nil, &MalformedSnapshotError{Index: index, Err: cause}
		}
		b.logger.WithField("objects", b.model.Len()).Debug("document hydrated")
	}

	return b, nil
}

// NewBridgeFromSnapshot returns a bridge hydrated from a JSON snapshot.
func NewBridgeFromSnapshot(store Store, id string, snapshot []byte, errorHandler ErrorHandler, opts ...Option) (*Bridge, error) {
	var components []operation.Component
	if len(snapshot) > 0 {
		var err error
		components, err = operation.DecodeComponents(snapshot)
		if err != nil {
			return nil, &MalformedSnapshotError{Index: -1, Err: err}
		}
	}
	return NewBridge(store, id, components, errorHandler, opts...)
}

// replay applies the initial components, turning a panic into an error.
func (b *Bridge) replay(op *operation.Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while replaying snapshot: %v", r)
		}
	}()
	return b.applyLocally(op)
}

// ID returns the document id.
func (b *Bridge) ID() string {
	return b.id
}

// Model returns the document's object registry.
func (b *Bridge) Model() *Model {
	return b.model
}

// Store returns the store the bridge was built with.
func (b *Bridge) Store() Store {
	return b.store
}

// CreateRoot creates the root map if needed.
func (b *Bridge) CreateRoot() (*Map, error) {
	return b.model.CreateRoot()
}

// Consume applies an operation received from a remote session. Failures are reported
// to the error handler; the remaining components of a failing operation are skipped.
func (b *Bridge) Consume(op *operation.Operation) {
	if op == nil {
		return
	}
	if b.closed {
		b.report(op, ErrClosed)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.report(op, fmt.Errorf("panic while applying operation: %v", r))
		}
	}()

	if err := b.applyLocally(op); err != nil {
		b.report(op, err)
		return
	}
	b.undoManager.NonUndoableOp(op)
}

// consumeAndSubmit applies a component authored by the local session, records it for
// undo and forwards it to the output sink.
func (b *Bridge) consumeAndSubmit(c operation.Component) error {
	if b.closed {
		return ErrClosed
	}

	op := operation.New(b.store.UserID(), b.store.SessionID(), c)
	if err := b.applyLocally(op); err != nil {
		b.report(op, err)
		_, cause := unwrapApplyError(err)
		return cause
	}

	if !b.model.IsInCompoundOperation() {
		b.undoManager.Checkpoint()
	}
	b.undoManager.UndoableOp(op)
	b.mayUndoRedoStateChanged()

	b.outputSink.Consume(op)
	return nil
}

// Undo reverts the newest local undo unit.
func (b *Bridge) Undo() {
	if b.closed {
		return
	}
	if n := b.undoManager.Interleaved(); n > 0 {
		b.logger.WithField("remote_ops", n).Warn("undoing across concurrent remote operations")
	}
	b.bypassUndoStack(b.undoManager.Undo())
}

// Redo re-applies the newest undone unit.
func (b *Bridge) Redo() {
	if b.closed {
		return
	}
	b.bypassUndoStack(b.undoManager.Redo())
}

// CanUndo reports whether Undo has something to revert.
func (b *Bridge) CanUndo() bool {
	return b.undoManager.CanUndo()
}

// CanRedo reports whether Redo has something to re-apply.
func (b *Bridge) CanRedo() bool {
	return b.undoManager.CanRedo()
}

// bypassUndoStack applies and forwards an operation produced by the undo manager
// without recording it again. If a component fails, the components applied before it
// are still forwarded so peers see the same state.
func (b *Bridge) bypassUndoStack(op *operation.Operation) {
	if op == nil {
		return
	}

	if err := b.applyLocally(op); err != nil {
		b.report(op, err)
		if index, _ := unwrapApplyError(err); index > 0 {
			b.outputSink.Consume(operation.New(op.UserID, op.SessionID, op.Components[:index]...))
		}
		b.mayUndoRedoStateChanged()
		return
	}

	if op.Len() > 0 {
		b.outputSink.Consume(op)
	}
	b.mayUndoRedoStateChanged()
}

// SetUndoEnabled switches between recording and discarding undo history. It only
// affects operations applied after the call; disabling drops the history.
func (b *Bridge) SetUndoEnabled(enabled bool) {
	if enabled == b.undoEnabled {
		return
	}

	b.undoEnabled = enabled
	if enabled {
		b.undoManager = undo.New(undo.WithMaxDepth(b.undoDepth))
	} else {
		b.undoManager = undo.NoOp()
	}
	b.mayUndoRedoStateChanged()
}

// SetOutputSink replaces the destination of locally originated operations.
// A nil sink discards them.
func (b *Bridge) SetOutputSink(sink OutputSink) {
	if sink == nil {
		sink = VoidSink
	}
	b.outputSink = sink
}

// Close closes the output sink. The document is inert afterwards.
func (b *Bridge) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.outputSink.Close()
}

// IsClosed reports whether Close was called.
func (b *Bridge) IsClosed() bool {
	return b.closed
}

// ToSnapshot returns the components rebuilding the document from empty: every
// creation first, in registry order, then every other component, in registry order.
func (b *Bridge) ToSnapshot() []operation.Component {
	var creates, components []operation.Component
	for _, id := range b.model.order {
		initialization := b.model.objects[id].toInitialization()
		creates = append(creates, initialization[0])
		components = append(components, initialization[1:]...)
	}
	return append(creates, components...)
}

// MarshalSnapshot returns the JSON form of ToSnapshot.
func (b *Bridge) MarshalSnapshot() ([]byte, error) {
	return operation.MarshalComponents(b.ToSnapshot())
}

// ToJSON renders the current state of the root map, or nil if there is no root.
func (b *Bridge) ToJSON() any {
	root := b.model.Root()
	if root == nil {
		return nil
	}
	return root.toJSON(map[string]bool{RootID: true})
}

// MarshalJSON encodes ToJSON.
func (b *Bridge) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.ToJSON())
}

func (b *Bridge) String() string {
	out, err := b.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<document %s: %v>", b.id, err)
	}
	return string(out)
}

// applyLocally applies every component of op in order and stops at the first failure.
func (b *Bridge) applyLocally(op *operation.Operation) error {
	for i, c := range op.Components {
		if err := b.applyComponent(op, c); err != nil {
			return &applyError{index: i, err: err}
		}
	}
	return nil
}

func (b *Bridge) applyComponent(op *operation.Operation, c operation.Component) error {
	if operation.IsCreate(c) {
		create, ok := c.(operation.Create)
		if !ok {
			return &MalformedComponentError{ID: c.ObjectID(), Type: c.Type(), Reason: fmt.Sprintf("unexpected %T", c)}
		}
		return b.model.create(create)
	}

	obj, err := b.model.GetObject(c.ObjectID())
	if err != nil {
		return err
	}
	return obj.consume(op.UserID, op.SessionID, c)
}

func (b *Bridge) mayUndoRedoStateChanged() {
	canUndo := b.undoManager.CanUndo()
	canRedo := b.undoManager.CanRedo()
	if b.model.canUndo == canUndo && b.model.canRedo == canRedo {
		return
	}

	b.model.canUndo = canUndo
	b.model.canRedo = canRedo
	b.publish(EventUndoRedoStateChanged, &UndoRedoStateChangedEvent{CanUndo: canUndo, CanRedo: canRedo})
}

func (b *Bridge) publish(t EventType, event any) {
	bus := b.store.Bus()
	if bus == nil {
		return
	}
	bus.PublishLocal(EventAddr(t, b.id), event)
}

func (b *Bridge) isLocalSession(sessionID string) bool {
	return sessionID == b.store.SessionID()
}

// report hands a failure to the error handler.
func (b *Bridge) report(op *operation.Operation, err error) {
	index, cause := unwrapApplyError(err)

	b.logger.WithError(cause).WithFields(logrus.Fields{
		"component": index,
		"user":      op.UserID,
		"origin":    op.SessionID,
	}).Error("failed to apply operation")

	if b.errorHandler != nil {
		b.errorHandler(&Error{DocumentID: b.id, Operation: op, Index: index, Err: cause})
	}
}

func unwrapApplyError(err error) (int, error) {
	var ae *applyError
	if errors.As(err, &ae) {
		return ae.index, ae.err
	}
	return -1, err
}
