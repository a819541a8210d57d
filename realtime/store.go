package realtime

import (
	"github.com/burntcarrot/rtdoc/operation"
	"github.com/google/uuid"
)

// Store provides the identity of the local session and the event bus.
type Store interface {
	UserID() string
	SessionID() string
	Bus() Bus
}

// SimpleStore is a Store with fixed identities.
type SimpleStore struct {
	userID    string
	sessionID string
	bus       Bus
}

// NewStore returns a Store for userID with a freshly generated session id.
func NewStore(userID string, bus Bus) *SimpleStore {
	return &SimpleStore{userID: userID, sessionID: uuid.NewString(), bus: bus}
}

// NewStoreWithSession returns a Store with an explicit session id.
func NewStoreWithSession(userID, sessionID string, bus Bus) *SimpleStore {
	return &SimpleStore{userID: userID, sessionID: sessionID, bus: bus}
}

func (s *SimpleStore) UserID() string    { return s.userID }
func (s *SimpleStore) SessionID() string { return s.sessionID }
func (s *SimpleStore) Bus() Bus          { return s.bus }

// OutputSink receives operations originated by this document (local edits, undo
// and redo) on their way to the transport.
type OutputSink interface {
	Consume(op *operation.Operation)

	// Close releases the sink. The bridge calls it at most once.
	Close()
}

// VoidSink discards every operation. It is the default sink of a bridge.
var VoidSink OutputSink = voidSink{}

type voidSink struct{}

func (voidSink) Consume(*operation.Operation) {}
func (voidSink) Close()                       {}
