package commons

import (
	"encoding/json"

	"github.com/burntcarrot/rtdoc/operation"
	"github.com/google/uuid"
)

// Message represents the message sent over the wire.
type Message struct {
	Username string `json:"username"`

	// Text represents the body of the message. This is used for join messages and errors.
	Text string `json:"text,omitempty"`

	// Type represents the message type.
	Type MessageType `json:"type"`

	// ID represents the sending client's UUID, assigned by the server.
	ID uuid.UUID `json:"ID"`

	// DocID represents the document the message is about.
	DocID string `json:"docId"`

	// Operation represents an operation applied to the document.
	Operation *operation.Operation `json:"operation,omitempty"`

	// Snapshot represents the document as a JSON array of components. Snapshots can be large, and are only sent when a client joins.
	Snapshot json.RawMessage `json:"snapshot,omitempty"`

	// Users represents the list of active users.
	Users []string `json:"users,omitempty"`
}

// MessageType represents the type of the message.
type MessageType string

// Currently, rtdoc supports 5 message types:
// - join (for joining messages)
// - snapshot (for syncing a joining client with the document)
// - operation (for operations applied by a client)
// - users (for the list of active users)
// - error (for operations the server couldn't apply)

const (
	JoinMessage      MessageType = "join"
	SnapshotMessage  MessageType = "snapshot"
	OperationMessage MessageType = "operation"
	UsersMessage     MessageType = "users"
	ErrorMessage     MessageType = "error"
)
