// Package transport carries document operations over a WebSocket connection.
package transport

import (
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/burntcarrot/rtdoc/commons"
	"github.com/burntcarrot/rtdoc/operation"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var ErrSinkClosed = errors.New("sink closed")

type ConnReader interface {
	ReadJSON(v interface{}) error
}

type ConnWriter interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Dial creates a WebSocket connection to the document's endpoint on server.
func Dial(server string, secure bool, docID string, timeout time.Duration) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: server, Path: "/doc/" + docID}
	if secure {
		u.Scheme = "wss"
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	return conn, err
}

// Sink sends the operations of a document over a connection. It is the output sink
// of a client's document bridge.
type Sink struct {
	mu       sync.Mutex
	conn     ConnWriter
	docID    string
	username string
	closed   bool
	err      error
	logger   *logrus.Entry
}

// NewSink returns a sink writing operations for docID to conn.
func NewSink(conn ConnWriter, docID, username string, logger *logrus.Entry) *Sink {
	return &Sink{conn: conn, docID: docID, username: username, logger: logger}
}

// Consume writes op to the connection. A write failure is logged and kept; see Err.
func (s *Sink) Consume(op *operation.Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.err = ErrSinkClosed
		return
	}

	msg := commons.Message{Type: commons.OperationMessage, DocID: s.docID, Username: s.username, Operation: op}
	if err := s.conn.WriteJSON(&msg); err != nil {
		s.err = err
		s.logger.WithError(err).Error("failed to send operation")
		return
	}

	s.logger.Debugf("SENT OPERATION: %v", op)
}

// Err returns the last error met while sending.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the underlying connection. Calling it again does nothing.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if err := s.conn.Close(); err != nil {
		s.logger.WithError(err).Warn("failed to close connection")
	}
}

// ReadMessages returns a message channel that repeatedly reads from a connection.
// The channel is closed once the connection fails.
func ReadMessages(conn ConnReader, logger *logrus.Entry) <-chan commons.Message {
	messageChan := make(chan commons.Message)
	go func() {
		defer close(messageChan)
		for {
			var msg commons.Message

			// Read message.
			err := conn.ReadJSON(&msg)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Errorf("websocket error: %v", err)
				}
				return
			}

			logger.Debugf("message received: %s", msg.Type)

			// send message through channel
			messageChan <- msg
		}
	}()
	return messageChan
}
