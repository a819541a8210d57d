package main

import (
	"errors"

	"github.com/burntcarrot/rtdoc/commons"
	"github.com/burntcarrot/rtdoc/realtime"
	"github.com/burntcarrot/rtdoc/snapshotstore"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// client is a connection joined to a room.
type client struct {
	conn     *websocket.Conn
	id       uuid.UUID
	username string
}

type eventKind int

const (
	eventJoin eventKind = iota
	eventLeave
	eventMessage
	eventSnapshot
)

// roomEvent is everything a room reacts to. Events are handled one at a time, in order.
type roomEvent struct {
	kind     eventKind
	client   *client
	msg      commons.Message
	snapshot chan []byte
}

// room holds the authoritative copy of one document and relays operations between
// the clients editing it.
type room struct {
	docID   string
	bridge  *realtime.Bridge
	loop    *realtime.Loop
	store   *snapshotstore.Store
	clients map[uuid.UUID]*client
	events  chan roomEvent
	logger  *logrus.Entry

	// lastErr is set by the bridge's error handler while an operation is applied.
	lastErr *realtime.Error
}

// newRoom loads docID from the store, if any, and returns its room.
func newRoom(docID string, store *snapshotstore.Store, logger *logrus.Entry) (*room, error) {
	r := &room{
		docID:   docID,
		loop:    realtime.NewLoop(),
		store:   store,
		clients: make(map[uuid.UUID]*client),
		events:  make(chan roomEvent),
		logger:  logger.WithField("doc", docID),
	}

	var snapshot []byte
	if store != nil {
		var err error
		snapshot, err = store.Load(docID)
		if err != nil && !errors.Is(err, snapshotstore.ErrNotFound) {
			return nil, err
		}
	}

	rtStore := realtime.NewStoreWithSession("server", "server:"+docID, realtime.NewLocalBus(r.loop))
	bridge, err := realtime.NewBridgeFromSnapshot(rtStore, docID, snapshot, func(e *realtime.Error) {
		r.lastErr = e
	}, realtime.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	r.bridge = bridge

	return r, nil
}

// run handles the room's events until the events channel is closed.
func (r *room) run() {
	for ev := range r.events {
		switch ev.kind {
		case eventJoin:
			r.handleJoin(ev.client)
		case eventLeave:
			r.handleLeave(ev.client)
		case eventMessage:
			r.handleMessage(ev.msg)
		case eventSnapshot:
			ev.snapshot <- r.snapshot()
		}

		// Nothing subscribes to the server's bus, but queued events must not pile up.
		r.loop.RunUntilIdle()
	}
}

func (r *room) snapshot() []byte {
	data, err := r.bridge.MarshalSnapshot()
	if err != nil {
		r.logger.WithError(err).Error("failed to encode snapshot")
		return nil
	}
	return data
}

func (r *room) handleJoin(c *client) {
	r.clients[c.id] = c

	r.send(c, commons.Message{Type: commons.SnapshotMessage, DocID: r.docID, ID: c.id, Snapshot: r.snapshot()})
	r.broadcast(commons.Message{Type: commons.JoinMessage, DocID: r.docID, ID: c.id, Username: c.username}, c.id)
	r.broadcastUsers()
}

func (r *room) handleLeave(c *client) {
	if _, ok := r.clients[c.id]; !ok {
		return
	}
	delete(r.clients, c.id)
	r.broadcastUsers()
}

func (r *room) handleMessage(msg commons.Message) {
	if msg.Type != commons.OperationMessage || msg.Operation == nil {
		r.logger.Debugf("ignoring %s message from %v", msg.Type, msg.ID)
		return
	}

	r.lastErr = nil
	r.bridge.Consume(msg.Operation)
	if r.lastErr != nil {
		if c, ok := r.clients[msg.ID]; ok {
			r.send(c, commons.Message{Type: commons.ErrorMessage, DocID: r.docID, ID: msg.ID, Text: r.lastErr.Error()})
		}
		return
	}

	if r.store != nil {
		if err := r.store.Save(r.docID, r.snapshot()); err != nil {
			r.logger.WithError(err).Error("failed to save snapshot")
		}
	}

	r.broadcast(msg, msg.ID)
}

// send writes msg to c, dropping c if the write fails.
func (r *room) send(c *client, msg commons.Message) {
	if err := c.conn.WriteJSON(msg); err != nil {
		r.logger.WithError(err).Warnf("Error sending message to client %v", c.id)
		c.conn.Close()
		delete(r.clients, c.id)
	}
}

// broadcast sends msg to every client but the one with id except.
func (r *room) broadcast(msg commons.Message, except uuid.UUID) {
	for id, c := range r.clients {
		// Check the UUID to prevent sending messages to their origin.
		if id != except {
			r.send(c, msg)
		}
	}
}

func (r *room) broadcastUsers() {
	users := make([]string, 0, len(r.clients))
	for _, c := range r.clients {
		users = append(users, c.username)
	}
	r.broadcast(commons.Message{Type: commons.UsersMessage, DocID: r.docID, Users: users}, uuid.Nil)
}
