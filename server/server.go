package main

import (
	"errors"
	"net/http"
	"sort"
	"sync"

	"github.com/burntcarrot/rtdoc/commons"
	"github.com/burntcarrot/rtdoc/snapshotstore"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Server relays document operations between clients.
type Server struct {
	mu       sync.Mutex
	rooms    map[string]*room
	store    *snapshotstore.Store
	logger   *logrus.Entry
	upgrader websocket.Upgrader

	// verbose prints every relayed message to stdout.
	verbose bool
}

// NewServer returns a server persisting snapshots to store. store may be nil.
func NewServer(store *snapshotstore.Store, logger *logrus.Entry) *Server {
	return &Server{
		rooms:  make(map[string]*room),
		store:  store,
		logger: logger,
	}
}

// Handler returns the server's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/doc/{id}", s.handleConn)
	r.HandleFunc("/doc/{id}/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/docs", s.handleDocs).Methods(http.MethodGet)
	return r
}

// room returns the room of docID, starting it if needed.
func (s *Server) room(docID string) (*room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rooms[docID]; ok {
		return r, nil
	}

	r, err := newRoom(docID, s.store, s.logger)
	if err != nil {
		return nil, err
	}
	s.rooms[docID] = r
	go r.run()

	return r, nil
}

// handleConn upgrades the connection, joins the client to the document's room and
// reads messages from the connection.
func (s *Server) handleConn(w http.ResponseWriter, req *http.Request) {
	docID := mux.Vars(req)["id"]

	r, err := s.room(docID)
	if err != nil {
		s.logger.WithError(err).Errorf("failed to open document %s", docID)
		http.Error(w, "failed to open document", http.StatusInternalServerError)
		return
	}

	// Upgrade incoming HTTP connections to WebSocket connections
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.logger.WithError(err).Error("Error upgrading connection to websocket")
		return
	}
	defer conn.Close()

	// The first message must be a join message.
	var join commons.Message
	if err := conn.ReadJSON(&join); err != nil || join.Type != commons.JoinMessage {
		s.logger.Warn("connection closed before joining")
		return
	}

	// Generate a UUID for the client.
	c := &client{conn: conn, id: uuid.New(), username: join.Username}
	r.events <- roomEvent{kind: eventJoin, client: c}
	s.print("%s joined %s", c.username, docID)

	for {
		var msg commons.Message

		// Read message from the connection.
		err := conn.ReadJSON(&msg)
		if err != nil {
			s.logger.Infof("Closing connection with ID: %v", c.id)
			r.events <- roomEvent{kind: eventLeave, client: c}
			s.print("%s left %s", c.username, docID)
			return
		}

		// Set message ID and sender.
		msg.ID = c.id
		msg.DocID = docID
		msg.Username = c.username

		if msg.Operation != nil {
			s.print("%s >> %d component(s)", c.username, msg.Operation.Len())
		}
		r.events <- roomEvent{kind: eventMessage, msg: msg}
	}
}

// handleSnapshot writes the current snapshot of a document. Documents that aren't
// open are read from the store without starting a room.
func (s *Server) handleSnapshot(w http.ResponseWriter, req *http.Request) {
	docID := mux.Vars(req)["id"]

	s.mu.Lock()
	r, ok := s.rooms[docID]
	s.mu.Unlock()

	var snapshot []byte
	switch {
	case ok:
		reply := make(chan []byte, 1)
		r.events <- roomEvent{kind: eventSnapshot, snapshot: reply}
		snapshot = <-reply

	case s.store == nil:
		http.Error(w, "document not found", http.StatusNotFound)
		return

	default:
		var err error
		snapshot, err = s.store.Load(docID)
		if errors.Is(err, snapshotstore.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		if err != nil {
			s.logger.WithError(err).Errorf("failed to load document %s", docID)
			http.Error(w, "failed to load document", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(snapshot)
}

// handleDocs lists the documents known to the server.
func (s *Server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	ids := map[string]bool{}

	s.mu.Lock()
	for id := range s.rooms {
		ids[id] = true
	}
	s.mu.Unlock()

	if s.store != nil {
		stored, err := s.store.Documents()
		if err != nil {
			http.Error(w, "failed to list documents", http.StatusInternalServerError)
			return
		}
		for _, id := range stored {
			ids[id] = true
		}
	}

	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	sort.Strings(list)

	w.Header().Set("Content-Type", "application/json")
	_ = writeJSON(w, list)
}

// print logs a line to stdout when verbose output is enabled.
func (s *Server) print(format string, a ...interface{}) {
	if s.verbose {
		color.Green(format, a...)
	}
}
