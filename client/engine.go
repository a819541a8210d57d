package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/burntcarrot/rtdoc/commons"
	"github.com/burntcarrot/rtdoc/config"
	"github.com/burntcarrot/rtdoc/realtime"
	"github.com/burntcarrot/rtdoc/tui"
	"github.com/sirupsen/logrus"
)

// maxActivity is the number of activity lines kept for display.
const maxActivity = 50

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("wrong number of arguments")
	ErrNotAList       = errors.New("value is not a list")
	ErrNotAString     = errors.New("value is not a string")
)

// session ties a document bridge to the terminal UI. All methods run on the UI goroutine.
type session struct {
	bridge   *realtime.Bridge
	loop     *realtime.Loop
	username string
	users    []string
	activity []string
	logger   *logrus.Entry

	// lastErr is set by the bridge's error handler.
	lastErr *realtime.Error

	unsubscribe []func()
}

// newSession hydrates the document from snapshot and wires sink as its output.
func newSession(docID, username string, snapshot []byte, undo config.UndoConfig, sink realtime.OutputSink, logger *logrus.Entry) (*session, error) {
	s := &session{
		loop:     realtime.NewLoop(),
		username: username,
		logger:   logger,
	}

	store := realtime.NewStore(username, realtime.NewLocalBus(s.loop))
	bridge, err := realtime.NewBridgeFromSnapshot(store, docID, snapshot, func(e *realtime.Error) {
		s.lastErr = e
	}, realtime.WithLogger(logger), realtime.WithUndoDepth(undo.Depth))
	if err != nil {
		return nil, err
	}
	s.bridge = bridge

	bridge.SetOutputSink(sink)
	if _, err := bridge.CreateRoot(); err != nil {
		return nil, err
	}
	bridge.SetUndoEnabled(undo.Enabled)

	s.subscribe()
	s.loop.RunUntilIdle()

	return s, nil
}

// subscribe records every document event in the activity feed.
func (s *session) subscribe() {
	bus := s.bridge.Store().Bus()
	types := []realtime.EventType{
		realtime.EventValueChanged,
		realtime.EventValuesAdded,
		realtime.EventValuesRemoved,
		realtime.EventValuesSet,
		realtime.EventTextInserted,
		realtime.EventTextDeleted,
		realtime.EventReferenceShifted,
		realtime.EventUndoRedoStateChanged,
	}
	for _, t := range types {
		s.unsubscribe = append(s.unsubscribe, bus.SubscribeLocal(realtime.EventAddr(t, s.bridge.ID()), s.record))
	}
}

func (s *session) record(event any) {
	line := describe(event)
	if line == "" {
		return
	}
	s.activity = append(s.activity, line)
	if len(s.activity) > maxActivity {
		s.activity = s.activity[len(s.activity)-maxActivity:]
	}
}

// describe returns a one-line summary of a document event.
func describe(event any) string {
	who := func(e realtime.BaseModelEvent) string {
		if e.IsLocal {
			return "you"
		}
		return e.UserID
	}

	switch e := event.(type) {
	case *realtime.ValueChangedEvent:
		if e.NewValue == nil {
			return fmt.Sprintf("%s deleted %s", who(e.BaseModelEvent), e.Property)
		}
		return fmt.Sprintf("%s set %s", who(e.BaseModelEvent), e.Property)
	case *realtime.ValuesAddedEvent:
		return fmt.Sprintf("%s added %d value(s) at %d", who(e.BaseModelEvent), len(e.Values), e.Index)
	case *realtime.ValuesRemovedEvent:
		return fmt.Sprintf("%s removed %d value(s) at %d", who(e.BaseModelEvent), len(e.Values), e.Index)
	case *realtime.ValuesSetEvent:
		return fmt.Sprintf("%s replaced %d value(s) at %d", who(e.BaseModelEvent), len(e.NewValues), e.Index)
	case *realtime.TextInsertedEvent:
		return fmt.Sprintf("%s inserted %q at %d", who(e.BaseModelEvent), e.Text, e.Index)
	case *realtime.TextDeletedEvent:
		return fmt.Sprintf("%s deleted %q at %d", who(e.BaseModelEvent), e.Text, e.Index)
	case *realtime.ReferenceShiftedEvent:
		return fmt.Sprintf("reference %s moved from %d to %d", e.Target.ID(), e.OldIndex, e.NewIndex)
	}
	return ""
}

// Execute runs a command typed by the user and returns a status line.
func (s *session) Execute(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	if s.bridge.IsClosed() {
		return "", realtime.ErrClosed
	}

	root := s.bridge.Model().Root()
	cmd, args := fields[0], fields[1:]

	// rest returns the input following the first n arguments, spaces included.
	rest := func(n int) string {
		text := strings.TrimSpace(line)
		for i := 0; i <= n; i++ {
			text = strings.TrimSpace(strings.TrimPrefix(text, fields[i]))
		}
		return text
	}

	switch cmd {
	case "set":
		if len(args) < 2 {
			return "", ErrUsage
		}
		value, err := parseValue(rest(1))
		if err != nil {
			return "", err
		}
		if err := root.Set(args[0], value); err != nil {
			return "", err
		}
		return "set " + args[0], nil

	case "del":
		if len(args) != 1 {
			return "", ErrUsage
		}
		if err := root.Delete(args[0]); err != nil {
			return "", err
		}
		return "deleted " + args[0], nil

	case "list":
		if len(args) < 1 {
			return "", ErrUsage
		}
		values := make([]any, 0, len(args)-1)
		for _, arg := range args[1:] {
			v, err := parseValue(arg)
			if err != nil {
				return "", err
			}
			values = append(values, v)
		}
		if err := s.compound(func() error {
			list, err := s.bridge.Model().CreateList(values...)
			if err != nil {
				return err
			}
			return root.Set(args[0], list)
		}); err != nil {
			return "", err
		}
		return "created list " + args[0], nil

	case "push":
		if len(args) < 2 {
			return "", ErrUsage
		}
		list, ok := root.Get(args[0]).(*realtime.List)
		if !ok {
			return "", ErrNotAList
		}
		value, err := parseValue(rest(1))
		if err != nil {
			return "", err
		}
		if err := list.Push(value); err != nil {
			return "", err
		}
		return fmt.Sprintf("pushed to %s", args[0]), nil

	case "pop":
		if len(args) != 1 {
			return "", ErrUsage
		}
		list, ok := root.Get(args[0]).(*realtime.List)
		if !ok {
			return "", ErrNotAList
		}
		if list.Length() == 0 {
			return args[0] + " is empty", nil
		}
		if err := list.Remove(list.Length() - 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("popped from %s", args[0]), nil

	case "text":
		if len(args) < 1 {
			return "", ErrUsage
		}
		text := rest(1)
		switch v := root.Get(args[0]).(type) {
		case *realtime.String:
			if err := v.SetText(text); err != nil {
				return "", err
			}
		case nil:
			if err := s.compound(func() error {
				str, err := s.bridge.Model().CreateString(text)
				if err != nil {
					return err
				}
				return root.Set(args[0], str)
			}); err != nil {
				return "", err
			}
		default:
			return "", ErrNotAString
		}
		return "updated " + args[0], nil

	case "insert":
		if len(args) < 2 {
			return "", ErrUsage
		}
		str, ok := root.Get(args[0]).(*realtime.String)
		if !ok {
			return "", ErrNotAString
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return "", err
		}
		if err := str.Insert(index, rest(2)); err != nil {
			return "", err
		}
		return "updated " + args[0], nil

	case "undo":
		if !s.bridge.CanUndo() {
			return "nothing to undo", nil
		}
		s.bridge.Undo()
		return "undone", nil

	case "redo":
		if !s.bridge.CanRedo() {
			return "nothing to redo", nil
		}
		s.bridge.Redo()
		return "redone", nil

	case "begin":
		s.bridge.Model().BeginCompoundOperation()
		return "compound operation started", nil

	case "end":
		if err := s.bridge.Model().EndCompoundOperation(); err != nil {
			return "", err
		}
		return "compound operation ended", nil

	case "snapshot":
		if len(args) != 1 {
			return "", ErrUsage
		}
		data, err := s.bridge.MarshalSnapshot()
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(args[0], data, 0644); err != nil { // skipcq: GSC-G306
			return "", err
		}
		return fmt.Sprintf("saved snapshot to %s (%d bytes)", args[0], len(data)), nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

// compound runs fn as a single undo unit.
func (s *session) compound(fn func() error) error {
	m := s.bridge.Model()
	m.BeginCompoundOperation()
	err := fn()
	if endErr := m.EndCompoundOperation(); err == nil {
		err = endErr
	}
	return err
}

// parseValue parses a JSON value. Anything that isn't valid JSON is taken as a string.
func parseValue(text string) (any, error) {
	if text == "" {
		return nil, ErrUsage
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return text, nil
	}
	return v, nil
}

// Receive applies a message from the server and returns a status line.
func (s *session) Receive(msg commons.Message) (string, error) {
	switch msg.Type {
	case commons.OperationMessage:
		if msg.Operation == nil {
			return "", nil
		}
		s.logger.Infof("REMOTE OPERATION from %s: %v", msg.Username, msg.Operation)

		s.lastErr = nil
		s.bridge.Consume(msg.Operation)
		if s.lastErr != nil {
			return "", s.lastErr
		}
		return "", nil

	case commons.JoinMessage:
		return fmt.Sprintf("%s has joined the session!", msg.Username), nil

	case commons.UsersMessage:
		s.users = msg.Users
		return "", nil

	case commons.ErrorMessage:
		return "", fmt.Errorf("server rejected operation: %s", msg.Text)
	}

	return "", nil
}

// Undo reverts the newest local change.
func (s *session) Undo() {
	s.bridge.Undo()
}

// Redo re-applies the newest undone change.
func (s *session) Redo() {
	s.bridge.Redo()
}

// Flush delivers pending document events.
func (s *session) Flush() {
	s.loop.RunUntilIdle()
}

// Wake is signalled when document events are waiting for Flush.
func (s *session) Wake() <-chan struct{} {
	return s.loop.Wake()
}

// Document returns what the UI displays.
func (s *session) Document() tui.Document {
	content, err := json.MarshalIndent(s.bridge.ToJSON(), "", "  ")
	if err != nil {
		content = []byte(err.Error())
	}

	return tui.Document{
		ID:       s.bridge.ID(),
		Username: s.username,
		Users:    s.users,
		Content:  string(content),
		Activity: s.activity,
		CanUndo:  s.bridge.CanUndo(),
		CanRedo:  s.bridge.CanRedo(),
		Objects:  s.bridge.Model().Len(),
		Bytes:    s.bridge.Model().BytesUsed(),
	}
}

// Close detaches the session from the bus and closes the document.
func (s *session) Close() {
	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	s.bridge.Close()
}
