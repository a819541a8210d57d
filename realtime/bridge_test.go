package realtime

import (
	"errors"
	"testing"

	"github.com/burntcarrot/rtdoc/operation"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const testDoc = "doc1"

// recordingSink keeps every operation forwarded by a bridge.
type recordingSink struct {
	ops    []*operation.Operation
	closed int
}

func (s *recordingSink) Consume(op *operation.Operation) { s.ops = append(s.ops, op) }
func (s *recordingSink) Close()                          { s.closed++ }

type testEnv struct {
	bridge *Bridge
	loop   *Loop
	bus    *LocalBus
	sink   *recordingSink
	errs   []*Error
}

func newTestEnv(t *testing.T, components ...operation.Component) *testEnv {
	t.Helper()

	env := &testEnv{loop: NewLoop(), sink: &recordingSink{}}
	env.bus = NewLocalBus(env.loop)
	store := NewStoreWithSession("alice", "local", env.bus)

	b, err := NewBridge(store, testDoc, components, func(e *Error) { env.errs = append(env.errs, e) })
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}
	b.SetOutputSink(env.sink)
	env.bridge = b
	return env
}

// newRootEnv returns an env with a root map and undo enabled.
func newRootEnv(t *testing.T) (*testEnv, *Map) {
	t.Helper()

	env := newTestEnv(t)
	env.bridge.SetUndoEnabled(true)
	root, err := env.bridge.CreateRoot()
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}
	return env, root
}

func remote(components ...operation.Component) *operation.Operation {
	return operation.New("bob", "remote", components...)
}

func assertJSON(t *testing.T, b *Bridge, want string) {
	t.Helper()

	got, err := b.MarshalJSON()
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}
	if !jsonpatch.Equal(got, []byte(want)) {
		t.Errorf("got != want; got = %s, expected = %s\n", got, want)
	}
}

// TestValueChanged verifies the event and the JSON render of a root map property.
func TestValueChanged(t *testing.T) {
	env := newTestEnv(t,
		operation.Create{ID: RootID, SubType: operation.SubTypeMap},
	)

	var events []*ValueChangedEvent
	env.bus.SubscribeLocal(EventAddr(EventValueChanged, testDoc), func(e any) {
		events = append(events, e.(*ValueChangedEvent))
	})

	if err := env.bridge.Model().Root().Set("count", 5); err != nil {
		t.Fatalf("error: %v\n", err)
	}

	// Notifications are deferred to the next turn.
	if len(events) != 0 {
		t.Fatalf("event delivered synchronously")
	}
	env.loop.RunUntilIdle()

	if len(events) != 1 {
		t.Fatalf("got != want; got = %v, expected = %v\n", len(events), 1)
	}
	got := events[0]
	if got.Property != "count" || got.OldValue != nil || got.NewValue != 5.0 {
		t.Errorf("unexpected event: %+v", got)
	}
	if !got.IsLocal || got.UserID != "alice" || got.SessionID != "local" || got.Target.ID() != RootID {
		t.Errorf("unexpected envelope: %+v", got.BaseModelEvent)
	}

	assertJSON(t, env.bridge, `{"count":5}`)
}

func TestRemoteEventIsNotLocal(t *testing.T) {
	env, _ := newRootEnv(t)

	var events []*ValueChangedEvent
	env.bus.SubscribeLocal(EventAddr(EventValueChanged, testDoc), func(e any) {
		events = append(events, e.(*ValueChangedEvent))
	})

	env.bridge.Consume(remote(operation.MapSet{ID: RootID, Key: "k", NewValue: "v"}))
	env.loop.RunUntilIdle()

	if len(events) != 1 || events[0].IsLocal || events[0].UserID != "bob" {
		t.Errorf("unexpected events: %+v", events)
	}

	// Remote operations are never forwarded.
	if len(env.sink.ops) != 1 {
		t.Errorf("got != want; got = %v, expected = %v\n", len(env.sink.ops), 1)
	}
}

func TestRegistrySize(t *testing.T) {
	env := newTestEnv(t)

	env.bridge.Consume(remote(
		operation.Create{ID: RootID, SubType: operation.SubTypeMap},
		operation.Create{ID: "l", SubType: operation.SubTypeList},
		operation.ListInsert{ID: "l", Index: 0, Values: []any{1.0, 2.0}},
		operation.Create{ID: "s", SubType: operation.SubTypeString},
		operation.StringInsert{ID: "s", Index: 0, Text: "abc"},
		operation.MapSet{ID: RootID, Key: "l", NewValue: operation.Ref("l")},
		operation.Create{ID: "r", SubType: operation.SubTypeIndexReference},
		operation.ReferenceShifted{ID: "r", ReferencedObject: "s", NewIndex: 1, OldIndex: -1},
	))

	if len(env.errs) != 0 {
		t.Fatalf("unexpected errors: %v", env.errs)
	}
	if env.bridge.Model().Len() != 4 {
		t.Errorf("got != want; got = %v, expected = %v\n", env.bridge.Model().Len(), 4)
	}

	want := 0
	for _, c := range []operation.Component{
		operation.Create{ID: RootID, SubType: operation.SubTypeMap},
		operation.Create{ID: "l", SubType: operation.SubTypeList},
		operation.Create{ID: "s", SubType: operation.SubTypeString},
		operation.Create{ID: "r", SubType: operation.SubTypeIndexReference},
	} {
		want += operation.Size(c) + 1
	}
	if env.bridge.Model().BytesUsed() != want {
		t.Errorf("got != want; got = %v, expected = %v\n", env.bridge.Model().BytesUsed(), want)
	}
}

// buildDocument fills a document with every object kind.
func buildDocument(t *testing.T, env *testEnv, root *Map) {
	t.Helper()

	m := env.bridge.Model()
	list, err := m.CreateList("a", 2, true, nil)
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}
	str, err := m.CreateString("héllo world")
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}
	child, err := m.CreateMap(map[string]any{"x": 1, "nested": map[string]any{"y": []int{1, 2}}})
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}
	ref, err := m.CreateIndexReference(str, 3, true)
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}

	for _, err := range []error{
		list.Push(child),
		root.Set("list", list),
		root.Set("text", str),
		root.Set("child", child),
		root.Set("cursor", ref),
		root.Set("title", "doc"),
		child.Set("back", root),
	} {
		if err != nil {
			t.Fatalf("error: %v\n", err)
		}
	}
}

// TestSnapshotRoundTrip verifies that a snapshot rebuilds an identical document.
func TestSnapshotRoundTrip(t *testing.T) {
	env, root := newRootEnv(t)
	buildDocument(t, env, root)

	data, err := env.bridge.MarshalSnapshot()
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}

	store := NewStoreWithSession("carol", "other", NewLocalBus(NewLoop()))
	copied, err := NewBridgeFromSnapshot(store, testDoc, data, nil)
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}

	if !cmp.Equal(copied.ToSnapshot(), env.bridge.ToSnapshot()) {
		t.Errorf("got != want; diff = %v\n", cmp.Diff(copied.ToSnapshot(), env.bridge.ToSnapshot()))
	}

	want, _ := env.bridge.MarshalJSON()
	assertJSON(t, copied, string(want))

	if copied.Model().Len() != env.bridge.Model().Len() {
		t.Errorf("got != want; got = %v, expected = %v\n", copied.Model().Len(), env.bridge.Model().Len())
	}
}

func TestSnapshotCreatesFirst(t *testing.T) {
	env, root := newRootEnv(t)
	buildDocument(t, env, root)

	snapshot := env.bridge.ToSnapshot()
	creates := env.bridge.Model().Len()
	for i, c := range snapshot {
		if (i < creates) != operation.IsCreate(c) {
			t.Fatalf("component %d (%s) out of place", i, c.Type())
		}
	}

	// Serialization is stable for an unchanged document.
	if !cmp.Equal(snapshot, env.bridge.ToSnapshot()) {
		t.Errorf("snapshot is not stable")
	}
}

func TestUndoRedoSymmetry(t *testing.T) {
	env, root := newRootEnv(t)
	buildDocument(t, env, root)

	before, _ := env.bridge.MarshalJSON()

	list := root.Get("list").(*List)
	if err := list.Set(0, map[string]any{"z": "new"}); err != nil {
		t.Fatalf("error: %v\n", err)
	}
	after, _ := env.bridge.MarshalJSON()

	env.bridge.Undo()
	assertJSON(t, env.bridge, string(before))

	env.bridge.Redo()
	assertJSON(t, env.bridge, string(after))

	if len(env.errs) != 0 {
		t.Errorf("unexpected errors: %v", env.errs)
	}
}

// TestUndoKeepsRemoteEdits verifies that undo only reverts the newest local batch.
func TestUndoKeepsRemoteEdits(t *testing.T) {
	env, root := newRootEnv(t)

	m := env.bridge.Model()
	m.BeginCompoundOperation()
	_ = root.Set("a", 1)
	_ = root.Set("b", 2)
	if err := m.EndCompoundOperation(); err != nil {
		t.Fatalf("error: %v\n", err)
	}

	env.bridge.Consume(remote(operation.MapSet{ID: RootID, Key: "r", NewValue: "remote"}))

	env.bridge.Undo()
	assertJSON(t, env.bridge, `{"r":"remote"}`)

	// The root creation is the next unit; undoing it leaves the registry untouched.
	if !env.bridge.CanUndo() {
		t.Errorf("expected the root creation to remain undoable")
	}
}

// TestPartialUndoIsForwarded verifies that when the inverse of a unit fails partway,
// the components applied before the failure still reach the output sink.
func TestPartialUndoIsForwarded(t *testing.T) {
	env, root := newRootEnv(t)
	m := env.bridge.Model()

	list, _ := m.CreateList()
	_ = root.Set("l", list)

	m.BeginCompoundOperation()
	_ = list.Push("x")
	_ = root.Set("a", 1)
	if err := m.EndCompoundOperation(); err != nil {
		t.Fatalf("error: %v\n", err)
	}

	// A peer removes "x" first; undoing the push can no longer apply.
	env.bridge.Consume(remote(operation.ListDelete{ID: list.ID(), Index: 0, Values: []any{"x"}}))
	sent := len(env.sink.ops)

	env.bridge.Undo()
	assertJSON(t, env.bridge, `{"l":[]}`)

	if len(env.errs) != 1 {
		t.Fatalf("got != want; got = %v, expected = %v\n", len(env.errs), 1)
	}
	if len(env.sink.ops) != sent+1 {
		t.Fatalf("got != want; got = %v, expected = %v\n", len(env.sink.ops), sent+1)
	}

	want := []operation.Component{operation.MapSet{ID: RootID, Key: "a", OldValue: 1.0}}
	if diff := cmp.Diff(env.sink.ops[sent].Components, want); diff != "" {
		t.Errorf("got != want; diff = %v\n", diff)
	}
}

func TestEachLocalEditIsAnUndoUnit(t *testing.T) {
	env, root := newRootEnv(t)

	_ = root.Set("a", 1)
	_ = root.Set("b", 2)

	env.bridge.Undo()
	assertJSON(t, env.bridge, `{"a":1}`)
	env.bridge.Undo()
	assertJSON(t, env.bridge, `{}`)
}

func TestRedoRecreation(t *testing.T) {
	env, root := newRootEnv(t)

	m := env.bridge.Model()
	m.BeginCompoundOperation()
	list, err := m.CreateList("x")
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}
	_ = root.Set("list", list)
	_ = m.EndCompoundOperation()

	env.bridge.Undo()
	assertJSON(t, env.bridge, `{}`)

	env.bridge.Redo()
	assertJSON(t, env.bridge, `{"list":["x"]}`)

	if len(env.errs) != 0 {
		t.Errorf("unexpected errors: %v", env.errs)
	}
}

func TestDisableUndo(t *testing.T) {
	env, root := newRootEnv(t)
	_ = root.Set("a", 1)
	if !env.bridge.CanUndo() {
		t.Fatalf("expected undo to be available")
	}

	env.bridge.SetUndoEnabled(false)
	if env.bridge.CanUndo() || env.bridge.CanRedo() {
		t.Errorf("undo state survived disabling")
	}

	env.bridge.Undo()
	env.bridge.Redo()
	assertJSON(t, env.bridge, `{"a":1}`)

	_ = root.Set("b", 2)
	if env.bridge.CanUndo() {
		t.Errorf("disabled undo recorded an operation")
	}
}

func TestUndoRedoStateChanged(t *testing.T) {
	env, root := newRootEnv(t)
	env.loop.RunUntilIdle()

	var events []UndoRedoStateChangedEvent
	env.bus.SubscribeLocal(EventAddr(EventUndoRedoStateChanged, testDoc), func(e any) {
		events = append(events, *e.(*UndoRedoStateChangedEvent))
	})

	_ = root.Set("a", 1) // already undoable thanks to the root creation: no event
	env.bridge.Undo()
	env.bridge.Undo()
	env.loop.RunUntilIdle()

	want := []UndoRedoStateChangedEvent{
		{CanUndo: true, CanRedo: true},
		{CanUndo: false, CanRedo: true},
	}
	if !cmp.Equal(events, want) {
		t.Errorf("got != want; diff = %v\n", cmp.Diff(events, want))
	}
}

func TestOutputSink(t *testing.T) {
	env, root := newRootEnv(t)
	_ = root.Set("a", 1)
	env.bridge.Undo()

	types := []operation.Type{}
	for _, op := range env.sink.ops {
		types = append(types, op.Components[0].Type())
	}
	want := []operation.Type{operation.TypeCreate, operation.TypeMapSet, operation.TypeMapSet}
	if !cmp.Equal(types, want) {
		t.Errorf("got != want; diff = %v\n", cmp.Diff(types, want))
	}

	for _, op := range env.sink.ops {
		if op.UserID != "alice" || op.SessionID != "local" {
			t.Errorf("unexpected attribution: %s", op)
		}
	}
}

func TestClose(t *testing.T) {
	env, root := newRootEnv(t)

	env.bridge.Close()
	env.bridge.Close()
	if env.sink.closed != 1 {
		t.Errorf("got != want; got = %v, expected = %v\n", env.sink.closed, 1)
	}

	if err := root.Set("a", 1); !errors.Is(err, ErrClosed) {
		t.Errorf("got err = %v, expected = %v\n", err, ErrClosed)
	}

	env.bridge.Consume(remote(operation.MapSet{ID: RootID, Key: "r", NewValue: 1.0}))
	if len(env.errs) != 1 || !errors.Is(env.errs[0], ErrClosed) {
		t.Errorf("unexpected errors: %v", env.errs)
	}
	assertJSON(t, env.bridge, `{}`)
}

// TestFailStop verifies that a failing component stops its operation but not the document.
func TestFailStop(t *testing.T) {
	env, _ := newRootEnv(t)

	op := remote(
		operation.MapSet{ID: RootID, Key: "a", NewValue: 1.0},
		operation.MapSet{ID: "missing", Key: "b", NewValue: 2.0},
		operation.MapSet{ID: RootID, Key: "c", NewValue: 3.0},
	)
	env.bridge.Consume(op)

	if len(env.errs) != 1 {
		t.Fatalf("got != want; got = %v, expected = %v\n", len(env.errs), 1)
	}
	got := env.errs[0]
	var unknown *UnknownObjectError
	if !errors.As(got, &unknown) || unknown.ID != "missing" {
		t.Errorf("unexpected error: %v", got)
	}
	if got.Index != 1 || got.Operation != op || got.DocumentID != testDoc {
		t.Errorf("unexpected error fields: %+v", got)
	}
	assertJSON(t, env.bridge, `{"a":1}`)

	env.bridge.Consume(remote(operation.MapSet{ID: RootID, Key: "d", NewValue: 4.0}))
	assertJSON(t, env.bridge, `{"a":1,"d":4}`)
}

func TestUnsupportedSubtype(t *testing.T) {
	env, _ := newRootEnv(t)

	env.bridge.Consume(remote(
		operation.Create{ID: "w", SubType: "WIDGET"},
		operation.MapSet{ID: RootID, Key: "a", NewValue: 1.0},
	))

	var unsupported *UnsupportedSubtypeError
	if len(env.errs) != 1 || !errors.As(env.errs[0], &unsupported) {
		t.Fatalf("unexpected errors: %v", env.errs)
	}
	if unsupported.SubType != "WIDGET" {
		t.Errorf("got != want; got = %v, expected = %v\n", unsupported.SubType, "WIDGET")
	}
	assertJSON(t, env.bridge, `{}`)
}

func TestMalformedComponents(t *testing.T) {
	env, _ := newRootEnv(t)

	for _, c := range []operation.Component{
		operation.ListInsert{ID: RootID, Index: 0, Values: []any{1.0}},
		operation.Create{ID: RootID, SubType: operation.SubTypeList},
		operation.MapSet{ID: RootID, Key: "a", NewValue: operation.Ref("nowhere")},
	} {
		env.bridge.Consume(remote(c))
	}

	if len(env.errs) != 3 {
		t.Fatalf("got != want; got = %v, expected = %v\n", len(env.errs), 3)
	}

	var malformed *MalformedComponentError
	var unknown *UnknownObjectError
	if !errors.As(env.errs[0], &malformed) || !errors.As(env.errs[1], &malformed) || !errors.As(env.errs[2], &unknown) {
		t.Errorf("unexpected errors: %v", env.errs)
	}
}

func TestMalformedSnapshot(t *testing.T) {
	store := NewStoreWithSession("alice", "local", NewLocalBus(NewLoop()))

	_, err := NewBridge(store, testDoc, []operation.Component{
		operation.Create{ID: RootID, SubType: operation.SubTypeMap},
		operation.StringInsert{ID: "s", Index: 0, Text: "early"},
		operation.Create{ID: "s", SubType: operation.SubTypeString},
	}, nil)

	var malformed *MalformedSnapshotError
	if !errors.As(err, &malformed) {
		t.Fatalf("got err = %v, expected a MalformedSnapshotError\n", err)
	}
	if malformed.Index != 1 {
		t.Errorf("got != want; got = %v, expected = %v\n", malformed.Index, 1)
	}
	var unknown *UnknownObjectError
	if !errors.As(err, &unknown) {
		t.Errorf("cause lost: %v", err)
	}

	_, err = NewBridgeFromSnapshot(store, testDoc, []byte(`[{"type":"bogus","id":"x"}]`), nil)
	if !errors.As(err, &malformed) || malformed.Index != -1 {
		t.Errorf("got err = %v, expected a decoding MalformedSnapshotError\n", err)
	}
}

// TestHugeIndexSnapshot verifies that indices near the int limit are rejected
// instead of overflowing the range checks.
func TestHugeIndexSnapshot(t *testing.T) {
	store := NewStoreWithSession("alice", "local", NewLocalBus(NewLoop()))

	tests := []struct {
		name     string
		snapshot string
	}{
		{"list delete", `[{"type":"create","id":"l","subType":"LIST"},{"type":"list_delete","id":"l","index":9223372036854775807,"values":[[1,1]]}]`},
		{"list replace", `[{"type":"create","id":"l","subType":"LIST"},{"type":"list_replace","id":"l","index":9223372036854775807,"oldValues":[[1,1]],"newValues":[[1,2]]}]`},
		{"string delete", `[{"type":"create","id":"s","subType":"STRING"},{"type":"string_delete","id":"s","index":9223372036854775807,"text":"x"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBridgeFromSnapshot(store, testDoc, []byte(tt.snapshot), nil)

			var malformed *MalformedSnapshotError
			if !errors.As(err, &malformed) {
				t.Fatalf("got err = %v, expected a MalformedSnapshotError\n", err)
			}
			if malformed.Index != 1 {
				t.Errorf("got != want; got = %v, expected = %v\n", malformed.Index, 1)
			}
			var component *MalformedComponentError
			if !errors.As(err, &component) {
				t.Errorf("got err = %v, expected a MalformedComponentError cause\n", err)
			}
		})
	}
}

func TestNilStore(t *testing.T) {
	if _, err := NewBridge(nil, testDoc, nil, nil); !errors.Is(err, ErrNilStore) {
		t.Errorf("got err = %v, expected = %v\n", err, ErrNilStore)
	}
}

func TestListEvents(t *testing.T) {
	env, root := newRootEnv(t)
	list, _ := env.bridge.Model().CreateList(1, 2, 3)
	_ = root.Set("list", list)

	var added, removed, set int
	env.bus.SubscribeLocal(EventAddr(EventValuesAdded, testDoc), func(any) { added++ })
	env.bus.SubscribeLocal(EventAddr(EventValuesRemoved, testDoc), func(any) { removed++ })
	env.bus.SubscribeLocal(EventAddr(EventValuesSet, testDoc), func(any) { set++ })

	_ = list.Insert(1, "x")
	_ = list.Remove(0)
	_ = list.Set(0, "y")
	env.loop.RunUntilIdle()

	if added != 1 || removed != 1 || set != 1 {
		t.Errorf("got added=%d removed=%d set=%d", added, removed, set)
	}

	want := []any{"y", 2.0, 3.0}
	if !cmp.Equal(list.Values(), want) {
		t.Errorf("got != want; diff = %v\n", cmp.Diff(list.Values(), want))
	}

	if err := list.Insert(10, "z"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("got err = %v, expected = %v\n", err, ErrIndexOutOfRange)
	}
}

func TestStringSetText(t *testing.T) {
	env, root := newRootEnv(t)
	str, _ := env.bridge.Model().CreateString("the quick fox")
	_ = root.Set("text", str)

	if err := str.SetText("the slow brown fox!"); err != nil {
		t.Fatalf("error: %v\n", err)
	}
	if str.Text() != "the slow brown fox!" {
		t.Errorf("got != want; got = %v, expected = %v\n", str.Text(), "the slow brown fox!")
	}

	// The whole replacement is a single undo unit.
	env.bridge.Undo()
	if str.Text() != "the quick fox" {
		t.Errorf("got != want; got = %v, expected = %v\n", str.Text(), "the quick fox")
	}
}

func TestIndexReferenceShift(t *testing.T) {
	env, _ := newRootEnv(t)
	m := env.bridge.Model()

	str, _ := m.CreateString("hello")
	sticky, _ := m.CreateIndexReference(str, 2, false)
	fragile, _ := m.CreateIndexReference(str, 2, true)

	_ = str.Insert(0, "ab") // "abhello"
	if sticky.Index() != 4 || fragile.Index() != 4 {
		t.Fatalf("got %d and %d, expected 4", sticky.Index(), fragile.Index())
	}

	_ = str.RemoveRange(3, 6) // "abho"
	if sticky.Index() != 3 {
		t.Errorf("got != want; got = %v, expected = %v\n", sticky.Index(), 3)
	}
	if fragile.Index() != -1 {
		t.Errorf("got != want; got = %v, expected = %v\n", fragile.Index(), -1)
	}

	if sticky.ReferencedObject() != CollaborativeObject(str) {
		t.Errorf("unexpected referenced object")
	}

	if err := sticky.SetIndex(0); err != nil || sticky.Index() != 0 {
		t.Errorf("SetIndex failed: %v", err)
	}

	list, _ := m.CreateList()
	if _, err := m.CreateIndexReference(list, 0, false); err != nil {
		t.Errorf("error: %v\n", err)
	}
	if _, err := m.CreateIndexReference(m.Root(), 0, false); err == nil {
		t.Errorf("expected an error for a map target")
	}
}

func TestIndexReferenceRange(t *testing.T) {
	env, _ := newRootEnv(t)
	m := env.bridge.Model()

	str, _ := m.CreateString("abc")
	if _, err := m.CreateIndexReference(str, 4, false); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("got err = %v, expected = %v\n", err, ErrIndexOutOfRange)
	}

	ref, err := m.CreateIndexReference(str, 3, false)
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}
	sent := len(env.sink.ops)

	for _, index := range []int{-1, 4, 100} {
		if err := ref.SetIndex(index); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("SetIndex(%d): got err = %v, expected = %v\n", index, err, ErrIndexOutOfRange)
		}
	}
	if ref.Index() != 3 || len(env.sink.ops) != sent {
		t.Errorf("got != want; got = %v, expected the reference to stay at 3 with nothing sent\n", ref.Index())
	}

	// The end position follows later appends.
	_ = str.Append("d")
	if ref.Index() != 4 {
		t.Errorf("got != want; got = %v, expected = %v\n", ref.Index(), 4)
	}
}

func TestMapAccessors(t *testing.T) {
	env, root := newRootEnv(t)
	_ = root.Set("b", "x")
	_ = root.Set("a", []string{"p", "q"})

	if !cmp.Equal(root.Keys(), []string{"a", "b"}) {
		t.Errorf("unexpected keys: %v", root.Keys())
	}
	if !root.Has("a") || root.Has("zz") || root.Size() != 2 {
		t.Errorf("unexpected map state: %v", env.bridge)
	}
	if !cmp.Equal(root.Get("a"), []any{"p", "q"}, cmpopts.EquateEmpty()) {
		t.Errorf("got != want; diff = %v\n", cmp.Diff(root.Get("a"), []any{"p", "q"}))
	}

	if err := root.Clear(); err != nil {
		t.Fatalf("error: %v\n", err)
	}
	assertJSON(t, env.bridge, `{}`)

	env.bridge.Undo()
	assertJSON(t, env.bridge, `{"a":["p","q"],"b":"x"}`)
}

func TestToJSONWithoutRoot(t *testing.T) {
	env := newTestEnv(t)
	if env.bridge.String() != "null" {
		t.Errorf("got != want; got = %v, expected = %v\n", env.bridge.String(), "null")
	}
}
