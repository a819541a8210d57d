package operation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestInvert verifies that an inverted operation is reversed and drops creations.
func TestInvert(t *testing.T) {
	op := New("alice", "s1",
		Create{ID: "l1", SubType: SubTypeList},
		ListInsert{ID: "l1", Index: 0, Values: []any{"a", "b"}},
		MapSet{ID: "root", Key: "list", OldValue: nil, NewValue: Ref("l1")},
	)

	got := op.Invert()
	want := New("alice", "s1",
		MapSet{ID: "root", Key: "list", OldValue: Ref("l1"), NewValue: nil},
		ListDelete{ID: "l1", Index: 0, Values: []any{"a", "b"}},
	)

	if !cmp.Equal(got, want) {
		t.Errorf("got != want; diff = %v\n", cmp.Diff(got, want))
	}

	// The original must be left untouched.
	if op.Len() != 3 {
		t.Errorf("got != want; got = %v, expected = %v\n", op.Len(), 3)
	}
}

func TestInvertTwiceIsIdentity(t *testing.T) {
	components := []Component{
		MapSet{ID: "root", Key: "k", OldValue: 1.0, NewValue: "x"},
		ListReplace{ID: "l", Index: 2, OldValues: []any{true}, NewValues: []any{false}},
		StringInsert{ID: "s", Index: 3, Text: "héllo"},
		StringDelete{ID: "s", Index: 0, Text: "ab"},
		ReferenceShifted{ID: "r", ReferencedObject: "s", NewIndex: 4, OldIndex: 1, CanBeDeleted: true},
	}

	for _, c := range components {
		got := c.Invert().Invert()
		if !cmp.Equal(got, c) {
			t.Errorf("%s: got != want; diff = %v\n", c.Type(), cmp.Diff(got, c))
		}
	}
}

func TestConcat(t *testing.T) {
	a := New("alice", "s1", MapSet{ID: "root", Key: "a", NewValue: 1.0})
	b := New("alice", "s1", MapSet{ID: "root", Key: "b", NewValue: 2.0})

	got := Concat(a, b)
	if got.Len() != 2 {
		t.Fatalf("got != want; got = %v, expected = %v\n", got.Len(), 2)
	}
	if got.UserID != "alice" || got.SessionID != "s1" {
		t.Errorf("attribution lost: %+v", got)
	}

	if Concat() != nil {
		t.Errorf("expected nil for an empty concat")
	}
}

// TestOperationJSON verifies that operations survive the wire format.
func TestOperationJSON(t *testing.T) {
	op := New("bob", "s2",
		Create{ID: "m1", SubType: SubTypeMap},
		MapSet{ID: "m1", Key: "nested", NewValue: map[string]any{"a": []any{1.0, "two", nil}}},
		MapSet{ID: "root", Key: "child", OldValue: "old", NewValue: Ref("m1")},
		ListInsert{ID: "l1", Index: 1, Values: []any{Ref("m1"), nil, false}},
		ReferenceShifted{ID: "r1", ReferencedObject: "l1", NewIndex: 2, OldIndex: -1},
	)

	b, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}

	var got Operation
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("error: %v\n", err)
	}

	if !cmp.Equal(&got, op) {
		t.Errorf("got != want; diff = %v\n", cmp.Diff(&got, op))
	}
}

func TestDecodeComponent(t *testing.T) {
	tests := []struct {
		description string
		input       string
		want        Component
		wantErr     error
	}{
		{
			description: "create keeps unknown subtypes",
			input:       `{"type":"create","id":"x","subType":"WIDGET"}`,
			want:        Create{ID: "x", SubType: "WIDGET"},
		},
		{
			description: "map set with absent old value",
			input:       `{"type":"map","id":"root","key":"count","oldValue":null,"newValue":[1,5]}`,
			want:        MapSet{ID: "root", Key: "count", OldValue: nil, NewValue: 5.0},
		},
		{
			description: "string delete",
			input:       `{"type":"string_delete","id":"s","index":2,"text":"yo"}`,
			want:        StringDelete{ID: "s", Index: 2, Text: "yo"},
		},
		{
			description: "missing id",
			input:       `{"type":"map","key":"k"}`,
			wantErr:     ErrMalformedComponent,
		},
		{
			description: "unknown type",
			input:       `{"type":"teleport","id":"x"}`,
			wantErr:     ErrUnknownType,
		},
		{
			description: "bad value tag",
			input:       `{"type":"map","id":"root","key":"k","newValue":[7,1]}`,
			wantErr:     ErrMalformedValue,
		},
	}

	for _, tc := range tests {
		got, err := DecodeComponent([]byte(tc.input))
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("%s: got err = %v, expected = %v\n", tc.description, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: error: %v\n", tc.description, err)
			continue
		}
		if !cmp.Equal(got, tc.want) {
			t.Errorf("%s: got != want; diff = %v\n", tc.description, cmp.Diff(got, tc.want))
		}
	}
}

func TestDecodeComponents(t *testing.T) {
	cs := []Component{
		Create{ID: "root", SubType: SubTypeMap},
		Create{ID: "s", SubType: SubTypeString},
		StringInsert{ID: "s", Index: 0, Text: "hi"},
	}

	b, err := MarshalComponents(cs)
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}

	got, err := DecodeComponents(b)
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}
	if !cmp.Equal(got, cs) {
		t.Errorf("got != want; diff = %v\n", cmp.Diff(got, cs))
	}

	if _, err := DecodeComponents([]byte(`{"not":"an array"}`)); !errors.Is(err, ErrMalformedComponent) {
		t.Errorf("got err = %v, expected = %v\n", err, ErrMalformedComponent)
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("error: %v\n", err)
	}
	want := map[string]any{"a": 1.0}
	if !cmp.Equal(got, want) {
		t.Errorf("got != want; diff = %v\n", cmp.Diff(got, want))
	}

	ref, _ := Normalize(Ref("x"))
	if ref != Ref("x") {
		t.Errorf("got != want; got = %v, expected = %v\n", ref, Ref("x"))
	}

	if _, err := Normalize(func() {}); err == nil {
		t.Errorf("expected an error for a non-JSON value")
	}
}

func TestSize(t *testing.T) {
	c := Create{ID: "root", SubType: SubTypeMap}
	b, _ := MarshalComponent(c)
	if Size(c) != len(b) || Size(c) == 0 {
		t.Errorf("got != want; got = %v, expected = %v\n", Size(c), len(b))
	}
}
