package realtime

import (
	"fmt"
	"unicode/utf8"

	"github.com/burntcarrot/rtdoc/operation"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// String is a collaborative string. Indices count runes.
type String struct {
	object
	text []rune
}

func newString(m *Model, id string) *String {
	return &String{object: object{model: m, id: id}}
}

func (s *String) SubType() operation.SubType { return operation.SubTypeString }

// Text returns the current text.
func (s *String) Text() string {
	return string(s.text)
}

// Length returns the number of runes.
func (s *String) Length() int {
	return len(s.text)
}

func (s *String) length() int {
	return len(s.text)
}

// Insert inserts text at index.
func (s *String) Insert(index int, text string) error {
	if index < 0 || index > len(s.text) {
		return fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, index, len(s.text))
	}
	if text == "" {
		return nil
	}
	return s.model.bridge.consumeAndSubmit(operation.StringInsert{ID: s.id, Index: index, Text: text})
}

// Append inserts text at the end.
func (s *String) Append(text string) error {
	return s.Insert(len(s.text), text)
}

// RemoveRange removes the runes in [start, end).
func (s *String) RemoveRange(start, end int) error {
	if start < 0 || end > len(s.text) || start > end {
		return fmt.Errorf("%w: [%d, %d) (length %d)", ErrIndexOutOfRange, start, end, len(s.text))
	}
	if start == end {
		return nil
	}
	return s.model.bridge.consumeAndSubmit(operation.StringDelete{ID: s.id, Index: start, Text: string(s.text[start:end])})
}

// SetText replaces the text with the minimal sequence of insertions and deletions,
// submitted as a single undo unit.
func (s *String) SetText(text string) error {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(s.text), text, false)

	s.model.BeginCompoundOperation()
	defer s.model.EndCompoundOperation()

	index := 0
	for _, diff := range diffs {
		n := utf8.RuneCountInString(diff.Text)
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			index += n
		case diffmatchpatch.DiffInsert:
			if err := s.Insert(index, diff.Text); err != nil {
				return err
			}
			index += n
		case diffmatchpatch.DiffDelete:
			if err := s.RemoveRange(index, index+n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *String) consume(userID, sessionID string, c operation.Component) error {
	switch c := c.(type) {
	case operation.StringInsert:
		if c.Index < 0 || c.Index > len(s.text) {
			return s.malformed(c, "insert index %d out of range (length %d)", c.Index, len(s.text))
		}

		inserted := []rune(c.Text)
		text := make([]rune, 0, len(s.text)+len(inserted))
		text = append(text, s.text[:c.Index]...)
		text = append(text, inserted...)
		s.text = append(text, s.text[c.Index:]...)

		s.fire(EventTextInserted, &TextInsertedEvent{
			BaseModelEvent: s.baseEvent(EventTextInserted, s, userID, sessionID),
			Index:          c.Index,
			Text:           c.Text,
		})
		s.model.shiftReferences(s.id, c.Index, len(inserted), userID, sessionID)

	case operation.StringDelete:
		n := utf8.RuneCountInString(c.Text)
		if c.Index < 0 || c.Index > len(s.text)-n {
			return s.malformed(c, "delete of %d rune(s) at %d out of range (length %d)", n, c.Index, len(s.text))
		}
		end := c.Index + n

		removed := string(s.text[c.Index:end])
		s.text = append(s.text[:c.Index], s.text[end:]...)

		s.fire(EventTextDeleted, &TextDeletedEvent{
			BaseModelEvent: s.baseEvent(EventTextDeleted, s, userID, sessionID),
			Index:          c.Index,
			Text:           removed,
		})
		s.model.shiftReferences(s.id, c.Index, c.Index-end, userID, sessionID)

	default:
		return s.malformed(c, "not a string component")
	}

	return nil
}

func (s *String) malformed(c operation.Component, format string, args ...any) error {
	return &MalformedComponentError{ID: s.id, Type: c.Type(), Reason: fmt.Sprintf(format, args...)}
}

func (s *String) toInitialization() []operation.Component {
	components := []operation.Component{operation.Create{ID: s.id, SubType: operation.SubTypeString}}
	if len(s.text) > 0 {
		components = append(components, operation.StringInsert{ID: s.id, Index: 0, Text: string(s.text)})
	}
	return components
}

func (s *String) toJSON(map[string]bool) any {
	return string(s.text)
}
