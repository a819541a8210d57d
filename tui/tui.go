// Package tui is a terminal inspector for a shared document. Edits are typed as
// commands at a prompt.
package tui

import (
	"fmt"
	"strings"

	"github.com/burntcarrot/rtdoc/commons"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Document is the state of a session shown by the UI.
type Document struct {
	ID       string
	Username string
	Users    []string
	Content  string
	Activity []string
	CanUndo  bool
	CanRedo  bool
	Objects  int
	Bytes    int
}

// Session is the document the UI drives. Its methods are only called from the UI goroutine.
type Session interface {
	Execute(line string) (string, error)
	Receive(msg commons.Message) (string, error)
	Undo()
	Redo()

	// Flush delivers pending document events.
	Flush()

	// Wake is signalled when events are waiting for Flush.
	Wake() <-chan struct{}
	Document() Document
}

// RemoteMsg carries a message received from the server.
type RemoteMsg struct {
	Message commons.Message
}

// DisconnectedMsg is sent once the connection to the server is gone.
type DisconnectedMsg struct{}

// wakeMsg asks the model to flush pending document events.
type wakeMsg struct{}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	activityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// activityLines is the number of activity lines shown under the document.
const activityLines = 5

// Model is the bubbletea model of the inspector.
type Model struct {
	session  Session
	input    textinput.Model
	viewport viewport.Model

	status       string
	err          error
	disconnected bool
	Quitting     bool
}

// New returns the inspector of s.
func New(s Session) Model {
	ti := textinput.New()
	ti.Placeholder = "set title \"hello\""
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = 60

	m := Model{
		session:  s,
		input:    ti,
		viewport: viewport.New(80, 20),
	}
	m.refresh()

	return m
}

// Run starts the inspector and feeds it the messages received on msgChan.
func Run(s Session, msgChan <-chan commons.Message) error {
	p := tea.NewProgram(New(s), tea.WithAltScreen())

	go func() {
		for msg := range msgChan {
			p.Send(RemoteMsg{Message: msg})
		}
		p.Send(DisconnectedMsg{})
	}()

	go func() {
		for range s.Wake() {
			p.Send(wakeMsg{})
		}
	}()

	return p.Start()
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = maxInt(msg.Height-activityLines-5, 3)
		m.input.Width = maxInt(msg.Width-4, 10)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		case "ctrl+z":
			m.session.Undo()
			m.setResult("undone", nil)
		case "ctrl+y":
			m.session.Redo()
			m.setResult("redone", nil)
		case "enter":
			line := m.input.Value()
			m.input.Reset()
			if m.disconnected {
				m.setResult("", fmt.Errorf("disconnected from server"))
				break
			}
			m.setResult(m.session.Execute(line))
		case "pgup", "pgdown":
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case RemoteMsg:
		status, err := m.session.Receive(msg.Message)
		if status != "" || err != nil {
			m.setResult(status, err)
		}

	case DisconnectedMsg:
		m.disconnected = true
		m.setResult("", fmt.Errorf("disconnected from server"))
	}

	m.session.Flush()
	m.refresh()

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) setResult(status string, err error) {
	m.status = status
	m.err = err
}

// refresh renders the document into the viewport.
func (m *Model) refresh() {
	m.viewport.SetContent(m.session.Document().Content)
}

func (m Model) header(doc Document) string {
	title := titleStyle.Render(fmt.Sprintf("rtdoc: %s", doc.ID))

	var flags []string
	if doc.CanUndo {
		flags = append(flags, "undo")
	}
	if doc.CanRedo {
		flags = append(flags, "redo")
	}

	info := fmt.Sprintf("%s | users: %s | %d object(s), %d bytes | %s",
		doc.Username, strings.Join(doc.Users, ", "), doc.Objects, doc.Bytes, strings.Join(flags, " "))
	return title + "  " + statusStyle.Render(info)
}

func (m Model) footer(doc Document) string {
	activity := doc.Activity
	if len(activity) > activityLines {
		activity = activity[len(activity)-activityLines:]
	}

	var b strings.Builder
	for _, line := range activity {
		b.WriteString(activityStyle.Render(line))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
	} else {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("(ctrl+z undo, ctrl+y redo, esc to quit)"))

	return b.String()
}

func (m Model) View() string {
	if m.Quitting {
		return "\n  See you later!\n\n"
	}

	doc := m.session.Document()
	return fmt.Sprintf("%s\n\n%s\n\n%s\n", m.header(doc), m.viewport.View(), m.footer(doc))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
