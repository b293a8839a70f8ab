// Package tui is a terminal front end for a session. Entries can be
// reordered with the mouse (press, drag, release) or from the keyboard
// (space to pick up, arrows to hover, space to drop).
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pbaille/dragchat/internal/domain"
	"github.com/pbaille/dragchat/internal/session"
)

// listTop is the screen row of the first entry, below the title
const listTop = 1

// chrome is the number of rows not used by the list: title, spacer,
// input and help
const chrome = 4

type focusRegion int

const (
	focusInput focusRegion = iota
	focusList
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	movedStyle    = lipgloss.NewStyle().Background(lipgloss.Color("1")).Foreground(lipgloss.Color("15"))
	hoverStyle    = lipgloss.NewStyle().Background(lipgloss.Color("4")).Foreground(lipgloss.Color("15"))
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	producerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Faint(true)
	caretStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

// revisionMsg is delivered after the session commits a mutation
type revisionMsg uint64

type watchClosedMsg struct{}

// Model is the bubbletea model for one session
type Model struct {
	session *session.Session
	watch   <-chan uint64
	input   textinput.Model
	keys    keyMap

	focus   focusRegion
	entries []domain.Entry
	cursor  int
	offset  int
	width   int
	height  int
	status  string
}

// NewModel creates a Model over s
func NewModel(s *session.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.Prompt = "> "
	ti.Focus()

	return Model{
		session: s,
		watch:   s.Watch(),
		input:   ti,
		keys:    defaultKeys(),
		entries: s.Entries(),
		height:  24,
		width:   80,
	}
}

func listenForRevision(ch <-chan uint64) tea.Cmd {
	return func() tea.Msg {
		rev, ok := <-ch
		if !ok {
			return watchClosedMsg{}
		}
		return revisionMsg(rev)
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listenForRevision(m.watch))
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		m.ensureCursorVisible()
		return m, nil

	case revisionMsg:
		m.refresh()
		return m, listenForRevision(m.watch)

	case watchClosedMsg:
		return m, tea.Quit

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.Focus) {
			m.toggleFocus()
			return m, nil
		}
		if m.focus == focusList {
			m.handleListKeys(msg)
			return m, nil
		}
		return m.handleInputKeys(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusList
		m.input.Blur()
		return
	}
	m.session.CancelDrag()
	m.focus = focusInput
	m.input.Focus()
}

func (m Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		text := m.input.Value()
		sub, err := m.session.SubmitUserText(context.Background(), text)
		switch {
		case err != nil:
			m.status = err.Error()
		case sub != nil:
			m.input.Reset()
			m.status = ""
			m.refresh()
			m.cursor = len(m.entries) - 1
			m.ensureCursorVisible()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleListKeys(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.hoverCursor()

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
		m.hoverCursor()

	case key.Matches(msg, m.keys.PickDrop):
		id := m.idAt(m.cursor)
		if !m.session.Gesture().Active() {
			m.session.BeginDrag(id)
			m.session.UpdateDragOver(id)
			return
		}
		moved := m.session.Gesture().MovedID
		m.session.EndDrag(id)
		m.refresh()
		m.selectID(moved)

	case key.Matches(msg, m.keys.CancelEsc):
		if m.session.Gesture().Active() {
			m.session.CancelDrag()
			return
		}
		m.toggleFocus()
	}
	m.ensureCursorVisible()
}

func (m *Model) hoverCursor() {
	if m.session.Gesture().Active() {
		m.session.UpdateDragOver(m.idAt(m.cursor))
	}
}

// handleMouse maps a left-button press, drag and release onto the
// gesture calls. Only the release can reorder.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	row := m.rowAt(msg.Y)
	id := m.idAt(row)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || id == "" {
			return
		}
		m.session.BeginDrag(id)
		m.cursor = row

	case tea.MouseActionMotion:
		if m.session.Gesture().Active() {
			m.session.UpdateDragOver(id)
		}

	case tea.MouseActionRelease:
		if !m.session.Gesture().Active() {
			return
		}
		moved := m.session.Gesture().MovedID
		m.session.EndDrag(id)
		m.refresh()
		m.selectID(moved)
	}
}

// rowAt returns the entry index displayed at screen row y, or -1
func (m Model) rowAt(y int) int {
	i := y - listTop
	if i < 0 || i >= m.visibleRows() {
		return -1
	}
	i += m.offset
	if i >= len(m.entries) {
		return -1
	}
	return i
}

func (m Model) idAt(i int) string {
	if i < 0 || i >= len(m.entries) {
		return ""
	}
	return m.entries[i].ID
}

func (m *Model) selectID(id string) {
	for i, e := range m.entries {
		if e.ID == id {
			m.cursor = i
			break
		}
	}
	m.ensureCursorVisible()
}

func (m *Model) refresh() {
	m.entries = m.session.Entries()
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) visibleRows() int {
	n := m.height - chrome
	if n < 1 {
		return 1
	}
	return n
}

func (m *Model) ensureCursorVisible() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View implements tea.Model
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("dragchat"))
	sb.WriteString("\n")

	g := m.session.Gesture()
	rows := m.visibleRows()
	for i := m.offset; i < len(m.entries) && i < m.offset+rows; i++ {
		sb.WriteString(m.renderEntry(i, g))
		sb.WriteString("\n")
	}
	for i := len(m.entries) - m.offset; i < rows; i++ {
		sb.WriteString("\n")
	}

	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(m.footer()))
	return sb.String()
}

func (m Model) renderEntry(i int, g domain.GestureState) string {
	e := m.entries[i]

	caret := "  "
	if m.focus == focusList && i == m.cursor {
		caret = caretStyle.Render("› ")
	}

	who := "you"
	style := userStyle
	if e.Origin == domain.OriginProducer {
		who = "bot"
		style = producerStyle
	}

	line := Truncate(fmt.Sprintf("%2d. %s: %s", e.Position, who, e.Text), m.width-2)

	switch e.ID {
	case g.MovedID:
		style = movedStyle
	case g.HoverID:
		style = hoverStyle
	}
	return caret + style.Render(line)
}

// Truncate flattens newlines and cuts s to at most max runes, marking
// the cut with "...".
func Truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func (m Model) footer() string {
	if m.status != "" {
		return m.status
	}
	if m.session.Gesture().Active() {
		return "dragging: move to a message and drop (space or release), esc to cancel"
	}
	if m.focus == focusList {
		return "↑/↓ select • space pick up • tab input • ctrl+c quit"
	}
	return "enter send • tab reorder • drag with the mouse • ctrl+c quit"
}

// Run starts an interactive program over s and blocks until it exits
func Run(s *session.Session) error {
	program := tea.NewProgram(NewModel(s), tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
