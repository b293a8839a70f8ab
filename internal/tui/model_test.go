package tui

import (
	"context"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/dragchat/internal/domain"
	"github.com/pbaille/dragchat/internal/session"
)

func newTestModel(t *testing.T) (Model, *session.Session, *clockwork.FakeClock) {
	t.Helper()
	c := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := session.New(session.Options{Clock: c, Logger: zerolog.Nop()})
	t.Cleanup(func() { s.Close() })

	model := NewModel(s)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model), s, c
}

// seed submits texts without replies and returns their ids
func seed(t *testing.T, model Model, s *session.Session, texts ...string) (Model, []string) {
	t.Helper()
	var ids []string
	for _, text := range texts {
		sub, err := s.SubmitUserText(context.Background(), text)
		require.NoError(t, err)
		sub.Reply.Cancel()
		ids = append(ids, sub.Entry.ID)
	}
	updated, _ := model.Update(revisionMsg(s.State().Revision))
	return updated.(Model), ids
}

func textsOf(list []domain.Entry) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.Text
	}
	return out
}

func send(model Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		updated, _ := model.Update(msg)
		model = updated.(Model)
	}
	return model
}

func TestModelSubmitFromInput(t *testing.T) {
	model, s, c := newTestModel(t)

	model = send(model,
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")},
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	require.Len(t, s.Entries(), 1)
	assert.Equal(t, "hi", s.Entries()[0].Text)
	assert.Equal(t, "", model.input.Value())
	assert.Contains(t, model.View(), "you: hi")

	c.Advance(time.Second)
	require.Eventually(t, func() bool { return len(s.Entries()) == 2 }, 5*time.Second, 5*time.Millisecond)
	model = send(model, revisionMsg(2))
	assert.Contains(t, model.View(), "bot: Bot reply to: hi")
}

func TestModelBlankSubmitIgnored(t *testing.T) {
	model, s, _ := newTestModel(t)
	send(model,
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("   ")},
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	assert.Empty(t, s.Entries())
}

func TestModelMouseDrag(t *testing.T) {
	model, s, _ := newTestModel(t)
	model, ids := seed(t, model, s, "A", "B", "C")
	before := s.State().Revision

	model = send(model,
		tea.MouseMsg{X: 5, Y: listTop + 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft},
		tea.MouseMsg{X: 5, Y: listTop + 1, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft},
		tea.MouseMsg{X: 5, Y: listTop, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft},
	)
	assert.Equal(t, domain.GestureState{MovedID: ids[2], HoverID: ids[0]}, s.Gesture())
	assert.Equal(t, before, s.State().Revision, "motion must not reorder")

	model = send(model, tea.MouseMsg{X: 5, Y: listTop, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	assert.Equal(t, []string{"C", "A", "B"}, textsOf(s.Entries()))
	assert.Equal(t, []string{"C", "A", "B"}, textsOf(model.entries))
	assert.False(t, s.Gesture().Active())
	assert.Equal(t, 0, model.cursor)
}

func TestModelMouseReleaseOutsideList(t *testing.T) {
	model, s, _ := newTestModel(t)
	model, _ = seed(t, model, s, "A", "B")
	before := s.State()

	send(model,
		tea.MouseMsg{Y: listTop, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft},
		tea.MouseMsg{Y: 22, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft},
		tea.MouseMsg{Y: 22, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft},
	)
	assert.Equal(t, before, s.State())
	assert.False(t, s.Gesture().Active())
}

func TestModelPressOnEmptyRowDoesNotStartDrag(t *testing.T) {
	model, s, _ := newTestModel(t)
	model, _ = seed(t, model, s, "A")
	send(model, tea.MouseMsg{Y: listTop + 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.False(t, s.Gesture().Active())
}

func TestModelKeyboardDrag(t *testing.T) {
	model, s, _ := newTestModel(t)
	model, ids := seed(t, model, s, "A", "B", "C")

	model = send(model,
		tea.KeyMsg{Type: tea.KeyTab},
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}},
	)
	require.Equal(t, ids[2], s.Gesture().MovedID)

	model = send(model,
		tea.KeyMsg{Type: tea.KeyUp},
		tea.KeyMsg{Type: tea.KeyUp},
	)
	assert.Equal(t, ids[0], s.Gesture().HoverID)

	model = send(model, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.Equal(t, []string{"C", "A", "B"}, textsOf(s.Entries()))
	assert.Equal(t, 0, model.cursor)
}

func TestModelEscCancelsDrag(t *testing.T) {
	model, s, _ := newTestModel(t)
	model, _ = seed(t, model, s, "A", "B")
	before := s.State()

	model = send(model,
		tea.KeyMsg{Type: tea.KeyTab},
		tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}},
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyEsc},
	)
	assert.False(t, s.Gesture().Active())
	assert.Equal(t, focusList, model.focus)

	model = send(model, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, focusInput, model.focus)
	assert.Equal(t, before, s.State())
}

func TestModelRowAtWithScroll(t *testing.T) {
	model, s, _ := newTestModel(t)
	model = send(model, tea.WindowSizeMsg{Width: 80, Height: chrome + 2})
	model, _ = seed(t, model, s, "A", "B", "C", "D")

	model.cursor = 3
	model.ensureCursorVisible()
	assert.Equal(t, 2, model.offset)
	assert.Equal(t, 2, model.rowAt(listTop))
	assert.Equal(t, 3, model.rowAt(listTop+1))
	assert.Equal(t, -1, model.rowAt(listTop+2))
	assert.Equal(t, -1, model.rowAt(0))
}

func TestModelQuitWhenSessionCloses(t *testing.T) {
	model, _, _ := newTestModel(t)
	_, cmd := model.Update(watchClosedMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "a b", Truncate("a\nb", 10))

	cut := Truncate("héllo wörld ünïcode", 10)
	assert.Equal(t, "héllo w...", cut)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, "日本語のテ...", Truncate("日本語のテキストです", 8))
}
