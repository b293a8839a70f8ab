package gesture

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/dragchat/internal/domain"
)

type call struct{ moved, target string }

type fakeStore struct {
	calls  []call
	result bool
}

func (f *fakeStore) Reorder(moved, target string) bool {
	f.calls = append(f.calls, call{moved, target})
	return f.result
}

func newTracker() (*Tracker, *fakeStore) {
	store := &fakeStore{result: true}
	return New(store, zerolog.Nop()), store
}

func TestTrackerSuccessfulGesture(t *testing.T) {
	tr, store := newTracker()

	tr.Start("c")
	assert.True(t, tr.Dragging())
	assert.Equal(t, domain.GestureState{MovedID: "c"}, tr.State())

	tr.Move("b")
	tr.Move("")
	tr.Move("a")
	assert.Equal(t, domain.GestureState{MovedID: "c", HoverID: "a"}, tr.State())
	assert.Empty(t, store.calls, "move must not touch the store")

	assert.True(t, tr.End("a"))
	assert.Equal(t, []call{{"c", "a"}}, store.calls)
	assert.Equal(t, domain.GestureState{}, tr.State())
	assert.False(t, tr.Dragging())
}

func TestTrackerManyMovesSingleCommit(t *testing.T) {
	tr, store := newTracker()
	tr.Start("x")
	for i := 0; i < 100; i++ {
		tr.Move("y")
		tr.Move("z")
	}
	tr.End("z")
	assert.Len(t, store.calls, 1)
}

func TestTrackerEndWithoutCommit(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		target string
	}{
		{"over nothing", "a", ""},
		{"over itself", "a", "a"},
		{"never started", "", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, store := newTracker()
			tr.Start(tt.start)
			tr.Move("b")
			assert.False(t, tr.End(tt.target))
			assert.Empty(t, store.calls)
			assert.Equal(t, domain.GestureState{}, tr.State())
		})
	}
}

func TestTrackerEndReportsStoreNoOp(t *testing.T) {
	tr, store := newTracker()
	store.result = false
	tr.Start("a")
	assert.False(t, tr.End("gone"))
	require.Len(t, store.calls, 1)
	assert.False(t, tr.Dragging())
}

func TestTrackerMoveWhileIdleIgnored(t *testing.T) {
	tr, _ := newTracker()
	tr.Move("a")
	assert.Equal(t, domain.GestureState{}, tr.State())
}

func TestTrackerRestartAndCancel(t *testing.T) {
	tr, store := newTracker()
	tr.Start("a")
	tr.Move("b")
	tr.Start("c")
	assert.Equal(t, domain.GestureState{MovedID: "c"}, tr.State())

	tr.Cancel()
	assert.False(t, tr.Dragging())
	assert.False(t, tr.End("b"))
	assert.Empty(t, store.calls)
}
