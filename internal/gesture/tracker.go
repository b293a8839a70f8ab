// Package gesture tracks an in-progress drag over the entry list.
//
// The tracker only holds provisional state (what is being dragged and
// what it hovers over). The entry collection is touched exactly once
// per gesture, when the gesture ends over a different entry.
package gesture

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/pbaille/dragchat/internal/domain"
)

// Reorderer commits a finished gesture
type Reorderer interface {
	Reorder(movedID, targetID string) bool
}

// Tracker is the Idle/Dragging state machine. It is safe for concurrent
// use, though gestures normally arrive from a single input loop.
type Tracker struct {
	mu    sync.Mutex
	state domain.GestureState
	store Reorderer
	log   zerolog.Logger
}

// New creates an idle Tracker committing to store
func New(store Reorderer, log zerolog.Logger) *Tracker {
	return &Tracker{store: store, log: log}
}

// Start begins dragging id. Starting while already dragging abandons
// the previous gesture without committing it.
func (t *Tracker) Start(id string) {
	if id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Active() {
		t.log.Debug().Str("moved", t.state.MovedID).Msg("gesture restarted")
	}
	t.state = domain.GestureState{MovedID: id}
}

// Move records the entry under the pointer, or none for "". Ignored
// while idle.
func (t *Tracker) Move(hoverID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Active() {
		return
	}
	t.state.HoverID = hoverID
}

// End finishes the gesture over targetID ("" for no target) and
// returns whether the collection was reordered. The tracker is idle
// afterwards whatever the outcome.
func (t *Tracker) End(targetID string) bool {
	t.mu.Lock()
	moved := t.state.MovedID
	t.state = domain.GestureState{}
	t.mu.Unlock()

	if moved == "" || targetID == "" || targetID == moved {
		return false
	}
	return t.store.Reorder(moved, targetID)
}

// Cancel drops the gesture without committing
func (t *Tracker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = domain.GestureState{}
}

// State returns the provisional gesture state
func (t *Tracker) State() domain.GestureState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Dragging reports whether a gesture is in progress
func (t *Tracker) Dragging() bool {
	return t.State().Active()
}
