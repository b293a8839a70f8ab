package entries

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/pbaille/dragchat/internal/domain"
)

// ErrClosed is returned by Append once the store has been torn down
var ErrClosed = errors.New("entry store closed")

// Recorder receives every committed operation together with the state
// it produced. Calls happen in commit order.
type Recorder interface {
	Record(s State, op Op) error
}

// Store owns the ordered entry collection. Every mutation goes through
// a single critical section that reduces the committed state, so an
// append or reorder always sees all mutations committed before it.
type Store struct {
	mu       sync.Mutex
	state    State
	closed   bool
	pending  map[*Pending]struct{}
	watchers []chan uint64

	clock    clockwork.Clock
	newID    func() string
	recorder Recorder
	log      zerolog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the clock used for timestamps and delayed appends
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDs replaces the entry id source
func WithIDs(next func() string) Option {
	return func(s *Store) { s.newID = next }
}

// WithRecorder attaches a recorder for committed operations
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithLogger sets the store logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates an empty Store
func New(opts ...Option) *Store {
	s := &Store{
		pending: make(map[*Pending]struct{}),
		clock:   clockwork.NewRealClock(),
		newID:   domain.NewID,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds a new entry at the end of the collection and returns it
// with its assigned id and position.
func (s *Store) Append(text string, origin domain.Origin) (domain.Entry, error) {
	if !origin.Valid() {
		return domain.Entry{}, fmt.Errorf("append entry: unknown origin %q", origin)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Entry{}, ErrClosed
	}
	return s.appendLocked(text, origin)
}

// appendLocked must be called with s.mu held on an open store. The id
// and position are derived here, from the state at commit time.
func (s *Store) appendLocked(text string, origin domain.Origin) (domain.Entry, error) {
	op := AppendOp{Entry: domain.Entry{
		ID:        s.newID(),
		Text:      text,
		Origin:    origin,
		CreatedAt: s.clock.Now(),
	}}
	next, changed := s.commitLocked(op)
	if !changed {
		return domain.Entry{}, fmt.Errorf("append entry: id %q rejected", op.Entry.ID)
	}
	return next.Entries[len(next.Entries)-1], nil
}

// Reorder moves movedID to the slot currently held by targetID and
// renumbers every position. It reports false, without touching the
// collection, when the ids are equal, either id is unknown, or the
// store is closed.
func (s *Store) Reorder(movedID, targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	_, changed := s.commitLocked(ReorderOp{MovedID: movedID, TargetID: targetID})
	if !changed {
		s.log.Debug().Str("moved", movedID).Str("target", targetID).Msg("reorder ignored")
	}
	return changed
}

func (s *Store) commitLocked(op Op) (State, bool) {
	next, changed := Reduce(s.state, op)
	if !changed {
		return s.state, false
	}
	s.state = next

	s.log.Debug().
		Str("op", op.Kind()).
		Uint64("revision", next.Revision).
		Int("len", len(next.Entries)).
		Msg("committed")

	if s.recorder != nil {
		if err := s.recorder.Record(next, op); err != nil {
			s.log.Warn().Err(err).Uint64("revision", next.Revision).Msg("record operation")
		}
	}

	for _, w := range s.watchers {
		notify(w, next.Revision)
	}
	return next, true
}

// notify leaves only the latest revision in a watcher's buffer
func notify(w chan uint64, rev uint64) {
	select {
	case w <- rev:
		return
	default:
	}
	select {
	case <-w:
	default:
	}
	select {
	case w <- rev:
	default:
	}
}

// Entries returns a copy of the collection in position order
func (s *Store) Entries() []domain.Entry {
	return s.State().Entries
}

// State returns a copy of the committed state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Entry, len(s.state.Entries))
	copy(out, s.state.Entries)
	return State{Entries: out, Revision: s.state.Revision}
}

// Watch returns a channel that receives the latest revision after each
// commit. Intermediate revisions may be coalesced. The channel is
// closed when the store is closed.
func (s *Store) Watch() <-chan uint64 {
	w := make(chan uint64, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(w)
		return w
	}
	s.watchers = append(s.watchers, w)
	return w
}

// ScheduleDelayedAppend appends text after delay. The entry is built
// from the committed state at the moment the timer fires, not from the
// state at scheduling time. On a closed store the returned Pending is
// already resolved.
func (s *Store) ScheduleDelayedAppend(text string, origin domain.Origin, delay time.Duration) *Pending {
	p := &Pending{
		store:  s,
		text:   text,
		origin: origin,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed || !origin.Valid() {
		p.resolveLocked()
		s.mu.Unlock()
		return p
	}
	s.pending[p] = struct{}{}
	s.mu.Unlock()

	timer := s.clock.AfterFunc(delay, p.fire)

	s.mu.Lock()
	p.timer = timer
	s.mu.Unlock()
	return p
}

// PendingCount returns the number of delayed appends not yet resolved
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close tears the store down. Pending delayed appends are dropped,
// watchers are closed and later appends fail with ErrClosed. Close is
// idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true

	var timers []clockwork.Timer
	for p := range s.pending {
		if p.timer != nil {
			timers = append(timers, p.timer)
		}
		p.resolveLocked()
	}
	for _, w := range s.watchers {
		close(w)
	}
	s.watchers = nil
	s.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	s.log.Debug().Int("dropped", len(timers)).Msg("store closed")
}

// Closed reports whether Close has been called
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
