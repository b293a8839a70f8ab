// Package session is the entry point used by presentation layers. It
// owns one entry store, one gesture tracker and the reply producer for
// the lifetime of a conversation.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/pbaille/dragchat/internal/domain"
	"github.com/pbaille/dragchat/internal/entries"
	"github.com/pbaille/dragchat/internal/gesture"
	"github.com/pbaille/dragchat/internal/journal"
	"github.com/pbaille/dragchat/internal/responder"
)

// DefaultReplyDelay is how long the producer waits before replying
const DefaultReplyDelay = time.Second

// Options configures a Session. Zero values pick defaults.
type Options struct {
	Clock      clockwork.Clock
	Responder  responder.Responder
	ReplyDelay time.Duration
	Journal    *journal.Journal
	Logger     zerolog.Logger
}

// Session is one conversation
type Session struct {
	store      *entries.Store
	tracker    *gesture.Tracker
	responder  responder.Responder
	journal    *journal.Journal
	replyDelay time.Duration
	log        zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Submission is the result of a user submit
type Submission struct {
	Entry domain.Entry
	// Reply is the scheduled producer append, nil if no reply could be
	// derived.
	Reply *entries.Pending
}

// New creates an empty session
func New(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Responder == nil {
		opts.Responder = responder.New("")
	}
	if opts.ReplyDelay <= 0 {
		opts.ReplyDelay = DefaultReplyDelay
	}

	storeOpts := []entries.Option{
		entries.WithClock(opts.Clock),
		entries.WithLogger(opts.Logger.With().Str("component", "store").Logger()),
	}
	if opts.Journal != nil {
		storeOpts = append(storeOpts, entries.WithRecorder(opts.Journal))
	}
	store := entries.New(storeOpts...)

	return &Session{
		store:      store,
		tracker:    gesture.New(store, opts.Logger.With().Str("component", "gesture").Logger()),
		responder:  opts.Responder,
		journal:    opts.Journal,
		replyDelay: opts.ReplyDelay,
		log:        opts.Logger,
	}
}

// Entries returns the collection in position order
func (s *Session) Entries() []domain.Entry {
	return s.store.Entries()
}

// State returns the committed collection with its revision
func (s *Session) State() entries.State {
	return s.store.State()
}

// Watch notifies the latest revision after each commit
func (s *Session) Watch() <-chan uint64 {
	return s.store.Watch()
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	return s.store.Closed()
}

// Journal returns the session journal, or nil when journaling is off
func (s *Session) Journal() *journal.Journal {
	return s.journal
}

// SubmitUserText appends text as a user entry and schedules the
// producer reply. Blank text is ignored: it returns nil and no error.
func (s *Session) SubmitUserText(ctx context.Context, text string) (*Submission, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	entry, err := s.store.Append(text, domain.OriginUser)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	sub := &Submission{Entry: entry}

	reply, err := s.responder.Reply(ctx, text)
	if err != nil {
		s.log.Warn().Err(err).Str("entry", entry.ID).Msg("no reply scheduled")
		return sub, nil
	}
	sub.Reply = s.store.ScheduleDelayedAppend(reply, domain.OriginProducer, s.replyDelay)

	s.log.Debug().
		Str("entry", entry.ID).
		Int("position", entry.Position).
		Dur("reply_delay", s.replyDelay).
		Msg("user entry submitted")
	return sub, nil
}

// BeginDrag starts a reorder gesture on id
func (s *Session) BeginDrag(id string) {
	s.tracker.Start(id)
}

// UpdateDragOver records the entry under the pointer ("" for none)
func (s *Session) UpdateDragOver(id string) {
	s.tracker.Move(id)
}

// EndDrag completes the gesture over id ("" for none) and reports
// whether the collection was reordered
func (s *Session) EndDrag(id string) bool {
	return s.tracker.End(id)
}

// CancelDrag abandons the gesture
func (s *Session) CancelDrag() {
	s.tracker.Cancel()
}

// Gesture returns the provisional drag state
func (s *Session) Gesture() domain.GestureState {
	return s.tracker.State()
}

// Close ends the session. Pending replies are dropped. Close is
// idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.tracker.Cancel()
		s.store.Close()
		if s.journal != nil {
			if err := s.journal.Close(); err != nil {
				s.closeErr = fmt.Errorf("close journal: %w", err)
			}
		}
	})
	return s.closeErr
}
