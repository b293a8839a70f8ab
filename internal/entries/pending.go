package entries

import (
	"github.com/jonboulle/clockwork"

	"github.com/pbaille/dragchat/internal/domain"
)

// Pending is a scheduled delayed append. It resolves exactly once: by
// firing, by Cancel, or by the store closing.
type Pending struct {
	store  *Store
	text   string
	origin domain.Origin
	timer  clockwork.Timer
	done   chan struct{}

	// guarded by store.mu
	resolved bool
	entry    *domain.Entry
}

// resolveLocked must be called with store.mu held
func (p *Pending) resolveLocked() {
	if p.resolved {
		return
	}
	p.resolved = true
	delete(p.store.pending, p)
	close(p.done)
}

func (p *Pending) fire() {
	s := p.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.resolved {
		return
	}
	if s.closed {
		p.resolveLocked()
		s.log.Debug().Msg("delayed append dropped on closed store")
		return
	}
	e, err := s.appendLocked(p.text, p.origin)
	p.resolveLocked()
	if err != nil {
		s.log.Warn().Err(err).Msg("delayed append failed")
		return
	}
	p.entry = &e
}

// Cancel prevents the append. It returns true only if this call
// stopped it; cancelling a fired, dropped or already cancelled append
// does nothing.
func (p *Pending) Cancel() bool {
	s := p.store
	s.mu.Lock()
	if p.resolved {
		s.mu.Unlock()
		return false
	}
	p.resolveLocked()
	t := p.timer
	s.mu.Unlock()

	if t != nil {
		t.Stop()
	}
	return true
}

// Done is closed once the append has fired, been cancelled or been
// dropped.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Entry returns the appended entry once the timer has fired. It
// reports false for a cancelled or dropped append.
func (p *Pending) Entry() (domain.Entry, bool) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	if p.entry == nil {
		return domain.Entry{}, false
	}
	return *p.entry, true
}
