package entries

import (
	"fmt"

	"github.com/pbaille/dragchat/internal/domain"
)

// State is one committed snapshot of the collection. A State is never
// mutated after it is committed; Reduce always builds a new one.
type State struct {
	Entries  []domain.Entry `json:"entries"`
	Revision uint64         `json:"revision"`
}

// Op is a mutation of the collection
type Op interface {
	Kind() string
}

// AppendOp adds Entry at the end. The entry's Position is assigned by
// Reduce from the state it is applied to.
type AppendOp struct {
	Entry domain.Entry
}

// ReorderOp moves MovedID to the index currently held by TargetID.
// Moving up lands the entry before the target; moving down lands it
// after the target, so A onto C in [A B C] gives [B C A].
type ReorderOp struct {
	MovedID  string
	TargetID string
}

func (AppendOp) Kind() string  { return "append" }
func (ReorderOp) Kind() string { return "reorder" }

// Reduce applies op to s and returns the resulting state. The boolean
// is false when op leaves s unchanged, in which case s is returned
// as is and the revision does not move.
func Reduce(s State, op Op) (State, bool) {
	switch op := op.(type) {
	case AppendOp:
		return reduceAppend(s, op)
	case ReorderOp:
		return reduceReorder(s, op)
	default:
		return s, false
	}
}

func reduceAppend(s State, op AppendOp) (State, bool) {
	if op.Entry.ID == "" || indexOf(s.Entries, op.Entry.ID) >= 0 {
		return s, false
	}

	next := make([]domain.Entry, len(s.Entries), len(s.Entries)+1)
	copy(next, s.Entries)

	e := op.Entry
	e.Position = len(next) + 1
	next = append(next, e)

	return State{Entries: next, Revision: s.Revision + 1}, true
}

func reduceReorder(s State, op ReorderOp) (State, bool) {
	if op.MovedID == op.TargetID {
		return s, false
	}
	from := indexOf(s.Entries, op.MovedID)
	to := indexOf(s.Entries, op.TargetID)
	if from < 0 || to < 0 {
		return s, false
	}

	rest := make([]domain.Entry, 0, len(s.Entries))
	rest = append(rest, s.Entries[:from]...)
	rest = append(rest, s.Entries[from+1:]...)

	next := make([]domain.Entry, 0, len(s.Entries))
	next = append(next, rest[:to]...)
	next = append(next, s.Entries[from])
	next = append(next, rest[to:]...)

	for i := range next {
		next[i].Position = i + 1
	}

	return State{Entries: next, Revision: s.Revision + 1}, true
}

func indexOf(list []domain.Entry, id string) int {
	for i, e := range list {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Validate checks that positions run 1..N in slice order and that ids
// are unique.
func Validate(list []domain.Entry) error {
	seen := make(map[string]struct{}, len(list))
	for i, e := range list {
		if e.Position != i+1 {
			return fmt.Errorf("entry %s at index %d has position %d", e.ID, i, e.Position)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("duplicate entry id %s", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}
