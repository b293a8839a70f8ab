package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/dragchat/internal/domain"
	"github.com/pbaille/dragchat/internal/entries"
)

//go:embed schema.sql
var schema string

// Operation is one journaled mutation
type Operation struct {
	Revision  uint64        `json:"revision"`
	Kind      string        `json:"kind"`
	EntryID   string        `json:"entry_id"`
	Text      string        `json:"text,omitempty"`
	Origin    domain.Origin `json:"origin,omitempty"`
	TargetID  string        `json:"target_id,omitempty"`
	CreatedAt time.Time     `json:"created_at,omitempty"`
}

// Op converts the row back into a store operation
func (o Operation) Op() (entries.Op, error) {
	switch o.Kind {
	case entries.AppendOp{}.Kind():
		return entries.AppendOp{Entry: domain.Entry{
			ID:        o.EntryID,
			Text:      o.Text,
			Origin:    o.Origin,
			CreatedAt: o.CreatedAt,
		}}, nil
	case entries.ReorderOp{}.Kind():
		return entries.ReorderOp{MovedID: o.EntryID, TargetID: o.TargetID}, nil
	default:
		return nil, fmt.Errorf("unknown operation kind %q at revision %d", o.Kind, o.Revision)
	}
}

// Journal records the committed operations of one session in an
// in-memory sqlite database. It does not outlive the process.
type Journal struct {
	db *sql.DB
}

// Open creates a journal backed by a private in-memory database
// identified by name
func Open(name string) (*Journal, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// The in-memory database lives as long as its last connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the journal and discards its contents
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record implements entries.Recorder
func (j *Journal) Record(s entries.State, op entries.Op) error {
	switch op := op.(type) {
	case entries.AppendOp:
		if len(s.Entries) == 0 {
			return fmt.Errorf("record append: empty state at revision %d", s.Revision)
		}
		e := s.Entries[len(s.Entries)-1]
		_, err := j.db.Exec(
			"INSERT INTO operations (revision, kind, entry_id, text, origin, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			s.Revision, op.Kind(), e.ID, e.Text, string(e.Origin), e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("record append: %w", err)
		}
	case entries.ReorderOp:
		_, err := j.db.Exec(
			"INSERT INTO operations (revision, kind, entry_id, target_id) VALUES (?, ?, ?, ?)",
			s.Revision, op.Kind(), op.MovedID, op.TargetID,
		)
		if err != nil {
			return fmt.Errorf("record reorder: %w", err)
		}
	default:
		return fmt.Errorf("record: unsupported operation %T", op)
	}
	return nil
}

// Ops returns every journaled operation in revision order
func (j *Journal) Ops() ([]Operation, error) {
	rows, err := j.db.Query(
		"SELECT revision, kind, entry_id, text, origin, target_id, created_at FROM operations ORDER BY revision",
	)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	return scanOps(rows)
}

// History returns the operations that moved, targeted or created an
// entry
func (j *Journal) History(entryID string) ([]Operation, error) {
	rows, err := j.db.Query(`
		SELECT revision, kind, entry_id, text, origin, target_id, created_at
		FROM operations
		WHERE entry_id = ? OR target_id = ?
		ORDER BY revision
	`, entryID, entryID)
	if err != nil {
		return nil, fmt.Errorf("entry history: %w", err)
	}
	defer rows.Close()

	return scanOps(rows)
}

func scanOps(rows *sql.Rows) ([]Operation, error) {
	var ops []Operation
	for rows.Next() {
		var (
			o         Operation
			text      sql.NullString
			origin    sql.NullString
			target    sql.NullString
			createdAt sql.NullTime
		)
		if err := rows.Scan(&o.Revision, &o.Kind, &o.EntryID, &text, &origin, &target, &createdAt); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		o.Text = text.String
		o.Origin = domain.Origin(origin.String)
		o.TargetID = target.String
		if createdAt.Valid {
			o.CreatedAt = createdAt.Time
		}
		ops = append(ops, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

// Count returns the number of journaled operations
func (j *Journal) Count() (int, error) {
	var n int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM operations").Scan(&n); err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return n, nil
}

// Replay rebuilds the collection by reducing every journaled operation
// from an empty state. It fails if an operation no longer applies or
// the result breaks the position invariant.
func (j *Journal) Replay() (entries.State, error) {
	ops, err := j.Ops()
	if err != nil {
		return entries.State{}, err
	}

	var s entries.State
	for _, o := range ops {
		op, err := o.Op()
		if err != nil {
			return entries.State{}, err
		}
		next, changed := entries.Reduce(s, op)
		if !changed {
			return entries.State{}, fmt.Errorf("replay: %s at revision %d did not apply", o.Kind, o.Revision)
		}
		if next.Revision != o.Revision {
			return entries.State{}, fmt.Errorf("replay: revision %d out of sequence, expected %d", o.Revision, next.Revision)
		}
		s = next
	}

	if err := entries.Validate(s.Entries); err != nil {
		return entries.State{}, fmt.Errorf("replay: %w", err)
	}
	return s, nil
}
