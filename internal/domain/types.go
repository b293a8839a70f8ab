package domain

import (
	"time"

	"github.com/google/uuid"
)

// Origin tags who produced an entry
type Origin string

const (
	OriginUser     Origin = "user"
	OriginProducer Origin = "producer"
)

// Valid reports whether o is a known origin
func (o Origin) Valid() bool {
	return o == OriginUser || o == OriginProducer
}

// Entry is one message in the ordered conversation
type Entry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Origin    Origin    `json:"origin"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// GestureState is the provisional state of an in-progress drag.
// Empty strings mean "none".
type GestureState struct {
	MovedID string `json:"moved_id,omitempty"`
	HoverID string `json:"hover_id,omitempty"`
}

// Active reports whether a drag is in progress
func (g GestureState) Active() bool {
	return g.MovedID != ""
}

// NewID returns a fresh entry identifier. Ids are never derived from
// wall-clock time, so two appends in the same instant cannot collide.
func NewID() string {
	return uuid.New().String()
}
