package models

import (
	"time"

	"github.com/google/uuid"
)

// PollStatus is the lifecycle state of a poll.
type PollStatus string

const (
	PollOpen   PollStatus = "open"
	PollClosed PollStatus = "closed"
)

// Valid reports whether s is one of the two allowed statuses.
func (s PollStatus) Valid() bool {
	return s == PollOpen || s == PollClosed
}

// Option is a poll choice. Options are index-addressed: an option's
// identity is its position in the poll's option list.
type Option struct {
	Label string `json:"label"`
	Votes int    `json:"votes"`
}

// Poll represents a poll with its options and running tallies.
// Each option's Votes must equal the number of vote records for that
// (poll, option index) pair; the voting transaction keeps them in sync.
type Poll struct {
	ID            uuid.UUID  `json:"id"`
	Question      string     `json:"question"`
	Options       []Option   `json:"options"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedByName string     `json:"created_by_name"`
	Status        PollStatus `json:"status"`
	WasReopened   bool       `json:"was_reopened"`
	ClosingAt     *time.Time `json:"closing_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TotalVotes returns the sum of all option tallies.
func (p *Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}
