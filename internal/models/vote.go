package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote is a single ledger entry: one user's choice on one poll.
// At most one vote exists per (user, poll) pair, enforced by a unique
// constraint in storage. Votes are never mutated; they are removed only
// when their poll is deleted.
type Vote struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	PollID      uuid.UUID `json:"poll_id"`
	OptionIndex int       `json:"option_index"`
	CreatedAt   time.Time `json:"created_at"`
}

// VoterRecord is a vote joined with the voter's display name, for the
// poll detail view.
type VoterRecord struct {
	ID          uuid.UUID `json:"id"`
	VoterName   string    `json:"voter"`
	OptionIndex int       `json:"option_index"`
	VotedAt     time.Time `json:"voted_at"`
}

// VoteHistoryEntry is a vote joined with its poll, for a user's personal
// history view.
type VoteHistoryEntry struct {
	ID          uuid.UUID  `json:"id"`
	PollID      uuid.UUID  `json:"poll_id"`
	Question    string     `json:"question"`
	OptionLabel string     `json:"option_label"`
	PollStatus  PollStatus `json:"poll_status"`
	VotedAt     time.Time  `json:"voted_at"`
}
