package voting

import "errors"

var (
	// ErrAlreadyVoted means a vote already exists for this (voter, poll)
	// pair. It surfaces from the ledger's uniqueness constraint, which is
	// the defense against concurrent double votes.
	ErrAlreadyVoted = errors.New("already voted on this poll")
	// ErrPollClosed means the poll is not accepting votes.
	ErrPollClosed = errors.New("poll is closed")
	// ErrInvalidOption means the option index is out of range.
	ErrInvalidOption = errors.New("invalid option index")
)
