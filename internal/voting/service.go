// Package voting implements the voting coordinator: it validates a vote
// request, lets the ledger's uniqueness constraint settle races, and
// notifies viewers on acceptance.
package voting

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsevote/backend/internal/models"
)

// PollGetter resolves a poll for validation.
type PollGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error)
}

// Ledger appends vote records. Cast must return ErrAlreadyVoted when a
// record for the same (user, poll) pair already exists.
type Ledger interface {
	Cast(ctx context.Context, v *models.Vote) error
}

// Notifier pushes cache-invalidation events to viewers.
type Notifier interface {
	PollUpdated(pollID uuid.UUID)
}

// Service is the voting coordinator.
type Service struct {
	polls    PollGetter
	ledger   Ledger
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates a voting service.
func NewService(polls PollGetter, ledger Ledger, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{polls: polls, ledger: ledger, notifier: notifier, logger: logger}
}

// Cast records one vote for (voterID, pollID). The pre-checks here reject
// the obvious failures early; uniqueness is NOT one of them — two
// concurrent requests can both pass any check, so the ledger's constraint
// is what guarantees at most one wins. On acceptance a pollUpdated event
// carries only the poll id; viewers re-fetch authoritative counts.
func (s *Service) Cast(ctx context.Context, voterID, pollID uuid.UUID, optionIndex int) (*models.Vote, error) {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PollOpen {
		return nil, ErrPollClosed
	}
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return nil, ErrInvalidOption
	}

	v := &models.Vote{UserID: voterID, PollID: pollID, OptionIndex: optionIndex}
	if err := s.ledger.Cast(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info("vote cast",
		zap.String("poll_id", pollID.String()),
		zap.String("voter_id", voterID.String()),
		zap.Int("option", optionIndex),
	)
	s.notifier.PollUpdated(pollID)
	return v, nil
}
