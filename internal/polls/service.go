package polls

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsevote/backend/internal/models"
	"github.com/pulsevote/backend/internal/moderation"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role models.Role
}

// CanModerate reports whether the actor may manage the poll: admins may
// manage any poll, everyone else only their own.
func (a Actor) CanModerate(p *models.Poll) bool {
	return a.Role == models.RoleAdmin || a.ID == p.CreatedBy
}

// Store is the poll persistence the service depends on.
type Store interface {
	Create(ctx context.Context, p *models.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	List(ctx context.Context) ([]models.Poll, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.PollStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// VoteReader reads the vote ledger for the poll read surfaces.
type VoteReader interface {
	VotedPollIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	VotersByPoll(ctx context.Context, pollID uuid.UUID) ([]models.VoterRecord, error)
}

// Moderator is the content-moderation oracle.
type Moderator interface {
	Review(ctx context.Context, question string, options []string) (moderation.Verdict, error)
}

// Notifier pushes cache-invalidation events to viewers.
type Notifier interface {
	PollListUpdated()
	PollUpdated(pollID uuid.UUID)
}

// Service implements poll creation, lifecycle and deletion.
type Service struct {
	store     Store
	votes     VoteReader
	moderator Moderator // nil disables moderation
	notifier  Notifier
	logger    *zap.Logger
}

// NewService creates a poll service.
func NewService(store Store, votes VoteReader, moderator Moderator, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{store: store, votes: votes, moderator: moderator, notifier: notifier, logger: logger}
}

// Create validates and persists a new open poll with zero tallies.
// Moderation is fail-open: an unreachable or failing oracle is logged and
// the creation proceeds, trading strictness for availability. Only an
// explicit UNSAFE verdict rejects the poll.
func (s *Service) Create(ctx context.Context, actor Actor, question string, options []string, closingAt *time.Time) (*models.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" || len(options) < 2 {
		return nil, ErrInvalidInput
	}
	for i := range options {
		options[i] = strings.TrimSpace(options[i])
		if options[i] == "" {
			return nil, ErrInvalidInput
		}
	}

	if s.moderator != nil {
		verdict, err := s.moderator.Review(ctx, question, options)
		switch {
		case err != nil:
			s.logger.Warn("moderation unavailable, proceeding fail-open", zap.Error(err))
		case verdict == moderation.VerdictUnsafe:
			s.logger.Info("poll rejected by moderation", zap.String("question", question))
			return nil, ErrRejectedByModeration
		}
	}

	p := &models.Poll{
		Question:      question,
		Options:       make([]models.Option, len(options)),
		CreatedBy:     actor.ID,
		CreatedByName: actor.Name,
		Status:        models.PollOpen,
		ClosingAt:     closingAt,
	}
	for i, label := range options {
		p.Options[i] = models.Option{Label: label}
	}

	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.notifier.PollListUpdated()
	return p, nil
}

// List returns all polls plus the ids of polls the caller already voted
// on, so the client can render per-user voted status.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Poll, []uuid.UUID, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	voted, err := s.votes.VotedPollIDs(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return list, voted, nil
}

// VoterDetail is one ledger entry of a poll's history, with the option
// index resolved to its label.
type VoterDetail struct {
	ID          uuid.UUID `json:"id"`
	Voter       string    `json:"voter"`
	OptionLabel string    `json:"option_label"`
	VotedAt     time.Time `json:"voted_at"`
}

// Details returns a poll with its full voter history.
func (s *Service) Details(ctx context.Context, pollID uuid.UUID) (*models.Poll, []VoterDetail, error) {
	p, err := s.store.GetByID(ctx, pollID)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.votes.VotersByPoll(ctx, pollID)
	if err != nil {
		return nil, nil, err
	}
	details := make([]VoterDetail, 0, len(records))
	for _, rec := range records {
		d := VoterDetail{ID: rec.ID, Voter: rec.VoterName, VotedAt: rec.VotedAt}
		if rec.OptionIndex >= 0 && rec.OptionIndex < len(p.Options) {
			d.OptionLabel = p.Options[rec.OptionIndex].Label
		}
		details = append(details, d)
	}
	return p, details, nil
}

// SetStatus opens or closes a poll on behalf of its owner or an admin.
// Reopening sets the was_reopened flag for good.
func (s *Service) SetStatus(ctx context.Context, actor Actor, pollID uuid.UUID, status models.PollStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	p, err := s.store.GetByID(ctx, pollID)
	if err != nil {
		return err
	}
	if !actor.CanModerate(p) {
		return ErrForbidden
	}
	if err := s.store.SetStatus(ctx, pollID, status); err != nil {
		return err
	}
	s.notifier.PollUpdated(pollID)
	s.notifier.PollListUpdated()
	return nil
}

// Delete removes a poll and, by cascade, every vote referencing it.
func (s *Service) Delete(ctx context.Context, actor Actor, pollID uuid.UUID) error {
	p, err := s.store.GetByID(ctx, pollID)
	if err != nil {
		return err
	}
	if !actor.CanModerate(p) {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, pollID); err != nil {
		return err
	}
	s.notifier.PollListUpdated()
	return nil
}
