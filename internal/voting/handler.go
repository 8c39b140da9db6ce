package voting

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsevote/backend/internal/middleware"
	"github.com/pulsevote/backend/internal/models"
	"github.com/pulsevote/backend/internal/polls"
	"github.com/pulsevote/backend/pkg/response"
)

// CastRequest is the body for POST /polls/:id/vote. OptionIndex is a
// pointer so index 0 survives required-field binding.
type CastRequest struct {
	OptionIndex *int `json:"option_index" binding:"required"`
}

// HistoryReader reads a user's personal vote history.
type HistoryReader interface {
	HistoryByUser(ctx context.Context, userID uuid.UUID) ([]models.VoteHistoryEntry, error)
}

// Handler handles voting HTTP endpoints.
type Handler struct {
	service *Service
	history HistoryReader
	logger  *zap.Logger
}

// NewHandler creates a voting handler.
func NewHandler(service *Service, history HistoryReader, logger *zap.Logger) *Handler {
	return &Handler{service: service, history: history, logger: logger}
}

// Cast handles POST /polls/:id/vote. The error mapping keeps "already
// voted", "poll closed" and transient failures distinguishable so clients
// know which ones are worth retrying.
func (h *Handler) Cast(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	var req CastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	voterID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	v, err := h.service.Cast(c.Request.Context(), voterID, pollID, *req.OptionIndex)
	if err != nil {
		switch {
		case errors.Is(err, polls.ErrNotFound):
			response.NotFound(c, "poll not found")
		case errors.Is(err, ErrPollClosed):
			response.Conflict(c, "poll is closed")
		case errors.Is(err, ErrInvalidOption):
			response.BadRequest(c, "option index out of range")
		case errors.Is(err, ErrAlreadyVoted):
			response.Conflict(c, "you have already voted on this poll")
		default:
			h.logger.Error("cast vote", zap.Error(err))
			response.Internal(c, "failed to record vote")
		}
		return
	}
	response.Created(c, v)
}

// History handles GET /me/votes.
func (h *Handler) History(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	history, err := h.history.HistoryByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("vote history", zap.Error(err))
		response.Internal(c, "failed to load vote history")
		return
	}
	if history == nil {
		history = []models.VoteHistoryEntry{}
	}
	response.OK(c, gin.H{"history": history})
}
