package polls

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsevote/backend/internal/middleware"
	"github.com/pulsevote/backend/internal/models"
	"github.com/pulsevote/backend/pkg/response"
)

// CreateRequest is the body for POST /polls.
type CreateRequest struct {
	Question  string     `json:"question" binding:"required"`
	Options   []string   `json:"options" binding:"required"`
	ClosingAt *time.Time `json:"closing_at"`
}

// SetStatusRequest is the body for PATCH /polls/:id/status.
type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a polls handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func actorFrom(c *gin.Context) Actor {
	return Actor{
		ID:   c.MustGet(middleware.ContextUserID).(uuid.UUID),
		Name: c.GetString(middleware.ContextUserName),
		Role: models.Role(c.GetString(middleware.ContextUserRole)),
	}
}

// List handles GET /polls.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, voted, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list polls", zap.Error(err))
		response.Internal(c, "failed to list polls")
		return
	}
	if voted == nil {
		voted = []uuid.UUID{}
	}
	response.OK(c, gin.H{"polls": list, "voted_poll_ids": voted})
}

// Details handles GET /polls/:id/details (admin only, enforced by route
// middleware).
func (h *Handler) Details(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	p, voters, err := h.service.Details(c.Request.Context(), pollID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "poll not found")
			return
		}
		h.logger.Error("poll details", zap.Error(err))
		response.Internal(c, "failed to load poll details")
		return
	}
	response.OK(c, gin.H{"poll": p, "votes": voters})
}

// Create handles POST /polls.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	p, err := h.service.Create(c.Request.Context(), actorFrom(c), req.Question, req.Options, req.ClosingAt)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			response.BadRequest(c, "question and at least 2 non-empty options required")
		case errors.Is(err, ErrRejectedByModeration):
			response.BadRequest(c, "poll rejected by the content moderation system")
		default:
			h.logger.Error("create poll", zap.Error(err))
			response.Internal(c, "failed to create poll")
		}
		return
	}
	response.Created(c, p)
}

// SetStatus handles PATCH /polls/:id/status.
func (h *Handler) SetStatus(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	err = h.service.SetStatus(c.Request.Context(), actorFrom(c), pollID, models.PollStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			response.BadRequest(c, "status must be open or closed")
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "poll not found")
		case errors.Is(err, ErrForbidden):
			response.Forbidden(c, "only the poll owner or an admin can change its status")
		default:
			h.logger.Error("set poll status", zap.Error(err))
			response.Internal(c, "failed to update poll status")
		}
		return
	}
	response.OK(c, gin.H{"id": pollID, "status": req.Status})
}

// Delete handles DELETE /polls/:id.
func (h *Handler) Delete(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}

	err = h.service.Delete(c.Request.Context(), actorFrom(c), pollID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "poll not found")
		case errors.Is(err, ErrForbidden):
			response.Forbidden(c, "only the poll owner or an admin can delete it")
		default:
			h.logger.Error("delete poll", zap.Error(err))
			response.Internal(c, "failed to delete poll")
		}
		return
	}
	response.OK(c, gin.H{"id": pollID, "deleted": true})
}
