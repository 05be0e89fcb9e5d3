package polls

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/backend/internal/middleware"
	"github.com/edupulse/backend/pkg/response"
)

// CreateRequest is the body for POST /api/polls.
type CreateRequest struct {
	Title                string   `json:"title" binding:"required"`
	Question             string   `json:"question" binding:"required"`
	Options              []string `json:"options" binding:"required,min=2"`
	Subject              string   `json:"subject" binding:"required"`
	DepartmentID         *int64   `json:"department_id"`
	ContentID            *int64   `json:"content_id"`
	TimerDurationSeconds int      `json:"timer_duration_seconds"`
}

// VoteRequest is the body for POST /api/polls/:id/vote.
type VoteRequest struct {
	OptionIndex *int `json:"option_index" binding:"required"`
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a polls handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /api/polls (faculty/admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)

	p, err := h.service.Create(c.Request.Context(), CreateInput{
		Title:                req.Title,
		Question:             req.Question,
		Options:              req.Options,
		CreatedBy:            userID,
		Subject:              req.Subject,
		DepartmentID:         req.DepartmentID,
		ContentID:            req.ContentID,
		TimerDurationSeconds: req.TimerDurationSeconds,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidPoll) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Internal(c, "failed to create poll")
		return
	}
	response.Created(c, p)
}

// List handles GET /api/polls?subject= (active polls).
func (h *Handler) List(c *gin.Context) {
	list, err := h.service.ListActive(c.Request.Context(), c.Query("subject"))
	if err != nil {
		response.Internal(c, "failed to list polls")
		return
	}
	response.OK(c, gin.H{"polls": list})
}

// Get handles GET /api/polls/:id.
func (h *Handler) Get(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), pollID)
	if err != nil {
		if errors.Is(err, ErrPollNotFound) {
			response.NotFound(c, "poll not found")
			return
		}
		response.Internal(c, "failed to load poll")
		return
	}
	response.OK(c, p)
}

// Vote handles POST /api/polls/:id/vote.
func (h *Handler) Vote(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: option_index required")
		return
	}

	results, err := h.service.Vote(c.Request.Context(), pollID, userID, *req.OptionIndex)
	if err != nil {
		switch {
		case errors.Is(err, ErrPollNotFound):
			response.NotFound(c, "poll not found")
		case errors.Is(err, ErrPollClosed):
			response.BadRequest(c, "poll is closed")
		case errors.Is(err, ErrInvalidOption):
			response.BadRequest(c, "option index out of range")
		default:
			response.Internal(c, "failed to record vote")
		}
		return
	}
	response.OK(c, results)
}

// Close handles POST /api/polls/:id/close (creator or admin).
func (h *Handler) Close(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)
	role := c.GetString(middleware.ContextUserRole)

	p, err := h.service.Get(c.Request.Context(), pollID)
	if err != nil {
		if errors.Is(err, ErrPollNotFound) {
			response.NotFound(c, "poll not found")
			return
		}
		response.Internal(c, "failed to load poll")
		return
	}
	if role != "admin" && p.CreatedBy != userID {
		response.Forbidden(c, "only the poll creator or an admin can close the poll")
		return
	}

	results, err := h.service.Close(c.Request.Context(), pollID)
	if err != nil {
		response.Internal(c, "failed to close poll")
		return
	}
	response.OK(c, results)
}

// Results handles GET /api/polls/:id/results.
func (h *Handler) Results(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}
	results, err := h.service.Results(c.Request.Context(), pollID)
	if err != nil {
		if errors.Is(err, ErrPollNotFound) {
			response.NotFound(c, "poll not found")
			return
		}
		response.Internal(c, "failed to compute results")
		return
	}
	response.OK(c, results)
}

// Related handles GET /api/polls/:id/related?limit=.
func (h *Handler) Related(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "3"))
	list, err := h.service.FindRelatedContent(c.Request.Context(), pollID, limit)
	if err != nil {
		if errors.Is(err, ErrPollNotFound) {
			response.NotFound(c, "poll not found")
			return
		}
		response.Internal(c, "failed to find related content")
		return
	}
	response.OK(c, gin.H{"content": list})
}

func pollIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return 0, false
	}
	return id, true
}
