package notes

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/backend/internal/middleware"
	"github.com/edupulse/backend/internal/models"
	"github.com/edupulse/backend/pkg/response"
)

// CreateRequest is the body for POST /api/notes.
type CreateRequest struct {
	Title        string `json:"title" binding:"required"`
	Content      string `json:"content"`
	Subject      string `json:"subject" binding:"required"`
	DepartmentID *int64 `json:"department_id"`
}

// ContributionRequest is the body for POST /api/notes/:id/contributions.
type ContributionRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"content_type" binding:"required,oneof=text sketch"`
	SketchData  string `json:"sketch_data"`
}

// StatusRequest is the body for PATCH /api/notes/:id/status.
type StatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// Handler handles note session HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a notes handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /api/notes (faculty/admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)

	session, err := h.service.CreateSession(c.Request.Context(), userID, req.Title, req.Content, req.Subject, req.DepartmentID)
	if err != nil {
		response.Internal(c, "failed to create note session")
		return
	}
	response.Created(c, session)
}

// List handles GET /api/notes?subject= (active sessions).
func (h *Handler) List(c *gin.Context) {
	list, err := h.service.ListActive(c.Request.Context(), c.Query("subject"))
	if err != nil {
		response.Internal(c, "failed to list note sessions")
		return
	}
	response.OK(c, gin.H{"sessions": list})
}

// AddContribution handles POST /api/notes/:id/contributions.
func (h *Handler) AddContribution(c *gin.Context) {
	noteID, ok := noteIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)

	var req ContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.ContentType == models.ContributionText && req.Content == "" {
		response.BadRequest(c, "content required for text contributions")
		return
	}

	contribution, err := h.service.AddContribution(c.Request.Context(), noteID, userID, req.Content, req.ContentType, req.SketchData)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			response.NotFound(c, "note session not found")
		case errors.Is(err, ErrSessionNotActive):
			response.BadRequest(c, "note session is not active")
		default:
			response.Internal(c, "failed to add contribution")
		}
		return
	}
	response.Created(c, contribution)
}

// ListContributions handles GET /api/notes/:id/contributions.
func (h *Handler) ListContributions(c *gin.Context) {
	noteID, ok := noteIDParam(c)
	if !ok {
		return
	}
	list, err := h.service.ListContributions(c.Request.Context(), noteID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			response.NotFound(c, "note session not found")
			return
		}
		response.Internal(c, "failed to list contributions")
		return
	}
	response.OK(c, gin.H{"contributions": list})
}

// UpdateStatus handles PATCH /api/notes/:id/status (creator only).
func (h *Handler) UpdateStatus(c *gin.Context) {
	noteID, ok := noteIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: is_active required")
		return
	}

	session, err := h.service.UpdateStatus(c.Request.Context(), noteID, userID, *req.IsActive)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			response.NotFound(c, "note session not found")
		case errors.Is(err, ErrNotCreator):
			response.Forbidden(c, "only the session creator can change its status")
		default:
			response.Internal(c, "failed to update session status")
		}
		return
	}
	response.OK(c, session)
}

// Delete handles DELETE /api/notes/:id (creator only, soft delete).
func (h *Handler) Delete(c *gin.Context) {
	noteID, ok := noteIDParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)

	if err := h.service.Delete(c.Request.Context(), noteID, userID); err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			response.NotFound(c, "note session not found")
		case errors.Is(err, ErrNotCreator):
			response.Forbidden(c, "only the session creator can delete it")
		default:
			response.Internal(c, "failed to delete session")
		}
		return
	}
	response.NoContent(c)
}

func noteIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid note session id")
		return 0, false
	}
	return id, true
}
