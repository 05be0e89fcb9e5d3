package notes

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edupulse/backend/internal/models"
	"github.com/edupulse/backend/internal/realtime"
	"github.com/edupulse/backend/internal/tags"
)

// SessionStore persists note sessions.
type SessionStore interface {
	Create(ctx context.Context, s *models.NoteSession) error
	GetByID(ctx context.Context, id int64) (*models.NoteSession, error)
	UpdateStatus(ctx context.Context, id int64, isActiveSession bool, endsAt *time.Time) error
	SoftDelete(ctx context.Context, id int64) error
	ListActive(ctx context.Context, subject string) ([]*models.NoteSession, error)
}

// ContributionStore persists append-only contributions.
type ContributionStore interface {
	Create(ctx context.Context, c *models.Contribution) error
	ListByNote(ctx context.Context, noteID int64) ([]*models.Contribution, error)
}

// Service owns collaborative note sessions and their contributions, and
// emits every state change through the hub on per-session topics.
type Service struct {
	sessions      SessionStore
	contributions ContributionStore
	sketch        tags.SketchTagger
	hub           *realtime.Hub
	logger        *zap.Logger
}

// NewService creates the note session service. sketch may be nil; sketch
// contributions are then recorded without tags.
func NewService(sessions SessionStore, contributions ContributionStore, sketch tags.SketchTagger, hub *realtime.Hub, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions:      sessions,
		contributions: contributions,
		sketch:        sketch,
		hub:           hub,
		logger:        logger,
	}
}

// CreateSession persists a new active session and broadcasts
// note_session_created to the session's department and subject.
func (s *Service) CreateSession(ctx context.Context, userID int64, title, content, subject string, departmentID *int64) (*models.NoteSession, error) {
	session := &models.NoteSession{
		Title:           title,
		Content:         content,
		CreatedBy:       userID,
		Subject:         subject,
		DepartmentID:    departmentID,
		IsActiveSession: true,
		IsActive:        true,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create note session: %w", err)
	}

	s.hub.Broadcast("note_session_created", session, realtime.Filter{
		DepartmentID: session.DepartmentID,
		Subject:      session.Subject,
	})
	s.logger.Info("note session created", zap.Int64("note_id", session.ID), zap.String("subject", subject))
	return session, nil
}

// Get returns a session by id.
func (s *Service) Get(ctx context.Context, noteID int64) (*models.NoteSession, error) {
	return s.sessions.GetByID(ctx, noteID)
}

// ListActive returns active, non-deleted sessions, optionally by subject.
func (s *Service) ListActive(ctx context.Context, subject string) ([]*models.NoteSession, error) {
	return s.sessions.ListActive(ctx, subject)
}

// AddContribution appends an entry to an active session. Text entries get
// local keyword tags; sketch entries go through the sketch tagger, whose
// failure is tolerated (the contribution is recorded without tags).
func (s *Service) AddContribution(ctx context.Context, noteID, userID int64, content, contentType, sketchData string) (*models.Contribution, error) {
	session, err := s.sessions.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !session.IsActiveSession {
		return nil, ErrSessionNotActive
	}

	var tagList []string
	switch contentType {
	case models.ContributionSketch:
		if s.sketch != nil {
			tagList, err = s.sketch.GenerateFromSketch(ctx, sketchData)
			if err != nil {
				s.logger.Warn("sketch tagging failed", zap.Int64("note_id", noteID), zap.Error(err))
				tagList = []string{}
			}
		} else {
			tagList = []string{}
		}
	default:
		contentType = models.ContributionText
		tagList = tags.Keywords(content)
	}

	contribution := &models.Contribution{
		NoteID:      noteID,
		UserID:      userID,
		Content:     content,
		ContentType: contentType,
		Tags:        tagList,
	}
	if err := s.contributions.Create(ctx, contribution); err != nil {
		return nil, fmt.Errorf("create contribution: %w", err)
	}

	s.hub.Broadcast(fmt.Sprintf("note_contribution_%d", noteID), contribution, realtime.Filter{
		Subject: session.Subject,
	})
	return contribution, nil
}

// ListContributions returns a session's contributions in order.
func (s *Service) ListContributions(ctx context.Context, noteID int64) ([]*models.Contribution, error) {
	if _, err := s.sessions.GetByID(ctx, noteID); err != nil {
		return nil, err
	}
	return s.contributions.ListByNote(ctx, noteID)
}

// UpdateStatus toggles a session active or inactive. Creator only.
// Deactivating stamps ends_at.
func (s *Service) UpdateStatus(ctx context.Context, noteID, userID int64, isActive bool) (*models.NoteSession, error) {
	session, err := s.sessions.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if session.CreatedBy != userID {
		return nil, ErrNotCreator
	}

	var endsAt *time.Time
	if !isActive {
		now := time.Now()
		endsAt = &now
	}
	if err := s.sessions.UpdateStatus(ctx, noteID, isActive, endsAt); err != nil {
		return nil, fmt.Errorf("update session status: %w", err)
	}
	session.IsActiveSession = isActive
	session.EndsAt = endsAt

	s.hub.Broadcast(fmt.Sprintf("note_session_update_%d", noteID), session, realtime.Filter{
		Subject: session.Subject,
	})
	return session, nil
}

// Delete soft-deletes a session. Creator only. Listeners on the session
// topic are told so they stop rendering it.
func (s *Service) Delete(ctx context.Context, noteID, userID int64) error {
	session, err := s.sessions.GetByID(ctx, noteID)
	if err != nil {
		return err
	}
	if session.CreatedBy != userID {
		return ErrNotCreator
	}
	if err := s.sessions.SoftDelete(ctx, noteID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.hub.Broadcast(fmt.Sprintf("note_session_update_%d", noteID), map[string]interface{}{
		"id": noteID, "deleted": true,
	}, realtime.Filter{Subject: session.Subject})
	s.logger.Info("note session deleted", zap.Int64("note_id", noteID))
	return nil
}
