package polls

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edupulse/backend/internal/models"
	"github.com/edupulse/backend/internal/realtime"
	"github.com/edupulse/backend/internal/tags"
)

// PollStore persists polls.
type PollStore interface {
	Create(ctx context.Context, p *models.Poll) error
	GetByID(ctx context.Context, id int64) (*models.Poll, error)
	Close(ctx context.Context, id int64) error
	ListActive(ctx context.Context, subject string) ([]*models.Poll, error)
}

// VoteStore persists votes with one-row-per-(poll,user) upsert semantics.
type VoteStore interface {
	Upsert(ctx context.Context, v *models.Vote) error
	CountByOption(ctx context.Context, pollID int64) (map[int]int, error)
}

// ContentStore looks up course material by tag overlap.
type ContentStore interface {
	FindByTagOverlap(ctx context.Context, tagList []string, limit int) ([]*models.ContentSummary, error)
}

// CreateInput carries the parameters for a new poll.
type CreateInput struct {
	Title                string
	Question             string
	Options              []string
	CreatedBy            int64
	Subject              string
	DepartmentID         *int64
	ContentID            *int64
	TimerDurationSeconds int
}

// Service owns the poll lifecycle: Active -> Closed, exactly once. It
// schedules a cancellable auto-close timer per poll and emits every state
// change through the hub.
type Service struct {
	polls     PollStore
	votes     VoteStore
	content   ContentStore
	generator tags.Generator
	hub       *realtime.Hub
	cache     *ResultsCache
	logger    *zap.Logger

	mu     sync.Mutex
	timers map[int64]*time.Timer
}

// NewService creates the poll lifecycle controller. generator and cache
// may be nil; the service falls back to local keywords and uncached reads.
func NewService(polls PollStore, votes VoteStore, content ContentStore, generator tags.Generator, hub *realtime.Hub, cache *ResultsCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		polls:     polls,
		votes:     votes,
		content:   content,
		generator: generator,
		hub:       hub,
		cache:     cache,
		logger:    logger,
		timers:    make(map[int64]*time.Timer),
	}
}

// Create validates and persists a new active poll, schedules its auto-close
// and broadcasts poll:created to the poll's department and subject.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Poll, error) {
	if strings.TrimSpace(in.Question) == "" || strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title and question are required", ErrInvalidPoll)
	}
	if len(in.Options) < 2 {
		return nil, fmt.Errorf("%w: at least 2 options required", ErrInvalidPoll)
	}

	duration := in.TimerDurationSeconds
	if duration <= 0 {
		duration = models.DefaultPollTimerSeconds
	}

	options := make([]models.Option, len(in.Options))
	for i, text := range in.Options {
		options[i] = models.Option{Index: i, Text: text}
	}

	p := &models.Poll{
		Title:                in.Title,
		Question:             in.Question,
		Options:              options,
		CreatedBy:            in.CreatedBy,
		Subject:              in.Subject,
		DepartmentID:         in.DepartmentID,
		ContentID:            in.ContentID,
		Tags:                 s.generateTags(ctx, in.Question),
		TimerDurationSeconds: duration,
		ExpiresAt:            time.Now().Add(time.Duration(duration) * time.Second),
		IsActive:             true,
	}
	if err := s.polls.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}

	s.scheduleAutoClose(p.ID, time.Duration(duration)*time.Second)

	s.hub.Broadcast("poll:created", p, realtime.Filter{
		DepartmentID: p.DepartmentID,
		Subject:      p.Subject,
	})
	s.logger.Info("poll created", zap.Int64("poll_id", p.ID), zap.String("subject", p.Subject))
	return p, nil
}

// Get returns a poll by id.
func (s *Service) Get(ctx context.Context, pollID int64) (*models.Poll, error) {
	return s.polls.GetByID(ctx, pollID)
}

// ListActive returns active polls, optionally filtered by subject.
func (s *Service) ListActive(ctx context.Context, subject string) ([]*models.Poll, error) {
	return s.polls.ListActive(ctx, subject)
}

// Vote records or overwrites the user's vote (last vote wins), recomputes
// the tally and broadcasts poll:vote to the poll's department.
func (s *Service) Vote(ctx context.Context, pollID, userID int64, optionIndex int) (*models.PollResults, error) {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrPollClosed
	}
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return nil, ErrInvalidOption
	}

	if err := s.votes.Upsert(ctx, &models.Vote{PollID: pollID, UserID: userID, OptionIndex: optionIndex}); err != nil {
		return nil, fmt.Errorf("record vote: %w", err)
	}
	s.cache.Invalidate(ctx, pollID)

	results, err := s.computeResults(ctx, p)
	if err != nil {
		return nil, err
	}
	if p.DepartmentID != nil {
		s.hub.SendToDepartment("poll:vote", results, *p.DepartmentID)
	} else {
		s.hub.Broadcast("poll:vote", results, realtime.Filter{})
	}
	return results, nil
}

// Close transitions the poll to its terminal state. Idempotent: closing an
// already-closed poll only returns the final tally. A manual close cancels
// the pending auto-close timer.
func (s *Service) Close(ctx context.Context, pollID int64) (*models.PollResults, error) {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return s.Results(ctx, pollID)
	}

	if err := s.polls.Close(ctx, pollID); err != nil {
		return nil, fmt.Errorf("close poll: %w", err)
	}
	s.cancelAutoClose(pollID)
	s.cache.Invalidate(ctx, pollID)

	p.IsActive = false
	results, err := s.computeResults(ctx, p)
	if err != nil {
		return nil, err
	}
	if p.DepartmentID != nil {
		s.hub.SendToDepartment("poll:closed", results, *p.DepartmentID)
	} else {
		s.hub.Broadcast("poll:closed", results, realtime.Filter{})
	}
	s.logger.Info("poll closed", zap.Int64("poll_id", pollID))
	return results, nil
}

// Results returns the tally: per-option-text counts, total and rounded
// percentages. Served from the cache when fresh.
func (s *Service) Results(ctx context.Context, pollID int64) (*models.PollResults, error) {
	if cached, ok := s.cache.Get(ctx, pollID); ok {
		return cached, nil
	}
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return s.computeResults(ctx, p)
}

// FindRelatedContent returns course material whose tags overlap the
// poll's tags. A poll without tags has no related content.
func (s *Service) FindRelatedContent(ctx context.Context, pollID int64, limit int) ([]*models.ContentSummary, error) {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if len(p.Tags) == 0 {
		return []*models.ContentSummary{}, nil
	}
	if limit <= 0 {
		limit = 3
	}
	return s.content.FindByTagOverlap(ctx, p.Tags, limit)
}

// StopTimers cancels all pending auto-close timers. Used on shutdown; the
// polls re-close on expiry anyway because Close is idempotent.
func (s *Service) StopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Service) generateTags(ctx context.Context, question string) []string {
	if s.generator != nil {
		generated, err := s.generator.Generate(ctx, question)
		if err == nil && len(generated) > 0 {
			return generated
		}
		if err != nil {
			s.logger.Warn("tag service unavailable, using local keywords", zap.Error(err))
		}
	}
	return tags.Keywords(question)
}

func (s *Service) scheduleAutoClose(pollID int64, after time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[pollID] = time.AfterFunc(after, func() {
		s.mu.Lock()
		delete(s.timers, pollID)
		s.mu.Unlock()
		if _, err := s.Close(context.Background(), pollID); err != nil {
			s.logger.Warn("auto-close failed", zap.Int64("poll_id", pollID), zap.Error(err))
		}
	})
}

func (s *Service) cancelAutoClose(pollID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[pollID]; ok {
		t.Stop()
		delete(s.timers, pollID)
	}
}

func (s *Service) computeResults(ctx context.Context, p *models.Poll) (*models.PollResults, error) {
	counts, err := s.votes.CountByOption(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}

	votes := make(map[string]int, len(p.Options))
	for _, opt := range p.Options {
		votes[opt.Text] += 0
	}
	total := 0
	for _, opt := range p.Options {
		if c, ok := counts[opt.Index]; ok {
			votes[opt.Text] += c
			total += c
		}
	}

	percentages := make(map[string]int, len(votes))
	for text, c := range votes {
		if total > 0 {
			percentages[text] = int(math.Round(float64(c) / float64(total) * 100))
		} else {
			percentages[text] = 0
		}
	}

	results := &models.PollResults{Poll: p, Votes: votes, Total: total, Percentages: percentages}
	s.cache.Set(ctx, p.ID, results)
	return results, nil
}
