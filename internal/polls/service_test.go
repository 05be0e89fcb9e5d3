package polls

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edupulse/backend/internal/models"
	"github.com/edupulse/backend/internal/realtime"
)

type fakePollStore struct {
	mu         sync.Mutex
	seq        int64
	polls      map[int64]*models.Poll
	closeCalls int
}

func newFakePollStore() *fakePollStore {
	return &fakePollStore{polls: make(map[int64]*models.Poll)}
}

func (s *fakePollStore) Create(_ context.Context, p *models.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	p.ID = s.seq
	p.CreatedAt = time.Now()
	cp := *p
	s.polls[p.ID] = &cp
	return nil
}

func (s *fakePollStore) GetByID(_ context.Context, id int64) (*models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[id]
	if !ok {
		return nil, ErrPollNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakePollStore) Close(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.polls[id]; ok && p.IsActive {
		p.IsActive = false
		s.closeCalls++
	}
	return nil
}

func (s *fakePollStore) ListActive(_ context.Context, subject string) ([]*models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Poll
	for _, p := range s.polls {
		if p.IsActive && (subject == "" || p.Subject == subject) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type voteKey struct{ pollID, userID int64 }

type fakeVoteStore struct {
	mu    sync.Mutex
	votes map[voteKey]int
}

func newFakeVoteStore() *fakeVoteStore {
	return &fakeVoteStore{votes: make(map[voteKey]int)}
}

func (s *fakeVoteStore) Upsert(_ context.Context, v *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[voteKey{v.PollID, v.UserID}] = v.OptionIndex
	return nil
}

func (s *fakeVoteStore) CountByOption(_ context.Context, pollID int64) (map[int]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int]int)
	for k, idx := range s.votes {
		if k.pollID == pollID {
			counts[idx]++
		}
	}
	return counts, nil
}

type fakeContentStore struct {
	mu      sync.Mutex
	calls   int
	gotTags []string
	result  []*models.ContentSummary
}

func (s *fakeContentStore) FindByTagOverlap(_ context.Context, tagList []string, _ int) ([]*models.ContentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.gotTags = tagList
	return s.result, nil
}

type stubGenerator struct {
	tags []string
	err  error
}

func (g *stubGenerator) Generate(context.Context, string) ([]string, error) {
	return g.tags, g.err
}

type env struct {
	service  *Service
	polls    *fakePollStore
	votes    *fakeVoteStore
	content  *fakeContentStore
	registry *realtime.Registry
	hub      *realtime.Hub
}

func newEnv(t *testing.T, gen *stubGenerator) *env {
	t.Helper()
	pollStore := newFakePollStore()
	voteStore := newFakeVoteStore()
	contentStore := &fakeContentStore{}
	registry := realtime.NewRegistry(nil)
	hub := realtime.NewHub(registry, nil)

	var svc *Service
	if gen != nil {
		svc = NewService(pollStore, voteStore, contentStore, gen, hub, nil, nil)
	} else {
		svc = NewService(pollStore, voteStore, contentStore, nil, hub, nil, nil)
	}
	t.Cleanup(svc.StopTimers)
	return &env{service: svc, polls: pollStore, votes: voteStore, content: contentStore, registry: registry, hub: hub}
}

func validInput() CreateInput {
	return CreateInput{
		Title:     "Quick check",
		Question:  "What is the derivative of x squared?",
		Options:   []string{"2x", "x"},
		CreatedBy: 10,
		Subject:   "Math",
	}
}

func TestCreateRequiresTwoOptions(t *testing.T) {
	e := newEnv(t, nil)
	in := validInput()
	in.Options = []string{"only one"}

	_, err := e.service.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidPoll)
}

func TestCreateRequiresQuestion(t *testing.T) {
	e := newEnv(t, nil)
	in := validInput()
	in.Question = "   "

	_, err := e.service.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidPoll)
}

func TestCreateDefaultsTimerAndActivates(t *testing.T) {
	e := newEnv(t, nil)

	p, err := e.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.True(t, p.IsActive)
	require.Equal(t, models.DefaultPollTimerSeconds, p.TimerDurationSeconds)
	require.WithinDuration(t, time.Now().Add(30*time.Second), p.ExpiresAt, 2*time.Second)
	require.Equal(t, []models.Option{{Index: 0, Text: "2x"}, {Index: 1, Text: "x"}}, p.Options)
}

func TestCreateUsesGeneratorTags(t *testing.T) {
	e := newEnv(t, &stubGenerator{tags: []string{"derivatives", "calculus"}})

	p, err := e.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, []string{"derivatives", "calculus"}, p.Tags)
}

func TestCreateFallsBackToLocalKeywords(t *testing.T) {
	e := newEnv(t, &stubGenerator{err: errors.New("service down")})

	p, err := e.service.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.Contains(t, p.Tags, "derivative")
}

func TestVoteUnknownPoll(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.service.Vote(context.Background(), 99, 1, 0)
	require.ErrorIs(t, err, ErrPollNotFound)
}

func TestVoteInvalidOption(t *testing.T) {
	e := newEnv(t, nil)
	p, err := e.service.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = e.service.Vote(context.Background(), p.ID, 1, 2)
	require.ErrorIs(t, err, ErrInvalidOption)
	_, err = e.service.Vote(context.Background(), p.ID, 1, -1)
	require.ErrorIs(t, err, ErrInvalidOption)
}

func TestVoteUpsertLastVoteWins(t *testing.T) {
	e := newEnv(t, nil)
	p, err := e.service.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = e.service.Vote(context.Background(), p.ID, 1, 0)
	require.NoError(t, err)
	results, err := e.service.Vote(context.Background(), p.ID, 1, 1)
	require.NoError(t, err)

	require.Equal(t, 1, results.Total)
	require.Equal(t, 0, results.Votes["2x"])
	require.Equal(t, 1, results.Votes["x"])
}

func TestVoteTotalsMatchDistinctVoters(t *testing.T) {
	e := newEnv(t, nil)
	p, err := e.service.Create(context.Background(), validInput())
	require.NoError(t, err)

	for userID := int64(1); userID <= 3; userID++ {
		_, err = e.service.Vote(context.Background(), p.ID, userID, 0)
		require.NoError(t, err)
	}
	// user 1 changes their mind; total must not grow
	results, err := e.service.Vote(context.Background(), p.ID, 1, 1)
	require.NoError(t, err)

	require.Equal(t, 3, results.Total)
	require.Equal(t, 2, results.Votes["2x"])
	require.Equal(t, 1, results.Votes["x"])
	require.Equal(t, 67, results.Percentages["2x"])
	require.Equal(t, 33, results.Percentages["x"])
}

func TestVoteOnClosedPoll(t *testing.T) {
	e := newEnv(t, nil)
	p, err := e.service.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = e.service.Close(context.Background(), p.ID)
	require.NoError(t, err)

	_, err = e.service.Vote(context.Background(), p.ID, 1, 0)
	require.ErrorIs(t, err, ErrPollClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	e := newEnv(t, nil)
	p, err := e.service.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = e.service.Close(context.Background(), p.ID)
	require.NoError(t, err)
	results, err := e.service.Close(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, results)

	e.polls.mu.Lock()
	defer e.polls.mu.Unlock()
	require.Equal(t, 1, e.polls.closeCalls)
}

func TestManualCloseEmitsSingleClosedEvent(t *testing.T) {
	e := newEnv(t, nil)
	ft := &countingTransport{}
	e.registry.Register(ft)

	in := validInput()
	in.TimerDurationSeconds = 1
	p, err := e.service.Create(context.Background(), in)
	require.NoError(t, err)

	_, err = e.service.Close(context.Background(), p.ID)
	require.NoError(t, err)

	// the cancelled timer must not re-close after expiry
	time.Sleep(1200 * time.Millisecond)
	require.Equal(t, 1, ft.countType(t, "poll:closed"))
}

func TestAutoCloseFiresAtExpiry(t *testing.T) {
	e := newEnv(t, nil)
	in := validInput()
	in.TimerDurationSeconds = 1

	p, err := e.service.Create(context.Background(), in)
	require.NoError(t, err)

	time.Sleep(1200 * time.Millisecond)

	got, err := e.service.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	_, err = e.service.Vote(context.Background(), p.ID, 1, 0)
	require.ErrorIs(t, err, ErrPollClosed)
}

func TestResultsZeroVotes(t *testing.T) {
	e := newEnv(t, nil)
	p, err := e.service.Create(context.Background(), validInput())
	require.NoError(t, err)

	results, err := e.service.Results(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, 0, results.Total)
	require.Equal(t, map[string]int{"2x": 0, "x": 0}, results.Votes)
	require.Equal(t, map[string]int{"2x": 0, "x": 0}, results.Percentages)
}

func TestResultsCollapseDuplicateOptionText(t *testing.T) {
	e := newEnv(t, nil)
	in := validInput()
	in.Options = []string{"yes", "no", "yes"}
	p, err := e.service.Create(context.Background(), in)
	require.NoError(t, err)

	_, err = e.service.Vote(context.Background(), p.ID, 1, 0)
	require.NoError(t, err)
	_, err = e.service.Vote(context.Background(), p.ID, 2, 2)
	require.NoError(t, err)

	results, err := e.service.Results(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, 2, results.Votes["yes"])
	require.Equal(t, 0, results.Votes["no"])
	require.Equal(t, 2, results.Total)
}

func TestFindRelatedContentWithoutTags(t *testing.T) {
	e := newEnv(t, &stubGenerator{tags: []string{}})
	in := validInput()
	in.Question = "ab cd" // too short for local keywords as well

	p, err := e.service.Create(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, p.Tags)

	list, err := e.service.FindRelatedContent(context.Background(), p.ID, 3)
	require.NoError(t, err)
	require.Empty(t, list)

	e.content.mu.Lock()
	defer e.content.mu.Unlock()
	require.Equal(t, 0, e.content.calls)
}

func TestFindRelatedContentQueriesByPollTags(t *testing.T) {
	e := newEnv(t, &stubGenerator{tags: []string{"calculus"}})
	e.content.result = []*models.ContentSummary{{ID: 1, Title: "Derivatives 101"}}

	p, err := e.service.Create(context.Background(), validInput())
	require.NoError(t, err)

	list, err := e.service.FindRelatedContent(context.Background(), p.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	e.content.mu.Lock()
	defer e.content.mu.Unlock()
	require.Equal(t, []string{"calculus"}, e.content.gotTags)
}

func TestCreateBroadcastsToDepartmentAndSubject(t *testing.T) {
	e := newEnv(t, nil)

	match := &countingTransport{}
	wrongDept := &countingTransport{}
	idM := e.registry.Register(match)
	idW := e.registry.Register(wrongDept)
	dep5, dep7 := int64(5), int64(7)
	e.registry.Authenticate(idM, 1, &dep5, []string{"Math"})
	e.registry.Authenticate(idW, 2, &dep7, []string{"Math"})

	in := validInput()
	in.DepartmentID = &dep5
	_, err := e.service.Create(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, 1, match.countType(t, "poll:created"))
	require.Equal(t, 0, wrongDept.countType(t, "poll:created"))
}
