package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
	"github.com/maeum-coach/coaching-server-go/internal/model"
	"github.com/maeum-coach/coaching-server-go/internal/repository"
	"github.com/maeum-coach/coaching-server-go/internal/retry"
)

var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// fakeSessionRepo keeps JSON-encoded sessions so that reads never alias writes.
type fakeSessionRepo struct {
	mu      sync.Mutex
	records map[string][]byte
	gets    int
	puts    int
	getErr  error
	putErr  error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{records: make(map[string][]byte)}
}

func (r *fakeSessionRepo) Get(ctx context.Context, userID string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.getErr != nil {
		return nil, r.getErr
	}
	raw, ok := r.records[userID]
	if !ok {
		return nil, nil
	}
	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *fakeSessionRepo) Put(ctx context.Context, session *model.Session, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts++
	if r.putErr != nil {
		return r.putErr
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	r.records[session.UserID] = raw
	return nil
}

func (r *fakeSessionRepo) stored(userID string) *model.Session {
	r.mu.Lock()
	raw, ok := r.records[userID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		panic(err)
	}
	return &s
}

func (r *fakeSessionRepo) seed(s *model.Session) {
	raw, _ := json.Marshal(s)
	r.mu.Lock()
	r.records[s.UserID] = raw
	r.mu.Unlock()
}

type fakeArchiveRepo struct {
	mu        sync.Mutex
	created   []model.CreateCompletedSessionParams
	recent    []model.CompletedSession
	createErr error
}

func (r *fakeArchiveRepo) Create(ctx context.Context, params model.CreateCompletedSessionParams) (*model.CompletedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.created = append(r.created, params)
	return &model.CompletedSession{UserID: params.UserID, SessionID: params.SessionID}, nil
}

func (r *fakeArchiveRepo) FindRecentByUserID(ctx context.Context, userID string, limit int) ([]model.CompletedSession, error) {
	return r.recent, nil
}

func (r *fakeArchiveRepo) DeleteEndedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeArchiveRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	return len(r.created), nil
}

func (r *fakeArchiveRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

// fakeModel routes each capability to an optional function. Unset functions
// fail with a transient error.
type fakeModel struct {
	mu         sync.Mutex
	complete   func(prompt string, history []model.Message) (string, error)
	generate   func(prompt string, history []model.Message) (string, error)
	structured func(prompt string, history []model.Message) (*model.CoachResponse, error)
	prompts    []string
}

var errModelDown = apperrors.UpstreamTransient("upstage", errors.New("503"))

func (m *fakeModel) record(prompt string) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
}

func (m *fakeModel) Complete(ctx context.Context, prompt string, history []model.Message) (string, error) {
	m.record(prompt)
	if m.complete == nil {
		return "", errModelDown
	}
	return m.complete(prompt, history)
}

func (m *fakeModel) Generate(ctx context.Context, prompt string, history []model.Message) (string, error) {
	m.record(prompt)
	if m.generate == nil {
		return "", errModelDown
	}
	return m.generate(prompt, history)
}

func (m *fakeModel) GenerateStructured(ctx context.Context, prompt string, history []model.Message) (*model.CoachResponse, error) {
	m.record(prompt)
	if m.structured == nil {
		return nil, errModelDown
	}
	return m.structured(prompt, history)
}

func noRetry() retry.Policy {
	return retry.Policy{Name: "test", MaxRetries: 0}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: testStart} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(repo *fakeSessionRepo, archive repository.CompletedSessionRepository, c *clock) *SessionStore {
	store := NewSessionStore(repo, archive, SessionStoreConfig{
		TTL:          24 * time.Hour,
		CacheTTL:     5 * time.Minute,
		DefaultTrack: model.TrackStudent,
		Retry:        noRetry(),
	})
	store.now = c.Now
	return store
}

// mockArchiveRepo is for tests that assert which archive calls happen and when.
type mockArchiveRepo struct {
	mock.Mock
}

func (m *mockArchiveRepo) Create(ctx context.Context, params model.CreateCompletedSessionParams) (*model.CompletedSession, error) {
	args := m.Called(ctx, params)
	cs, _ := args.Get(0).(*model.CompletedSession)
	return cs, args.Error(1)
}

func (m *mockArchiveRepo) FindRecentByUserID(ctx context.Context, userID string, limit int) ([]model.CompletedSession, error) {
	args := m.Called(ctx, userID, limit)
	sessions, _ := args.Get(0).([]model.CompletedSession)
	return sessions, args.Error(1)
}

func (m *mockArchiveRepo) DeleteEndedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockArchiveRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

var (
	_ repository.SessionRepository          = (*fakeSessionRepo)(nil)
	_ repository.CompletedSessionRepository = (*fakeArchiveRepo)(nil)
	_ repository.CompletedSessionRepository = (*mockArchiveRepo)(nil)
)
