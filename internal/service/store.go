package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
	"github.com/maeum-coach/coaching-server-go/internal/model"
	"github.com/maeum-coach/coaching-server-go/internal/repository"
	"github.com/maeum-coach/coaching-server-go/internal/retry"
	"github.com/maeum-coach/coaching-server-go/internal/util"
)

type SessionStoreConfig struct {
	TTL           time.Duration
	CacheTTL      time.Duration
	DefaultTrack  model.TrackName
	EncryptionKey string
	Retry         retry.Policy
}

type cacheEntry struct {
	session   *model.Session
	expiresAt time.Time
}

// SessionStore is the read-through cache in front of the live session
// repository. Get never fails: when the backing store is unreachable an
// in-memory default session is returned.
type SessionStore struct {
	sessions repository.SessionRepository
	archive  repository.CompletedSessionRepository
	cfg      SessionStoreConfig

	mu    sync.Mutex
	cache map[string]cacheEntry
	group singleflight.Group

	now func() time.Time
}

func NewSessionStore(
	sessions repository.SessionRepository,
	archive repository.CompletedSessionRepository,
	cfg SessionStoreConfig,
) *SessionStore {
	if cfg.Retry.Name == "" {
		cfg.Retry.Name = "session-store"
	}
	if !cfg.DefaultTrack.Valid() {
		cfg.DefaultTrack = model.TrackStudent
	}
	return &SessionStore{
		sessions: sessions,
		archive:  archive,
		cfg:      cfg,
		cache:    make(map[string]cacheEntry),
		now:      time.Now,
	}
}

func (s *SessionStore) Get(ctx context.Context, userID string) *model.Session {
	if cached := s.cached(userID); cached != nil {
		return cached
	}

	v, _, _ := s.group.Do(userID, func() (any, error) {
		return s.load(ctx, userID), nil
	})
	return v.(*model.Session).Clone()
}

func (s *SessionStore) load(ctx context.Context, userID string) *model.Session {
	var stored *model.Session
	err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var getErr error
		stored, getErr = s.sessions.Get(ctx, userID)
		return getErr
	})

	switch {
	case err != nil && apperrors.GetCode(err) == apperrors.ErrCodeUpstreamMalformed:
		log.Warn().Err(err).Str("user", util.MaskUserID(userID)).Msg("discarding unreadable session record")
	case err != nil:
		log.Error().
			Err(apperrors.StoreUnavailable(err)).
			Str("user", util.MaskUserID(userID)).
			Msg("session store unreachable, continuing with in-memory session")
		return s.newSession(userID)
	case stored != nil && !stored.IsExpired(s.now()):
		s.remember(stored)
		return stored
	case stored != nil:
		log.Info().Str("user", util.MaskUserID(userID)).Msg("session expired, starting fresh")
	}

	fresh := s.newSession(userID)
	s.Put(ctx, fresh)
	return fresh
}

// Put stamps the session, writes it through and refreshes the cache.
// Write failures are logged and the cached copy is dropped.
func (s *SessionStore) Put(ctx context.Context, session *model.Session) {
	now := s.now()
	session.LastInteraction = now
	session.ExpiresAt = now.Add(s.cfg.TTL)
	s.coerce(session)

	err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		return s.sessions.Put(ctx, session, s.cfg.TTL)
	})
	if err != nil {
		s.Invalidate(session.UserID)
		log.Error().
			Err(err).
			Str("user", util.MaskUserID(session.UserID)).
			Msg("failed to persist session")
		return
	}
	s.remember(session)
}

// Archive writes an immutable completed-session record. Sessions without
// history, or already archived, are skipped.
func (s *SessionStore) Archive(ctx context.Context, session *model.Session) error {
	if !session.HasHistory() || session.Archived {
		return nil
	}

	summary, _, err := util.SealJSON("", ExtractArchiveSummary(session))
	if err != nil {
		return fmt.Errorf("encode archive summary: %w", err)
	}
	history, encrypted, err := util.SealJSON(s.cfg.EncryptionKey, session.History)
	if err != nil {
		return fmt.Errorf("seal conversation history: %w", err)
	}

	_, err = s.archive.Create(ctx, model.CreateCompletedSessionParams{
		UserID:              session.UserID,
		SessionID:           model.ArchiveSessionID(session.UserID, session.StartedAt),
		Track:               session.Track,
		LastStage:           session.StageIndex,
		StartTime:           session.StartedAt,
		EndTime:             s.now(),
		Summary:             []byte(summary),
		ConversationHistory: history,
		HistoryEncrypted:    encrypted,
		MessageCount:        session.MessageCount,
		CrisisDetected:      session.CrisisDetected,
		SessionCompleted:    session.Completed,
	})
	if err != nil {
		return apperrors.Database(err)
	}

	session.Archived = true
	log.Info().
		Str("user", util.MaskUserID(session.UserID)).
		Int("messages", session.MessageCount).
		Bool("encrypted", encrypted).
		Msg("session archived")
	return nil
}

type ResetOptions struct {
	Track      model.TrackName
	AwaitTrack bool
}

// Reset archives the current session and persists a fresh one.
func (s *SessionStore) Reset(ctx context.Context, userID string, opts ResetOptions) *model.Session {
	current := s.Get(ctx, userID)
	if err := s.Archive(ctx, current); err != nil {
		log.Error().Err(err).Str("user", util.MaskUserID(userID)).Msg("failed to archive session on reset")
	}

	fresh := s.newSession(userID)
	if opts.Track.Valid() {
		fresh.Track = opts.Track
	}
	fresh.AwaitingTrack = opts.AwaitTrack
	s.Put(ctx, fresh)
	return fresh.Clone()
}

// PreviousContext summarizes the latest archived session for the opening prompt.
func (s *SessionStore) PreviousContext(ctx context.Context, userID string) string {
	recent, err := s.archive.FindRecentByUserID(ctx, userID, 1)
	if err != nil {
		log.Warn().Err(err).Str("user", util.MaskUserID(userID)).Msg("failed to load previous sessions")
		return ""
	}
	if len(recent) == 0 {
		return ""
	}

	var summary model.ArchiveSummary
	if err := util.OpenJSON("", string(recent[0].Summary), false, &summary); err != nil {
		log.Warn().Err(err).Msg("unreadable archive summary")
		return ""
	}
	if summary.IsEmpty() {
		return ""
	}

	var parts []string
	if len(summary.Difficulties) > 0 {
		parts = append(parts, "이전에 이야기했던 어려움: "+strings.Join(summary.Difficulties, ", "))
	}
	if len(summary.ActionPlans) > 0 {
		parts = append(parts, "지난번에 계획했던 것: "+strings.Join(summary.ActionPlans, ", "))
	}
	if len(summary.Helpers) > 0 {
		parts = append(parts, "도움받을 수 있다고 했던 사람: "+strings.Join(summary.Helpers, ", "))
	}
	if len(parts) == 0 {
		return ""
	}
	return "[이전 대화 참고]\n" + strings.Join(parts, "\n") + "\n자연스럽게 이전 대화 내용을 언급하며 시작하세요."
}

func (s *SessionStore) Invalidate(userID string) {
	s.mu.Lock()
	delete(s.cache, userID)
	s.mu.Unlock()
}

// PurgeExpiredCache drops stale cache entries and reports how many were removed.
func (s *SessionStore) PurgeExpiredCache(ctx context.Context) (int64, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for userID, entry := range s.cache {
		if !now.Before(entry.expiresAt) {
			delete(s.cache, userID)
			removed++
		}
	}
	return removed, nil
}

func (s *SessionStore) CacheSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

func (s *SessionStore) cached(userID string) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[userID]
	if !ok {
		return nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.cache, userID)
		return nil
	}
	return entry.session.Clone()
}

func (s *SessionStore) remember(session *model.Session) {
	if s.cfg.CacheTTL <= 0 {
		return
	}
	s.mu.Lock()
	s.cache[session.UserID] = cacheEntry{
		session:   session.Clone(),
		expiresAt: s.now().Add(s.cfg.CacheTTL),
	}
	s.mu.Unlock()
}

func (s *SessionStore) newSession(userID string) *model.Session {
	return model.NewSession(userID, s.cfg.DefaultTrack, s.now())
}

func (s *SessionStore) coerce(session *model.Session) {
	session.StageIndex = max(session.StageIndex, 0)
	session.StageQuestionCount = max(session.StageQuestionCount, 0)
	session.MessageCount = max(session.MessageCount, 0)
	if !session.Track.Valid() {
		session.Track = s.cfg.DefaultTrack
	}
	if track := TrackFor(session.Track); session.StageIndex >= len(track.Stages) {
		session.StageIndex = len(track.Stages) - 1
	}
}
