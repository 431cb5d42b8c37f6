package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
	"github.com/maeum-coach/coaching-server-go/internal/model"
	rkeys "github.com/maeum-coach/coaching-server-go/internal/redis"
)

// SessionRepository stores live sessions as JSON documents with a TTL.
type SessionRepository interface {
	// Get returns nil without error when no record exists.
	Get(ctx context.Context, userID string) (*model.Session, error)
	Put(ctx context.Context, session *model.Session, ttl time.Duration) error
}

type sessionRepo struct {
	client redis.UniversalClient
}

func NewSessionRepository(client redis.UniversalClient) SessionRepository {
	return &sessionRepo{client: client}
}

func (r *sessionRepo) Get(ctx context.Context, userID string) (*model.Session, error) {
	raw, err := r.client.Get(ctx, rkeys.SessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.UpstreamTransient("redis", err)
	}

	session, err := decodeSession(raw)
	if err != nil {
		return nil, apperrors.UpstreamMalformed("redis", err.Error())
	}
	if session.UserID == "" {
		session.UserID = userID
	}
	return session, nil
}

func (r *sessionRepo) Put(ctx context.Context, session *model.Session, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, rkeys.SessionKey(session.UserID), raw, ttl).Err(); err != nil {
		return apperrors.UpstreamTransient("redis", err)
	}
	return nil
}

// sessionRecord shadows the counters so records written by older clients
// with quoted or fractional numbers still decode.
type sessionRecord struct {
	*model.Session
	StageIndex         flexInt `json:"current_stage"`
	StageQuestionCount flexInt `json:"stage_question_count"`
	MessageCount       flexInt `json:"message_count"`
}

func decodeSession(raw []byte) (*model.Session, error) {
	rec := sessionRecord{Session: &model.Session{}}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}

	s := rec.Session
	s.StageIndex = max(int(rec.StageIndex), 0)
	s.StageQuestionCount = max(int(rec.StageQuestionCount), 0)
	s.MessageCount = max(int(rec.MessageCount), 0)
	if over := len(s.History) - model.MaxHistoryEntries; over > 0 {
		s.History = s.History[over:]
	}
	if over := len(s.SummaryHistory) - model.MaxSummarySnaps; over > 0 {
		s.SummaryHistory = s.SummaryHistory[over:]
	}
	return s, nil
}

type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("expected integer, got %s", data)
		}
		n = json.Number(s)
	}

	if i, err := n.Int64(); err == nil {
		*f = flexInt(i)
		return nil
	}
	fl, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return fmt.Errorf("expected integer, got %s", data)
	}
	*f = flexInt(int(fl))
	return nil
}
