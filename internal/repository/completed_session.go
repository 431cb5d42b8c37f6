package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/maeum-coach/coaching-server-go/internal/database"
	"github.com/maeum-coach/coaching-server-go/internal/model"
)

type CompletedSessionRepository interface {
	// Create returns nil without error when session_id was already archived.
	Create(ctx context.Context, params model.CreateCompletedSessionParams) (*model.CompletedSession, error)
	FindRecentByUserID(ctx context.Context, userID string, limit int) ([]model.CompletedSession, error)
	DeleteEndedBefore(ctx context.Context, before time.Time) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type completedSessionRepo struct {
	db database.Querier
}

func NewCompletedSessionRepository(db *sqlx.DB) CompletedSessionRepository {
	return &completedSessionRepo{db: db}
}

func (r *completedSessionRepo) Create(ctx context.Context, params model.CreateCompletedSessionParams) (*model.CompletedSession, error) {
	summary := params.Summary
	if len(summary) == 0 {
		summary = []byte("{}")
	}

	var cs model.CompletedSession
	err := r.db.GetContext(ctx, &cs, `
		INSERT INTO completed_sessions (
			id, user_id, session_id, track, last_stage, start_time, end_time,
			summary, conversation_history, history_encrypted, message_count,
			crisis_detected, session_completed
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING *
	`, uuid.NewString(), params.UserID, params.SessionID, params.Track, params.LastStage,
		params.StartTime, params.EndTime, summary, params.ConversationHistory,
		params.HistoryEncrypted, params.MessageCount, params.CrisisDetected, params.SessionCompleted)
	return foundOrNil(&cs, err)
}

func (r *completedSessionRepo) FindRecentByUserID(ctx context.Context, userID string, limit int) ([]model.CompletedSession, error) {
	var sessions []model.CompletedSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM completed_sessions
		WHERE user_id = $1
		ORDER BY end_time DESC
		LIMIT $2
	`, userID, limit)
	return sessions, err
}

func (r *completedSessionRepo) DeleteEndedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM completed_sessions WHERE end_time < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *completedSessionRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM completed_sessions WHERE end_time >= $1
	`, since)
	return count, err
}

// foundOrNil maps sql.ErrNoRows, including an INSERT skipped by ON CONFLICT,
// to a nil row.
func foundOrNil[T any](row *T, err error) (*T, error) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return row, nil
}
