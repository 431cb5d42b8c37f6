package model

import (
	"encoding/json"
	"time"
)

type CompletedSession struct {
	ID                  string          `db:"id" json:"id"`
	UserID              string          `db:"user_id" json:"userId"`
	SessionID           string          `db:"session_id" json:"sessionId"`
	Track               TrackName       `db:"track" json:"track"`
	LastStage           int             `db:"last_stage" json:"lastStage"`
	StartTime           time.Time       `db:"start_time" json:"startTime"`
	EndTime             time.Time       `db:"end_time" json:"endTime"`
	Summary             json.RawMessage `db:"summary" json:"summary"`
	ConversationHistory string          `db:"conversation_history" json:"-"`
	HistoryEncrypted    bool            `db:"history_encrypted" json:"historyEncrypted"`
	MessageCount        int             `db:"message_count" json:"messageCount"`
	CrisisDetected      bool            `db:"crisis_detected" json:"crisisDetected"`
	SessionCompleted    bool            `db:"session_completed" json:"sessionCompleted"`
	CreatedAt           time.Time       `db:"created_at" json:"createdAt"`
}

type CreateCompletedSessionParams struct {
	UserID              string
	SessionID           string
	Track               TrackName
	LastStage           int
	StartTime           time.Time
	EndTime             time.Time
	Summary             json.RawMessage
	ConversationHistory string
	HistoryEncrypted    bool
	MessageCount        int
	CrisisDetected      bool
	SessionCompleted    bool
}

// ArchiveSummary holds keyword-extracted highlights of a finished session.
type ArchiveSummary struct {
	Difficulties []string `json:"difficulties"`
	HelpNeeds    []string `json:"help_needs"`
	Barriers     []string `json:"barriers"`
	Helpers      []string `json:"helpers"`
	ActionPlans  []string `json:"action_plans"`
	Insights     []string `json:"insights"`
}

func (a ArchiveSummary) IsEmpty() bool {
	return len(a.Difficulties) == 0 && len(a.HelpNeeds) == 0 && len(a.Barriers) == 0 &&
		len(a.Helpers) == 0 && len(a.ActionPlans) == 0 && len(a.Insights) == 0
}

// ArchiveSessionID is the session id stored with an archived record.
func ArchiveSessionID(userID string, startedAt time.Time) string {
	return userID + "_" + startedAt.UTC().Format(time.RFC3339)
}
