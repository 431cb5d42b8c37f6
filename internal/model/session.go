package model

import (
	"slices"
	"time"
)

const (
	MaxHistoryEntries = 20
	MaxSummarySnaps   = 5
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Session is the live coaching state for one Kakao user. It is stored as a
// single JSON document keyed by user id.
type Session struct {
	UserID             string              `json:"user_id"`
	Track              TrackName           `json:"track"`
	StageIndex         int                 `json:"current_stage"`
	StageQuestionCount int                 `json:"stage_question_count"`
	MessageCount       int                 `json:"message_count"`
	History            []Message           `json:"conversation_history"`
	CoachingGoals      []string            `json:"coaching_goals"`
	ActionItems        []string            `json:"action_items"`
	Summary            *Summary            `json:"session_summary,omitempty"`
	SummaryHistory     []SummarySnapshot   `json:"summary_history"`
	SignificantChanges *SignificantChanges `json:"significant_changes,omitempty"`
	LastAnalysis       *Analysis           `json:"last_analysis,omitempty"`
	StartedAt          time.Time           `json:"session_start_time"`
	LastInteraction    time.Time           `json:"last_interaction"`
	ExpiresAt          time.Time           `json:"expires_at"`
	CrisisDetected     bool                `json:"crisis_detected"`
	CrisisAt           *time.Time          `json:"crisis_detected_at,omitempty"`
	AwaitingTrack      bool                `json:"awaiting_track_selection"`
	AwaitingResume     bool                `json:"awaiting_resume_response"`
	Completed          bool                `json:"session_completed"`
	Archived           bool                `json:"archived"`
}

func NewSession(userID string, track TrackName, now time.Time) *Session {
	return &Session{
		UserID:          userID,
		Track:           track,
		History:         []Message{},
		CoachingGoals:   []string{},
		ActionItems:     []string{},
		SummaryHistory:  []SummarySnapshot{},
		StartedAt:       now,
		LastInteraction: now,
	}
}

// AppendMessage adds an entry and drops the oldest ones beyond MaxHistoryEntries.
func (s *Session) AppendMessage(role Role, content string, at time.Time) {
	s.History = append(s.History, Message{Role: role, Content: content, Timestamp: at})
	if over := len(s.History) - MaxHistoryEntries; over > 0 {
		s.History = slices.Delete(s.History, 0, over)
	}
	s.MessageCount++
}

// RecentMessages returns up to the last n entries. The slice aliases History.
func (s *Session) RecentMessages(n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

func (s *Session) HasHistory() bool {
	return len(s.History) > 0
}

func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// PushSnapshot records a summary and keeps the last MaxSummarySnaps.
func (s *Session) PushSnapshot(summary Summary, at time.Time) {
	s.SummaryHistory = append(s.SummaryHistory, SummarySnapshot{Timestamp: at, Summary: summary})
	if over := len(s.SummaryHistory) - MaxSummarySnaps; over > 0 {
		s.SummaryHistory = slices.Delete(s.SummaryHistory, 0, over)
	}
}

func (s *Session) MarkCrisis(at time.Time) bool {
	if s.CrisisDetected {
		return false
	}
	s.CrisisDetected = true
	s.CrisisAt = &at
	return true
}

// Clone returns a deep copy so cached sessions are never mutated in place.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.History = slices.Clone(s.History)
	c.CoachingGoals = slices.Clone(s.CoachingGoals)
	c.ActionItems = slices.Clone(s.ActionItems)
	if s.SummaryHistory != nil {
		c.SummaryHistory = make([]SummarySnapshot, len(s.SummaryHistory))
		for i, snap := range s.SummaryHistory {
			c.SummaryHistory[i] = SummarySnapshot{Timestamp: snap.Timestamp, Summary: snap.Summary.Clone()}
		}
	}
	if s.Summary != nil {
		sum := s.Summary.Clone()
		c.Summary = &sum
	}
	if s.SignificantChanges != nil {
		sc := s.SignificantChanges.Clone()
		c.SignificantChanges = &sc
	}
	if s.LastAnalysis != nil {
		a := *s.LastAnalysis
		a.ObjectivesMet = slices.Clone(a.ObjectivesMet)
		a.KeyInsights = slices.Clone(a.KeyInsights)
		c.LastAnalysis = &a
	}
	if s.CrisisAt != nil {
		at := *s.CrisisAt
		c.CrisisAt = &at
	}
	return &c
}
