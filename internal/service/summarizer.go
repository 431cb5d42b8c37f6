package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maeum-coach/coaching-server-go/internal/llm"
	"github.com/maeum-coach/coaching-server-go/internal/model"
	"github.com/maeum-coach/coaching-server-go/internal/util"
)

const (
	summaryInterval     = 5
	summaryWindow       = 5
	maxActionItems      = 10
	noPreviousSummary   = "없음"
	summarySystemPrompt = `당신은 코칭 대화를 정리하는 요약가입니다.
이전 요약과 최근 대화를 바탕으로 대화 전체의 요약을 갱신하세요.

[이전 요약]
%s

반드시 아래 JSON 형식으로만 응답하세요.
{
  "key_themes": ["주요 주제"],
  "insights": ["사용자가 얻은 통찰"],
  "challenges": "현재의 어려움",
  "progress": "코칭 진행 상황",
  "emotional_state": "현재 감정 상태",
  "action_items": ["사용자가 하기로 한 일"]
}`
)

type Summarizer struct {
	model CoachModel
	now   func() time.Time
}

func NewSummarizer(m CoachModel) *Summarizer {
	return &Summarizer{model: m, now: time.Now}
}

// ShouldSummarize reports whether the appended-message count is a positive
// multiple of the summary interval.
func (z *Summarizer) ShouldSummarize(s *model.Session) bool {
	return s.MessageCount > 0 && s.MessageCount%summaryInterval == 0
}

// Summarize refreshes the running summary. On any failure the session is
// left unchanged and false is returned.
func (z *Summarizer) Summarize(ctx context.Context, s *model.Session) bool {
	previous := noPreviousSummary
	if s.Summary != nil {
		raw, err := json.Marshal(s.Summary)
		if err == nil {
			previous = string(raw)
		}
	}

	reply, err := z.model.Complete(ctx, fmt.Sprintf(summarySystemPrompt, previous), s.RecentMessages(summaryWindow))
	if err != nil {
		log.Warn().Err(err).Str("user", util.MaskUserID(s.UserID)).Msg("summary request failed")
		return false
	}

	next, err := parseSummary(reply)
	if err != nil {
		log.Warn().Err(err).Str("user", util.MaskUserID(s.UserID)).Msg("summary reply unusable")
		return false
	}

	now := z.now()
	if s.Summary != nil {
		changes := DiffSummaries(*s.Summary, next)
		if changes.IsEmpty() {
			s.SignificantChanges = nil
		} else {
			s.SignificantChanges = &changes
		}
	}
	s.Summary = &next
	s.PushSnapshot(next.Clone(), now)
	s.ActionItems = mergeActionItems(s.ActionItems, next.ActionItems)

	log.Debug().
		Str("user", util.MaskUserID(s.UserID)).
		Int("snapshots", len(s.SummaryHistory)).
		Bool("changed", s.SignificantChanges != nil).
		Msg("session summary updated")
	return true
}

func parseSummary(reply string) (model.Summary, error) {
	block, ok := llm.ExtractJSON(reply)
	if !ok {
		return model.Summary{}, fmt.Errorf("no JSON object in summary reply")
	}
	var sum model.Summary
	if err := json.Unmarshal([]byte(block), &sum); err != nil {
		return model.Summary{}, fmt.Errorf("decode summary: %w", err)
	}
	return sum, nil
}

// DiffSummaries compares consecutive summaries: themes added and removed,
// insights that are new, and any change of emotional state.
func DiffSummaries(prev, next model.Summary) model.SignificantChanges {
	changes := model.SignificantChanges{
		ThemesAdded:   difference(next.KeyThemes, prev.KeyThemes),
		ThemesRemoved: difference(prev.KeyThemes, next.KeyThemes),
		NewInsights:   difference(next.Insights, prev.Insights),
	}
	if strings.TrimSpace(string(prev.EmotionalState)) != strings.TrimSpace(string(next.EmotionalState)) {
		changes.EmotionalShift = &model.EmotionalShift{
			From: string(prev.EmotionalState),
			To:   string(next.EmotionalState),
		}
	}
	return changes
}

// difference returns items of a not present in b, in a's order.
func difference(a, b []string) []string {
	var out []string
	for _, item := range a {
		if !slices.Contains(b, item) && !slices.Contains(out, item) {
			out = append(out, item)
		}
	}
	return out
}

func mergeActionItems(existing, incoming []string) []string {
	merged := slices.Clone(existing)
	for _, item := range incoming {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if i := slices.Index(merged, item); i >= 0 {
			merged = slices.Delete(merged, i, i+1)
		}
		merged = append(merged, item)
	}
	if len(merged) > maxActionItems {
		merged = merged[len(merged)-maxActionItems:]
	}
	if merged == nil {
		merged = []string{}
	}
	return merged
}
