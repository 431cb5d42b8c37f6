package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/maeum-coach/coaching-server-go/internal/model"
)

const promptExchanges = 3

const noSummaryMarker = "요약 없음"

const noGoalsMarker = "아직 정해진 코칭 목표가 없습니다."

const coachingPrinciples = `중요한 코칭 원칙:
1. 사용자의 답변을 깊이 파고들지 말고, 단계의 목표에 맞는 새로운 질문으로 전환하세요
2. 같은 주제를 반복해서 묻지 마세요
3. 사용자가 충분히 답했다면 다음 관점의 질문으로 넘어가세요
4. 단계별 목표를 달성하기 위한 핵심 질문을 하세요
5. 사용자의 답변이 짧아도 계속 파고들지 말고 다른 각도의 질문을 하세요`

const structuredInstruction = `반드시 아래 JSON 형식으로만 응답하세요. 다른 텍스트는 포함하지 마세요.
{
  "analysis": {
    "stage_progress": "early | middle | late",
    "objectives_met": ["달성한 단계 목표"],
    "transition_readiness": true 또는 false,
    "key_insights": ["사용자에 대해 새로 알게 된 점"]
  },
  "response": {
    "coaching_message": "공감과 반영을 담은 한두 문장",
    "next_question": "단 하나의 다음 질문"
  },
  "meta": {
    "suggested_focus": "다음에 집중할 부분",
    "notes": "코치 메모"
  }
}`

type PromptInput struct {
	Track           Track
	Session         *model.Session
	UserMessage     string
	Elapsed         time.Duration
	TimeLimit       time.Duration
	PreviousContext string
	Structured      bool
}

// PromptBuilder renders the stage-aware system prompt. Output depends only
// on its input.
type PromptBuilder struct{}

func (PromptBuilder) Build(in PromptInput) string {
	s := in.Session
	stage := in.Track.Stage(s.StageIndex)

	var b strings.Builder
	b.WriteString(in.Track.Persona)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "[현재 단계] %s (%d/%d)\n", stage.Name, in.Track.clamp(s.StageIndex)+1, len(in.Track.Stages))
	fmt.Fprintf(&b, "단계 목적: %s\n", stage.Purpose)
	b.WriteString("단계 목표:\n")
	for _, obj := range stage.Objectives {
		fmt.Fprintf(&b, "- %s\n", obj)
	}
	fmt.Fprintf(&b, "질문 횟수: %d번째\n\n", s.StageQuestionCount)

	b.WriteString("[코칭 목표]\n")
	if len(s.CoachingGoals) == 0 {
		b.WriteString(noGoalsMarker + "\n")
	}
	for _, goal := range s.CoachingGoals {
		fmt.Fprintf(&b, "- %s\n", goal)
	}
	b.WriteString("\n")

	b.WriteString("[대화 요약]\n")
	b.WriteString(formatSummary(s.Summary))
	b.WriteString("\n")

	b.WriteString("[최근 대화]\n")
	recent := priorExchanges(s, in.UserMessage)
	if len(recent) == 0 {
		b.WriteString("(첫 대화)\n")
	}
	for _, m := range recent {
		fmt.Fprintf(&b, "%s: %s\n", speaker(m.Role), m.Content)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "[새 메시지]\n%s\n\n", in.UserMessage)

	b.WriteString(coachingPrinciples)

	if in.PreviousContext != "" {
		b.WriteString("\n\n")
		b.WriteString(in.PreviousContext)
	}
	if s.CrisisDetected {
		b.WriteString("\n\n사용자가 힘든 마음을 표현했습니다. 더욱 세심하고 조심스럽게 공감하며, 안전을 최우선으로 하세요.")
	}
	if in.TimeLimit > 0 && in.Elapsed >= in.TimeLimit {
		fmt.Fprintf(&b, "\n\n세션이 %d분을 넘어갔습니다. 대화를 마무리하는 방향으로 진행해주세요.", int(in.TimeLimit.Minutes()))
	}
	if in.Structured {
		b.WriteString("\n\n")
		b.WriteString(structuredInstruction)
	}

	return b.String()
}

func formatSummary(sum *model.Summary) string {
	if sum == nil {
		return noSummaryMarker + "\n"
	}

	var b strings.Builder
	writeList := func(label string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(&b, "%s: %s\n", label, strings.Join(items, ", "))
		}
	}
	writeText := func(label string, text model.FlexString) {
		if text != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, text)
		}
	}

	writeList("주요 주제", sum.KeyThemes)
	writeList("통찰", sum.Insights)
	writeText("어려움", sum.Challenges)
	writeText("감정 상태", sum.EmotionalState)
	writeText("진행 상황", sum.Progress)

	if b.Len() == 0 {
		return noSummaryMarker + "\n"
	}
	return b.String()
}

// priorExchanges returns the last few exchanges before the message being
// answered, which has usually been appended to history already.
func priorExchanges(s *model.Session, userMessage string) []model.Message {
	history := s.History
	if n := len(history); n > 0 && history[n-1].Role == model.RoleUser && history[n-1].Content == userMessage {
		history = history[:n-1]
	}
	if len(history) > promptExchanges*2 {
		history = history[len(history)-promptExchanges*2:]
	}
	return history
}

func speaker(role model.Role) string {
	if role == model.RoleUser {
		return "사용자"
	}
	return "코치"
}
