package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maeum-coach/coaching-server-go/internal/model"
)

func TestCleanReply(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain question", "요즘 가장 힘든 일은 무엇인가요?", "요즘 가장 힘든 일은 무엇인가요?"},
		{"truncates after first question", "좋아요. 무엇이 힘든가요? 그리고 언제부터요?", "좋아요. 무엇이 힘든가요?"},
		{"strips parenthetical", "어떤 점이 어려웠나요? (학생의 답변을 기다립니다)", "어떤 점이 어려웠나요?"},
		{"strips aside before question", "(잠시 생각) 오늘 기분은 어때요?", "오늘 기분은 어때요?"},
		{"question mark inside aside", "(괜찮나요?) 요즘 어때요?", "요즘 어때요?"},
		{"strips emphasis", "*따뜻하게 웃으며* 어떤 하루였나요?", "어떤 하루였나요?"},
		{"strips symbols", "잘하고 있어요 😊💪 다음엔 뭘 해볼까요?", "잘하고 있어요 다음엔 뭘 해볼까요?"},
		{"first non-empty line", "\n\n첫 줄입니다\n둘째 줄입니다", "첫 줄입니다"},
		{"no question mark", "좋은 생각이에요", "좋은 생각이에요"},
		{"empty after cleaning", "(생각 중)", ""},
		{"only symbols", "🎉🎉", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CleanReply(tc.input))
		})
	}
}

func TestEnhancePrompt(t *testing.T) {
	assert.Empty(t, EnhancePrompt(""))

	got := EnhancePrompt("당신은 코치입니다.")
	assert.Contains(t, got, "당신은 코치입니다.")
	assert.Contains(t, got, "한 개의 새로운 질문만 출력하고 종료하세요.")
}

func TestParseStructured(t *testing.T) {
	t.Run("valid schema", func(t *testing.T) {
		raw := `{"analysis":{"stage_progress":"late","objectives_met":["목표 확인"],"transition_readiness":true,"key_insights":["시험 불안"]},
			"response":{"coaching_message":"잘 말해줬어요.","next_question":"무엇을 먼저 해볼까요?"},
			"meta":{"suggested_focus":"계획","notes":""}}`

		resp, err := ParseStructured(raw)
		require.NoError(t, err)
		assert.Equal(t, "late", resp.Analysis.StageProgress)
		assert.True(t, resp.Analysis.TransitionReadiness)
		assert.Equal(t, []string{"목표 확인"}, resp.Analysis.ObjectivesMet)
		assert.Equal(t, "무엇을 먼저 해볼까요?", resp.Response.NextQuestion)
		assert.Equal(t, "계획", resp.Meta.SuggestedFocus)
	})

	t.Run("fenced JSON", func(t *testing.T) {
		raw := "```json\n{\"response\":{\"coaching_message\":\"좋아요.\",\"next_question\":\"왜 그런가요?\"}}\n```"
		resp, err := ParseStructured(raw)
		require.NoError(t, err)
		assert.Equal(t, "좋아요.", resp.Response.CoachingMessage)
	})

	t.Run("not JSON", func(t *testing.T) {
		_, err := ParseStructured("오늘 기분은 어때요?")
		assert.Error(t, err)
	})

	t.Run("wrong types", func(t *testing.T) {
		_, err := ParseStructured(`{"analysis":{"transition_readiness":"yes"}}`)
		assert.Error(t, err)
	})

	t.Run("missing response", func(t *testing.T) {
		_, err := ParseStructured(`{"analysis":{"stage_progress":"early"}}`)
		assert.Error(t, err)
	})
}

func TestSynthesize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		message  string
		question string
	}{
		{"plain text", "오늘 기분은 어때요? (대기)", "오늘 기분은 어때요?", FallbackNextQuestion},
		{
			"truncated by max tokens",
			`{"analysis":{"stage_progress":"early"},"response":{"coaching_message":"그랬군요.","next_question":"어떤 기분이었나요?`,
			"그랬군요.", "어떤 기분이었나요?",
		},
		{
			"cut inside message",
			`{"response":{"coaching_message":"말해줘서 고마워요.\n정말`,
			"말해줘서 고마워요.\n정말", FallbackNextQuestion,
		},
		{
			"escaped quotes recovered",
			`{"response":{"next_question":"\"괜찮아\"라는 말이 어땠나요?"}, "meta":`,
			"", `"괜찮아"라는 말이 어땠나요?`,
		},
		{"prose around wrong schema", "요즘 어떤가요? {\"message\": \"x\"}", "요즘 어떤가요?", FallbackNextQuestion},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := Synthesize(tc.raw)
			require.NotNil(t, resp)
			assert.Equal(t, tc.message, resp.Response.CoachingMessage)
			assert.Equal(t, tc.question, resp.Response.NextQuestion)
			assert.False(t, resp.Analysis.TransitionReadiness)
			assert.NotContains(t, ReplyText(resp), "{")
		})
	}

	t.Run("nothing usable", func(t *testing.T) {
		for _, raw := range []string{"", "(생각 중)", `{"message": "요즘 어떤가요?"}`, "```json\n{\"analysis\":{\"stage", `{"response":{"coaching_message":""}}`} {
			assert.Nil(t, Synthesize(raw), raw)
		}
	})
}

func TestReplyText(t *testing.T) {
	t.Run("joins message and question", func(t *testing.T) {
		resp, err := ParseStructured(`{"response":{"coaching_message":"정말 애썼어요.\n","next_question":"무엇이 도움이 됐나요? 또 있나요?"}}`)
		require.NoError(t, err)
		assert.Equal(t, "정말 애썼어요. 무엇이 도움이 됐나요?", ReplyText(resp))
	})

	t.Run("does not repeat question", func(t *testing.T) {
		resp := &model.CoachResponse{Response: model.CoachReply{
			CoachingMessage: "좋아요. " + FallbackNextQuestion,
			NextQuestion:    FallbackNextQuestion,
		}}
		assert.Equal(t, "좋아요. "+FallbackNextQuestion, ReplyText(resp))
	})

	t.Run("nil response", func(t *testing.T) {
		assert.Empty(t, ReplyText(nil))
	})
}
