package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/maeum-coach/coaching-server-go/internal/model"
)

// FallbackNextQuestion is used when a structured reply carries no question.
const FallbackNextQuestion = "조금 더 이야기해 줄 수 있을까요?"

var (
	parenRe    = regexp.MustCompile(`\([^)]*\)`)
	emphasisRe = regexp.MustCompile(`\*[^*]*\*`)
	symbolRe   = regexp.MustCompile(`[😊💪🎉💙⏰🚫⚠️]+`)
	spaceRe    = regexp.MustCompile(`[ \t]{2,}`)
	fenceRe    = regexp.MustCompile("```[a-z]*")
)

const promptRules = `

🚫 절대 금지사항:
1. 한 번에 반드시 딱 하나의 질문만 출력하고 즉시 종료
2. 학생의 이전 답변을 다시 묻거나 구체화 요청 금지
3. "(학생의 답변을 기다립니다)" 같은 괄호 표현 절대 금지
4. 이모지는 사용하지 마세요
5. 단계의 목표에 맞는 새로운 관점의 질문을 하세요

출력 예시:
좋은 예: "요즘 가장 힘든 일은 무엇인가요?"
나쁜 예: "그 부분에 대해 좀 더 자세히 말해주실래요?"
나쁜 예: "아까 말씀하신 그 문제가 구체적으로 어떤 건가요?"

한 개의 새로운 질문만 출력하고 종료하세요.`

// EnhancePrompt appends the single-question output rules used in plain mode.
func EnhancePrompt(systemPrompt string) string {
	if systemPrompt == "" {
		return ""
	}
	return systemPrompt + promptRules
}

// CleanReply keeps the first question of a reply and strips stage directions,
// emphasis markers and decorative symbols. Only the first non-empty line is kept.
// Asides are removed before the cut so a "?" inside parentheses does not end it.
func CleanReply(text string) string {
	text = parenRe.ReplaceAllString(text, "")
	if i := strings.Index(text, "?"); i >= 0 {
		text = text[:i+1]
	}
	text = Sanitize(text)
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// Sanitize strips asides, emphasis and symbols without truncating.
func Sanitize(text string) string {
	text = parenRe.ReplaceAllString(text, "")
	text = emphasisRe.ReplaceAllString(text, "")
	text = symbolRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ExtractJSON returns the outermost {...} block of text, which tolerates
// replies wrapped in markdown fences or prose.
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseStructured decodes a reply into the coaching schema. A reply without
// a coaching message or next question is treated as a schema mismatch.
func ParseStructured(raw string) (*model.CoachResponse, error) {
	block, ok := ExtractJSON(raw)
	if !ok {
		return nil, errors.New("no JSON object in reply")
	}

	var resp model.CoachResponse
	if err := json.Unmarshal([]byte(block), &resp); err != nil {
		return nil, fmt.Errorf("decode structured reply: %w", err)
	}
	if strings.TrimSpace(resp.Response.CoachingMessage) == "" && strings.TrimSpace(resp.Response.NextQuestion) == "" {
		return nil, errors.New("structured reply missing response fields")
	}
	return &resp, nil
}

// Synthesize builds a well-formed response around a reply that did not parse.
// When the reply holds a broken JSON object, as after a max_tokens cut, the
// coaching_message and next_question strings are recovered from it and any
// other JSON text is dropped. It returns nil when nothing usable remains.
func Synthesize(raw string) *model.CoachResponse {
	start := strings.Index(raw, "{")
	if start < 0 {
		return synthesized(CleanReply(raw), "")
	}

	message, _ := recoverField(raw[start:], "coaching_message")
	question, _ := recoverField(raw[start:], "next_question")
	if message == "" && question == "" {
		prose := raw[:start]
		if end := strings.LastIndex(raw, "}"); end > start {
			prose += "\n" + raw[end+1:]
		}
		message = CleanReply(fenceRe.ReplaceAllString(prose, ""))
	}
	return synthesized(message, question)
}

func synthesized(message, question string) *model.CoachResponse {
	if message == "" && question == "" {
		return nil
	}
	if question == "" {
		question = FallbackNextQuestion
	}
	return &model.CoachResponse{
		Response: model.CoachReply{CoachingMessage: message, NextQuestion: question},
	}
}

var fieldRes = map[string]*regexp.Regexp{
	"coaching_message": stringFieldRe("coaching_message"),
	"next_question":    stringFieldRe("next_question"),
}

// stringFieldRe matches "name": "value, where the closing quote may be
// missing because the reply was cut off.
func stringFieldRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`"` + name + `"\s*:\s*"((?:[^"\\]|\\.)*)`)
}

func recoverField(block, name string) (string, bool) {
	m := fieldRes[name].FindStringSubmatch(block)
	if m == nil {
		return "", false
	}
	var value string
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &value); err != nil {
		value = strings.NewReplacer(`\n`, "\n", `\"`, `"`, `\`, "").Replace(m[1])
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// ReplyText renders the user-facing text of a structured response.
func ReplyText(resp *model.CoachResponse) string {
	if resp == nil {
		return ""
	}
	message := strings.Join(strings.Fields(Sanitize(resp.Response.CoachingMessage)), " ")
	question := CleanReply(resp.Response.NextQuestion)
	switch {
	case message == "":
		return question
	case question == "":
		return message
	case strings.Contains(message, question):
		return message
	}
	return message + " " + question
}
