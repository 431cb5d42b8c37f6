package handler

import (
	"strings"

	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
	"github.com/maeum-coach/coaching-server-go/internal/service"
)

// KakaoWebhookRequest keeps only the skill payload fields the coach reads.
// Bot, action and block metadata are ignored.
type KakaoWebhookRequest struct {
	UserRequest KakaoUserRequest `json:"userRequest"`
}

type KakaoUserRequest struct {
	User        KakaoUser `json:"user"`
	Utterance   string    `json:"utterance"`
	CallbackURL string    `json:"callbackUrl,omitempty"`
}

type KakaoUser struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Kakao skill response

type KakaoResponse struct {
	Version     string         `json:"version"`
	Template    *KakaoTemplate `json:"template,omitempty"`
	UseCallback bool           `json:"useCallback,omitempty"`
}

type KakaoTemplate struct {
	Outputs      []KakaoOutput     `json:"outputs"`
	QuickReplies []KakaoQuickReply `json:"quickReplies,omitempty"`
}

type KakaoOutput struct {
	SimpleText *KakaoSimpleText `json:"simpleText,omitempty"`
}

type KakaoSimpleText struct {
	Text string `json:"text"`
}

type KakaoQuickReply struct {
	Label       string `json:"label"`
	Action      string `json:"action"`
	MessageText string `json:"messageText,omitempty"`
}

// Kakao caps a simpleText output at 1000 characters.
const maxSimpleTextRunes = 1000

func NewTextResponse(text string) *KakaoResponse {
	if r := []rune(text); len(r) > maxSimpleTextRunes {
		text = string(r[:maxSimpleTextRunes])
	}
	resp := &KakaoResponse{
		Version: "2.0",
		Template: &KakaoTemplate{
			Outputs: []KakaoOutput{
				{SimpleText: &KakaoSimpleText{Text: text}},
			},
		},
	}
	if text == service.TrackSelectionPrompt {
		resp.Template.QuickReplies = trackQuickReplies
	}
	return resp
}

func NewCallbackResponse() *KakaoResponse {
	return &KakaoResponse{
		Version:     "2.0",
		UseCallback: true,
	}
}

var trackQuickReplies = []KakaoQuickReply{
	{Label: "학생", Action: "message", MessageText: "1"},
	{Label: "선생님", Action: "message", MessageText: "2"},
	{Label: "일반", Action: "message", MessageText: "3"},
}

// UserID prefers the channel-scoped plusfriend key over the bot user id.
func (r *KakaoWebhookRequest) UserID() string {
	if r.UserRequest.User.Properties != nil {
		if key, ok := r.UserRequest.User.Properties["plusfriendUserKey"].(string); ok && key != "" {
			return key
		}
	}
	return strings.TrimSpace(r.UserRequest.User.ID)
}

// Inbound validates the payload and normalizes it for the coaching service.
func (r *KakaoWebhookRequest) Inbound() (service.Inbound, error) {
	userID := r.UserID()
	if userID == "" {
		return service.Inbound{}, apperrors.MissingRequired("userRequest.user.id")
	}
	return service.Inbound{
		UserID:            userID,
		Utterance:         r.UserRequest.Utterance,
		CallbackConfirmed: r.UserRequest.CallbackURL != "",
	}, nil
}
