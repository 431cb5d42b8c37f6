package model

type Analysis struct {
	StageProgress       string   `json:"stage_progress"`
	ObjectivesMet       []string `json:"objectives_met"`
	TransitionReadiness bool     `json:"transition_readiness"`
	KeyInsights         []string `json:"key_insights"`
}

type CoachReply struct {
	CoachingMessage string `json:"coaching_message"`
	NextQuestion    string `json:"next_question"`
}

type CoachMeta struct {
	SuggestedFocus string `json:"suggested_focus"`
	Notes          string `json:"notes"`
}

// CoachResponse is the structured reply schema requested from the model.
type CoachResponse struct {
	Analysis Analysis   `json:"analysis"`
	Response CoachReply `json:"response"`
	Meta     CoachMeta  `json:"meta"`
}

const StageProgressLate = "late"
