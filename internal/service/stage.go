package service

import (
	"strings"

	"github.com/maeum-coach/coaching-server-go/internal/config"
	"github.com/maeum-coach/coaching-server-go/internal/model"
	"github.com/maeum-coach/coaching-server-go/internal/util"
)

// TransitionPolicy decides whether the current stage is finished.
type TransitionPolicy interface {
	ShouldAdvance(s *model.Session, userMessage string, analysis *model.Analysis) bool
}

// CountingPolicy advances on the number of answers given in a stage, letting
// a substantive answer end the stage early once the minimum is met.
type CountingPolicy struct {
	Min              int
	Max              int
	SubstantiveRunes int
}

func DefaultCountingPolicy() CountingPolicy {
	return CountingPolicy{
		Min:              config.StageMinQuestions,
		Max:              config.StageMaxQuestions,
		SubstantiveRunes: config.SubstantiveAnswerRunes,
	}
}

func (p CountingPolicy) ShouldAdvance(s *model.Session, userMessage string, _ *model.Analysis) bool {
	switch {
	case s.StageQuestionCount >= p.Max:
		return true
	case s.StageQuestionCount < p.Min:
		return false
	}
	return util.RuneLen(strings.TrimSpace(userMessage)) > p.SubstantiveRunes
}

// ModelJudgedPolicy trusts the structured analysis returned with the reply.
type ModelJudgedPolicy struct{}

func (ModelJudgedPolicy) ShouldAdvance(_ *model.Session, _ string, analysis *model.Analysis) bool {
	return analysis != nil &&
		analysis.StageProgress == model.StageProgressLate &&
		analysis.TransitionReadiness
}

type Transition struct {
	Advanced  bool
	From      int
	To        int
	Completed bool
}

type StageEngine struct {
	policy TransitionPolicy
}

func NewStageEngine(policy TransitionPolicy) *StageEngine {
	return &StageEngine{policy: policy}
}

// PolicyFor maps the STAGE_POLICY setting to a policy.
func PolicyFor(name string) TransitionPolicy {
	if name == config.StagePolicyModel {
		return ModelJudgedPolicy{}
	}
	return DefaultCountingPolicy()
}

// Evaluate applies the policy to the session. Finishing the last stage
// marks the session completed instead of moving further.
func (e *StageEngine) Evaluate(s *model.Session, track Track, userMessage string, analysis *model.Analysis) Transition {
	t := Transition{From: s.StageIndex, To: s.StageIndex}
	if s.Completed || !e.policy.ShouldAdvance(s, userMessage, analysis) {
		return t
	}

	if track.IsLast(s.StageIndex) {
		s.Completed = true
		t.Completed = true
		return t
	}

	s.StageIndex++
	s.StageQuestionCount = 0
	t.Advanced = true
	t.To = s.StageIndex
	return t
}
