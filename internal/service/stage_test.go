package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maeum-coach/coaching-server-go/internal/config"
	"github.com/maeum-coach/coaching-server-go/internal/model"
)

func TestCountingPolicy(t *testing.T) {
	policy := DefaultCountingPolicy()
	long := strings.Repeat("가", 51)
	exact := strings.Repeat("가", 50)

	tests := []struct {
		name     string
		count    int
		message  string
		expected bool
	}{
		{"below minimum with long answer", 1, long, false},
		{"at minimum with short answer", 2, "네", false},
		{"at minimum with boundary answer", 2, exact, false},
		{"at minimum with substantive answer", 2, long, true},
		{"padded short answer", 3, "   네   " + strings.Repeat(" ", 60), false},
		{"at maximum with short answer", 4, "네", true},
		{"beyond maximum", 7, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &model.Session{StageQuestionCount: tc.count}
			assert.Equal(t, tc.expected, policy.ShouldAdvance(s, tc.message, nil))
		})
	}
}

func TestModelJudgedPolicy(t *testing.T) {
	tests := []struct {
		name     string
		analysis *model.Analysis
		expected bool
	}{
		{"no analysis", nil, false},
		{"late and ready", &model.Analysis{StageProgress: "late", TransitionReadiness: true}, true},
		{"late not ready", &model.Analysis{StageProgress: "late"}, false},
		{"middle and ready", &model.Analysis{StageProgress: "middle", TransitionReadiness: true}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ModelJudgedPolicy{}.ShouldAdvance(&model.Session{}, "", tc.analysis))
		})
	}
}

func TestPolicyFor(t *testing.T) {
	assert.IsType(t, ModelJudgedPolicy{}, PolicyFor(config.StagePolicyModel))
	assert.IsType(t, CountingPolicy{}, PolicyFor(config.StagePolicyCounting))
	assert.IsType(t, CountingPolicy{}, PolicyFor(""))
}

func TestStageEngine_Evaluate(t *testing.T) {
	track := TrackFor(model.TrackStudent)
	engine := NewStageEngine(DefaultCountingPolicy())

	t.Run("stays when the policy declines", func(t *testing.T) {
		s := &model.Session{StageIndex: 1, StageQuestionCount: 1}
		tr := engine.Evaluate(s, track, "네", nil)
		assert.False(t, tr.Advanced)
		assert.Equal(t, 1, s.StageIndex)
		assert.Equal(t, 1, s.StageQuestionCount)
	})

	t.Run("advances and resets the counter", func(t *testing.T) {
		s := &model.Session{StageIndex: 1, StageQuestionCount: 4}
		tr := engine.Evaluate(s, track, "네", nil)
		assert.Equal(t, Transition{Advanced: true, From: 1, To: 2}, tr)
		assert.Equal(t, 2, s.StageIndex)
		assert.Zero(t, s.StageQuestionCount)
	})

	t.Run("completes on the last stage", func(t *testing.T) {
		last := len(track.Stages) - 1
		s := &model.Session{StageIndex: last, StageQuestionCount: 4}
		tr := engine.Evaluate(s, track, "네", nil)
		assert.True(t, tr.Completed)
		assert.False(t, tr.Advanced)
		assert.True(t, s.Completed)
		assert.Equal(t, last, s.StageIndex)
	})

	t.Run("no-op once completed", func(t *testing.T) {
		s := &model.Session{StageIndex: 0, StageQuestionCount: 9, Completed: true}
		tr := engine.Evaluate(s, track, "네", nil)
		assert.False(t, tr.Advanced)
		assert.False(t, tr.Completed)
		assert.Zero(t, s.StageIndex)
	})

	t.Run("general track completes after four stages", func(t *testing.T) {
		general := TrackFor(model.TrackGeneral)
		s := &model.Session{}
		for range len(general.Stages) - 1 {
			s.StageQuestionCount = 4
			assert.True(t, engine.Evaluate(s, general, "", nil).Advanced)
		}
		s.StageQuestionCount = 4
		assert.True(t, engine.Evaluate(s, general, "", nil).Completed)
	})
}

func TestTrackFor(t *testing.T) {
	assert.Len(t, TrackFor(model.TrackStudent).Stages, 6)
	assert.Len(t, TrackFor(model.TrackTeacher).Stages, 6)
	assert.Len(t, TrackFor(model.TrackGeneral).Stages, 4)
	assert.Equal(t, model.TrackStudent, TrackFor("unknown").Name)

	track := TrackFor(model.TrackStudent)
	assert.Equal(t, track.Stages[0].Key, track.Stage(-1).Key)
	assert.Equal(t, track.Stages[5].Key, track.Stage(42).Key)
	for _, stage := range track.Stages {
		assert.NotEmpty(t, stage.Fallback, stage.Key)
	}
}
