package service

import "github.com/maeum-coach/coaching-server-go/internal/model"

type Stage struct {
	Key        string
	Name       string
	Purpose    string
	Objectives []string
	Fallback   string
	// Bridge is prepended to the reply when the stage is entered.
	Bridge string
}

type Track struct {
	Name    model.TrackName
	Label   string
	Persona string
	Stages  []Stage
}

func (t Track) Stage(index int) Stage {
	return t.Stages[t.clamp(index)]
}

func (t Track) IsLast(index int) bool {
	return index >= len(t.Stages)-1
}

func (t Track) clamp(index int) int {
	if index < 0 {
		return 0
	}
	if index >= len(t.Stages) {
		return len(t.Stages) - 1
	}
	return index
}

var studentTrack = Track{
	Name:    model.TrackStudent,
	Label:   "학생",
	Persona: "당신은 청소년의 도움 요청을 돕는 따뜻한 코칭봇입니다. 학생의 눈높이에 맞는 쉬운 말과 부드러운 존댓말로 대화하세요.",
	Stages: []Stage{
		{
			Key:        "topic",
			Name:       "주제 선택",
			Purpose:    "오늘 이야기하고 싶은 주제를 편안하게 고르도록 돕습니다.",
			Objectives: []string{"편안한 분위기 만들기", "오늘 나눌 주제 정하기"},
			Fallback:   "오늘 하루는 어땠나요?",
		},
		{
			Key:        "difficulty",
			Name:       "어려움 탐색",
			Purpose:    "학생이 겪고 있는 어려움과 그때의 감정을 구체적으로 살펴봅니다.",
			Objectives: []string{"어려운 상황 파악하기", "그때의 감정 알아차리기"},
			Fallback:   "그 상황에서 어떤 부분이 가장 힘들었나요?",
			Bridge:     "이야기해줘서 고마워요. 그 상황을 조금 더 들여다볼게요.",
		},
		{
			Key:        "vision",
			Name:       "바라는 모습",
			Purpose:    "문제가 해결되었을 때 바라는 모습을 그려봅니다.",
			Objectives: []string{"바라는 변화 떠올리기", "변화가 주는 의미 찾기"},
			Fallback:   "이 문제를 해결한다면 어떤 변화가 있을까요?",
			Bridge:     "이제 앞으로 어떻게 되면 좋을지 함께 상상해봐요.",
		},
		{
			Key:        "options",
			Name:       "방법 찾기",
			Purpose:    "도움을 요청할 수 있는 사람과 방법을 함께 찾아봅니다.",
			Objectives: []string{"도움받을 수 있는 사람 찾기", "도움 요청의 걸림돌 살펴보기"},
			Fallback:   "이 문제를 해결하기 위해 어떤 방법을 생각해보셨나요?",
			Bridge:     "좋아요. 이제 할 수 있는 방법들을 같이 찾아볼게요.",
		},
		{
			Key:        "plan",
			Name:       "실천 계획",
			Purpose:    "작고 구체적인 첫 번째 실천을 정합니다.",
			Objectives: []string{"첫 실천 정하기", "언제 누구에게 할지 정하기"},
			Fallback:   "첫 번째 실행 단계로 무엇을 해보시겠어요?",
			Bridge:     "정말 잘하고 있어요. 이제 실제로 해볼 수 있는 작은 계획을 세워봐요.",
		},
		{
			Key:        "closing",
			Name:       "마무리",
			Purpose:    "오늘 대화에서 얻은 것을 돌아보고 마음을 정리합니다.",
			Objectives: []string{"오늘 대화 돌아보기", "스스로를 격려하기"},
			Fallback:   "오늘 대화를 통해 어떤 점이 도움이 되었나요?",
			Bridge:     "어느새 마무리할 시간이 다가왔어요.",
		},
	},
}

var teacherTrack = Track{
	Name:    model.TrackTeacher,
	Label:   "선생님",
	Persona: "당신은 선생님의 고민을 함께 정리하는 동료 코치입니다. 전문성을 존중하며 정중한 존댓말로 대화하세요.",
	Stages: []Stage{
		{
			Key:        "topic",
			Name:       "주제 선택",
			Purpose:    "오늘 함께 다루고 싶은 교실이나 업무의 고민을 정합니다.",
			Objectives: []string{"편안한 분위기 만들기", "코칭 주제 정하기"},
			Fallback:   "요즘 학교에서 가장 마음이 쓰이는 일은 무엇인가요?",
		},
		{
			Key:        "situation",
			Name:       "상황 탐색",
			Purpose:    "고민이 드러나는 구체적인 장면과 선생님의 감정을 살펴봅니다.",
			Objectives: []string{"구체적 장면 파악하기", "선생님의 감정과 부담 알아차리기"},
			Fallback:   "그 상황에서 선생님께 가장 어려웠던 점은 무엇인가요?",
			Bridge:     "말씀해주셔서 감사합니다. 그 장면을 조금 더 살펴볼게요.",
		},
		{
			Key:        "goal",
			Name:       "목표 설정",
			Purpose:    "선생님이 바라는 교실의 모습과 목표를 분명히 합니다.",
			Objectives: []string{"바라는 모습 그리기", "측정 가능한 목표로 다듬기"},
			Fallback:   "이 고민이 해결된다면 교실은 어떻게 달라져 있을까요?",
			Bridge:     "이제 선생님이 바라는 모습을 함께 그려보겠습니다.",
		},
		{
			Key:        "options",
			Name:       "방법 탐색",
			Purpose:    "활용할 수 있는 자원과 시도해볼 방법을 넓게 탐색합니다.",
			Objectives: []string{"가능한 방법 나열하기", "협력할 수 있는 동료와 자원 찾기"},
			Fallback:   "지금까지 시도해보신 방법 중 효과가 있었던 것은 무엇인가요?",
			Bridge:     "좋습니다. 시도해볼 수 있는 방법들을 함께 찾아보겠습니다.",
		},
		{
			Key:        "plan",
			Name:       "실천 계획",
			Purpose:    "다음 주 안에 실행할 구체적인 계획을 세웁니다.",
			Objectives: []string{"첫 실천 정하기", "실행 시점과 점검 방법 정하기"},
			Fallback:   "다음 수업에서 가장 먼저 해보실 수 있는 일은 무엇인가요?",
			Bridge:     "이제 실제로 실행할 계획을 구체적으로 정해보겠습니다.",
		},
		{
			Key:        "closing",
			Name:       "마무리",
			Purpose:    "오늘 코칭에서 얻은 통찰을 정리하고 스스로를 격려합니다.",
			Objectives: []string{"오늘의 통찰 정리하기", "스스로 격려하기"},
			Fallback:   "오늘 대화에서 가장 의미 있었던 점은 무엇인가요?",
			Bridge:     "오늘 코칭을 정리할 시간이 되었습니다.",
		},
	},
}

var generalTrack = Track{
	Name:    model.TrackGeneral,
	Label:   "일반",
	Persona: "당신은 따뜻하고 공감적인 라이프 코치입니다. 판단하지 않고 경청하며 부드러운 존댓말로 대화하세요.",
	Stages: []Stage{
		{
			Key:        "trust",
			Name:       "신뢰(Trust)",
			Purpose:    "안전한 대화 분위기를 만들고 오늘의 주제를 확인합니다.",
			Objectives: []string{"라포 형성하기", "대화 주제 확인하기"},
			Fallback:   "오늘 어떤 이야기를 나누고 싶으신가요?",
		},
		{
			Key:        "discover",
			Name:       "탐색(Discover)",
			Purpose:    "현재 상황과 그 안의 감정, 가치를 깊이 탐색합니다.",
			Objectives: []string{"현재 상황 이해하기", "중요하게 여기는 가치 발견하기"},
			Fallback:   "그 일이 당신에게 특히 중요한 이유는 무엇인가요?",
			Bridge:     "이야기해주셔서 고마워요. 조금 더 깊이 들여다볼게요.",
		},
		{
			Key:        "design",
			Name:       "설계(Design)",
			Purpose:    "원하는 변화를 위한 선택지와 실행 계획을 설계합니다.",
			Objectives: []string{"선택지 만들기", "첫 실행 단계 정하기"},
			Fallback:   "원하는 변화를 위해 가장 먼저 해볼 수 있는 일은 무엇일까요?",
			Bridge:     "이제 원하는 변화를 만들 방법을 함께 설계해봐요.",
		},
		{
			Key:        "success",
			Name:       "성공(Success)",
			Purpose:    "실행을 다짐하고 성공의 모습을 확인하며 마무리합니다.",
			Objectives: []string{"실행 의지 확인하기", "성공의 기준 정하기"},
			Fallback:   "계획을 실천했을 때 어떤 모습이면 성공이라고 느끼실까요?",
			Bridge:     "마지막으로 성공의 모습을 함께 확인해볼게요.",
		},
	},
}

var tracks = map[model.TrackName]Track{
	model.TrackStudent: studentTrack,
	model.TrackTeacher: teacherTrack,
	model.TrackGeneral: generalTrack,
}

// TrackFor returns the named track, or the student track for unknown names.
func TrackFor(name model.TrackName) Track {
	if t, ok := tracks[name]; ok {
		return t
	}
	return studentTrack
}
