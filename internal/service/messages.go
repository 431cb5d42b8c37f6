package service

// User-facing fixed texts.
const (
	ApologyMessage = "죄송합니다. 일시적인 오류가 발생했습니다. 잠시 후 다시 시도해주세요."

	TrackSelectionPrompt = "새로운 코칭을 시작할게요! 😊\n\n어떤 분이신지 알려주세요.\n1. 학생\n2. 선생님\n3. 일반\n\n번호나 이름으로 답해주세요."

	GreetingUtterance = "안녕하세요, 코칭을 시작하고 싶습니다."

	CompletedNotice = "오늘 대화는 마무리되었어요. 😊\n\n새로운 대화를 시작하고 싶으면 '다시 시작'이라고 말해주세요!"

	EndMessage = "오늘 함께 이야기 나눠줘서 정말 고마워요. 도움이 필요할 때 용기내서 손을 내밀 수 있다는 걸 기억해주세요. 언제든지 다시 이야기 나누고 싶으면 '다시 시작'이라고 말해주세요. 응원할게요! 💪😊"

	ResumeFallback = "안녕하세요! 다시 만나서 반갑습니다. 😊\n\n이어서 이전 대화를 계속 진행하시겠어요? 아니면 새로운 주제로 시작하시겠어요?"

	EmpathyFallback = "소중한 이야기를 나눠줘서 정말 고마워요. 오늘 함께한 시간이 의미 있었기를 바라요. 💙"

	CompletionNotice = "🎉 오늘 정말 의미있는 대화를 나눴어요! 도움이 필요할 때 용기내서 말할 수 있는 여러분이 정말 멋져요. 새로운 대화를 시작하고 싶으면 '다시 시작'이라고 말해주세요."

	CrisisNotice = "💙 힘든 마음을 표현해줘서 정말 고마워요. 혼자가 아니에요. 담임선생님이나 상담선생님, 또는 청소년상담 1388에 연락해보는 것도 좋은 방법이에요."

	TimeNotice = "⏰ 곧 대화 시간이 마무리됩니다. 오늘 나눈 이야기 중에서 가장 중요한 부분을 생각해보세요."

	SlowDownMessage = "메시지가 너무 빠르게 도착하고 있어요. 잠시 후에 다시 말해주세요."

	GenericFallback = "조금 더 이야기해주실 수 있나요?"
)
