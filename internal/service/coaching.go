package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maeum-coach/coaching-server-go/internal/audit"
	"github.com/maeum-coach/coaching-server-go/internal/config"
	"github.com/maeum-coach/coaching-server-go/internal/llm"
	"github.com/maeum-coach/coaching-server-go/internal/model"
	"github.com/maeum-coach/coaching-server-go/internal/repository"
	"github.com/maeum-coach/coaching-server-go/internal/util"
)

const (
	goalRunes         = 100
	logUtteranceRunes = 50
	timeNoticeWindow  = 2 * time.Minute
	resumeMinHistory  = 4
	resumeHistory     = 10
	empathyHistory    = 4
)

const resumePromptTemplate = `당신은 코칭봇입니다. 사용자와의 대화가 한동안 중단되었다가 재개됩니다.

현재 상황:
- 코칭 단계: %s (%d/%d)
- 위기 상황 감지: %s

아래 대화 내역을 바탕으로 따뜻하고 개인화된 재개 메시지를 작성하세요.
1. 반가운 인사
2. 지난 대화의 핵심 주제와 감정을 자연스럽게 요약 (마지막 문장을 그대로 반복하지 마세요)
3. 현재 단계에서 무엇을 다루고 있었는지
4. "이어서 계속 진행하시겠어요? 아니면 새로운 주제로 시작하시겠어요?" 질문
%s
재개 메시지만 출력하세요. 다른 설명이나 주석은 포함하지 마세요.`

const empathyPrompt = `당신은 코칭봇입니다. 사용자가 마지막 질문에 답변했고, 이제 세션을 마무리해야 합니다.
사용자의 마지막 답변에 대해 2-3문장 이내의 짧고 따뜻한 공감 메시지를 작성하세요.
사용자의 답변을 인정하고 격려하세요. 질문이나 다른 설명은 포함하지 마세요.`

// Inbound is a normalized webhook message.
type Inbound struct {
	UserID            string
	Utterance         string
	CallbackConfirmed bool
}

type CoachingConfig struct {
	ResponseMode string
	DefaultTrack model.TrackName
	ResumeAfter  time.Duration
	TimeLimit    time.Duration
}

// CoachingService runs one inbound message through the session state
// machine and returns the text to send back.
type CoachingService struct {
	store      *SessionStore
	model      CoachModel
	summarizer *Summarizer
	engine     *StageEngine
	prompts    PromptBuilder
	lock       repository.UserLock
	cfg        CoachingConfig
	now        func() time.Time
}

// NewCoachingService wires the orchestrator. lock may be nil.
func NewCoachingService(
	store *SessionStore,
	coach CoachModel,
	summarizer *Summarizer,
	engine *StageEngine,
	lock repository.UserLock,
	cfg CoachingConfig,
) *CoachingService {
	if !cfg.DefaultTrack.Valid() {
		cfg.DefaultTrack = model.TrackStudent
	}
	return &CoachingService{
		store:      store,
		model:      coach,
		summarizer: summarizer,
		engine:     engine,
		lock:       lock,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Handle never fails: any internal fault becomes the apology message.
func (s *CoachingService) Handle(ctx context.Context, in Inbound) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("user", util.MaskUserID(in.UserID)).
				Str("stack", string(debug.Stack())).
				Msg("coaching panic recovered")
			reply = ApologyMessage
		}
	}()

	release := s.acquire(ctx, in.UserID)
	defer release()

	start := s.now()
	reply = s.handle(ctx, in)
	log.Info().
		Str("user", util.MaskUserID(in.UserID)).
		Str("utterance", util.TruncateRunes(in.Utterance, logUtteranceRunes)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("coaching message handled")
	return reply
}

func (s *CoachingService) handle(ctx context.Context, in Inbound) string {
	text := strings.TrimSpace(in.Utterance)
	session := s.store.Get(ctx, in.UserID)

	if IsReset(text) {
		s.store.Reset(ctx, in.UserID, ResetOptions{Track: session.Track, AwaitTrack: true})
		audit.Log(ctx, audit.Event{Type: audit.EventSessionReset, UserID: in.UserID})
		return TrackSelectionPrompt
	}

	if session.Completed {
		return CompletedNotice
	}

	resumeHandled := false
	switch {
	case session.AwaitingTrack:
		session.AwaitingTrack = false
		if track, ok := ParseTrack(text); ok {
			session.Track = track
			text = GreetingUtterance
		} else {
			session.Track = s.cfg.DefaultTrack
		}
		resumeHandled = true

	case session.AwaitingResume:
		session.AwaitingResume = false
		if IsNewSession(text) {
			session = s.store.Reset(ctx, in.UserID, ResetOptions{Track: session.Track})
			audit.Log(ctx, audit.Event{Type: audit.EventSessionReset, UserID: in.UserID})
			text = GreetingUtterance
		} else {
			log.Debug().Bool("explicit", IsContinue(text)).Msg("continuing previous session")
		}
		resumeHandled = true
	}

	if !resumeHandled && s.needsResumeCheck(session) {
		return s.resume(ctx, session)
	}

	if IsEnd(text) {
		return s.end(ctx, session)
	}

	if IsCrisis(text) && session.MarkCrisis(s.now()) {
		log.Warn().Str("user", util.MaskUserID(in.UserID)).Msg("crisis keywords detected")
		audit.Log(ctx, audit.Event{
			Type:    audit.EventCrisisDetected,
			UserID:  in.UserID,
			Details: map[string]interface{}{"track": string(session.Track), "stage": session.StageIndex},
		})
	}

	return s.coach(ctx, session, text)
}

func (s *CoachingService) coach(ctx context.Context, session *model.Session, text string) string {
	now := s.now()
	track := TrackFor(session.Track)

	session.AppendMessage(model.RoleUser, text, now)
	session.StageQuestionCount++
	count := session.StageQuestionCount

	if s.summarizer != nil && s.summarizer.ShouldSummarize(session) {
		s.summarizer.Summarize(ctx, session)
	}

	if session.StageIndex == 0 && count >= 2 && len(session.CoachingGoals) == 0 && text != GreetingUtterance {
		session.CoachingGoals = append(session.CoachingGoals, util.TruncateRunes(text, goalRunes))
	}

	var previous string
	if session.StageIndex == 0 && count == 1 {
		previous = s.store.PreviousContext(ctx, session.UserID)
	}

	elapsed := session.Elapsed(now)
	prompt := s.prompts.Build(PromptInput{
		Track:           track,
		Session:         session,
		UserMessage:     text,
		Elapsed:         elapsed,
		TimeLimit:       s.cfg.TimeLimit,
		PreviousContext: previous,
		Structured:      s.structured(),
	})

	reply, analysis := s.generate(ctx, prompt, session, track)

	transition := s.engine.Evaluate(session, track, text, analysis)
	if transition.Completed {
		return s.complete(ctx, session)
	}
	if transition.Advanced {
		log.Info().
			Str("user", util.MaskUserID(session.UserID)).
			Int("from", transition.From).
			Int("to", transition.To).
			Msg("stage advanced")
		if bridge := track.Stage(transition.To).Bridge; bridge != "" {
			reply = bridge + "\n\n" + reply
		}
	}

	if session.CrisisDetected && count%2 == 0 {
		reply += "\n\n" + CrisisNotice
	}
	if s.cfg.TimeLimit > 0 && elapsed >= s.cfg.TimeLimit-timeNoticeWindow && elapsed < s.cfg.TimeLimit {
		reply += "\n\n" + TimeNotice
	}

	session.AppendMessage(model.RoleAssistant, reply, now)
	s.store.Put(ctx, session)
	return reply
}

func (s *CoachingService) generate(ctx context.Context, prompt string, session *model.Session, track Track) (string, *model.Analysis) {
	fallback := track.Stage(session.StageIndex).Fallback
	if fallback == "" {
		fallback = GenericFallback
	}

	if s.structured() {
		resp, err := s.model.GenerateStructured(ctx, prompt, session.History)
		if err != nil {
			log.Warn().Err(err).Str("user", util.MaskUserID(session.UserID)).Msg("using fallback question")
			return fallback, nil
		}
		session.LastAnalysis = &resp.Analysis
		return llm.ReplyText(resp), &resp.Analysis
	}

	reply, err := s.model.Generate(ctx, prompt, session.History)
	if err != nil {
		log.Warn().Err(err).Str("user", util.MaskUserID(session.UserID)).Msg("using fallback question")
		return fallback, nil
	}
	return reply, nil
}

// complete closes a session whose last stage has been finished.
func (s *CoachingService) complete(ctx context.Context, session *model.Session) string {
	empathy := EmpathyFallback
	raw, err := s.model.Complete(ctx, empathyPrompt, session.RecentMessages(empathyHistory))
	if err != nil {
		log.Warn().Err(err).Msg("empathy message failed, using fallback")
	} else if cleaned := llm.Sanitize(raw); cleaned != "" {
		empathy = cleaned
	}

	reply := empathy + "\n\n" + CompletionNotice
	session.AppendMessage(model.RoleAssistant, reply, s.now())
	session.Completed = true
	if err := s.store.Archive(ctx, session); err != nil {
		log.Error().Err(err).Str("user", util.MaskUserID(session.UserID)).Msg("failed to archive completed session")
	}
	s.store.Put(ctx, session)

	audit.Log(ctx, audit.Event{
		Type:    audit.EventSessionCompleted,
		UserID:  session.UserID,
		Details: map[string]interface{}{"track": string(session.Track), "messages": session.MessageCount},
	})
	return reply
}

func (s *CoachingService) end(ctx context.Context, session *model.Session) string {
	session.Completed = true
	if err := s.store.Archive(ctx, session); err != nil {
		log.Error().Err(err).Str("user", util.MaskUserID(session.UserID)).Msg("failed to archive ended session")
	}
	s.store.Put(ctx, session)

	audit.Log(ctx, audit.Event{
		Type:    audit.EventSessionEnded,
		UserID:  session.UserID,
		Details: map[string]interface{}{"stage": session.StageIndex, "messages": session.MessageCount},
	})
	return EndMessage
}

func (s *CoachingService) needsResumeCheck(session *model.Session) bool {
	return s.cfg.ResumeAfter > 0 &&
		session.HasHistory() &&
		!session.LastInteraction.IsZero() &&
		s.now().Sub(session.LastInteraction) > s.cfg.ResumeAfter
}

func (s *CoachingService) resume(ctx context.Context, session *model.Session) string {
	message := ResumeFallback
	if len(session.History) >= resumeMinHistory {
		track := TrackFor(session.Track)
		caution := ""
		crisis := "아니오"
		if session.CrisisDetected {
			crisis = "예"
			caution = "- 위기 상황이므로 더욱 세심하고 조심스럽게 접근하세요\n"
		}
		prompt := fmt.Sprintf(resumePromptTemplate,
			track.Stage(session.StageIndex).Name, track.clamp(session.StageIndex)+1, len(track.Stages),
			crisis, caution)

		raw, err := s.model.Complete(ctx, prompt, session.RecentMessages(resumeHistory))
		if err != nil {
			log.Warn().Err(err).Msg("resume message failed, using fallback")
		} else if cleaned := llm.Sanitize(raw); cleaned != "" {
			message = cleaned
		}
	}

	session.AwaitingResume = true
	s.store.Put(ctx, session)
	return message
}

func (s *CoachingService) structured() bool {
	return s.cfg.ResponseMode != config.ResponseModePlain
}

// acquire takes the per-user lock when configured. It gives up after a few
// attempts and lets the message through unlocked.
func (s *CoachingService) acquire(ctx context.Context, userID string) func() {
	if s.lock == nil {
		return func() {}
	}

	for attempt := 0; attempt < config.UserLockAttempts; attempt++ {
		token, ok, err := s.lock.Acquire(ctx, userID, config.UserLockTTL)
		if err != nil {
			log.Warn().Err(err).Msg("user lock unavailable, continuing unlocked")
			return func() {}
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
				defer cancel()
				if err := s.lock.Release(releaseCtx, userID, token); err != nil {
					log.Warn().Err(err).Msg("failed to release user lock")
				}
			}
		}

		select {
		case <-ctx.Done():
			return func() {}
		case <-time.After(config.UserLockWait):
		}
	}

	log.Warn().Str("user", util.MaskUserID(userID)).Msg("user lock busy, continuing unlocked")
	return func() {}
}
