package service

import (
	"regexp"
	"strings"

	"github.com/maeum-coach/coaching-server-go/internal/model"
)

func compile(patterns ...string) *regexp.Regexp {
	return regexp.MustCompile("(?i)(?:" + strings.Join(patterns, "|") + ")")
}

var (
	resetRe = compile(
		`다시\s*시작`, `처음부터`, `새로\s*시작`, `리셋`, `reset`, `restart`,
		`다시\s*해`, `새로\s*해`, `코칭\s*다시`, `처음으로`,
	)
	endRe = compile(
		`종료`, `끝`, `그만`, `stop`, `exit`, `quit`, `코칭\s*끝`, `마무리`, `그만\s*하`,
	)
	continueRe = compile(
		`계속`, `이어서`, `continue`, `네`, `yes`, `좋아`,
	)
	newSessionRe = compile(
		`새로`, `다시`, `새\s*주제`, `new`, `아니`, `no`, `다른`,
	)
	crisisRe = compile(
		`자해`, `자살`, `죽고\s*싶`, `사라지고\s*싶`, `폭력`, `학대`, `괴롭힘`,
		`왕따`, `때리`, `맞아`, `혼자`, `외로워`, `아무도\s*없`,
	)
)

func IsReset(message string) bool {
	return resetRe.MatchString(strings.TrimSpace(message))
}

// IsEnd reports an end command. Reset commands take precedence.
func IsEnd(message string) bool {
	return !IsReset(message) && endRe.MatchString(strings.TrimSpace(message))
}

func IsContinue(message string) bool {
	return continueRe.MatchString(strings.TrimSpace(message))
}

func IsNewSession(message string) bool {
	return newSessionRe.MatchString(strings.TrimSpace(message))
}

func IsCrisis(message string) bool {
	return crisisRe.MatchString(message)
}

var trackAnswers = []struct {
	name     model.TrackName
	keywords []string
}{
	{model.TrackStudent, []string{"학생", "student", "1"}},
	{model.TrackTeacher, []string{"선생님", "교사", "teacher", "2"}},
	{model.TrackGeneral, []string{"일반", "general", "3"}},
}

// ParseTrack maps an answer to the track-selection prompt onto a track.
func ParseTrack(message string) (model.TrackName, bool) {
	answer := strings.ToLower(strings.TrimSpace(message))
	answer = strings.TrimSuffix(answer, ".")
	for _, t := range trackAnswers {
		for _, kw := range t.keywords {
			if len(kw) == 1 {
				if answer == kw || strings.HasPrefix(answer, kw+".") || strings.HasPrefix(answer, kw+" ") {
					return t.name, true
				}
				continue
			}
			if strings.Contains(answer, kw) {
				return t.name, true
			}
		}
	}
	return "", false
}
