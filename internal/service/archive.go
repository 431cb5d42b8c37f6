package service

import (
	"strings"

	"github.com/maeum-coach/coaching-server-go/internal/model"
	"github.com/maeum-coach/coaching-server-go/internal/util"
)

const (
	archiveSnippetRunes = 50
	archivePerCategory  = 3
)

var archiveKeywords = struct {
	difficulties, helpNeeds, barriers, helpers, actionPlans, insights []string
}{
	difficulties: []string{"힘들", "어려", "못하", "안되", "걱정"},
	helpNeeds:    []string{"도움", "필요", "혼자", "같이"},
	barriers:     []string{"부끄러", "민폐", "싫어", "거절", "무서"},
	helpers:      []string{"선생님", "부모님", "친구", "상담", "언니", "오빠", "누나", "형"},
	actionPlans:  []string{"할게", "하겠", "해볼게", "시도"},
	insights:     []string{"깨달", "알게", "느꼈", "생각해보니"},
}

// ExtractArchiveSummary sorts user messages into help-seeking categories by
// keyword and keeps the most recent few snippets per category.
func ExtractArchiveSummary(session *model.Session) model.ArchiveSummary {
	var sum model.ArchiveSummary
	for _, msg := range session.History {
		if msg.Role != model.RoleUser {
			continue
		}
		content := strings.ToLower(msg.Content)
		snippet := util.TruncateRunes(content, archiveSnippetRunes)

		if containsAny(content, archiveKeywords.difficulties) {
			sum.Difficulties = append(sum.Difficulties, snippet)
		}
		if containsAny(content, archiveKeywords.helpNeeds) {
			sum.HelpNeeds = append(sum.HelpNeeds, snippet)
		}
		if containsAny(content, archiveKeywords.barriers) {
			sum.Barriers = append(sum.Barriers, snippet)
		}
		if containsAny(content, archiveKeywords.helpers) {
			sum.Helpers = append(sum.Helpers, snippet)
		}
		if containsAny(content, archiveKeywords.actionPlans) {
			sum.ActionPlans = append(sum.ActionPlans, snippet)
		}
		if containsAny(content, archiveKeywords.insights) {
			sum.Insights = append(sum.Insights, snippet)
		}
	}

	sum.Difficulties = lastN(sum.Difficulties, archivePerCategory)
	sum.HelpNeeds = lastN(sum.HelpNeeds, archivePerCategory)
	sum.Barriers = lastN(sum.Barriers, archivePerCategory)
	sum.Helpers = lastN(sum.Helpers, archivePerCategory)
	sum.ActionPlans = lastN(sum.ActionPlans, archivePerCategory)
	sum.Insights = lastN(sum.Insights, archivePerCategory)
	return sum
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lastN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
