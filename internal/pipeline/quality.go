package pipeline

import (
	"regexp"
	"strings"
)

// QualityConfig holds the thresholds of the cacheability heuristic. The
// thresholds are configuration, not contract constants; only the shape of
// the heuristic (denylist plus structural signals) is fixed.
type QualityConfig struct {
	MinAnswerLength  int
	MinListMarkers   int
	MinTopicKeywords int
}

// errorMarkers are case-insensitive substrings that mark an answer as an
// error or transport failure. Such answers must never be cached, or a
// transient failure would poison the cache for all future askers.
var errorMarkers = []string{
	"ошибка",
	"error",
	"exception",
	"timeout",
	"таймаут",
	"traceback",
	"connection",
}

// topicKeywords are stems expected in a genuine country migration brief.
var topicKeywords = []string{
	"виза",
	"внж",
	"гражданств",
	"стоимост",
	"жиль",
	"работ",
	"налог",
	"медицин",
	"образован",
	"официальн",
}

var (
	numberedItemRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s`)
	htmlTagRe      = regexp.MustCompile(`</?[a-zA-Z][^<>]*>`)
)

// isCountryAnswerCacheable decides whether a rendered country answer is
// worth caching. Error-marked answers are rejected outright. Short answers
// are accepted only if they independently look structured: enough numbered
// list items or enough topic keywords.
func isCountryAnswerCacheable(answer string, cfg QualityConfig) bool {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return false
	}

	lower := strings.ToLower(trimmed)
	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}

	plain := htmlTagRe.ReplaceAllString(trimmed, "")
	if len([]rune(plain)) >= cfg.MinAnswerLength {
		return true
	}

	if len(numberedItemRe.FindAllString(plain, -1)) >= cfg.MinListMarkers {
		return true
	}

	keywords := 0
	for _, kw := range topicKeywords {
		if strings.Contains(lower, kw) {
			keywords++
		}
	}
	return keywords >= cfg.MinTopicKeywords
}
