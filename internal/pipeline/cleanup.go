package pipeline

import (
	"regexp"
	"strings"
)

var (
	citationRe   = regexp.MustCompile(`\s*\[\d+\]`)
	boldRe       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe     = regexp.MustCompile(`\*(.+?)\*`)
	headerRe     = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	spaceRunRe   = regexp.MustCompile(`[ \t]{2,}`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
	spacePunctRe = regexp.MustCompile(`[ \t]+([,.!?])`)
	trailingWSRe = regexp.MustCompile(`(?m)[ \t]+$`)
)

// cleanupText strips search-citation markers like [1], markdown emphasis and
// header markers, and normalizes whitespace. Newlines are preserved so that
// constrained markup and list structure survive; only runs of spaces and
// excessive blank lines collapse.
func cleanupText(text string) string {
	if text == "" {
		return ""
	}
	cleaned := citationRe.ReplaceAllString(text, "")
	cleaned = boldRe.ReplaceAllString(cleaned, "$1")
	cleaned = italicRe.ReplaceAllString(cleaned, "$1")
	cleaned = headerRe.ReplaceAllString(cleaned, "")
	cleaned = spaceRunRe.ReplaceAllString(cleaned, " ")
	cleaned = spacePunctRe.ReplaceAllString(cleaned, "$1")
	cleaned = trailingWSRe.ReplaceAllString(cleaned, "")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
