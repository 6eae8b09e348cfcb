package pipeline

import (
	"html"
	"strings"
)

const (
	maxClarifyItems = 2
	maxSourceItems  = 10
)

// renderFallback deterministically formats a normalized structured answer as
// Telegram HTML without any network call. Identical input yields identical
// output. A degenerate object (no sections, empty answer) yields an empty
// string; the caller handles that as a "no content" outcome.
func renderFallback(mode Mode, s StructuredAnswer) string {
	if mode == ModeCountry {
		return renderCountryFallback(s)
	}
	return renderChatFallback(s)
}

func renderCountryFallback(s StructuredAnswer) string {
	var blocks []string

	if s.Country != "" {
		blocks = append(blocks, "<b>"+html.EscapeString(s.Country)+"</b>")
	}

	for _, sec := range s.Sections {
		var b strings.Builder
		if sec.Title != "" {
			b.WriteString("<b>" + html.EscapeString(sec.Title) + "</b>")
		}
		if sec.Body != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(html.EscapeString(sec.Body))
		}
		blocks = append(blocks, b.String())
	}

	if block := renderSourcesBlock(s.Sources); block != "" {
		blocks = append(blocks, block)
	}

	return strings.Join(blocks, "\n\n")
}

func renderChatFallback(s StructuredAnswer) string {
	var blocks []string

	if s.Answer != "" {
		blocks = append(blocks, html.EscapeString(s.Answer))
	}

	if len(s.Clarify) > 0 {
		clarify := s.Clarify
		if len(clarify) > maxClarifyItems {
			clarify = clarify[:maxClarifyItems]
		}
		var lines []string
		for _, q := range clarify {
			lines = append(lines, "— "+html.EscapeString(q))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	if block := renderSourcesBlock(s.Sources); block != "" {
		blocks = append(blocks, block)
	}

	return strings.Join(blocks, "\n\n")
}

func renderSourcesBlock(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	if len(sources) > maxSourceItems {
		sources = sources[:maxSourceItems]
	}
	lines := []string{"<b>" + sourcesHeading + "</b>"}
	for _, src := range sources {
		lines = append(lines, html.EscapeString(src))
	}
	return strings.Join(lines, "\n")
}
