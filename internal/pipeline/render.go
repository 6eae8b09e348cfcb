package pipeline

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/mvoronin/relobot/internal/llm"
)

// allowedTags is the Telegram HTML allowlist. Anything else in renderer
// output gets escaped rather than sent through.
var allowedTags = map[string]bool{
	"b": true, "i": true, "u": true, "s": true,
	"code": true, "pre": true, "a": true,
}

var tagRe = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)(\s[^<>]*)?/?>`)

// renderWithModel asks the assist model to re-express the structured object
// as Telegram HTML. Any failure (no credential, transport error, empty
// output) returns ok=false, signaling the caller to use the fallback
// renderer. Single attempt, no retries.
func (p *Pipeline) renderWithModel(ctx context.Context, req Request, structured StructuredAnswer) (string, bool) {
	if p.assist.Token == "" {
		return "", false
	}

	payload, err := marshalStructured(req.Mode, structured)
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to encode structured answer for renderer", "error", err)
		return "", false
	}

	raw, err := p.model.Complete(ctx, p.assist, []llm.Message{
		{Role: "system", Content: renderSystemPrompt},
		{Role: "user", Content: buildRenderUserPrompt(req.Text, req.Mode, payload)},
	})
	if err != nil {
		p.logger.WarnContext(ctx, "Renderer call failed, using fallback renderer",
			"mode", req.Mode, "error", err)
		return "", false
	}

	rendered := sanitizeTelegramHTML(cleanupText(raw))
	if rendered == "" {
		p.logger.WarnContext(ctx, "Renderer produced empty output, using fallback renderer", "mode", req.Mode)
		return "", false
	}
	return rendered, true
}

// marshalStructured serializes the normalized object for the render prompt,
// keeping only the fields relevant to the mode.
func marshalStructured(mode Mode, s StructuredAnswer) (string, error) {
	var v any
	if mode == ModeCountry {
		type section struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		}
		sections := make([]section, 0, len(s.Sections))
		for _, sec := range s.Sections {
			sections = append(sections, section{Title: sec.Title, Body: sec.Body})
		}
		v = struct {
			Country  string    `json:"country"`
			Sections []section `json:"sections"`
			Sources  []string  `json:"sources"`
		}{s.Country, sections, s.Sources}
	} else {
		clarify := s.Clarify
		if len(clarify) > maxClarifyItems {
			clarify = clarify[:maxClarifyItems]
		}
		v = struct {
			Answer  string   `json:"answer"`
			Clarify []string `json:"clarify"`
			Sources []string `json:"sources"`
		}{s.Answer, clarify, s.Sources}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// sanitizeTelegramHTML escapes every markup delimiter that is not part of an
// allow-listed Telegram tag. Allowed tags pass through untouched; unknown
// tags and stray angle brackets become literal text.
func sanitizeTelegramHTML(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for len(text) > 0 {
		idx := strings.IndexByte(text, '<')
		if idx == -1 {
			b.WriteString(text)
			break
		}
		b.WriteString(text[:idx])
		rest := text[idx:]

		loc := tagRe.FindStringSubmatchIndex(rest)
		if loc == nil || loc[0] != 0 {
			b.WriteString("&lt;")
			text = rest[1:]
			continue
		}

		tag := rest[loc[0]:loc[1]]
		name := strings.ToLower(rest[loc[2]:loc[3]])
		if allowedTags[name] {
			b.WriteString(tag)
		} else {
			b.WriteString("&lt;")
			b.WriteString(escapeAngles(tag[1:]))
		}
		text = rest[loc[1]:]
	}

	return b.String()
}

func escapeAngles(s string) string {
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}
