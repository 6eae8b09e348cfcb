package pipeline

import (
	"encoding/json"
	"strconv"
	"strings"
)

const maxSections = 8

// normalizeChat converts a raw chat payload into a StructuredAnswer,
// silently dropping malformed optional fields. Pure, no I/O.
func normalizeChat(raw rawChatPayload) StructuredAnswer {
	return StructuredAnswer{
		Answer:  strings.TrimSpace(raw.Answer),
		Clarify: normalizeStrings(raw.Clarify),
		Sources: normalizeSources(raw.Sources),
	}
}

// normalizeCountry converts a raw country payload into a StructuredAnswer.
// Sections failing the non-empty invariant are dropped silently; at most
// maxSections survive.
func normalizeCountry(raw rawCountryPayload) StructuredAnswer {
	out := StructuredAnswer{
		Country: strings.TrimSpace(raw.Country),
		Sources: normalizeSources(raw.Sources),
	}

	for _, entry := range raw.Sections {
		if len(out.Sections) >= maxSections {
			break
		}
		var section struct {
			Title json.RawMessage `json:"title"`
			Body  json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(entry, &section); err != nil {
			continue
		}
		title := strings.TrimSpace(coerceString(section.Title))
		body := strings.TrimSpace(coerceString(section.Body))
		if title == "" && body == "" {
			continue
		}
		out.Sections = append(out.Sections, Section{Title: title, Body: body})
	}

	return out
}

// normalizeStrings keeps only entries reducible to non-empty strings.
func normalizeStrings(entries []json.RawMessage) []string {
	var out []string
	for _, entry := range entries {
		s := strings.TrimSpace(coerceString(entry))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalizeSources keeps only well-formed HTTP(S) URLs after trimming
// surrounding punctuation. Everything else is dropped without error.
func normalizeSources(entries []json.RawMessage) []string {
	var out []string
	for _, entry := range entries {
		s := strings.TrimSpace(coerceString(entry))
		s = strings.Trim(s, `.,;:!?()[]<>"'`)
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
			out = append(out, s)
		}
	}
	return out
}

// coerceString turns a raw JSON value into a string: JSON strings decode,
// numbers and booleans format, everything else yields "".
func coerceString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}

	return ""
}
