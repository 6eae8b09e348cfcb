// Package pipeline implements answer generation for migration questions:
// domain gating, structured retrieval, normalization, rendering with a
// deterministic fallback, country-brief caching, and per-user limits.
package pipeline

import "github.com/mvoronin/relobot/internal/database"

// Mode selects the prompt templates and output schema for one request.
type Mode string

const (
	// ModeChat is the general assistant conversation mode.
	ModeChat Mode = "chat"
	// ModeCountry produces a structured single-country migration brief.
	ModeCountry Mode = "country"
)

// HistoryItem is one prior conversation message passed as prompt context.
type HistoryItem struct {
	Role string
	Text string
}

// Request describes one answer-generation request. It is immutable once
// constructed; the pipeline never mutates it.
type Request struct {
	UserID  int64
	Text    string
	Mode    Mode
	Profile *database.User
	History []HistoryItem
}

// Section is one titled block of a country brief.
type Section struct {
	Title string
	Body  string
}

// StructuredAnswer is the normalized form of the retrieval model's JSON.
// Chat mode fills Answer, Clarify, and Sources; country mode fills Country,
// Sections, and Sources.
type StructuredAnswer struct {
	Answer   string
	Country  string
	Sections []Section
	Clarify  []string
	Sources  []string
}

// Outcome classifies how a request terminated. The transport layer uses it
// to decide whether to persist the exchange and which keyboard to show.
type Outcome int

const (
	// OutcomeAnswered means a fresh answer was generated end to end.
	OutcomeAnswered Outcome = iota
	// OutcomeCached means the answer came from the country-info cache.
	OutcomeCached
	// OutcomeBusy means the user's previous request is still in flight.
	OutcomeBusy
	// OutcomeQuota means the user's daily quota for the mode is exhausted.
	OutcomeQuota
	// OutcomeOffTopic means the domain gate redirected the question.
	OutcomeOffTopic
	// OutcomeError means generation failed and the result is an error string.
	OutcomeError
)

// Counts reports whether the outcome represents a served answer that should
// be persisted and counted against the daily quota.
func (o Outcome) Counts() bool {
	return o == OutcomeAnswered || o == OutcomeCached
}
