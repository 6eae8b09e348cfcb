package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/mvoronin/relobot/internal/llm"
)

// rawChatPayload mirrors the chat-mode retrieval schema before normalization.
// Fields use json.RawMessage where the model is known to misbehave, so that
// a single malformed field degrades instead of failing the whole object.
type rawChatPayload struct {
	Answer  string            `json:"answer"`
	Clarify []json.RawMessage `json:"clarify"`
	Sources []json.RawMessage `json:"sources"`
}

type rawCountryPayload struct {
	Country  string            `json:"country"`
	Sections []json.RawMessage `json:"sections"`
	Sources  []json.RawMessage `json:"sources"`
}

// retrievalResult is either a parsed structured object (Parsed=true) or a
// plain-text answer: the cleaned raw response when JSON extraction failed,
// or a user-facing error string when the call itself failed.
type retrievalResult struct {
	Parsed     bool
	Chat       rawChatPayload
	Country    rawCountryPayload
	PlainText  string
	CallFailed bool
}

// retrieve issues the search-augmented retrieval call and defensively parses
// its response. Transport and protocol failures map to the user-facing error
// taxonomy; an unparsable but successful response falls back to cleaned raw
// text rather than an error.
func (p *Pipeline) retrieve(ctx context.Context, req Request) retrievalResult {
	if p.retrieval.Token == "" {
		return retrievalResult{PlainText: msgNoCredential, CallFailed: true}
	}

	userPrompt := buildRetrievalUserPrompt(req, p.maxUserTextLen, p.maxHistoryItemLen)
	systemPrompt := chatSystemPrompt
	if req.Mode == ModeCountry {
		systemPrompt = countrySystemPrompt
	}

	raw, err := p.model.CompleteWithRetry(ctx, p.retrieval, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return retrievalResult{PlainText: p.retrievalErrorMessage(ctx, err), CallFailed: true}
	}

	obj, ok := extractJSONObject(raw)
	if !ok {
		p.logger.WarnContext(ctx, "Retrieval response is not a JSON object, using cleaned raw text",
			"mode", req.Mode, "response_preview", truncateRunes(raw, 120))
		return retrievalResult{PlainText: cleanupText(raw)}
	}

	result := retrievalResult{Parsed: true}
	if req.Mode == ModeCountry {
		if err := json.Unmarshal(obj, &result.Country); err != nil {
			p.logger.WarnContext(ctx, "Country payload does not match schema, using cleaned raw text", "error", err)
			return retrievalResult{PlainText: cleanupText(raw)}
		}
	} else {
		if err := json.Unmarshal(obj, &result.Chat); err != nil {
			p.logger.WarnContext(ctx, "Chat payload does not match schema, using cleaned raw text", "error", err)
			return retrievalResult{PlainText: cleanupText(raw)}
		}
	}
	return result
}

// retrievalErrorMessage maps a failed retrieval call to its user-facing
// Russian error string.
func (p *Pipeline) retrievalErrorMessage(ctx context.Context, err error) string {
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		p.logger.ErrorContext(ctx, "Retrieval endpoint returned error status",
			"status", statusErr.Code)
		return msgHTTPStatus(statusErr.Code, statusErr.Body)
	}

	var decodeErr *llm.DecodeError
	if errors.As(err, &decodeErr) {
		p.logger.ErrorContext(ctx, "Retrieval response body is not valid JSON", "error", err)
		return msgNotJSON(decodeErr.Err.Error())
	}

	var modelErr *llm.ModelError
	if errors.As(err, &modelErr) {
		p.logger.ErrorContext(ctx, "Retrieval model reported an error", "message", modelErr.Message)
		return msgModelError(modelErr.Message)
	}

	if errors.Is(err, llm.ErrNoCredential) {
		return msgNoCredential
	}

	switch {
	case llm.IsTimeout(err):
		p.logger.ErrorContext(ctx, "Retrieval call timed out", "error", err)
		return msgTimeout
	case llm.IsConnectionError(err):
		p.logger.ErrorContext(ctx, "Retrieval call failed to connect", "error", err)
		return msgConnection
	default:
		p.logger.ErrorContext(ctx, "Retrieval call failed", "error", err)
		return msgGenericModel
	}
}

// extractJSONObject pulls a single JSON object out of possibly noisy model
// output. It takes the greedy first-to-last brace span, and if that span does
// not parse, attempts a repair pass for almost-JSON (trailing commas,
// unquoted keys, single quotes).
func extractJSONObject(text string) (json.RawMessage, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end <= start {
		return nil, false
	}

	candidate := text[start : end+1]
	if json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), true
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, false
	}
	repaired = strings.TrimSpace(repaired)
	if !strings.HasPrefix(repaired, "{") || !json.Valid([]byte(repaired)) {
		return nil, false
	}
	return json.RawMessage(repaired), true
}
