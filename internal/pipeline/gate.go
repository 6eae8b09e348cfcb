package pipeline

import (
	"context"
	"encoding/json"

	"github.com/mvoronin/relobot/internal/llm"
)

type gateVerdict struct {
	InScope bool   `json:"in_scope"`
	Reply   string `json:"reply"`
}

// checkDomainGate classifies whether the user text is in scope. The gate is
// advisory and fails open: any call failure or unparsable verdict admits the
// request rather than blocking the user.
func (p *Pipeline) checkDomainGate(ctx context.Context, text string, mode Mode) (bool, string) {
	raw, err := p.model.Complete(ctx, p.assist, []llm.Message{
		{Role: "system", Content: gateSystemPromptFor(mode)},
		{Role: "user", Content: text},
	})
	if err != nil {
		p.logger.WarnContext(ctx, "Domain gate call failed, admitting request",
			"mode", mode, "error", err)
		return true, ""
	}

	obj, ok := extractJSONObject(raw)
	if !ok {
		p.logger.WarnContext(ctx, "Domain gate returned unparsable verdict, admitting request",
			"mode", mode, "response_preview", truncateRunes(raw, 120))
		return true, ""
	}

	var verdict gateVerdict
	if err := json.Unmarshal(obj, &verdict); err != nil {
		p.logger.WarnContext(ctx, "Domain gate verdict does not match schema, admitting request",
			"mode", mode, "error", err)
		return true, ""
	}

	if verdict.InScope {
		return true, ""
	}

	reply := cleanupText(verdict.Reply)
	if reply == "" {
		reply = msgOffTopicDefault
	}
	p.logger.DebugContext(ctx, "Domain gate redirected request", "mode", mode)
	return false, reply
}
