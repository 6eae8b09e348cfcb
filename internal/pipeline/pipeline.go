package pipeline

import (
	"context"
	"io"
	"log/slog"

	"github.com/mvoronin/relobot/internal/llm"
)

// ModelClient abstracts the chat-completions client. Implemented by
// *llm.Client; tests substitute fakes.
type ModelClient interface {
	Complete(ctx context.Context, ep llm.Endpoint, msgs []llm.Message) (string, error)
	CompleteWithRetry(ctx context.Context, ep llm.Endpoint, msgs []llm.Message) (string, error)
}

// Pipeline orchestrates answer generation: guard, quota, cache, gate,
// retrieval, normalization, rendering.
type Pipeline struct {
	model     ModelClient
	retrieval llm.Endpoint
	assist    llm.Endpoint

	cache   *CountryCache
	limiter *Limiter
	guard   *Guard

	maxUserTextLen    int
	maxHistoryItemLen int

	logger *slog.Logger
}

// Options bundles the pipeline's dependencies and tuning knobs.
type Options struct {
	Model             ModelClient
	Retrieval         llm.Endpoint
	Assist            llm.Endpoint
	Cache             *CountryCache
	Limiter           *Limiter
	MaxUserTextLen    int
	MaxHistoryItemLen int
	Logger            *slog.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxUserTextLen <= 0 {
		opts.MaxUserTextLen = 2000
	}
	if opts.MaxHistoryItemLen <= 0 {
		opts.MaxHistoryItemLen = 600
	}
	return &Pipeline{
		model:             opts.Model,
		retrieval:         opts.Retrieval,
		assist:            opts.Assist,
		cache:             opts.Cache,
		limiter:           opts.Limiter,
		guard:             NewGuard(),
		maxUserTextLen:    opts.MaxUserTextLen,
		maxHistoryItemLen: opts.MaxHistoryItemLen,
		logger:            logger.With("component", "pipeline"),
	}
}

// Generate runs the full pipeline for one request and always returns a
// non-empty user-facing string. It never panics outward; any internal fault
// becomes a generic error string.
func (p *Pipeline) Generate(ctx context.Context, req Request) (answer string, outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "Pipeline panicked", "tg_user_id", req.UserID, "panic", r)
			answer = msgInternalError
			outcome = OutcomeError
		}
	}()

	if !p.guard.TryAcquire(req.UserID) {
		return msgBusy, OutcomeBusy
	}
	defer p.guard.Release(req.UserID)

	if allowed, _ := p.limiter.Allow(ctx, req.UserID, req.Mode); !allowed {
		return quotaMessage(req.Mode), OutcomeQuota
	}

	var cacheKey string
	if req.Mode == ModeCountry {
		cacheKey = NormalizeCountryKey(req.Text)
		if cached := p.cache.Get(ctx, cacheKey); cached != "" {
			p.logger.DebugContext(ctx, "Serving country brief from cache", "key", cacheKey)
			return cached, OutcomeCached
		}
	}

	if inScope, redirect := p.checkDomainGate(ctx, req.Text, req.Mode); !inScope {
		return redirect, OutcomeOffTopic
	}

	result := p.retrieve(ctx, req)
	if result.CallFailed {
		return result.PlainText, OutcomeError
	}

	if !result.Parsed {
		if result.PlainText == "" {
			return msgEmptyAnswer, OutcomeError
		}
		return result.PlainText, OutcomeAnswered
	}

	var structured StructuredAnswer
	if req.Mode == ModeCountry {
		structured = normalizeCountry(result.Country)
	} else {
		structured = normalizeChat(result.Chat)
	}

	rendered, ok := p.renderWithModel(ctx, req, structured)
	if !ok {
		rendered = renderFallback(req.Mode, structured)
	}
	if rendered == "" {
		return msgEmptyAnswer, OutcomeError
	}

	if req.Mode == ModeCountry {
		p.cache.Put(ctx, cacheKey, req.Text, rendered)
	}

	return rendered, OutcomeAnswered
}

// SweepCache removes expired country cache entries. Called at process start
// and from the scheduled sweep task.
func (p *Pipeline) SweepCache(ctx context.Context) (int64, error) {
	return p.cache.Sweep(ctx)
}

// ExtendBoost raises the user's daily limits for the configured number of
// days, stacking on top of any active boost.
func (p *Pipeline) ExtendBoost(ctx context.Context, userID int64) (boostUntil string, err error) {
	until, err := p.limiter.ExtendBoost(ctx, userID)
	if err != nil {
		return "", err
	}
	return until.Format("02.01.2006 15:04 UTC"), nil
}
