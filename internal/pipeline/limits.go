package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mvoronin/relobot/internal/database"
)

// Guard serializes requests per user: a second request arriving while the
// first is in flight is rejected, not queued. Only the task that acquired a
// user's flag may release it.
type Guard struct {
	mu   sync.Mutex
	busy map[int64]bool
}

// NewGuard creates an empty concurrency guard.
func NewGuard() *Guard {
	return &Guard{busy: make(map[int64]bool)}
}

// TryAcquire marks the user busy. It returns false if a request for the
// user is already in flight.
func (g *Guard) TryAcquire(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[userID] {
		return false
	}
	g.busy[userID] = true
	return true
}

// Release clears the user's busy flag. Safe to call on an already-clear flag.
func (g *Guard) Release(userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, userID)
}

// LimitsConfig holds the per-mode daily quotas and the boost parameters.
type LimitsConfig struct {
	ChatDaily           int
	CountryDaily        int
	BoostedChatDaily    int
	BoostedCountryDaily int
	BoostDays           int
}

// Limiter enforces per-user daily quotas. Counters are not stored; they are
// computed by counting persisted user-authored messages for the current UTC
// calendar day, so restarting the process cannot reset anyone's quota.
type Limiter struct {
	store  database.Store
	cfg    LimitsConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewLimiter creates a Limiter over the given store.
func NewLimiter(store database.Store, cfg LimitsConfig, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Limiter{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With("component", "limiter"),
	}
}

// Allow reports whether the user may issue one more request in the mode
// today. The effective limit is the boosted one while boost_until lies in
// the future. Storage errors admit the request: quota enforcement must not
// take the bot down.
func (l *Limiter) Allow(ctx context.Context, userID int64, mode Mode) (bool, error) {
	now := l.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	count, err := l.store.CountMessagesBetween(ctx, userID, string(mode), dayStart, dayEnd)
	if err != nil {
		l.logger.WarnContext(ctx, "Failed to count daily messages, admitting request",
			"tg_user_id", userID, "mode", mode, "error", err)
		return true, err
	}

	limit := l.effectiveLimit(ctx, userID, mode, now)
	if count >= limit {
		l.logger.InfoContext(ctx, "Daily quota exhausted",
			"tg_user_id", userID, "mode", mode, "count", count, "limit", limit)
		return false, nil
	}
	return true, nil
}

func (l *Limiter) effectiveLimit(ctx context.Context, userID int64, mode Mode, now time.Time) int {
	boosted := false
	until, err := l.store.BoostUntil(ctx, userID)
	if err != nil {
		l.logger.WarnContext(ctx, "Failed to read boost window", "tg_user_id", userID, "error", err)
	} else {
		boosted = until.After(now)
	}

	switch {
	case mode == ModeCountry && boosted:
		return l.cfg.BoostedCountryDaily
	case mode == ModeCountry:
		return l.cfg.CountryDaily
	case boosted:
		return l.cfg.BoostedChatDaily
	default:
		return l.cfg.ChatDaily
	}
}

// ExtendBoost grants the user BoostDays more days of raised limits. The
// extension stacks forward: it adds to the current boost_until when that is
// still in the future, otherwise to now. It never extends from a past value.
func (l *Limiter) ExtendBoost(ctx context.Context, userID int64) (time.Time, error) {
	now := l.now().UTC()

	base := now
	current, err := l.store.BoostUntil(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read boost window for user %d: %w", userID, err)
	}
	if current.After(now) {
		base = current
	}

	until := base.AddDate(0, 0, l.cfg.BoostDays)
	if err := l.store.SetBoostUntil(ctx, userID, until); err != nil {
		return time.Time{}, fmt.Errorf("failed to extend boost for user %d: %w", userID, err)
	}

	l.logger.InfoContext(ctx, "Boost window extended", "tg_user_id", userID, "boost_until", until)
	return until, nil
}
