package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/mvoronin/relobot/internal/database"
)

var testLimits = LimitsConfig{
	ChatDaily:           3,
	CountryDaily:        2,
	BoostedChatDaily:    10,
	BoostedCountryDaily: 5,
	BoostDays:           7,
}

func addUserMessages(store *fakeStore, userID int64, mode string, n int, at time.Time) {
	for i := 0; i < n; i++ {
		store.messages = append(store.messages, database.Message{
			TgUserID:  userID,
			Role:      "user",
			Text:      "вопрос",
			Mode:      mode,
			CreatedAt: at,
		})
	}
}

func TestGuard(t *testing.T) {
	t.Parallel()

	g := NewGuard()

	if !g.TryAcquire(1) {
		t.Fatal("first TryAcquire should succeed")
	}
	if g.TryAcquire(1) {
		t.Error("second TryAcquire for same user should fail")
	}
	if !g.TryAcquire(2) {
		t.Error("TryAcquire for a different user should succeed")
	}

	g.Release(1)
	if !g.TryAcquire(1) {
		t.Error("TryAcquire after Release should succeed")
	}

	// Releasing an already-clear flag must not panic.
	g.Release(99)
}

func TestLimiterAllow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	t.Run("rejects after limit reached", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		addUserMessages(store, 1, "chat", testLimits.ChatDaily, now.Add(-time.Hour))

		l := NewLimiter(store, testLimits, nil)
		l.now = func() time.Time { return now }

		if ok, _ := l.Allow(context.Background(), 1, ModeChat); ok {
			t.Error("request at the limit should be rejected")
		}
	})

	t.Run("allows below limit", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		addUserMessages(store, 1, "chat", testLimits.ChatDaily-1, now.Add(-time.Hour))

		l := NewLimiter(store, testLimits, nil)
		l.now = func() time.Time { return now }

		if ok, _ := l.Allow(context.Background(), 1, ModeChat); !ok {
			t.Error("request below the limit should be allowed")
		}
	})

	t.Run("counters are per mode", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		addUserMessages(store, 1, "chat", testLimits.ChatDaily, now.Add(-time.Hour))

		l := NewLimiter(store, testLimits, nil)
		l.now = func() time.Time { return now }

		if ok, _ := l.Allow(context.Background(), 1, ModeCountry); !ok {
			t.Error("country quota should be independent of chat quota")
		}
	})

	t.Run("yesterday does not count", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		// 23:30 UTC the previous day: outside today's window even though
		// it is within the last 24 hours.
		addUserMessages(store, 1, "chat", testLimits.ChatDaily, now.AddDate(0, 0, -1).Add(8*time.Hour+30*time.Minute))

		l := NewLimiter(store, testLimits, nil)
		l.now = func() time.Time { return now }

		if ok, _ := l.Allow(context.Background(), 1, ModeChat); !ok {
			t.Error("messages from the previous UTC day should not count")
		}
	})

	t.Run("active boost raises limit", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		addUserMessages(store, 1, "chat", testLimits.ChatDaily, now.Add(-time.Hour))
		store.boosts[1] = now.Add(24 * time.Hour)

		l := NewLimiter(store, testLimits, nil)
		l.now = func() time.Time { return now }

		if ok, _ := l.Allow(context.Background(), 1, ModeChat); !ok {
			t.Error("boosted user should be allowed past the base limit")
		}
	})

	t.Run("expired boost does not raise limit", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		addUserMessages(store, 1, "chat", testLimits.ChatDaily, now.Add(-time.Hour))
		store.boosts[1] = now.Add(-time.Minute)

		l := NewLimiter(store, testLimits, nil)
		l.now = func() time.Time { return now }

		if ok, _ := l.Allow(context.Background(), 1, ModeChat); ok {
			t.Error("expired boost should not raise the limit")
		}
	})

	t.Run("storage error admits the request", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.countErr = context.DeadlineExceeded

		l := NewLimiter(store, testLimits, nil)
		l.now = func() time.Time { return now }

		if ok, _ := l.Allow(context.Background(), 1, ModeChat); !ok {
			t.Error("storage failure should fail open")
		}
	})
}

func TestLimiterExtendBoost(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	t.Run("from absent boost extends from now", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		l := NewLimiter(store, testLimits, nil)
		l.now = func() time.Time { return now }

		until, err := l.ExtendBoost(context.Background(), 1)
		if err != nil {
			t.Fatalf("ExtendBoost() error = %v", err)
		}
		if want := now.AddDate(0, 0, testLimits.BoostDays); !until.Equal(want) {
			t.Errorf("boost_until = %v, want %v", until, want)
		}
	})

	t.Run("from expired boost extends from now", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.boosts[1] = now.AddDate(0, 0, -3)
		l := NewLimiter(store, testLimits, nil)
		l.now = func() time.Time { return now }

		until, err := l.ExtendBoost(context.Background(), 1)
		if err != nil {
			t.Fatalf("ExtendBoost() error = %v", err)
		}
		if want := now.AddDate(0, 0, testLimits.BoostDays); !until.Equal(want) {
			t.Errorf("boost_until = %v, want %v (must not extend from the past)", until, want)
		}
	})

	t.Run("from future boost stacks forward", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		existing := now.AddDate(0, 0, 2)
		store.boosts[1] = existing
		l := NewLimiter(store, testLimits, nil)
		l.now = func() time.Time { return now }

		until, err := l.ExtendBoost(context.Background(), 1)
		if err != nil {
			t.Fatalf("ExtendBoost() error = %v", err)
		}
		if want := existing.AddDate(0, 0, testLimits.BoostDays); !until.Equal(want) {
			t.Errorf("boost_until = %v, want %v (extensions must stack)", until, want)
		}
	})
}
