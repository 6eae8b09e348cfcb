package pipeline

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/mvoronin/relobot/internal/database"
	"github.com/mvoronin/relobot/internal/llm"
)

// fakeStore is an in-memory database.Store for pipeline tests.
type fakeStore struct {
	mu       sync.Mutex
	users    map[int64]*database.User
	messages []database.Message
	cache    map[string]*database.CountryInfo
	boosts   map[int64]time.Time

	countErr error
	cacheErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[int64]*database.User),
		cache:  make(map[string]*database.CountryInfo),
		boosts: make(map[int64]time.Time),
	}
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) EnsureUser(_ context.Context, user *database.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.TgUserID] = user
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, tgUserID int64) (*database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[tgUserID], nil
}

func (f *fakeStore) SetProfileField(context.Context, int64, string, sql.NullString) error {
	return nil
}

func (f *fakeStore) ClearProfile(context.Context, int64) error { return nil }

func (f *fakeStore) SaveMessage(_ context.Context, message *database.Message, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	message.ID = int64(len(f.messages) + 1)
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeStore) RecentMessages(context.Context, int64, int) ([]database.Message, error) {
	return nil, nil
}

func (f *fakeStore) CountMessagesBetween(_ context.Context, tgUserID int64, mode string, from, to time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	count := 0
	for _, m := range f.messages {
		if m.TgUserID == tgUserID && m.Role == "user" && m.Mode == mode &&
			!m.CreatedAt.Before(from) && m.CreatedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) BoostUntil(_ context.Context, tgUserID int64) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.boosts[tgUserID], nil
}

func (f *fakeStore) SetBoostUntil(_ context.Context, tgUserID int64, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boosts[tgUserID] = until
	return nil
}

func (f *fakeStore) CachedCountryInfo(_ context.Context, key string) (*database.CountryInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cacheErr != nil {
		return nil, f.cacheErr
	}
	entry, ok := f.cache[key]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (f *fakeStore) SaveCachedCountryInfo(_ context.Context, key, query, answer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache[key] = &database.CountryInfo{
		CountryKey:   key,
		CountryQuery: query,
		Answer:       answer,
		CreatedAt:    time.Now().UTC(),
	}
	return nil
}

func (f *fakeStore) DeleteCachedCountryInfo(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, key)
	return nil
}

func (f *fakeStore) PurgeExpiredCountryInfo(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var purged int64
	for key, entry := range f.cache {
		if entry.CreatedAt.Before(cutoff) {
			delete(f.cache, key)
			purged++
		}
	}
	return purged, nil
}

func (f *fakeStore) RunSQLMaintenance(context.Context) error { return nil }

// fakeModel is a scripted ModelClient. Responses are keyed by a substring of
// the system prompt so one fake can serve gate, retrieval, and render calls.
type fakeModel struct {
	mu             sync.Mutex
	gateResponse   string
	gateErr        error
	retrieval      string
	retrievalErr   error
	render         string
	renderErr      error
	retrievalCalls int
	renderCalls    int
	gateCalls      int
	gatePrompts    []string
}

func (f *fakeModel) respond(msgs []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(msgs) == 0 {
		return "", nil
	}
	system := msgs[0].Content
	switch {
	case system == gateSystemPrompt || system == countryGateSystemPrompt:
		f.gateCalls++
		f.gatePrompts = append(f.gatePrompts, system)
		return f.gateResponse, f.gateErr
	case system == renderSystemPrompt:
		f.renderCalls++
		return f.render, f.renderErr
	default:
		f.retrievalCalls++
		return f.retrieval, f.retrievalErr
	}
}

func (f *fakeModel) Complete(_ context.Context, _ llm.Endpoint, msgs []llm.Message) (string, error) {
	return f.respond(msgs)
}

func (f *fakeModel) CompleteWithRetry(_ context.Context, _ llm.Endpoint, msgs []llm.Message) (string, error) {
	return f.respond(msgs)
}
