package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// profileColumns whitelists the user columns the profile wizard may set.
var profileColumns = map[string]bool{
	"home_country":   true,
	"target_country": true,
	"migration_goal": true,
	"budget":         true,
	"profession":     true,
	"notes":          true,
}

// Store defines the data access operations used by the pipeline and the
// Telegram transport. All methods accept a context for cancellation.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// EnsureUser inserts or refreshes the Telegram identity columns of a user.
	EnsureUser(ctx context.Context, user *User) error

	// GetUser retrieves a user by Telegram ID. Returns nil, nil if not found.
	GetUser(ctx context.Context, tgUserID int64) (*User, error)

	// SetProfileField updates a single migration profile column.
	SetProfileField(ctx context.Context, tgUserID int64, field string, value sql.NullString) error

	// ClearProfile resets all migration profile fields to NULL.
	ClearProfile(ctx context.Context, tgUserID int64) error

	// SaveMessage inserts a message and trims the user's history to maxStored.
	SaveMessage(ctx context.Context, message *Message, maxStored int) error

	// RecentMessages returns up to limit most recent messages for the user,
	// oldest first.
	RecentMessages(ctx context.Context, tgUserID int64, limit int) ([]Message, error)

	// CountMessagesBetween counts user-authored messages in the given mode
	// with created_at in [from, to).
	CountMessagesBetween(ctx context.Context, tgUserID int64, mode string, from, to time.Time) (int, error)

	// BoostUntil returns the user's boost expiry, zero time if absent.
	BoostUntil(ctx context.Context, tgUserID int64) (time.Time, error)

	// SetBoostUntil sets the user's boost expiry.
	SetBoostUntil(ctx context.Context, tgUserID int64, until time.Time) error

	// CachedCountryInfo retrieves a cache entry by normalized key.
	// Returns nil, nil on miss. TTL is the caller's concern.
	CachedCountryInfo(ctx context.Context, key string) (*CountryInfo, error)

	// SaveCachedCountryInfo upserts a cache entry, resetting created_at.
	SaveCachedCountryInfo(ctx context.Context, key, query, answer string) error

	// DeleteCachedCountryInfo unconditionally removes a cache entry.
	DeleteCachedCountryInfo(ctx context.Context, key string) error

	// PurgeExpiredCountryInfo deletes cache entries created before cutoff
	// and returns the number removed.
	PurgeExpiredCountryInfo(ctx context.Context, cutoff time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance (VACUUM).
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store using sqlx over SQLite.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) EnsureUser(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("cannot ensure nil user")
	}
	if user.TgUserID == 0 {
		return fmt.Errorf("user must have a non-zero tg_user_id")
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
        INSERT INTO users (tg_user_id, username, first_name, last_name, language_code, created_at, updated_at)
        VALUES (:tg_user_id, :username, :first_name, :last_name, :language_code, :created_at, :updated_at)
        ON CONFLICT (tg_user_id) DO UPDATE SET
            username = excluded.username,
            first_name = excluded.first_name,
            last_name = excluded.last_name,
            language_code = excluded.language_code,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		s.logger.ErrorContext(ctx, "Error ensuring user", "tg_user_id", user.TgUserID, "error", err)
		return fmt.Errorf("failed to ensure user %d: %w", user.TgUserID, err)
	}

	s.logger.DebugContext(ctx, "User ensured", "tg_user_id", user.TgUserID)
	return nil
}

func (s *sqlxStore) GetUser(ctx context.Context, tgUserID int64) (*User, error) {
	if tgUserID == 0 {
		return nil, fmt.Errorf("tg_user_id cannot be zero")
	}

	var user User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE tg_user_id = ?`, tgUserID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user", "tg_user_id", tgUserID, "error", err)
		return nil, fmt.Errorf("failed to get user %d: %w", tgUserID, err)
	}

	return &user, nil
}

func (s *sqlxStore) SetProfileField(ctx context.Context, tgUserID int64, field string, value sql.NullString) error {
	if !profileColumns[field] {
		return fmt.Errorf("unknown profile field %q", field)
	}

	query := fmt.Sprintf(`UPDATE users SET %s = ?, updated_at = ? WHERE tg_user_id = ?`, field)
	result, err := s.db.ExecContext(ctx, query, value, time.Now().UTC(), tgUserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating profile field", "tg_user_id", tgUserID, "field", field, "error", err)
		return fmt.Errorf("failed to update profile field %s for user %d: %w", field, tgUserID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("no user with tg_user_id %d", tgUserID)
	}

	return nil
}

func (s *sqlxStore) ClearProfile(ctx context.Context, tgUserID int64) error {
	query := `
        UPDATE users SET
            home_country = NULL, target_country = NULL, migration_goal = NULL,
            budget = NULL, profession = NULL, notes = NULL, updated_at = ?
        WHERE tg_user_id = ?;
    `
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), tgUserID); err != nil {
		s.logger.ErrorContext(ctx, "Error clearing profile", "tg_user_id", tgUserID, "error", err)
		return fmt.Errorf("failed to clear profile for user %d: %w", tgUserID, err)
	}
	return nil
}

func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message, maxStored int) error {
	if message == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if message.TgUserID == 0 {
		return fmt.Errorf("message must have a non-zero tg_user_id")
	}
	if message.Text == "" {
		return fmt.Errorf("message must have non-empty text")
	}
	if message.Mode == "" {
		message.Mode = "chat"
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	insert := `
        INSERT INTO messages (tg_user_id, role, text, mode, created_at)
        VALUES (:tg_user_id, :role, :text, :mode, :created_at);
    `
	result, err := tx.NamedExecContext(ctx, insert, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "tg_user_id", message.TgUserID, "error", err)
		return fmt.Errorf("failed to save message for user %d: %w", message.TgUserID, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		message.ID = id
	}

	// Trim the user's history to the newest maxStored messages.
	if maxStored > 0 {
		trim := `
            DELETE FROM messages
            WHERE tg_user_id = ?
              AND id NOT IN (
                  SELECT id FROM messages
                  WHERE tg_user_id = ?
                  ORDER BY id DESC
                  LIMIT ?
              );
        `
		if _, err := tx.ExecContext(ctx, trim, message.TgUserID, message.TgUserID, maxStored); err != nil {
			s.logger.ErrorContext(ctx, "Error trimming message history", "tg_user_id", message.TgUserID, "error", err)
			return fmt.Errorf("failed to trim message history for user %d: %w", message.TgUserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	return nil
}

func (s *sqlxStore) RecentMessages(ctx context.Context, tgUserID int64, limit int) ([]Message, error) {
	if tgUserID == 0 {
		return nil, fmt.Errorf("tg_user_id cannot be zero")
	}
	if limit <= 0 {
		limit = 6
	}

	var messages []Message
	query := `
        SELECT id, tg_user_id, role, text, mode, created_at
        FROM messages
        WHERE tg_user_id = ?
        ORDER BY id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &messages, query, tgUserID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent messages", "tg_user_id", tgUserID, "error", err)
		return nil, fmt.Errorf("failed to get recent messages for user %d: %w", tgUserID, err)
	}

	// Reverse to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (s *sqlxStore) CountMessagesBetween(ctx context.Context, tgUserID int64, mode string, from, to time.Time) (int, error) {
	var count int
	query := `
        SELECT COUNT(*) FROM messages
        WHERE tg_user_id = ? AND role = 'user' AND mode = ?
          AND created_at >= ? AND created_at < ?;
    `
	if err := s.db.GetContext(ctx, &count, query, tgUserID, mode, from, to); err != nil {
		s.logger.ErrorContext(ctx, "Error counting messages", "tg_user_id", tgUserID, "mode", mode, "error", err)
		return 0, fmt.Errorf("failed to count messages for user %d: %w", tgUserID, err)
	}
	return count, nil
}

func (s *sqlxStore) BoostUntil(ctx context.Context, tgUserID int64) (time.Time, error) {
	var until sql.NullTime
	err := s.db.GetContext(ctx, &until, `SELECT boost_until FROM users WHERE tg_user_id = ?`, tgUserID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return time.Time{}, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting boost_until", "tg_user_id", tgUserID, "error", err)
		return time.Time{}, fmt.Errorf("failed to get boost for user %d: %w", tgUserID, err)
	}

	if !until.Valid {
		return time.Time{}, nil
	}
	return until.Time, nil
}

func (s *sqlxStore) SetBoostUntil(ctx context.Context, tgUserID int64, until time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET boost_until = ?, updated_at = ? WHERE tg_user_id = ?`,
		until.UTC(), time.Now().UTC(), tgUserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error setting boost_until", "tg_user_id", tgUserID, "error", err)
		return fmt.Errorf("failed to set boost for user %d: %w", tgUserID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("no user with tg_user_id %d", tgUserID)
	}

	return nil
}

func (s *sqlxStore) CachedCountryInfo(ctx context.Context, key string) (*CountryInfo, error) {
	var entry CountryInfo
	err := s.db.GetContext(ctx, &entry, `SELECT * FROM country_info_cache WHERE country_key = ?`, key)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error reading country cache", "key", key, "error", err)
		return nil, fmt.Errorf("failed to read country cache for %q: %w", key, err)
	}

	return &entry, nil
}

func (s *sqlxStore) SaveCachedCountryInfo(ctx context.Context, key, query, answer string) error {
	upsert := `
        INSERT INTO country_info_cache (country_key, country_query, answer, created_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (country_key) DO UPDATE SET
            country_query = excluded.country_query,
            answer = excluded.answer,
            created_at = excluded.created_at;
    `
	if _, err := s.db.ExecContext(ctx, upsert, key, query, answer, time.Now().UTC()); err != nil {
		s.logger.ErrorContext(ctx, "Error saving country cache", "key", key, "error", err)
		return fmt.Errorf("failed to save country cache for %q: %w", key, err)
	}

	s.logger.DebugContext(ctx, "Country cache entry saved", "key", key)
	return nil
}

func (s *sqlxStore) DeleteCachedCountryInfo(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM country_info_cache WHERE country_key = ?`, key); err != nil {
		s.logger.ErrorContext(ctx, "Error deleting country cache entry", "key", key, "error", err)
		return fmt.Errorf("failed to delete country cache for %q: %w", key, err)
	}
	return nil
}

func (s *sqlxStore) PurgeExpiredCountryInfo(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM country_info_cache WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error purging country cache", "error", err)
		return 0, fmt.Errorf("failed to purge country cache: %w", err)
	}

	count, _ := result.RowsAffected()
	if count > 0 {
		s.logger.InfoContext(ctx, "Purged expired country cache entries", "count", count)
	}
	return count, nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
