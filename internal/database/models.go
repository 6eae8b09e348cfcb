package database

import (
	"database/sql"
	"time"
)

// User represents a Telegram user together with the migration profile the
// bot collects through the profile wizard. BoostUntil marks the end of a
// temporary raised-quota window; NULL or a past value means no boost.
type User struct {
	ID        int64     `db:"id"`
	TgUserID  int64     `db:"tg_user_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Username     sql.NullString `db:"username"`
	FirstName    sql.NullString `db:"first_name"`
	LastName     sql.NullString `db:"last_name"`
	LanguageCode sql.NullString `db:"language_code"`

	HomeCountry   sql.NullString `db:"home_country"`
	TargetCountry sql.NullString `db:"target_country"`
	MigrationGoal sql.NullString `db:"migration_goal"`
	Budget        sql.NullString `db:"budget"`
	Profession    sql.NullString `db:"profession"`
	Notes         sql.NullString `db:"notes"`

	BoostUntil sql.NullTime `db:"boost_until"`
}

// HasProfileData reports whether any of the migration profile fields are set.
func (u *User) HasProfileData() bool {
	if u == nil {
		return false
	}
	for _, f := range []sql.NullString{u.HomeCountry, u.TargetCountry, u.MigrationGoal, u.Budget, u.Profession, u.Notes} {
		if f.Valid && f.String != "" {
			return true
		}
	}
	return false
}

// Message is one stored conversation message. Role is "user" or
// "assistant"; Mode records which pipeline mode produced or consumed it.
type Message struct {
	ID        int64     `db:"id"`
	TgUserID  int64     `db:"tg_user_id"`
	Role      string    `db:"role"`
	Text      string    `db:"text"`
	Mode      string    `db:"mode"`
	CreatedAt time.Time `db:"created_at"`
}

// CountryInfo is one cached country brief, keyed by the normalized
// (trimmed, lowercased) country string.
type CountryInfo struct {
	ID           int64     `db:"id"`
	CountryKey   string    `db:"country_key"`
	CountryQuery string    `db:"country_query"`
	Answer       string    `db:"answer"`
	CreatedAt    time.Time `db:"created_at"`
}
