// Package store persists the daily word-of-day records in SQLite.
// The (language, date) pair is the idempotence key: re-running the
// pipeline for a day overwrites content instead of duplicating rows.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"palavra/internal/devotional"
)

// ErrLanguageNotFound indicates the language catalog has no entry for the
// requested code. The catalog is seeded externally; a miss is a data or
// configuration error, not a transient one.
var ErrLanguageNotFound = errors.New("language not found in catalog")

// Language is a catalog entry.
type Language struct {
	ID   int64
	Code string
	Name string
}

// WordOfDay is the persisted daily content bundle.
type WordOfDay struct {
	ID         int64
	LanguageID int64
	Date       time.Time // truncated to midnight
	Word       string    // short label, the scripture reference
	Verse      string
	devotional.Content
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS languages (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS word_of_day (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		language_id           INTEGER NOT NULL REFERENCES languages(id),
		date                  TEXT NOT NULL,
		word                  TEXT NOT NULL,
		verse                 TEXT NOT NULL,
		devotional_title      TEXT NOT NULL,
		devotional_content    TEXT NOT NULL,
		devotional_reflection TEXT NOT NULL,
		prayer_title          TEXT NOT NULL,
		prayer_content        TEXT NOT NULL,
		prayer_duration       TEXT NOT NULL,
		created_at            TEXT NOT NULL,
		updated_at            TEXT NOT NULL,
		UNIQUE(language_id, date)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SeedLanguage inserts a language catalog entry if absent and returns it.
func (s *Store) SeedLanguage(ctx context.Context, code, name string) (*Language, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO languages (code, name) VALUES (?, ?)`, code, name); err != nil {
		return nil, fmt.Errorf("seed language %s: %w", code, err)
	}
	return s.FindLanguage(ctx, code)
}

// FindLanguage looks up a language by code.
func (s *Store) FindLanguage(ctx context.Context, code string) (*Language, error) {
	var lang Language
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, name FROM languages WHERE code = ?`, code).
		Scan(&lang.ID, &lang.Code, &lang.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrLanguageNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("find language %s: %w", code, err)
	}
	return &lang, nil
}

// FindWordOfDay returns the record for (language, day), or nil when none
// exists.
func (s *Store) FindWordOfDay(ctx context.Context, languageID int64, day time.Time) (*WordOfDay, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, language_id, date, word, verse,
		       devotional_title, devotional_content, devotional_reflection,
		       prayer_title, prayer_content, prayer_duration,
		       created_at, updated_at
		FROM word_of_day WHERE language_id = ? AND date = ?`,
		languageID, dateKey(day))

	var rec WordOfDay
	var date, created, updated string
	err := row.Scan(&rec.ID, &rec.LanguageID, &date, &rec.Word, &rec.Verse,
		&rec.DevotionalTitle, &rec.DevotionalContent, &rec.DevotionalReflection,
		&rec.PrayerTitle, &rec.PrayerContent, &rec.PrayerDuration,
		&created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find word of day: %w", err)
	}

	rec.Date, _ = time.Parse("2006-01-02", date)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &rec, nil
}

// Insert creates a new record and fills in its ID and timestamps.
func (s *Store) Insert(ctx context.Context, rec *WordOfDay) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO word_of_day
			(language_id, date, word, verse,
			 devotional_title, devotional_content, devotional_reflection,
			 prayer_title, prayer_content, prayer_duration,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.LanguageID, dateKey(rec.Date), rec.Word, rec.Verse,
		rec.DevotionalTitle, rec.DevotionalContent, rec.DevotionalReflection,
		rec.PrayerTitle, rec.PrayerContent, rec.PrayerDuration,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert word of day: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert word of day: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return nil
}

// UpdateContent overwrites the content fields of an existing record in
// place. Identity (language, date) and created_at are untouched.
func (s *Store) UpdateContent(ctx context.Context, id int64, word, verseText string, c devotional.Content) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx, `
		UPDATE word_of_day SET
			word = ?, verse = ?,
			devotional_title = ?, devotional_content = ?, devotional_reflection = ?,
			prayer_title = ?, prayer_content = ?, prayer_duration = ?,
			updated_at = ?
		WHERE id = ?`,
		word, verseText,
		c.DevotionalTitle, c.DevotionalContent, c.DevotionalReflection,
		c.PrayerTitle, c.PrayerContent, c.PrayerDuration,
		now.Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("update word of day %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update word of day %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update word of day %d: no such record", id)
	}
	return nil
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
