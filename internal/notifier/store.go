// Package notifier is the Telegram notification service. It owns the
// user-key to chat-id mapping and delivers weekly spend alerts.
package notifier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var ErrUserNotFound = errors.New("user not found")

// User links an app user key to a Telegram chat and holds the alert
// configuration the notifier enforces on its side.
type User struct {
	UserKey        string
	ChatID         string
	WeeklyCapCents int64
	AlertPct       int
	LastAlertWeek  string
}

type UserStore struct {
	db *sql.DB
}

func NewUserStore(dbPath string) (*UserStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			user_key TEXT PRIMARY KEY,
			chat_id TEXT,
			weekly_cap_cents INTEGER,
			alert_pct INTEGER DEFAULT 80,
			last_alert_week TEXT
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create users table: %w", err)
	}

	return &UserStore{db: db}, nil
}

func (s *UserStore) Close() error {
	return s.db.Close()
}

func (s *UserStore) Get(ctx context.Context, userKey string) (*User, error) {
	var (
		u        User
		chatID   sql.NullString
		capCents sql.NullInt64
		pct      sql.NullInt64
		lastWeek sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_key, chat_id, weekly_cap_cents, alert_pct, last_alert_week FROM users WHERE user_key = ?`,
		userKey).Scan(&u.UserKey, &chatID, &capCents, &pct, &lastWeek)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.ChatID = chatID.String
	u.WeeklyCapCents = capCents.Int64
	u.AlertPct = int(pct.Int64)
	u.LastAlertWeek = lastWeek.String
	return &u, nil
}

// SaveSettings upserts the weekly cap and alert percentage without
// touching the chat link.
func (s *UserStore) SaveSettings(ctx context.Context, userKey string, weeklyCapCents int64, alertPct int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_key, weekly_cap_cents, alert_pct) VALUES (?, ?, ?)
		ON CONFLICT(user_key) DO UPDATE SET
			weekly_cap_cents = excluded.weekly_cap_cents,
			alert_pct = excluded.alert_pct`,
		userKey, weeklyCapCents, alertPct)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LinkChat associates a Telegram chat with a user key, replacing any
// previous link.
func (s *UserStore) LinkChat(ctx context.Context, userKey, chatID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_key, chat_id) VALUES (?, ?)
		ON CONFLICT(user_key) DO UPDATE SET chat_id = excluded.chat_id`,
		userKey, chatID)
	if err != nil {
		return fmt.Errorf("link chat: %w", err)
	}
	return nil
}

func (s *UserStore) SetLastAlertWeek(ctx context.Context, userKey, week string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_alert_week = ? WHERE user_key = ?`,
		week, userKey)
	if err != nil {
		return fmt.Errorf("set last alert week: %w", err)
	}
	return nil
}
