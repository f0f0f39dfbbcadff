// Package alert evaluates weekly spend against a configured cap and
// pushes a notification when the threshold is crossed.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// Store is the slice of the repository the trigger needs.
type Store interface {
	GetAlertSettings(ctx context.Context, userKey string) (*storage.AlertSettings, error)
	SetLastSentWeek(ctx context.Context, userKey, week string) error
	SumWeekCents(ctx context.Context, from, to core.Date) (int64, error)
}

// Notification describes one weekly spend alert.
type Notification struct {
	UserKey    string `json:"user_key"`
	WeekStart  string `json:"week_start"`
	TotalCents int64  `json:"total_cents"`
	CapCents   int64  `json:"cap_cents"`
	Pct        int64  `json:"pct"`
}

// Notifier delivers a notification. A nil error means the alert was
// handled, whether it was actually pushed or deliberately skipped
// downstream.
type Notifier interface {
	NotifyWeeklySpend(ctx context.Context, n Notification) error
}

type Trigger struct {
	store    Store
	notifier Notifier
}

func NewTrigger(store Store, notifier Notifier) *Trigger {
	return &Trigger{store: store, notifier: notifier}
}

// Evaluate checks the week containing today and notifies once per week
// when spend reaches the configured percentage of the cap. The
// sent-marker is only written after the notifier confirms delivery, so
// a failed push retries on the next evaluation.
func (t *Trigger) Evaluate(ctx context.Context, userKey string, today core.Date) error {
	settings, err := t.store.GetAlertSettings(ctx, userKey)
	if errors.Is(err, storage.ErrNotFound) {
		slog.DebugContext(ctx, "No alert settings configured", "user_key", userKey)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load alert settings: %w", err)
	}
	if settings.WeeklyCapCents <= 0 {
		return nil
	}

	weekStart := core.WeekStart(today)
	week := weekStart.String()
	if settings.LastSentWeek == week {
		return nil
	}

	total, err := t.store.SumWeekCents(ctx, weekStart, core.WeekEnd(today))
	if err != nil {
		return fmt.Errorf("sum weekly spend: %w", err)
	}

	capCents := settings.WeeklyCapCents
	if capCents < 1 {
		capCents = 1
	}
	pct := total * 100 / capCents
	if pct < int64(settings.AlertPct) {
		return nil
	}

	n := Notification{
		UserKey:    userKey,
		WeekStart:  week,
		TotalCents: total,
		CapCents:   settings.WeeklyCapCents,
		Pct:        pct,
	}
	if err := t.notifier.NotifyWeeklySpend(ctx, n); err != nil {
		return fmt.Errorf("notify weekly spend: %w", err)
	}

	if err := t.store.SetLastSentWeek(ctx, userKey, week); err != nil {
		return fmt.Errorf("mark week as sent: %w", err)
	}

	slog.InfoContext(ctx, "Weekly spend alert sent",
		"user_key", userKey,
		"week", week,
		"total_cents", total,
		"pct", pct)
	return nil
}
