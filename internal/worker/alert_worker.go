// Package worker consumes record-created events and runs the weekly
// spend alert check for each of them.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/core"
)

// Evaluator runs the weekly spend check for a given day.
type Evaluator interface {
	Evaluate(ctx context.Context, userKey string, today core.Date) error
}

// AlertWorker turns queued record-created messages into alert
// evaluations.
type AlertWorker struct {
	evaluator Evaluator
	userKey   string
}

func NewAlertWorker(evaluator Evaluator, userKey string) *AlertWorker {
	return &AlertWorker{
		evaluator: evaluator,
		userKey:   userKey,
	}
}

// HandleRecordCreated processes one queued message. The record's date
// decides which week gets evaluated, so backfilled expenses check
// their own week instead of the current one.
func (w *AlertWorker) HandleRecordCreated(ctx context.Context, msg *amqp.RecordCreatedMessage) error {
	slog.InfoContext(ctx, "Processing record created message",
		"id", msg.ID,
		"date", msg.Date)

	date, err := core.ParseDate(msg.Date)
	if err != nil {
		// Undecodable date will never succeed, don't requeue forever
		slog.ErrorContext(ctx, "Dropping message with invalid date",
			"id", msg.ID, "date", msg.Date, "error", err)
		return nil
	}

	if err := w.evaluator.Evaluate(ctx, w.userKey, date); err != nil {
		return fmt.Errorf("evaluate alert for record %d: %w", msg.ID, err)
	}

	return nil
}

// RunPeriodicSweep evaluates the current week on a fixed interval as a
// backup for lost messages. Blocks until the context is cancelled.
func (w *AlertWorker) RunPeriodicSweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Started periodic alert sweep", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping periodic alert sweep", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			now := time.Now()
			today := core.NewDate(now.Year(), int(now.Month()), now.Day())
			if err := w.evaluator.Evaluate(ctx, w.userKey, today); err != nil {
				slog.ErrorContext(ctx, "Periodic alert sweep failed", "error", err)
			}
		}
	}
}
