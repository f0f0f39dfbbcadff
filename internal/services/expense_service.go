// Package services orchestrates expense operations across storage,
// the message queue and the alert trigger.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// RecordPublisher announces newly written records to the alert worker.
type RecordPublisher interface {
	PublishRecordCreated(ctx context.Context, id int64, date string) error
	Close() error
}

// AlertEvaluator checks weekly spend after a write. Used as the inline
// fallback when no message queue is configured.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, userKey string, today core.Date) error
}

type ExpenseService struct {
	storage   *storage.SQLiteRepository
	publisher RecordPublisher
	evaluator AlertEvaluator
	userKey   string
}

// NewExpenseService wires the service. publisher and evaluator may be
// nil: without a publisher the alert check runs inline, and without
// either writes simply skip the alert path.
func NewExpenseService(repo *storage.SQLiteRepository, publisher RecordPublisher, evaluator AlertEvaluator, userKey string) *ExpenseService {
	return &ExpenseService{
		storage:   repo,
		publisher: publisher,
		evaluator: evaluator,
		userKey:   userKey,
	}
}

// CreateExpense saves a record locally, registers its store name for
// autocomplete and hands the record-created event to the alert path.
func (s *ExpenseService) CreateExpense(ctx context.Context, rec *core.Record) (int64, error) {
	id, err := s.storage.Add(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	s.rememberStore(ctx, rec.Store)
	s.afterWrite(ctx, id, rec.Date)

	return id, nil
}

// UpdateExpense upserts a record under its id.
func (s *ExpenseService) UpdateExpense(ctx context.Context, rec *core.Record) error {
	if err := s.storage.Update(ctx, rec); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	s.rememberStore(ctx, rec.Store)
	return nil
}

// DeleteExpense removes a record. Deleting an unknown id is a no-op.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.storage.Remove(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (s *ExpenseService) rememberStore(ctx context.Context, name string) {
	if err := s.storage.AddStoreName(ctx, name); err != nil {
		// Autocomplete data only, never fail the write for it
		slog.WarnContext(ctx, "Failed to register store name",
			"store", name, "error", err)
	}
}

// afterWrite routes the record-created event. With a publisher the
// alert worker picks it up; otherwise the trigger runs inline. Either
// way the expense is already saved, so failures are logged and not
// returned.
func (s *ExpenseService) afterWrite(ctx context.Context, id int64, date core.Date) {
	if s.publisher != nil {
		if err := s.publisher.PublishRecordCreated(ctx, id, date.String()); err != nil {
			slog.ErrorContext(ctx, "Failed to publish record created message",
				"id", id, "error", err)
		}
		return
	}

	if s.evaluator == nil {
		return
	}
	if err := s.evaluator.Evaluate(ctx, s.userKey, date); err != nil {
		slog.ErrorContext(ctx, "Inline alert evaluation failed",
			"id", id, "error", err)
	}
}

// Close closes storage and the publisher connection.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}

	return nil
}
