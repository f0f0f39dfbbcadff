package worker

import (
	"context"
	"errors"
	"testing"

	"gastos/internal/amqp"
	"gastos/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvaluator struct {
	dates []core.Date
	err   error
}

func (e *stubEvaluator) Evaluate(_ context.Context, _ string, today core.Date) error {
	if e.err != nil {
		return e.err
	}
	e.dates = append(e.dates, today)
	return nil
}

func TestHandleRecordCreated(t *testing.T) {
	eval := &stubEvaluator{}
	w := NewAlertWorker(eval, "me")

	msg := amqp.NewRecordCreatedMessage(42, "2025-03-12")
	require.NoError(t, w.HandleRecordCreated(context.Background(), msg))

	require.Len(t, eval.dates, 1)
	assert.Equal(t, "2025-03-12", eval.dates[0].String())
}

func TestHandleRecordCreatedEvaluatorFailureRequeues(t *testing.T) {
	eval := &stubEvaluator{err: errors.New("db down")}
	w := NewAlertWorker(eval, "me")

	msg := amqp.NewRecordCreatedMessage(42, "2025-03-12")
	err := w.HandleRecordCreated(context.Background(), msg)
	require.Error(t, err, "evaluator failure must surface so the message is requeued")
}

func TestHandleRecordCreatedInvalidDateIsDropped(t *testing.T) {
	eval := &stubEvaluator{}
	w := NewAlertWorker(eval, "me")

	msg := amqp.NewRecordCreatedMessage(42, "not-a-date")
	require.NoError(t, w.HandleRecordCreated(context.Background(), msg),
		"a date that never parses must not requeue forever")
	assert.Empty(t, eval.dates)
}
