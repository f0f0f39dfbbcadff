package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gastos/internal/core"
	"gastos/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	published []int64
	err       error
}

func (p *stubPublisher) PublishRecordCreated(_ context.Context, id int64, _ string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, id)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

type stubEvaluator struct {
	evaluated []core.Date
}

func (e *stubEvaluator) Evaluate(_ context.Context, _ string, today core.Date) error {
	e.evaluated = append(e.evaluated, today)
	return nil
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func record(date, store, item string, cents int64) core.Record {
	d, _ := core.ParseDate(date)
	return core.Record{Date: d, Store: store, Item: item, Value: core.Money{Cents: cents}}
}

func TestCreateExpensePublishes(t *testing.T) {
	repo := newTestRepo(t)
	pub := &stubPublisher{}
	svc := NewExpenseService(repo, pub, nil, "me")
	ctx := context.Background()

	rec := record("2025-03-10", "Mercado A", "Rice", 1050)
	id, err := svc.CreateExpense(ctx, &rec)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, pub.published)

	// store name registered for autocomplete
	names, err := repo.ListStoreNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mercado A"}, names)
}

func TestCreateExpensePublishFailureStillSaves(t *testing.T) {
	repo := newTestRepo(t)
	pub := &stubPublisher{err: errors.New("broker down")}
	svc := NewExpenseService(repo, pub, nil, "me")
	ctx := context.Background()

	rec := record("2025-03-10", "Mercado A", "Rice", 1050)
	id, err := svc.CreateExpense(ctx, &rec)
	require.NoError(t, err, "publish failure must not fail the write")

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Rice", got.Item)
}

func TestCreateExpenseInlineEvaluationWithoutPublisher(t *testing.T) {
	repo := newTestRepo(t)
	eval := &stubEvaluator{}
	svc := NewExpenseService(repo, nil, eval, "me")

	rec := record("2025-03-10", "Mercado A", "Rice", 1050)
	_, err := svc.CreateExpense(context.Background(), &rec)
	require.NoError(t, err)

	require.Len(t, eval.evaluated, 1)
	assert.Equal(t, "2025-03-10", eval.evaluated[0].String())
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	pub := &stubPublisher{}
	svc := NewExpenseService(repo, pub, nil, "me")

	rec := record("2025-03-10", "", "Rice", 1050)
	_, err := svc.CreateExpense(context.Background(), &rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmptyStore)
	assert.Empty(t, pub.published)
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewExpenseService(repo, nil, nil, "me")
	ctx := context.Background()

	rec := record("2025-03-10", "Mercado A", "Rice", 1050)
	id, err := svc.CreateExpense(ctx, &rec)
	require.NoError(t, err)

	rec.Value = core.Money{Cents: 999}
	rec.Store = "Mercado B"
	require.NoError(t, svc.UpdateExpense(ctx, &rec))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(999), got.Value.Cents)

	require.NoError(t, svc.DeleteExpense(ctx, id))
	require.NoError(t, svc.DeleteExpense(ctx, id)) // idempotent
	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
