package storage

import (
	"context"
	"path/filepath"
	"testing"

	"gastos/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testRecord(date, store, item string, cents int64) core.Record {
	d, _ := core.ParseDate(date)
	return core.Record{
		Date:  d,
		Store: store,
		Item:  item,
		Value: core.Money{Cents: cents},
	}
}

func TestAddAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	qty := 500.0
	rec := testRecord("2025-03-10", "Mercado A", "Rice", 1050)
	rec.Qty = &qty
	rec.Unit = core.UnitGram
	rec.Category = "Groceries"

	id, err := repo.Add(ctx, &rec)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", got.Date.String())
	assert.Equal(t, "2025-03", got.Month)
	assert.Equal(t, "Mercado A", got.Store)
	assert.Equal(t, int64(1050), got.Value.Cents)
	assert.Equal(t, core.UnitKilogram, got.UnitBase)
	require.NotNil(t, got.UnitPrice)
	assert.Equal(t, int64(210000), got.UnitPrice.TenThousandths) // 21.00/kg
	assert.NotZero(t, got.CreatedAt)
}

func TestAddRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := testRecord("2025-03-10", "", "Rice", 1050)
	_, err := repo.Add(ctx, &rec)
	assert.ErrorIs(t, err, core.ErrEmptyStore)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateUpserts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := testRecord("2025-03-10", "Mercado A", "Rice", 1050)
	id, err := repo.Add(ctx, &rec)
	require.NoError(t, err)

	rec.Value = core.Money{Cents: 999}
	require.NoError(t, repo.Update(ctx, &rec))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(999), got.Value.Cents)
	assert.NotZero(t, got.UpdatedAt)

	// Updating an id that does not exist creates the row.
	fresh := testRecord("2025-03-11", "Padaria", "Bread", 450)
	fresh.ID = 1234
	require.NoError(t, repo.Update(ctx, &fresh))
	got, err = repo.Get(ctx, 1234)
	require.NoError(t, err)
	assert.Equal(t, "Bread", got.Item)
}

func TestUpdateRequiresID(t *testing.T) {
	repo := newTestRepo(t)
	rec := testRecord("2025-03-10", "Mercado A", "Rice", 1050)
	assert.Error(t, repo.Update(context.Background(), &rec))
}

func TestRemoveIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := testRecord("2025-03-10", "Mercado A", "Rice", 1050)
	id, err := repo.Add(ctx, &rec)
	require.NoError(t, err)

	require.NoError(t, repo.Remove(ctx, id))
	require.NoError(t, repo.Remove(ctx, id))

	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByDateAndMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, rec := range []core.Record{
		testRecord("2025-03-10", "A", "Rice", 100),
		testRecord("2025-03-10", "B", "Bread", 200),
		testRecord("2025-03-15", "C", "Milk", 300),
		testRecord("2025-04-01", "D", "Eggs", 400),
	} {
		_, err := repo.Add(ctx, &rec)
		require.NoError(t, err)
	}

	byDate, err := repo.GetByDate(ctx, core.NewDate(2025, 3, 10))
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	byMonth, err := repo.GetByMonth(ctx, "2025-03")
	require.NoError(t, err)
	assert.Len(t, byMonth, 3)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSumWeekCents(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, rec := range []core.Record{
		testRecord("2025-03-09", "A", "before", 5000), // sunday of previous week
		testRecord("2025-03-10", "A", "monday", 1000),
		testRecord("2025-03-13", "A", "midweek", 2000),
		testRecord("2025-03-16", "A", "sunday", 3000),
		testRecord("2025-03-17", "A", "after", 7000),
	} {
		_, err := repo.Add(ctx, &rec)
		require.NoError(t, err)
	}

	total, err := repo.SumWeekCents(ctx, core.NewDate(2025, 3, 10), core.NewDate(2025, 3, 16))
	require.NoError(t, err)
	assert.Equal(t, int64(6000), total)
}

func TestBulkUpsertRollsBackOnFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := testRecord("2025-03-10", "A", "existing", 100)
	_, err := repo.Add(ctx, &rec)
	require.NoError(t, err)

	batch := []core.Record{
		testRecord("2025-03-11", "B", "ok", 200),
		testRecord("2025-03-12", "", "bad", 300), // empty store fails validation
	}
	_, err = repo.BulkUpsert(ctx, batch)
	require.Error(t, err)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "failed batch must not leave partial writes")
}

func TestBulkUpsertPreservesIDs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := testRecord("2025-03-10", "A", "Rice", 100)
	a.ID = 7
	b := testRecord("2025-03-11", "B", "Bread", 200)

	n, err := repo.BulkUpsert(ctx, []core.Record{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := repo.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Rice", got.Item)
}

func TestClear(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := testRecord("2025-03-10", "A", "Rice", 100)
	_, err := repo.Add(ctx, &rec)
	require.NoError(t, err)
	require.NoError(t, repo.AddStoreName(ctx, "Mercado A"))

	require.NoError(t, repo.Clear(ctx))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Store names survive a clear.
	names, err := repo.ListStoreNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mercado A"}, names)
}

func TestStoreNames(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddStoreName(ctx, "mercado"))
	require.NoError(t, repo.AddStoreName(ctx, "Açougue"))
	require.NoError(t, repo.AddStoreName(ctx, "Padaria"))
	require.NoError(t, repo.AddStoreName(ctx, "Padaria")) // duplicate ignored
	assert.ErrorIs(t, repo.AddStoreName(ctx, "  "), core.ErrEmptyStore)

	names, err := repo.ListStoreNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Açougue", "mercado", "Padaria"}, names)
}

func TestAlertSettings(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetAlertSettings(ctx, "me")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.SaveAlertSettings(ctx, AlertSettings{
		UserKey:        "me",
		WeeklyCapCents: 50000,
		AlertPct:       80,
	}))

	got, err := repo.GetAlertSettings(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), got.WeeklyCapCents)
	assert.Equal(t, 80, got.AlertPct)
	assert.Empty(t, got.LastSentWeek)

	require.NoError(t, repo.SetLastSentWeek(ctx, "me", "2025-03-10"))
	got, err = repo.GetAlertSettings(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", got.LastSentWeek)
}
