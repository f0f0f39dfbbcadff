package backup

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"gastos/internal/core"
	"gastos/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seed(t *testing.T, repo *storage.SQLiteRepository) {
	t.Helper()
	ctx := context.Background()
	qty := 2.0
	records := []core.Record{
		{Date: core.NewDate(2025, 3, 10), Store: "Mercado A", Item: "Rice", Category: "Groceries", Value: core.Money{Cents: 1050}, Qty: &qty, Unit: core.UnitKilogram},
		{Date: core.NewDate(2025, 3, 12), Store: "Padaria", Item: "Bread", Value: core.Money{Cents: 450}},
		{Date: core.NewDate(2025, 4, 1), Store: "Posto", Item: "Fuel", Category: "Transport", Value: core.Money{Cents: 20000}},
	}
	for i := range records {
		_, err := repo.Add(ctx, &records[i])
		require.NoError(t, err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seed(t, repo)

	payload, err := Export(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, payload.SchemaVersion)
	assert.NotZero(t, payload.ExportedAt)
	require.Len(t, payload.Expenses, 3)

	require.NoError(t, repo.Clear(ctx))

	n, err := Apply(ctx, repo, payload)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	restored, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, payload.Expenses, restored)
}

func TestValidatePreview(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo)

	payload, err := Export(context.Background(), repo)
	require.NoError(t, err)

	preview, err := Validate(payload)
	require.NoError(t, err)
	assert.Equal(t, 3, preview.Records)
	assert.Equal(t, "2025-03-10", preview.FirstDate)
	assert.Equal(t, "2025-04-01", preview.LastDate)
}

func TestValidateRejectsBadPayloads(t *testing.T) {
	_, err := Validate(&Payload{SchemaVersion: 2, Expenses: []core.Record{}})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Validate(&Payload{SchemaVersion: 1})
	assert.ErrorIs(t, err, ErrMissingExpenses)

	bad := &Payload{SchemaVersion: 1, Expenses: []core.Record{
		{Date: core.NewDate(2025, 3, 10), Month: "2025-03", Store: "A", Item: "ok", Value: core.Money{Cents: 100}},
		{Date: core.NewDate(2025, 3, 11), Month: "2025-03", Store: "", Item: "no store", Value: core.Money{Cents: 100}},
	}}
	_, err = Validate(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmptyStore)
	assert.Contains(t, err.Error(), "expense 1")
}

func TestValidateRejectsMonthDateConflicts(t *testing.T) {
	mismatch := &Payload{SchemaVersion: 1, Expenses: []core.Record{
		{Date: core.NewDate(2025, 3, 10), Month: "2024-12", Store: "A", Item: "x", Value: core.Money{Cents: 100}},
	}}
	_, err := Validate(mismatch)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMonthMismatch)
	assert.Contains(t, err.Error(), "expense 0")

	missing := &Payload{SchemaVersion: 1, Expenses: []core.Record{
		{Date: core.NewDate(2025, 3, 10), Store: "A", Item: "x", Value: core.Money{Cents: 100}},
	}}
	_, err = Validate(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing month")
}

func TestApplyLeavesDataOnInvalidPayload(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seed(t, repo)

	bad := &Payload{SchemaVersion: 1, Expenses: []core.Record{
		{Date: core.NewDate(2025, 3, 11), Month: "2025-03", Store: "", Item: "no store", Value: core.Money{Cents: 100}},
	}}
	_, err := Apply(ctx, repo, bad)
	require.Error(t, err)

	// Existing data untouched because validation runs before the clear.
	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDecode(t *testing.T) {
	p, err := Decode(strings.NewReader(`{"schemaVersion":1,"exportedAt":"2025-03-10T12:00:00Z","expenses":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, p.SchemaVersion)
	assert.NotNil(t, p.Expenses)

	_, err = Decode(strings.NewReader(`{not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}
