// Package storage persists expense records, store names and alert
// settings in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gastos/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("record not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const recordColumns = `id, date, month, store, item, category, obs, value_cents, qty, unit, unit_base, unit_price_e4, created_at, updated_at`

// Add stores a new record and returns its assigned id. The record is
// normalized before insert so month and unit price are always derived
// from date, quantity and unit.
func (r *SQLiteRepository) Add(ctx context.Context, rec *core.Record) (int64, error) {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixMilli()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (date, month, store, item, category, obs, value_cents, qty, unit, unit_base, unit_price_e4, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		rec.Date.String(), rec.Month, rec.Store, rec.Item, rec.Category, rec.Obs,
		rec.Value.Cents, nullFloat(rec.Qty), nullUnit(rec.Unit), nullUnit(rec.UnitBase),
		nullPrice(rec.UnitPrice), rec.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"date", rec.Date.String(),
		"store", rec.Store,
		"item", rec.Item,
		"value_cents", rec.Value.Cents)

	return id, nil
}

// Update writes the record under its id, creating the row if it does
// not exist. Records without an id are rejected.
func (r *SQLiteRepository) Update(ctx context.Context, rec *core.Record) error {
	if rec.ID == 0 {
		return fmt.Errorf("update expense: missing id")
	}
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixMilli()
	}
	rec.UpdatedAt = time.Now().UnixMilli()

	return r.upsert(ctx, r.db, rec)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLiteRepository) upsert(ctx context.Context, ex execer, rec *core.Record) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO expenses (id, date, month, store, item, category, obs, value_cents, qty, unit, unit_base, unit_price_e4, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			month = excluded.month,
			store = excluded.store,
			item = excluded.item,
			category = excluded.category,
			obs = excluded.obs,
			value_cents = excluded.value_cents,
			qty = excluded.qty,
			unit = excluded.unit,
			unit_base = excluded.unit_base,
			unit_price_e4 = excluded.unit_price_e4,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Date.String(), rec.Month, rec.Store, rec.Item, rec.Category, rec.Obs,
		rec.Value.Cents, nullFloat(rec.Qty), nullUnit(rec.Unit), nullUnit(rec.UnitBase),
		nullPrice(rec.UnitPrice), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert expense: %w", err)
	}
	return nil
}

// Remove deletes a record by id. Removing an id that is already gone
// is not an error.
func (r *SQLiteRepository) Remove(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*core.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM expenses WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]core.Record, error) {
	return r.query(ctx, `SELECT `+recordColumns+` FROM expenses ORDER BY date, id`)
}

func (r *SQLiteRepository) GetByDate(ctx context.Context, date core.Date) ([]core.Record, error) {
	return r.query(ctx,
		`SELECT `+recordColumns+` FROM expenses WHERE date = ? ORDER BY id`,
		date.String())
}

func (r *SQLiteRepository) GetByMonth(ctx context.Context, month string) ([]core.Record, error) {
	return r.query(ctx,
		`SELECT `+recordColumns+` FROM expenses WHERE month = ? ORDER BY date, id`,
		month)
}

// SumWeekCents returns the sum of all expense values with a date
// between from and to inclusive.
func (r *SQLiteRepository) SumWeekCents(ctx context.Context, from, to core.Date) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(value_cents), 0) FROM expenses WHERE date BETWEEN ? AND ?`,
		from.String(), to.String()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum week: %w", err)
	}
	return total, nil
}

// Clear removes every expense record. Store names and alert settings
// are left untouched.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	slog.InfoContext(ctx, "All expenses cleared")
	return nil
}

// BulkUpsert writes all records in a single transaction and returns
// how many were written. If any record fails validation or insert the
// whole batch is rolled back.
func (r *SQLiteRepository) BulkUpsert(ctx context.Context, records []core.Record) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for i := range records {
		rec := &records[i]
		rec.Normalize()
		if err := rec.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		if rec.CreatedAt == 0 {
			rec.CreatedAt = now
		}
		if rec.ID == 0 {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO expenses (date, month, store, item, category, obs, value_cents, qty, unit, unit_base, unit_price_e4, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
				rec.Date.String(), rec.Month, rec.Store, rec.Item, rec.Category, rec.Obs,
				rec.Value.Cents, nullFloat(rec.Qty), nullUnit(rec.Unit), nullUnit(rec.UnitBase),
				nullPrice(rec.UnitPrice), rec.CreatedAt)
			if err != nil {
				return 0, fmt.Errorf("record %d: insert expense: %w", i, err)
			}
			rec.ID, _ = res.LastInsertId()
			continue
		}
		if err := r.upsert(ctx, tx, rec); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Bulk upsert completed", "count", len(records))
	return len(records), nil
}

// AddStoreName registers a store name for autocomplete. Duplicates are
// ignored.
func (r *SQLiteRepository) AddStoreName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyStore
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO store_names (name, created_at) VALUES (?, ?)`,
		name, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert store name: %w", err)
	}
	return nil
}

// ListStoreNames returns all known store names in locale-aware order.
func (r *SQLiteRepository) ListStoreNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM store_names`)
	if err != nil {
		return nil, fmt.Errorf("list store names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan store name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate store names: %w", err)
	}

	core.SortStoreNames(names)
	return names, nil
}

// AlertSettings holds the weekly spend alert configuration for one
// user key. LastSentWeek is the week start of the last delivered
// alert, used to debounce to one notification per week.
type AlertSettings struct {
	UserKey        string
	WeeklyCapCents int64
	AlertPct       int
	LastSentWeek   string
}

func (r *SQLiteRepository) GetAlertSettings(ctx context.Context, userKey string) (*AlertSettings, error) {
	var (
		s        AlertSettings
		lastWeek sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_key, weekly_cap_cents, alert_pct, last_sent_week FROM alert_settings WHERE user_key = ?`,
		userKey).Scan(&s.UserKey, &s.WeeklyCapCents, &s.AlertPct, &lastWeek)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert settings: %w", err)
	}
	s.LastSentWeek = lastWeek.String
	return &s, nil
}

func (r *SQLiteRepository) SaveAlertSettings(ctx context.Context, s AlertSettings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_settings (user_key, weekly_cap_cents, alert_pct, last_sent_week)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_key) DO UPDATE SET
			weekly_cap_cents = excluded.weekly_cap_cents,
			alert_pct = excluded.alert_pct,
			last_sent_week = excluded.last_sent_week`,
		s.UserKey, s.WeeklyCapCents, s.AlertPct, nullString(s.LastSentWeek))
	if err != nil {
		return fmt.Errorf("save alert settings: %w", err)
	}
	return nil
}

// SetLastSentWeek records that an alert for the given week was
// delivered, so the same week never alerts twice.
func (r *SQLiteRepository) SetLastSentWeek(ctx context.Context, userKey, week string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE alert_settings SET last_sent_week = ? WHERE user_key = ?`,
		week, userKey)
	if err != nil {
		return fmt.Errorf("set last sent week: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*core.Record, error) {
	var (
		rec      core.Record
		date     string
		qty      sql.NullFloat64
		unit     sql.NullString
		unitBase sql.NullString
		priceE4  sql.NullInt64
	)
	err := row.Scan(&rec.ID, &date, &rec.Month, &rec.Store, &rec.Item, &rec.Category,
		&rec.Obs, &rec.Value.Cents, &qty, &unit, &unitBase, &priceE4,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rec.Date, err = core.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	if qty.Valid {
		rec.Qty = &qty.Float64
	}
	rec.Unit = core.Unit(unit.String)
	rec.UnitBase = core.Unit(unitBase.String)
	if priceE4.Valid {
		rec.UnitPrice = &core.UnitPrice{TenThousandths: priceE4.Int64}
	}
	return &rec, nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullUnit(u core.Unit) any {
	if u == "" {
		return nil
	}
	return string(u)
}

func nullPrice(p *core.UnitPrice) any {
	if p == nil {
		return nil
	}
	return p.TenThousandths
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
