// Package backup exports and imports the full expense dataset as a
// versioned JSON payload.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gastos/internal/core"
)

const SchemaVersion = 1

var (
	ErrMissingExpenses    = errors.New("payload has no expenses list")
	ErrUnsupportedVersion = errors.New("unsupported schema version")
)

// Payload is the wire format of a backup file.
type Payload struct {
	SchemaVersion int           `json:"schemaVersion"`
	ExportedAt    string        `json:"exportedAt"`
	Expenses      []core.Record `json:"expenses"`
}

// Preview summarizes a validated payload before it is applied.
type Preview struct {
	Records   int    `json:"records"`
	FirstDate string `json:"firstDate,omitempty"`
	LastDate  string `json:"lastDate,omitempty"`
}

// Store is the slice of the repository the codec needs.
type Store interface {
	GetAll(ctx context.Context) ([]core.Record, error)
	Clear(ctx context.Context) error
	BulkUpsert(ctx context.Context, records []core.Record) (int, error)
}

// Export snapshots every stored record into a payload.
func Export(ctx context.Context, store Store) (*Payload, error) {
	records, err := store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export expenses: %w", err)
	}
	if records == nil {
		records = []core.Record{}
	}
	return &Payload{
		SchemaVersion: SchemaVersion,
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		Expenses:      records,
	}, nil
}

// Decode parses a backup file. A JSON error here means the file is
// malformed, not that its contents are invalid.
func Decode(r io.Reader) (*Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("malformed backup file: %w", err)
	}
	return &p, nil
}

// Validate checks a decoded payload without touching storage and
// returns a preview of what an import would write.
func Validate(p *Payload) (*Preview, error) {
	if p.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.SchemaVersion)
	}
	if p.Expenses == nil {
		return nil, ErrMissingExpenses
	}

	preview := &Preview{Records: len(p.Expenses)}
	for i := range p.Expenses {
		rec := p.Expenses[i]
		// Validate the record as it appears in the file. Normalizing
		// first would rewrite month from date and mask a file whose
		// month column contradicts it.
		if rec.Month == "" {
			return nil, fmt.Errorf("expense %d: missing month", i)
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("expense %d: %w", i, err)
		}
		d := rec.Date.String()
		if preview.FirstDate == "" || d < preview.FirstDate {
			preview.FirstDate = d
		}
		if d > preview.LastDate {
			preview.LastDate = d
		}
	}
	return preview, nil
}

// Apply replaces the entire dataset with the payload's expenses. The
// payload is validated first and the write is all-or-nothing: a clear
// only happens once every record has passed validation, and the bulk
// write itself runs in one transaction.
func Apply(ctx context.Context, store Store, p *Payload) (int, error) {
	if _, err := Validate(p); err != nil {
		return 0, err
	}

	if err := store.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clear before import: %w", err)
	}

	n, err := store.BulkUpsert(ctx, p.Expenses)
	if err != nil {
		return 0, fmt.Errorf("import expenses: %w", err)
	}

	slog.InfoContext(ctx, "Backup imported", "records", n)
	return n, nil
}
