// Package ledger turns the untyped rows of a ledger store into typed records.
//
// A ledger is a header-first, append-only grid. The gateway opens or
// provisions ledgers, appends encoded records and reads them back with a full
// scan on every call. Rows that cannot be fully decoded are still listed,
// with an Issue describing what was wrong.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookkeeping/internal/core"
	"bookkeeping/internal/log"
	"bookkeeping/internal/sheets"
)

// Gateway is the only component that talks to the ledger store.
type Gateway struct {
	store  sheets.Store
	logger *log.Logger
}

func NewGateway(store sheets.Store, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Gateway{store: store, logger: logger.WithComponent(log.ComponentLedger)}
}

// Ledger is an opened ledger bound to its schema.
type Ledger[R core.Record] struct {
	gw     *Gateway
	table  sheets.Table
	schema Schema[R]
	// Created is true when this call provisioned the ledger.
	Created bool
}

// Entry is one listed row. Row is the 1-based position in the ledger, the
// header being row 1.
type Entry[R core.Record] struct {
	Row    int
	Record R
	Issue  error
}

func (e Entry[R]) MalformedAmount() bool { return errors.Is(e.Issue, ErrMalformedAmount) }
func (e Entry[R]) MalformedDate() bool   { return errors.Is(e.Issue, ErrMalformedDate) }

// OpenOrCreate opens the named ledger, creating it with the schema header when
// missing. An existing empty ledger gets the header written. Calling it again
// never duplicates the header or touches data rows.
func OpenOrCreate[R core.Record](ctx context.Context, g *Gateway, storeName, ledgerName string, schema Schema[R]) (*Ledger[R], error) {
	created := false
	t, err := g.store.Open(ctx, storeName, ledgerName)
	if errors.Is(err, sheets.ErrLedgerNotFound) {
		t, err = g.store.Create(ctx, storeName, ledgerName, schema.Header)
		switch {
		case err == nil:
			created = true
		case errors.Is(err, sheets.ErrLedgerExists):
			// Lost a creation race; use the winner's ledger.
			t, err = g.store.Open(ctx, storeName, ledgerName)
		}
	}
	if err != nil {
		return nil, storeError("open "+storeName+"/"+ledgerName, err)
	}

	l := &Ledger[R]{gw: g, table: t, schema: schema, Created: created}
	fields := log.NewFields().WithLedger(string(schema.Kind), storeName, ledgerName)

	if created {
		g.logger.InfoContext(ctx, "Ledger created", fields.ToSlice()...)
		return l, nil
	}

	rows, err := g.store.ReadAllRows(ctx, t)
	if err != nil {
		return nil, storeError("read header "+storeName+"/"+ledgerName, err)
	}
	if allBlank(rows) {
		if err := g.store.AppendRow(ctx, t, schema.Header); err != nil {
			return nil, storeError("write header "+storeName+"/"+ledgerName, err)
		}
		g.logger.InfoContext(ctx, "Header written to empty ledger", fields.ToSlice()...)
		return l, nil
	}
	if !headerMatches(rows[0], schema.Header) {
		return nil, fmt.Errorf("%s/%s: %w: got %q, want %q",
			storeName, ledgerName, ErrSchemaMismatch, rows[0], schema.Header)
	}
	g.logger.DebugContext(ctx, "Ledger opened", fields.WithOperation(log.OpOpen).ToSlice()...)
	return l, nil
}

func (l *Ledger[R]) Kind() core.LedgerKind { return l.schema.Kind }
func (l *Ledger[R]) Store() string         { return l.table.Store }
func (l *Ledger[R]) Name() string          { return l.table.Ledger }
func (l *Ledger[R]) Schema() Schema[R]     { return l.schema }

// Append validates rec and appends it as a single row in header order.
// Retryable store failures are reported as ErrWriteRejected.
func (l *Ledger[R]) Append(ctx context.Context, rec R) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	row := l.schema.Encode(rec)
	if err := l.gw.store.AppendRow(ctx, l.table, row); err != nil {
		if errors.Is(err, sheets.ErrTransient) {
			return fmt.Errorf("append to %s: %w: %w", l.table.Ledger, ErrWriteRejected, err)
		}
		return storeError("append to "+l.table.Ledger, err)
	}
	l.gw.logger.InfoContext(ctx, "Record appended",
		log.NewFields().
			WithLedger(string(l.schema.Kind), l.table.Store, l.table.Ledger).
			WithOperation(log.OpAppend).
			ToSlice()...)
	return nil
}

// Row returns the encoded cells for rec, as Append would write them.
func (l *Ledger[R]) Row(rec R) []string {
	return l.schema.Encode(rec)
}

// List reads the whole ledger and decodes every data row in storage order.
// Fully blank rows are skipped; short rows are padded to the header width.
func (l *Ledger[R]) List(ctx context.Context) ([]Entry[R], error) {
	rows, err := l.gw.store.ReadAllRows(ctx, l.table)
	if err != nil {
		return nil, storeError("list "+l.table.Ledger, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	entries := make([]Entry[R], 0, len(rows)-1)
	malformed := 0
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec, issue := l.schema.Decode(pad(row, l.schema.Width()))
		if issue != nil {
			malformed++
		}
		entries = append(entries, Entry[R]{Row: i + 2, Record: rec, Issue: issue})
	}
	if malformed > 0 {
		l.gw.logger.WarnContext(ctx, "Ledger has malformed rows",
			log.FieldLedger, l.table.Ledger, log.FieldRows, malformed)
	}
	return entries, nil
}

// Records drops the per-row metadata.
func Records[R core.Record](entries []Entry[R]) []R {
	out := make([]R, len(entries))
	for i, e := range entries {
		out[i] = e.Record
	}
	return out
}

func storeError(op string, err error) error {
	if errors.Is(err, sheets.ErrStoreNotFound) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func headerMatches(row, header []string) bool {
	if len(row) < len(header) {
		return false
	}
	for i, h := range header {
		if strings.TrimSpace(row[i]) != h {
			return false
		}
	}
	for _, extra := range row[len(header):] {
		if strings.TrimSpace(extra) != "" {
			return false
		}
	}
	return true
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func allBlank(rows [][]string) bool {
	for _, r := range rows {
		if !blank(r) {
			return false
		}
	}
	return true
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
