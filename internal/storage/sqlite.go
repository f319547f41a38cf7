package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"bookkeeping/internal/sheets"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore keeps ledgers in a local SQLite file. Rows are stored as JSON
// arrays of cells and triggers reject updates and deletes.
type SQLiteStore struct {
	db      *sql.DB
	queries *Queries
}

var _ sheets.Store = (*SQLiteStore)(nil)

func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, queries: New(db)}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// EnsureStore registers a named collection. It is a no-op when the
// collection already exists.
func (s *SQLiteStore) EnsureStore(ctx context.Context, name string) error {
	if err := s.queries.InsertStore(ctx, name); err != nil {
		return fmt.Errorf("ensure store %q: %w", name, translate(err))
	}
	return nil
}

func (s *SQLiteStore) Open(ctx context.Context, store, ledger string) (sheets.Table, error) {
	exists, err := s.queries.StoreExists(ctx, store)
	if err != nil {
		return sheets.Table{}, fmt.Errorf("lookup store %q: %w", store, translate(err))
	}
	if !exists {
		return sheets.Table{}, fmt.Errorf("%q: %w", store, sheets.ErrStoreNotFound)
	}
	id, err := s.queries.GetLedgerID(ctx, store, ledger)
	if errors.Is(err, sql.ErrNoRows) {
		return sheets.Table{}, fmt.Errorf("%s/%s: %w", store, ledger, sheets.ErrLedgerNotFound)
	}
	if err != nil {
		return sheets.Table{}, fmt.Errorf("lookup ledger %s/%s: %w", store, ledger, translate(err))
	}
	return table(store, ledger, id), nil
}

// Create inserts the ledger and its header row in one transaction.
func (s *SQLiteStore) Create(ctx context.Context, store, ledger string, header []string) (sheets.Table, error) {
	exists, err := s.queries.StoreExists(ctx, store)
	if err != nil {
		return sheets.Table{}, fmt.Errorf("lookup store %q: %w", store, translate(err))
	}
	if !exists {
		return sheets.Table{}, fmt.Errorf("%q: %w", store, sheets.ErrStoreNotFound)
	}

	cells, err := json.Marshal(header)
	if err != nil {
		return sheets.Table{}, fmt.Errorf("encode header: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sheets.Table{}, fmt.Errorf("begin transaction: %w", translate(err))
	}
	defer func() { _ = tx.Rollback() }()

	q := s.queries.WithTx(tx)
	id, err := q.InsertLedger(ctx, store, ledger)
	if err != nil {
		return sheets.Table{}, fmt.Errorf("create ledger %s/%s: %w", store, ledger, translate(err))
	}
	if err := q.InsertRow(ctx, id, string(cells)); err != nil {
		return sheets.Table{}, fmt.Errorf("write header %s/%s: %w", store, ledger, translate(err))
	}
	if err := tx.Commit(); err != nil {
		return sheets.Table{}, fmt.Errorf("commit ledger %s/%s: %w", store, ledger, translate(err))
	}

	slog.InfoContext(ctx, "Ledger created in SQLite", "store", store, "ledger", ledger, "id", id)
	return table(store, ledger, id), nil
}

func (s *SQLiteStore) AppendRow(ctx context.Context, t sheets.Table, values []string) error {
	id, err := ledgerID(t)
	if err != nil {
		return err
	}
	if values == nil {
		values = []string{}
	}
	cells, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	if err := s.queries.InsertRow(ctx, id, string(cells)); err != nil {
		return fmt.Errorf("append to %s/%s: %w", t.Store, t.Ledger, translate(err))
	}
	return nil
}

func (s *SQLiteStore) ReadAllRows(ctx context.Context, t sheets.Table) ([][]string, error) {
	id, err := ledgerID(t)
	if err != nil {
		return nil, err
	}
	raw, err := s.queries.ListRows(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", t.Store, t.Ledger, translate(err))
	}
	rows := make([][]string, 0, len(raw))
	for i, cells := range raw {
		var row []string
		if err := json.Unmarshal([]byte(cells), &row); err != nil {
			return nil, fmt.Errorf("decode row %d of %s/%s: %w", i+1, t.Store, t.Ledger, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func table(store, ledger string, id int64) sheets.Table {
	return sheets.Table{Store: store, Ledger: ledger, Ref: strconv.FormatInt(id, 10)}
}

func ledgerID(t sheets.Table) (int64, error) {
	id, err := strconv.ParseInt(t.Ref, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s/%s: bad table ref %q: %w", t.Store, t.Ledger, t.Ref, sheets.ErrLedgerNotFound)
	}
	return id, nil
}

// translate maps SQLite result codes onto the port's error vocabulary.
func translate(err error) error {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return err
	}
	code := serr.Code()
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %w", sheets.ErrLedgerExists, err)
	case code&0xff == sqlite3.SQLITE_BUSY, code&0xff == sqlite3.SQLITE_LOCKED:
		return fmt.Errorf("%w: %w", sheets.ErrTransient, err)
	}
	return err
}
