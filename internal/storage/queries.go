package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const insertStore = `INSERT INTO stores (name) VALUES (?) ON CONFLICT(name) DO NOTHING`

func (q *Queries) InsertStore(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, insertStore, name)
	return err
}

const storeExists = `SELECT EXISTS(SELECT 1 FROM stores WHERE name = ?)`

func (q *Queries) StoreExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, storeExists, name).Scan(&exists)
	return exists, err
}

const getLedgerID = `SELECT id FROM ledgers WHERE store_name = ? AND name = ?`

func (q *Queries) GetLedgerID(ctx context.Context, store, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, getLedgerID, store, name).Scan(&id)
	return id, err
}

const insertLedger = `INSERT INTO ledgers (store_name, name) VALUES (?, ?) RETURNING id`

func (q *Queries) InsertLedger(ctx context.Context, store, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, insertLedger, store, name).Scan(&id)
	return id, err
}

const insertRow = `INSERT INTO ledger_rows (ledger_id, cells) VALUES (?, ?)`

func (q *Queries) InsertRow(ctx context.Context, ledgerID int64, cells string) error {
	_, err := q.db.ExecContext(ctx, insertRow, ledgerID, cells)
	return err
}

const listRows = `SELECT cells FROM ledger_rows WHERE ledger_id = ? ORDER BY id`

func (q *Queries) ListRows(ctx context.Context, ledgerID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listRows, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, err
		}
		items = append(items, cells)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
