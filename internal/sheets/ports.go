package sheets

import (
	"context"
	"errors"
)

// Errors every Store adapter translates its native failures into.
var (
	// ErrStoreNotFound means the named collection does not exist or is not
	// shared with the service credential.
	ErrStoreNotFound = errors.New("store not found")
	// ErrLedgerNotFound means the collection exists but has no such ledger.
	ErrLedgerNotFound = errors.New("ledger not found")
	// ErrLedgerExists is returned by Create when another writer won the race.
	ErrLedgerExists = errors.New("ledger already exists")
	// ErrTransient marks failures worth retrying: rate limits, timeouts, network.
	ErrTransient = errors.New("transient store failure")
)

// Table is an opened ledger. Ref is adapter specific.
type Table struct {
	Store  string
	Ledger string
	Ref    string
}

// Ports for outbound adapters.
type (
	// Store is a named collection of header-first, append-only grids of strings.
	Store interface {
		Open(ctx context.Context, store, ledger string) (Table, error)
		// Create adds the ledger and writes header as its first row.
		Create(ctx context.Context, store, ledger string, header []string) (Table, error)
		AppendRow(ctx context.Context, t Table, values []string) error
		// ReadAllRows returns every row in storage order, header included.
		ReadAllRows(ctx context.Context, t Table) ([][]string, error)
	}
)
