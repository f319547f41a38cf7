package memory

import (
	"context"
	"fmt"
	"sync"

	"bookkeeping/internal/sheets"
)

// Store keeps ledgers in process memory. Collections must be registered with
// AddStore before use, mirroring a spreadsheet that has to be shared first.
type Store struct {
	mu     sync.Mutex
	stores map[string]map[string][][]string
}

var _ sheets.Store = (*Store)(nil)

func New(storeNames ...string) *Store {
	s := &Store{stores: map[string]map[string][][]string{}}
	for _, name := range storeNames {
		s.AddStore(name)
	}
	return s
}

// AddStore registers an empty collection. Existing collections are untouched.
func (s *Store) AddStore(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stores[name]; !ok {
		s.stores[name] = map[string][][]string{}
	}
}

// Seed replaces a ledger's rows wholesale, creating it if needed.
func (s *Store) Seed(store, ledger string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stores[store]; !ok {
		s.stores[store] = map[string][][]string{}
	}
	s.stores[store][ledger] = copyRows(rows)
}

func (s *Store) Open(_ context.Context, store, ledger string) (sheets.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledgers, ok := s.stores[store]
	if !ok {
		return sheets.Table{}, fmt.Errorf("%q: %w", store, sheets.ErrStoreNotFound)
	}
	if _, ok := ledgers[ledger]; !ok {
		return sheets.Table{}, fmt.Errorf("%s/%s: %w", store, ledger, sheets.ErrLedgerNotFound)
	}
	return sheets.Table{Store: store, Ledger: ledger, Ref: "mem:" + store + "/" + ledger}, nil
}

func (s *Store) Create(_ context.Context, store, ledger string, header []string) (sheets.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledgers, ok := s.stores[store]
	if !ok {
		return sheets.Table{}, fmt.Errorf("%q: %w", store, sheets.ErrStoreNotFound)
	}
	if _, ok := ledgers[ledger]; ok {
		return sheets.Table{}, fmt.Errorf("%s/%s: %w", store, ledger, sheets.ErrLedgerExists)
	}
	ledgers[ledger] = [][]string{append([]string(nil), header...)}
	return sheets.Table{Store: store, Ledger: ledger, Ref: "mem:" + store + "/" + ledger}, nil
}

// AppendRow stores a copy of values as the last row.
func (s *Store) AppendRow(_ context.Context, t sheets.Table, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.rowsLocked(t)
	if err != nil {
		return err
	}
	s.stores[t.Store][t.Ledger] = append(rows, append([]string(nil), values...))
	return nil
}

func (s *Store) ReadAllRows(_ context.Context, t sheets.Table) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.rowsLocked(t)
	if err != nil {
		return nil, err
	}
	return copyRows(rows), nil
}

func (s *Store) rowsLocked(t sheets.Table) ([][]string, error) {
	ledgers, ok := s.stores[t.Store]
	if !ok {
		return nil, fmt.Errorf("%q: %w", t.Store, sheets.ErrStoreNotFound)
	}
	rows, ok := ledgers[t.Ledger]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", t.Store, t.Ledger, sheets.ErrLedgerNotFound)
	}
	return rows, nil
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}
