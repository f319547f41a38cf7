package backend

import (
	"context"
	"fmt"
	"time"

	"bookkeeping/internal/log"
	"bookkeeping/internal/sheets"
	gsheet "bookkeeping/internal/sheets/google"
	"bookkeeping/internal/sheets/memory"
	"bookkeeping/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.StoreTimeout > 0 {
		res.Store = WithTimeout(res.Store, config.StoreTimeout)
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	if config.ProvisionStore {
		if err := store.EnsureStore(ctx, config.StoreName); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to provision store %q: %w", config.StoreName, err)
		}
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		log.FieldStore, config.StoreName,
		"provisioned", config.ProvisionStore)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.NewFromConfig(ctx, gsheet.Config{
		Spreadsheets:    map[string]string{config.StoreName: config.GoogleSpreadsheetID},
		CredentialsJSON: []byte(config.GoogleServiceAccountJSON),
		CredentialsFile: config.GoogleServiceAccountFile,
		Timeout:         config.StoreTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", log.FieldStore, config.StoreName)

	return &BackendResult{
		Store:   cli,
		Cleanup: nil, // No cleanup needed for sheets backend
	}, nil
}

// createMemoryBackend always registers the store: there is nothing to share.
func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.New(config.StoreName)

	f.logger.Info("Initialized memory backend", log.FieldStore, config.StoreName)

	return &BackendResult{
		Store:   store,
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}

// WithTimeout bounds every call to s by d.
func WithTimeout(s sheets.Store, d time.Duration) sheets.Store {
	return &timeoutStore{next: s, timeout: d}
}

type timeoutStore struct {
	next    sheets.Store
	timeout time.Duration
}

func (t *timeoutStore) Open(ctx context.Context, store, ledger string) (sheets.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Open(ctx, store, ledger)
}

func (t *timeoutStore) Create(ctx context.Context, store, ledger string, header []string) (sheets.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Create(ctx, store, ledger, header)
}

func (t *timeoutStore) AppendRow(ctx context.Context, tbl sheets.Table, values []string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.AppendRow(ctx, tbl, values)
}

func (t *timeoutStore) ReadAllRows(ctx context.Context, tbl sheets.Table) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.ReadAllRows(ctx, tbl)
}
