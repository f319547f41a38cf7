// Package cli provides common CLI initialization utilities shared by
// cmd/bookkeeping and cmd/ledger-init.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bookkeeping/internal/backend"
	"bookkeeping/internal/config"
	"bookkeeping/internal/core"
	"bookkeeping/internal/ledger"
	"bookkeeping/internal/log"
	"bookkeeping/internal/sheets"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from the configuration and makes it
// the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads .env and the environment, then validates.
// Returns the config and logger or exits the process on validation failure.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenBackend creates the configured store. provision is only set by
// ledger-init.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger, provision bool) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bc.ProvisionStore = provision
	return backend.NewFactory(logger).CreateBackend(ctx, bc)
}

// OpenMirrorBackend creates and provisions the mirror worker's store.
func OpenMirrorBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bc, err := backend.MirrorFromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bc)
}

// Ledgers are the two ledgers the application records into.
type Ledgers struct {
	Reimbursements *ledger.Ledger[core.Reimbursement]
	Expenses       *ledger.Ledger[core.Expense]
}

// OpenLedgers runs OpenOrCreate on both ledgers concurrently.
func OpenLedgers(ctx context.Context, store sheets.Store, cfg *config.Config, logger *log.Logger) (*Ledgers, error) {
	g := ledger.NewGateway(store, logger)
	var out Ledgers

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		l, err := ledger.OpenOrCreate(ctx, g, cfg.StoreName, cfg.ReimbursementLedger, ledger.ReimbursementSchema)
		out.Reimbursements = l
		return err
	})
	eg.Go(func() error {
		l, err := ledger.OpenOrCreate(ctx, g, cfg.StoreName, cfg.ExpenseLedger, ledger.ExpenseSchema)
		out.Expenses = l
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadyCheck reports whether both ledgers can still be opened. It never
// creates anything.
func ReadyCheck(store sheets.Store, cfg *config.Config) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for _, name := range []string{cfg.ReimbursementLedger, cfg.ExpenseLedger} {
			if _, err := store.Open(ctx, cfg.StoreName, name); err != nil {
				return fmt.Errorf("open %s: %w", name, err)
			}
		}
		return nil
	}
}

// StoreNotFoundHint is printed when the configured store is missing.
func StoreNotFoundHint(cfg *config.Config) string {
	switch backend.BackendType(cfg.DataBackend) {
	case backend.SheetsBackend:
		return fmt.Sprintf("spreadsheet %q is missing or not shared with the service account", cfg.GoogleSpreadsheetID)
	case backend.SQLiteBackend:
		return fmt.Sprintf("store %q is not provisioned in %s, run ledger-init first", cfg.StoreName, cfg.SQLiteDBPath)
	default:
		return fmt.Sprintf("store %q does not exist", cfg.StoreName)
	}
}

// IsStoreNotFound reports whether err means the operator has to act.
func IsStoreNotFound(err error) bool {
	return errors.Is(err, ledger.ErrStoreNotFound) || errors.Is(err, sheets.ErrStoreNotFound)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
