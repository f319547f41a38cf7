// Command ledger-init provisions the configured store and makes sure both
// ledgers exist with their headers. It is safe to run repeatedly.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bookkeeping/internal/cli"
	"bookkeeping/internal/log"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	be, err := cli.OpenBackend(ctx, cfg, logger, true)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ledgers, err := cli.OpenLedgers(ctx, be.Store, cfg, logger)
	if be.Cleanup != nil {
		if cerr := be.Cleanup(); cerr != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, cerr)
		}
	}
	if err != nil {
		if cli.IsStoreNotFound(err) {
			fmt.Fprintln(os.Stderr, "ledger-init:", cli.StoreNotFoundHint(cfg))
			os.Exit(2)
		}
		logger.Error("Ledger initialization failed", log.FieldError, err)
		os.Exit(1)
	}

	for _, l := range []struct {
		name    string
		created bool
	}{
		{ledgers.Reimbursements.Name(), ledgers.Reimbursements.Created},
		{ledgers.Expenses.Name(), ledgers.Expenses.Created},
	} {
		state := "exists"
		if l.created {
			state = "created"
		}
		fmt.Printf("%s/%s: %s\n", cfg.StoreName, l.name, state)
	}
}
