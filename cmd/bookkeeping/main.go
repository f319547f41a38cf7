package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bookkeeping/internal/amqp"
	"bookkeeping/internal/cli"
	apphttp "bookkeeping/internal/http"
	"bookkeeping/internal/log"
	"bookkeeping/internal/services"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	be, err := cli.OpenBackend(ctx, cfg, logger, false)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if be.Cleanup != nil {
		defer func() {
			if err := be.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	ledgers, err := cli.OpenLedgers(ctx, be.Store, cfg, logger)
	if err != nil {
		if cli.IsStoreNotFound(err) {
			logger.Error("Ledger store not found: "+cli.StoreNotFoundHint(cfg), log.FieldError, err)
			os.Exit(2)
		}
		logger.Error("Failed to open ledgers", log.FieldError, err)
		os.Exit(1)
	}
	for _, l := range []struct {
		name    string
		created bool
	}{
		{ledgers.Reimbursements.Name(), ledgers.Reimbursements.Created},
		{ledgers.Expenses.Name(), ledgers.Expenses.Created},
	} {
		if l.created {
			logger.Info("Ledger created", log.FieldStore, cfg.StoreName, log.FieldLedger, l.name)
		}
	}

	rc := services.RecorderConfig{
		Roster:     cfg.Roster(),
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, amqp.Config{
			URL:        cfg.AMQPURL,
			Exchange:   cfg.AMQPExchange,
			RoutingKey: cfg.AMQPRoutingKey,
			Queue:      cfg.AMQPQueue,
		}, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, append notifications disabled", log.FieldError, err)
		} else {
			defer client.Close()
			rc.Notifier = client
		}
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Reimbursements: services.NewRecorder(ledgers.Reimbursements, rc),
		Expenses:       services.NewRecorder(ledgers.Expenses, rc),
		DefaultUser:    cfg.DefaultUser,
		WriteRateLimit: cfg.WriteRateLimit,
		Ready:          cli.ReadyCheck(be.Store, cfg),
		Logger:         logger,
	})

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("Starting bookkeeping server",
			"port", cfg.Port, "backend", cfg.DataBackend, log.FieldStore, cfg.StoreName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
