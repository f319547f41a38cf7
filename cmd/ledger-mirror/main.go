// Command ledger-mirror consumes record-appended events from AMQP and
// replays every row into a separate store.
package main

import (
	"context"
	"errors"
	"os"

	"bookkeeping/internal/amqp"
	"bookkeeping/internal/cli"
	"bookkeeping/internal/log"
	"bookkeeping/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting ledger-mirror",
		"backend", cfg.MirrorBackend,
		log.FieldStore, cfg.MirrorStoreName,
		"queue", cfg.AMQPQueue)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	be, err := cli.OpenMirrorBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize mirror backend", log.FieldError, err)
		os.Exit(1)
	}
	if be.Cleanup != nil {
		defer func() {
			if err := be.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	client, err := amqp.NewClient(ctx, amqp.Config{
		URL:        cfg.AMQPURL,
		Exchange:   cfg.AMQPExchange,
		RoutingKey: cfg.AMQPRoutingKey,
		Queue:      cfg.AMQPQueue,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	mirror := worker.NewMirror(be.Store, cfg.MirrorStoreName, logger)

	err = client.ConsumeRecordAppended(ctx, cfg.MirrorPrefetch, mirror.HandleRecordAppended)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
