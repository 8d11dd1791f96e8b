package main

import (
	"context"
	"errors"
	"time"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/cli"
	"budget/internal/export"
	"budget/internal/log"
	"budget/internal/sheets"
	gsheet "budget/internal/sheets/google"
	"budget/internal/sheets/memory"
	"budget/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "Export worker cannot start", errors.New("AMQP_URL is required"))
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var mirror sheets.RowAppender
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
		mirror = client
		logger.InfoContext(ctx, "Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = memory.New()
		logger.InfoContext(ctx, "Google Sheets disabled, mirroring rows in memory")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	cli.Fatal(logger, "Failed to initialize AMQP client", err)
	defer client.Close()

	exportWorker := worker.NewExportWorker(export.NewService(repo), mirror)
	caches := cache.NewManager()
	caches.Register(exportWorker.Seen())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Consuming expense events", "queue", cfg.AMQPQueue)
		return client.ConsumeExpenseLogged(gctx, exportWorker.HandleExpenseLogged)
	})
	g.Go(func() error {
		return caches.Run(gctx, 10*time.Minute)
	})

	cli.Fatal(logger, "Export worker failed", g.Wait())
	logger.InfoContext(context.Background(), "Export worker shutdown complete")
}
