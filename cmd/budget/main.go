package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"budget/internal/amqp"
	"budget/internal/analytics"
	"budget/internal/cache"
	"budget/internal/cli"
	"budget/internal/export"
	apphttp "budget/internal/http"
	"budget/internal/log"
	"budget/internal/services"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	loc := cfg.Location()
	reports := analytics.NewService(repo, analytics.Options{
		CacheTTL:  cfg.AnalyticsCacheTTL,
		MemoryTTL: cfg.AnalyticsMemoryTTL,
		Location:  loc,
	})

	ledgerOpts := []services.LedgerOption{
		services.WithReports(reports),
		services.WithClock(time.Now, loc),
		services.WithLogger(logger),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, expense events disabled", log.FieldError, err)
		} else {
			defer client.Close()
			ledgerOpts = append(ledgerOpts, services.WithPublisher(client))
			logger.InfoContext(ctx, "AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.InfoContext(ctx, "AMQP disabled, expense events will not be published")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger: services.NewLedgerService(repo, ledgerOpts...),
		Accounts: services.NewAccountService(repo, services.AccountOptions{
			DefaultCurrency: cfg.DefaultCurrency,
			Reports:         reports,
			Location:        loc,
		}),
		Analytics:          reports,
		Export:             export.NewService(repo),
		Store:              repo,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Location:           loc,
	})

	caches := cache.NewManager()
	if mem := reports.Memory(); mem != nil {
		caches.Register(mem)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting budget API", "port", cfg.Port, "timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return caches.Run(gctx, time.Minute)
	})

	cli.Fatal(logger, "Server error", g.Wait())
	logger.InfoContext(context.Background(), "Server stopped gracefully")
}
