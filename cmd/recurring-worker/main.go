package main

import (
	"context"

	"budget/internal/cli"
	"budget/internal/log"
	"budget/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	loc := cfg.Location()
	// The API process owns the in-memory report copies; materialized rows
	// clear the shared cache table and the memory layer ages out.
	scheduler := services.NewScheduler(
		services.NewRecurringProcessor(repo, nil, loc),
		services.NewGoalReviewer(repo, loc),
		services.SchedulerConfig{
			RecurringInterval:  cfg.RecurringInterval,
			GoalReviewInterval: cfg.GoalReviewInterval,
		})

	logger.InfoContext(ctx, "Starting recurring-worker",
		"recurring_interval", cfg.RecurringInterval,
		"goal_review_interval", cfg.GoalReviewInterval,
		"timezone", cfg.Timezone)

	cli.Fatal(logger, "Recurring-worker failed", scheduler.Run(ctx))
	logger.InfoContext(context.Background(), "Recurring-worker shutdown complete")
}
