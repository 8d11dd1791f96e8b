// Package cli provides common CLI initialization utilities shared by
// cmd/budget, cmd/recurring-worker and cmd/export-worker.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"budget/internal/config"
	"budget/internal/log"
	"budget/internal/storage"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given LOG_LEVEL and
// sets it as the default logger. Unknown levels fall back to info.
func SetupLogger(level, component string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{Level: lvl, Component: component, Output: os.Stdout})
	log.SetDefault(logger)
	if err != nil {
		logger.WarnContext(context.Background(), "Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.ErrorContext(context.Background(), "Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Bootstrap runs the shared startup sequence: .env, config, logger.
func Bootstrap(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	logger := SetupLogger(os.Getenv("LOG_LEVEL"), component)
	return LoadAndValidateConfig(logger), logger
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.ErrorContext(context.Background(), "Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.InfoContext(context.Background(), "Shutting down", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, stop
}

// Fatal logs err and exits unless it is nil or a clean cancellation.
func Fatal(logger *log.Logger, msg string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	logger.ErrorContext(context.Background(), msg, log.FieldError, err)
	os.Exit(1)
}
