// Package cli provides common initialization for the clerk commands.
// cmd/clerk, cmd/clerk-worker and cmd/clerkctl share config loading,
// logging, the record store and the service wiring found here.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/automaxprocs/maxprocs"

	"churchclerk/internal/backend"
	"churchclerk/internal/config"
	clog "churchclerk/internal/log"
)

// SetupLogger builds the process logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *clog.Logger {
	logger := clog.New(clog.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Component: component,
	})
	clog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustBootstrap runs the start-up sequence shared by every command and
// exits the process when the configuration is unusable.
func MustBootstrap(component string) (*config.Config, *clog.Logger) {
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := SetupLogger(cfg, component)

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		logger.Warn("Failed to set GOMAXPROCS", clog.FieldError, err)
	}

	if err := cfg.NotifyConfig().Validate(); err != nil {
		logger.WithComponent(clog.ComponentNotify).Warn("Reminders will fail on unconfigured channels", clog.FieldError, err)
	}
	return cfg, logger
}

// OpenStore creates the configured record backend.
func OpenStore(ctx context.Context, logger *clog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	factory := backend.NewFactory(logger.WithComponent(clog.ComponentBackend).Logger)
	return factory.CreateBackend(ctx, backend.Config{
		Type:         backend.BackendType(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
	})
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *clog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// ShutdownContext bounds the time cleanup may take after cancellation.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
