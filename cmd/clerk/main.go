package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"churchclerk/internal/cache"
	"churchclerk/internal/cli"
	apphttp "churchclerk/internal/http"
	clog "churchclerk/internal/log"
)

func main() {
	cfg, logger := cli.MustBootstrap("clerk")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	app, err := cli.NewApp(ctx, cfg, logger, cli.Options{Gateways: true, Broker: true})
	if err != nil {
		logger.Error("Failed to start", clog.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Org:          cfg.OrgName,
		Certificates: app.Certificates,
		Transfers:    app.Transfers,
		Communion:    app.Communion,
		Reports:      app.Reports,
		Activity:     app.Store,
		Auth:         app.Auth,
		Metrics:      app.Metrics,
		Logger:       logger,
		Ready:        app.Ready,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", clog.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting clerk server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"org", cfg.OrgName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		cache.NewJanitor(logger.WithComponent(clog.ComponentCache).Logger, app.ReportCache).Run(gctx, time.Minute)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := cli.ShutdownContext(30 * time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Server shutdown error", clog.FieldError, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", clog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
