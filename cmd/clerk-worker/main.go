package main

import (
	"os"

	"golang.org/x/sync/errgroup"

	"churchclerk/internal/cli"
	clog "churchclerk/internal/log"
	"churchclerk/internal/worker"
)

func main() {
	cfg, logger := cli.MustBootstrap("clerk-worker")
	logger.Info("Starting clerk-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	app, err := cli.NewApp(ctx, cfg, logger, cli.Options{Gateways: true, Broker: true})
	if err != nil {
		logger.Error("Failed to start", clog.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	g, gctx := errgroup.WithContext(ctx)
	tasks := 0

	if app.Broker != nil {
		w := worker.NewActivityWorker(app.Store, app.Metrics)
		g.Go(func() error {
			return w.Run(gctx, app.Broker)
		})
		tasks++
	} else {
		logger.Info("Skipping activity consumption - no AMQP broker available")
	}

	if cfg.ReminderSweepInterval > 0 {
		sweeper := app.Sweeper()
		g.Go(func() error {
			return sweeper.Run(gctx, cfg.ReminderSweepInterval)
		})
		tasks++
	} else {
		logger.Info("Reminder sweep disabled - REMINDER_SWEEP_INTERVAL is 0")
	}

	if tasks == 0 {
		logger.Warn("Nothing to do: configure AMQP_URL or REMINDER_SWEEP_INTERVAL")
		return
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker failed", clog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
