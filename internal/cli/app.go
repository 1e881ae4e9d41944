package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"churchclerk/internal/activity"
	"churchclerk/internal/amqp"
	"churchclerk/internal/auth"
	"churchclerk/internal/cache"
	"churchclerk/internal/config"
	"churchclerk/internal/core"
	clog "churchclerk/internal/log"
	"churchclerk/internal/media"
	"churchclerk/internal/metrics"
	"churchclerk/internal/notify"
	"churchclerk/internal/records"
	"churchclerk/internal/reminder"
	"churchclerk/internal/services"
	gsheet "churchclerk/internal/sheets/google"
)

// Options select the optional collaborators a command needs.
type Options struct {
	// Gateways connects the reminder channels. Commands that never send
	// reminders skip the SMTP and WhatsApp setup.
	Gateways bool
	// Broker publishes activity to AMQP when configured. Without it, or
	// when the broker is unreachable, activity goes straight to the store.
	Broker bool
}

// App is the wired object graph shared by the clerk commands.
type App struct {
	Config  *config.Config
	Logger  *clog.Logger
	Store   records.Store
	Metrics *metrics.Metrics
	Events  *activity.Emitter
	Broker  *amqp.Client

	Gateways     *notify.Router
	Dispatcher   *reminder.Dispatcher
	ReportCache  *cache.LRUCache[core.Summary]
	Certificates *services.CertificateService
	Transfers    *services.TransferService
	Communion    *services.CommunionService
	Reports      *services.ReportService
	Auth         *auth.Manager

	closers []func()
}

// NewApp opens the store and builds every service on top of it. Failures of
// optional integrations are logged and degrade the feature instead of
// aborting start-up.
func NewApp(ctx context.Context, cfg *config.Config, logger *clog.Logger, opts Options) (*App, error) {
	res, err := OpenStore(ctx, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Store:   res.Store,
		Metrics: metrics.New(),
	}
	if res.Cleanup != nil {
		a.onClose(func() {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Failed to close record store", clog.FieldError, err)
			}
		})
	}

	a.Events = activity.NewEmitter(a.publisher(opts.Broker), a.Metrics)
	a.Gateways = a.gateways(ctx, opts.Gateways)
	a.Dispatcher = reminder.NewDispatcher(a.Gateways, a.Store, a.Events, a.Metrics, cfg.OrgName)

	a.ReportCache = cache.NewLRUCache[core.Summary](64, 5*time.Minute)
	a.Reports = services.NewReportService(a.Store, services.ReportOptions{
		Org:      cfg.OrgName,
		Location: cfg.Location(),
		Cache:    a.ReportCache,
		Exporter: a.exporter(ctx),
		Events:   a.Events,
		Metrics:  a.Metrics,
	})

	mediaStore, err := media.NewStore(cfg.MediaDir)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Certificates = services.NewCertificateService(a.Store, a.Dispatcher, a.Events, a.Reports)
	a.Transfers = services.NewTransferService(a.Store, a.Events, a.Reports, cfg.Location())
	a.Communion = services.NewCommunionService(a.Store, mediaStore, a.Events, a.Reports)

	a.Auth = auth.NewManager(a.Store, a.sessionSecret(), cfg.SessionTTL, cfg.SecureCookie)
	if cfg.AdminUsername != "" {
		if err := a.Auth.EnsureStaff(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			a.Close()
			return nil, fmt.Errorf("bootstrap admin account: %w", err)
		}
	}

	return a, nil
}

// Sweeper builds the periodic reminder sweep from the configured policy.
func (a *App) Sweeper() *reminder.Sweeper {
	policy := reminder.Policy{
		MinAge:   a.Config.ReminderSweepMinAge,
		MaxCount: a.Config.ReminderSweepMaxCount,
	}
	return reminder.NewSweeper(a.Store, a.Dispatcher, policy, core.Channel(a.Config.ReminderSweepChannel))
}

// Ready checks the dependencies the server cannot work without.
func (a *App) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.Store.Ping(ctx)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) onClose(f func()) {
	a.closers = append(a.closers, f)
}

func (a *App) publisher(useBroker bool) activity.Publisher {
	logger := a.Logger.WithComponent(clog.ComponentAMQP)
	if !useBroker || !a.Config.AMQPEnabled() {
		return activity.NewStoreRecorder(a.Store)
	}
	client, err := amqp.NewClient(a.Config.AMQPURL, a.Config.AMQPExchange, a.Config.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, recording activity locally", clog.FieldError, err)
		return activity.NewStoreRecorder(a.Store)
	}
	a.Broker = client
	a.onClose(func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", clog.FieldError, err)
		}
	})
	logger.Info("Publishing activity to AMQP", "exchange", a.Config.AMQPExchange)
	return client
}

func (a *App) gateways(ctx context.Context, enabled bool) *notify.Router {
	router := notify.NewRouter()
	if !enabled {
		return router
	}
	logger := a.Logger.WithComponent(clog.ComponentNotify)
	ncfg := a.Config.NotifyConfig()

	router.Register(core.ChannelSMS, notify.NewSMSGateway(ncfg, nil))

	if email, err := notify.NewEmailGateway(ncfg); err != nil {
		logger.Warn("Email gateway unavailable", clog.FieldError, err)
		router.Register(core.ChannelEmail, notify.Unavailable{Reason: err})
	} else {
		router.Register(core.ChannelEmail, email)
	}

	if !ncfg.WhatsAppEnabled {
		router.Register(core.ChannelWhatsApp, notify.Unavailable{Reason: errors.New("whatsapp is disabled")})
		return router
	}
	wa, err := notify.OpenWhatsApp(ctx, ncfg.WhatsAppDataDir)
	if err == nil {
		err = wa.Connect()
	}
	if err != nil {
		logger.Warn("WhatsApp gateway unavailable", clog.FieldError, err)
		router.Register(core.ChannelWhatsApp, notify.Unavailable{Reason: err})
		return router
	}
	router.Register(core.ChannelWhatsApp, wa)
	a.onClose(wa.Disconnect)
	return router
}

func (a *App) exporter(ctx context.Context) services.SummaryExporter {
	if !a.Config.SheetsEnabled() {
		return nil
	}
	client, err := gsheet.New(ctx, a.Config.GoogleSpreadsheetID, a.Config.GoogleSheetName)
	if err != nil {
		a.Logger.WithComponent(clog.ComponentSheets).Warn("Google Sheets export disabled", clog.FieldError, err)
		return nil
	}
	return client
}

// sessionSecret falls back to a random key, which signs everyone out on
// restart.
func (a *App) sessionSecret() string {
	if a.Config.SessionSecret != "" {
		return a.Config.SessionSecret
	}
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	a.Logger.WithComponent(clog.ComponentAuth).Warn("SESSION_SECRET not set; using an ephemeral key")
	return hex.EncodeToString(buf)
}
