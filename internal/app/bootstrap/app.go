package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/sheets/v4"

	"github.com/wolfman30/clinic-appointment-bot/internal/api/router"
	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
	"github.com/wolfman30/clinic-appointment-bot/internal/clock"
	appconfig "github.com/wolfman30/clinic-appointment-bot/internal/config"
	"github.com/wolfman30/clinic-appointment-bot/internal/conversation"
	"github.com/wolfman30/clinic-appointment-bot/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-appointment-bot/internal/http/middleware"
	"github.com/wolfman30/clinic-appointment-bot/internal/notify"
	"github.com/wolfman30/clinic-appointment-bot/internal/observability/metrics"
	"github.com/wolfman30/clinic-appointment-bot/internal/session"
	"github.com/wolfman30/clinic-appointment-bot/internal/webchat"
	reminderworker "github.com/wolfman30/clinic-appointment-bot/internal/worker/reminders"
	sweeperworker "github.com/wolfman30/clinic-appointment-bot/internal/worker/sweeper"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// Dependencies are the external clients the binary connected to. Every field
// is optional; missing ones fall back to in-process implementations.
type Dependencies struct {
	AWS      *aws.Config
	Redis    *redis.Client
	Postgres *pgxpool.Pool
	Sheets   *sheets.Service
	Calendar *calendar.Service
	Clock    clock.Clock
	Registry *prometheus.Registry
}

// App is the assembled booking service.
type App struct {
	Handler  http.Handler
	Catalog  *catalog.Catalog
	Engine   *availability.Engine
	Store    bookings.Store
	Registry *session.Registry
	Service  *conversation.Service

	dispatcher *notify.Dispatcher
	sweeper    *sweeperworker.Sweeper
	reminders  *reminderworker.Scheduler
	limiter    *httpmiddleware.RateLimiter
	logger     *logging.Logger

	closeOnce sync.Once
}

// BuildMetrics returns the booking metrics and the /metrics handler serving
// them from reg.
func BuildMetrics(reg *prometheus.Registry) (*metrics.BookingMetrics, http.Handler) {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return metrics.NewBookingMetrics(reg), promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// BuildApp wires the catalog, reservation engine, commit pipeline,
// conversation service and HTTP surface from config.
func BuildApp(ctx context.Context, cfg *appconfig.Config, deps Dependencies, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	bookingMetrics, metricsHandler := BuildMetrics(deps.Registry)

	cat, err := BuildCatalog(cfg)
	if err != nil {
		return nil, err
	}
	store, err := BuildBookingStore(ctx, cfg, deps.Postgres, deps.Sheets, logger)
	if err != nil {
		return nil, err
	}

	engine := availability.NewEngine(cat, clk,
		availability.WithGracePeriod(cfg.ReservationGracePeriod),
		availability.WithLogger(logger),
		availability.WithMetrics(bookingMetrics),
	)
	active, err := store.ListActiveBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load confirmed bookings: %w", err)
	}
	engine.Seed(active)
	logger.Info("reservation table seeded", "confirmed", len(active))

	clinic := notify.ClinicInfo{Name: cfg.ClinicName, Address: cfg.ClinicAddress, Location: cat.Location()}
	sender := BuildEmailSender(cfg, deps.AWS, logger)
	chatHub := webchat.NewHub()
	dispatcher := BuildDispatcher(cfg, sender, deps.Calendar, clinic, store, bookingMetrics, logger,
		webchat.NewSink(chatHub, cat.Location(), logger))

	pipeline := bookings.NewPipeline(engine, store, clk,
		bookings.WithRetry(cfg.StoreRetryMaxAttempts, cfg.StoreRetryBaseDelay),
		bookings.WithDispatcher(dispatcher),
		bookings.WithLogger(logger),
		bookings.WithMetrics(bookingMetrics),
		bookings.WithLocation(cat.Location()),
	)

	registry := session.NewRegistry(clk, cfg.SessionIdleTimeout,
		session.WithDiscardHook(conversation.ReleaseOnDiscard(engine)),
		session.WithLogger(logger),
		session.WithMetrics(bookingMetrics),
	)
	machine := conversation.NewMachine(cat, engine, pipeline, clk,
		conversation.WithMachineLogger(logger),
		conversation.WithClinicContact(conversation.ClinicContact{
			Name:    cfg.ClinicName,
			Address: cfg.ClinicAddress,
			Phone:   cfg.ClinicPhone,
			Email:   cfg.ClinicEmail,
			Website: cfg.ClinicWebsite,
			Hours:   cfg.ClinicHours,
		}),
	)
	service := conversation.NewService(registry, machine,
		conversation.WithTranscripts(BuildTranscripts(deps.Redis, logger)),
		conversation.WithServiceLogger(logger),
		conversation.WithServiceMetrics(bookingMetrics),
	)

	finder, _ := store.(bookings.Finder)
	lister, _ := store.(bookings.UpcomingLister)

	app := &App{
		Catalog:    cat,
		Engine:     engine,
		Store:      store,
		Registry:   registry,
		Service:    service,
		dispatcher: dispatcher,
		sweeper: sweeperworker.NewSweeper(engine, registry, clk, logger).
			WithInterval(cfg.SweepInterval).
			WithMetrics(bookingMetrics),
		limiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		logger:  logger,
	}

	if lister != nil {
		deduper := reminderworker.Deduper(reminderworker.NewMemoryDeduper(clk))
		if deps.Redis != nil {
			deduper = reminderworker.NewRedisDeduper(deps.Redis)
		}
		app.reminders = reminderworker.NewScheduler(lister, sender, clk, logger).
			WithDeduper(deduper).
			WithClinic(clinic).
			WithLeadTime(cfg.ReminderLeadTime).
			WithSchedule(cfg.ReminderSchedule).
			WithMetrics(bookingMetrics)
	} else {
		logger.Warn("booking store cannot list upcoming appointments; reminders disabled")
	}

	checks := map[string]handlers.Pinger{}
	if deps.Postgres != nil {
		checks["postgres"] = deps.Postgres
	}
	if deps.Redis != nil {
		redisClient := deps.Redis
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	app.Handler = router.New(&router.Config{
		Logger:              logger,
		Health:              handlers.NewHealthHandler(checks, logger),
		ConversationHandler: conversation.NewHandler(service, cat, engine, finder, logger),
		WebChat:             webchat.NewHandler(service, logger).WithHub(chatHub),
		AdminBookings:       handlers.NewAdminBookingsHandler(lister, engine, registry, cat.Location(), logger),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimiter:         app.limiter,
	})
	return app, nil
}

// Start launches the background workers. They stop when ctx is done.
func (a *App) Start(ctx context.Context) error {
	go a.sweeper.Run(ctx)
	go a.limiter.RunJanitor(ctx, 10*time.Minute)
	if a.reminders != nil {
		if err := a.reminders.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the reminder schedule and drains pending notifications.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.reminders != nil {
			a.reminders.Stop()
		}
		a.dispatcher.Close()
		a.logger.Info("booking service stopped")
	})
}
