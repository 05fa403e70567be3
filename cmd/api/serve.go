package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/helpline/support-desk/internal/api/http"
	"github.com/helpline/support-desk/internal/api/http/handlers"
	"github.com/helpline/support-desk/internal/auth"
	"github.com/helpline/support-desk/internal/cache"
	"github.com/helpline/support-desk/internal/clock"
	"github.com/helpline/support-desk/internal/events"
	"github.com/helpline/support-desk/internal/observability"
	"github.com/helpline/support-desk/internal/persistence"
	"github.com/helpline/support-desk/internal/repository"
	"github.com/helpline/support-desk/internal/repository/memory"
	"github.com/helpline/support-desk/internal/service"
	"github.com/helpline/support-desk/internal/ticketnumber"
	"github.com/helpline/support-desk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

type repositories struct {
	tickets     repository.TicketRepository
	staff       repository.StaffRepository
	notes       repository.NoteRepository
	assignments repository.AssignmentRepository
	resets      repository.PasswordResetRepository
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	clk := clock.Real()
	location := cfg.Tickets.Location()
	repos := buildRepositories(pg, repository.TicketRepositoryOptions{
		Numbers:     ticketnumber.NewGenerator(clk, ticketnumber.WithLocation(location)),
		Clock:       clk,
		MaxAttempts: cfg.Tickets.NumberMaxAttempts,
	})

	var snapshots cache.SnapshotCache = cache.Noop{}
	if redis != nil {
		snapshots = cache.NewRedisSnapshotCache(redis.Client, cfg.Analytics.CacheTTL())
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	kafka := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     repos.tickets,
		NoteRepo:       repos.notes,
		StaffRepo:      repos.staff,
		AssignmentRepo: repos.assignments,
		Dispatcher:     dispatcher,
		Clock:          clk,
		Logger:         logger,
	})
	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:     repos.tickets,
		StaffRepo:      repos.staff,
		AssignmentRepo: repos.assignments,
		Dispatcher:     dispatcher,
		Policy:         service.PolicyFromConfig(cfg.Tickets),
		Clock:          clk,
		Logger:         logger,
	})
	noteService := service.NewNoteService(service.NoteDependencies{
		TicketRepo: repos.tickets,
		NoteRepo:   repos.notes,
		StaffRepo:  repos.staff,
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
	})
	analyticsService := service.NewAnalyticsService(service.AnalyticsDependencies{
		TicketRepo: repos.tickets,
		StaffRepo:  repos.staff,
		Cache:      snapshots,
		Clock:      clk,
		Location:   location,
		Logger:     logger,
	})
	staffService := service.NewStaffService(service.StaffDependencies{
		StaffRepo:  repos.staff,
		Resets:     repos.resets,
		Tokens:     tokens,
		BcryptCost: cfg.Auth.BcryptCost,
		ResetTTL:   cfg.Auth.PasswordResetTTL(),
		Clock:      clk,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Notification,
		Cache:      snapshots,
		Kafka:      kafka,
		Metrics:    metrics,
	})

	notifier := worker.StartNotificationWorker(notificationService, kafka, logger)
	defer notifier.Stop()

	admin, err := staffService.Bootstrap(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if admin != nil {
		logger.Info("bootstrap administrator created", zap.String("staff_id", admin.ID), zap.String("email", admin.Email))
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService, lifecycleService, noteService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		Staff:          handlers.NewStaffHandler(staffService, cfg.Auth.PasswordResetExposeToken),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.Bool("postgres", pg.Enabled()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	if err := waitForShutdown(logger, listenErr); err != nil {
		return fmt.Errorf("fiber listen: %w", err)
	}
	return app.ShutdownWithTimeout(shutdownTimeout)
}

func buildRepositories(pg *persistence.Postgres, opts repository.TicketRepositoryOptions) repositories {
	if !pg.Enabled() {
		store := memory.NewStore(opts)
		return repositories{
			tickets:     store.Tickets(),
			staff:       store.Staff(),
			notes:       store.Notes(),
			assignments: store.Assignments(),
			resets:      store.PasswordResets(),
		}
	}
	pool := pg.PoolHandle()
	return repositories{
		tickets:     repository.NewTicketRepository(pool, opts),
		staff:       repository.NewStaffRepository(pool),
		notes:       repository.NewNoteRepository(pool),
		assignments: repository.NewAssignmentRepository(pool),
		resets:      repository.NewPasswordResetRepository(pool),
	}
}

func waitForShutdown(logger *zap.Logger, listenErr <-chan error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		return nil
	case err := <-listenErr:
		return err
	}
}
