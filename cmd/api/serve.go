package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/mail"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/ratelimit"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)

	renderer, err := mail.NewRenderer(cfg.App.Name, cfg.App.BaseURL)
	if err != nil {
		return fmt.Errorf("load mail templates: %w", err)
	}
	notifications := service.NewNotificationService(dispatcher, renderer, mail.NewMailer(cfg.Mail, logger), logger)

	var forwarder *events.NATSForwarder
	if cfg.NATS.URL != "" {
		conn, err := events.ConnectNATS(cfg.NATS.URL, cfg.App.Name, logger)
		if err != nil {
			return err
		}
		defer drainNATS(conn, logger)
		forwarder = events.NewNATSForwarder(conn, cfg.NATS.SubjectPrefix, logger)
	}
	worker.StartNotificationWorker(dispatcher, notifications, forwarder, logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		CustomerRepo: customerRepo,
		References:   domain.NewReferenceGenerator(),
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:  userRepo,
		AgentRepo: agentRepo,
	})

	var guestLimiter fiber.Handler
	if cfg.RateLimit.Enabled {
		guestLimiter = ratelimit.Middleware(
			ratelimit.NewRedisRateLimiter(redis.Client),
			ratelimit.Limits{
				RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
				RequestsPerHour:   cfg.RateLimit.RequestsPerHour,
			},
			logger,
		)
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AgentTickets:   handlers.NewAgentTicketsHandler(ticketService),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), agentRepo),
		GuestLimiter:   guestLimiter,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case sig := <-shutdownSignal():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("graceful shutdown incomplete", zap.Error(err))
	}
	logRouteStats(logger, metrics)
	return nil
}

func logRouteStats(logger *zap.Logger, metrics *observability.Metrics) {
	for _, stats := range metrics.Snapshot() {
		logger.Info("route stats",
			zap.String("method", stats.Method),
			zap.String("route", stats.Route),
			zap.Int64("requests", stats.Requests),
			zap.Int64("errors", stats.Errors),
			zap.Duration("avg_latency", stats.AverageLatency()),
		)
	}
}

func shutdownSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}

func drainNATS(conn *nats.Conn, logger *zap.Logger) {
	if err := conn.Drain(); err != nil {
		logger.Warn("nats drain failed", zap.Error(err))
	}
}
