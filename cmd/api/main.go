package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/integration-service/internal/api/http"
	"github.com/spec-kit/integration-service/internal/api/http/handlers"
	"github.com/spec-kit/integration-service/internal/auth"
	"github.com/spec-kit/integration-service/internal/config"
	"github.com/spec-kit/integration-service/internal/events"
	"github.com/spec-kit/integration-service/internal/jira"
	"github.com/spec-kit/integration-service/internal/monitor"
	"github.com/spec-kit/integration-service/internal/observability"
	"github.com/spec-kit/integration-service/internal/persistence"
	"github.com/spec-kit/integration-service/internal/repository"
	"github.com/spec-kit/integration-service/internal/service"
	"github.com/spec-kit/integration-service/internal/slack"
	"github.com/spec-kit/integration-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	threadRepo := repository.NewThreadRepository(pool)
	linkRepo := repository.NewLinkRepository(pool)
	replySyncRepo := repository.NewReplySyncRepository(pool)
	closureRepo := repository.NewClosureNotificationRepository(pool)

	trackerClient := jira.NewClient(cfg.Jira)
	if cfg.Jira.UseMockClient() {
		logger.Warn("tracker credentials missing; using mock jira client")
	}
	chatClient := slack.NewClient(cfg.Slack)
	if cfg.Slack.UseMockClient() {
		logger.Warn("chat credentials missing; using mock slack client")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	notificationService := service.NewNotificationService(dispatcher, logger)
	notificationService.RegisterHandlers()

	ticketMonitor := monitor.NewTicketMonitor(ticketRepo, trackerClient, logger)

	threadWorkflow := service.NewThreadWorkflow(cfg, service.ThreadWorkflowDependencies{
		ThreadRepo: threadRepo,
		LinkRepo:   linkRepo,
		Chat:       chatClient,
		Tracker:    trackerClient,
		Logger:     logger,
	})

	closureNotifier := service.NewClosureNotifier(cfg, service.ClosureDependencies{
		ThreadRepo:  threadRepo,
		ClosureRepo: closureRepo,
		Chat:        chatClient,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	replySyncEngine := service.NewReplySyncEngine(service.ReplySyncDependencies{
		TicketRepo:    ticketRepo,
		ThreadRepo:    threadRepo,
		LinkRepo:      linkRepo,
		ReplySyncRepo: replySyncRepo,
		Chat:          chatClient,
		Tracker:       trackerClient,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		FetchLimit:    cfg.Sync.ReplyFetchLimit,
	})

	orchestrator := service.NewOrchestrator(cfg, service.OrchestratorDependencies{
		Monitor:    ticketMonitor,
		Workflow:   threadWorkflow,
		Notifier:   closureNotifier,
		ThreadRepo: threadRepo,
		LinkRepo:   linkRepo,
		Chat:       chatClient,
		Locks:      redis,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	adminMiddleware := auth.NewAdminMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	webhookHandler := handlers.NewWebhookHandler(orchestrator, cfg.Jira.WebhookSecret)
	syncHandler := handlers.NewSyncHandler(orchestrator, replySyncEngine, metrics)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          healthHandler,
		Webhook:         webhookHandler,
		Sync:            syncHandler,
		AdminMiddleware: adminMiddleware,
	})

	if cfg.Sync.BatchWorkerEnabled {
		syncWorker := worker.NewSyncWorker(cfg.Sync, replySyncEngine, redis, logger)
		go syncWorker.Run(ctx)
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
