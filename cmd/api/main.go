package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fieldops/workorder-service/internal/api/http"
	"github.com/fieldops/workorder-service/internal/api/http/handlers"
	"github.com/fieldops/workorder-service/internal/auth"
	"github.com/fieldops/workorder-service/internal/config"
	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/events"
	"github.com/fieldops/workorder-service/internal/notify"
	"github.com/fieldops/workorder-service/internal/observability"
	"github.com/fieldops/workorder-service/internal/persistence"
	"github.com/fieldops/workorder-service/internal/repository"
	"github.com/fieldops/workorder-service/internal/service"
	"github.com/fieldops/workorder-service/internal/worker"
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
	workOrderRepo := repository.NewWorkOrderRepository(pool)
	noteRepo := repository.NewNoteRepository(pool)
	signatureRepo := repository.NewSignatureRepository(pool)
	technicianRepo := repository.NewTechnicianRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notifier := notify.NewEmailNotifier(logger, cfg.Notification)
	metrics := observability.NewMetrics()

	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		WorkOrderRepo:  workOrderRepo,
		NoteRepo:       noteRepo,
		SignatureRepo:  signatureRepo,
		TechnicianRepo: technicianRepo,
		Dispatcher:     dispatcher,
	})
	urgency := domain.UrgencyPolicy{Threshold: cfg.Alerts.UrgencyThreshold()}
	digestService := service.NewDigestService(workOrderRepo, technicianRepo, urgency)
	alertService := service.NewAlertService(digestService, notifier, redis.NewLocker(), dispatcher, logger, cfg.Alerts)
	authService := service.NewAuthService(technicianRepo, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes))
	notificationService := service.NewNotificationService(dispatcher, notifier, logger, metrics, cfg.Alerts)

	worker.StartNotificationHandlers(notificationService)
	worker.StartAlertWorker(ctx, alertService, logger, cfg.Alerts)

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), technicianRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		WorkOrders:     handlers.NewWorkOrdersHandler(lifecycleService),
		Alerts:         handlers.NewAlertsHandler(digestService, alertService, redis),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
