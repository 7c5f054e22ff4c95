package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/elingeyesdev/tickets-incidentes-sub013/internal/api/http"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/api/http/handlers"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/auth"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/config"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/events"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/observability"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/persistence"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/repository"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/service"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/worker"
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
	txManager := repository.NewTxManager(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	responseRepo := repository.NewResponseRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(cfg.Auth, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		ResponseRepo: responseRepo,
		CategoryRepo: categoryRepo,
		HistoryRepo:  historyRepo,
		TxManager:    txManager,
		Dispatcher:   dispatcher,
		Policy:       cfg.TicketPolicy,
	})
	responseService := service.NewResponseService(service.ResponseDependencies{
		TicketRepo:   ticketRepo,
		ResponseRepo: responseRepo,
		HistoryRepo:  historyRepo,
		TxManager:    txManager,
		Dispatcher:   dispatcher,
		Policy:       cfg.TicketPolicy,
	})
	attachmentService := service.NewAttachmentService(service.AttachmentDependencies{
		TicketRepo:     ticketRepo,
		ResponseRepo:   responseRepo,
		AttachmentRepo: attachmentRepo,
		TxManager:      txManager,
		Dispatcher:     dispatcher,
		Policy:         cfg.TicketPolicy,
	})
	categoryService := service.NewCategoryService(service.CategoryDependencies{
		CategoryRepo: categoryRepo,
		TicketRepo:   ticketRepo,
		TxManager:    txManager,
		Dispatcher:   dispatcher,
		Policy:       cfg.TicketPolicy,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, redis, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, responseService, attachmentService),
		Categories:     handlers.NewCategoriesHandler(categoryService),
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
