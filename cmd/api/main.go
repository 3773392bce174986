package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/carelog/carelog/internal/api/http"
	"github.com/carelog/carelog/internal/api/http/handlers"
	"github.com/carelog/carelog/internal/auth"
	"github.com/carelog/carelog/internal/config"
	"github.com/carelog/carelog/internal/events"
	"github.com/carelog/carelog/internal/mailer"
	"github.com/carelog/carelog/internal/observability"
	"github.com/carelog/carelog/internal/persistence"
	"github.com/carelog/carelog/internal/repository"
	"github.com/carelog/carelog/internal/service"
	"github.com/carelog/carelog/internal/summarizer"
	"github.com/carelog/carelog/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	orgRepo := repository.NewOrganizationRepository(pool)
	locationRepo := repository.NewLocationRepository(pool)
	hardwareRepo := repository.NewHardwareRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	eventRepo := repository.NewTicketEventRepository(pool)
	commentRepo := repository.NewTicketCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	timingRepo := repository.NewTimingRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, userRepo)
	authService := service.NewAuthService(userRepo, orgRepo, tokenManager, cfg.Auth)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		EventRepo:      eventRepo,
		CommentRepo:    commentRepo,
		AttachmentRepo: attachmentRepo,
		UserRepo:       userRepo,
		OrgRepo:        orgRepo,
		LocationRepo:   locationRepo,
		HardwareRepo:   hardwareRepo,
		TimingRepo:     timingRepo,
		Numbers:        service.NewRedisNumberAllocator(redis.Client),
		Dispatcher:     dispatcher,
		Logger:         logger,
	})

	mail := mailer.NewResendMailer(cfg.Email, logger)
	notificationService := service.NewNotificationService(notificationRepo, ticketRepo, userRepo, mail, metrics, logger)
	notificationService.Register(dispatcher)

	summaryProvider := summarizer.NewOpenAI(cfg.Summarizer, logger)
	summaryService := service.NewSummaryService(ticketRepo, commentRepo, eventRepo, userRepo, summaryProvider, logger)
	summaryWorker := worker.NewSummaryWorker(summaryService, cfg.Summarizer.SweepInterval(), metrics, logger)
	summaryWorker.Register(dispatcher)
	go summaryWorker.Run(ctx)

	importService := service.NewHardwareImportService(hardwareRepo, orgRepo, locationRepo, cfg.Import, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis, cfg.App.Version),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService, summaryService),
		Hardware:       handlers.NewHardwareHandler(hardwareRepo, orgRepo, locationRepo, importService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Webhooks:       handlers.NewWebhooksHandler(cfg.Email.WebhookSigningKey, logger),
		AuthMiddleware: authMiddleware,
	})

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
