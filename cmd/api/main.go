package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/blood-drive-checkin/internal/api/dto"
	httptransport "github.com/spec-kit/blood-drive-checkin/internal/api/http"
	"github.com/spec-kit/blood-drive-checkin/internal/api/http/handlers"
	"github.com/spec-kit/blood-drive-checkin/internal/auth"
	"github.com/spec-kit/blood-drive-checkin/internal/config"
	"github.com/spec-kit/blood-drive-checkin/internal/events"
	"github.com/spec-kit/blood-drive-checkin/internal/observability"
	"github.com/spec-kit/blood-drive-checkin/internal/persistence"
	"github.com/spec-kit/blood-drive-checkin/internal/queue"
	"github.com/spec-kit/blood-drive-checkin/internal/realtime"
	"github.com/spec-kit/blood-drive-checkin/internal/repository"
	"github.com/spec-kit/blood-drive-checkin/internal/service"
	"github.com/spec-kit/blood-drive-checkin/internal/visit"
	"github.com/spec-kit/blood-drive-checkin/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis, err := persistence.NewRedis(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redis.Close()

	pool := pg.PoolHandle()
	campaignRepo := repository.NewCampaignRepository(pool)
	registrationRepo := repository.NewRegistrationRepository(pool)
	historyRepo := repository.NewRegistrationHistoryRepository(pool)
	donorRepo := repository.NewDonorRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(func(event events.Event, err error) {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	})

	assignerOpts := []queue.Option{
		queue.WithMaxRetries(cfg.Queue.MaxRetries),
		queue.WithConflictHook(metrics.RecordQueueConflict),
	}
	var assigner queue.Assigner
	switch cfg.Queue.Strategy {
	case config.QueueStrategyRedis:
		assigner = queue.NewRedisAssigner(redis.Client, registrationRepo, assignerOpts...)
	default:
		assigner = queue.NewDatabaseAssigner(registrationRepo, assignerOpts...)
	}

	var latch visit.Latch
	switch cfg.Visit.Backend {
	case config.VisitBackendRedis:
		latch = visit.NewRedisLatch(redis.Client, cfg.Visit.TTL())
	default:
		latch = visit.NewMemoryLatch(cfg.Visit.TTL())
	}

	checkinService := service.NewCheckinService(service.CheckinDependencies{
		RegistrationRepo: registrationRepo,
		HistoryRepo:      historyRepo,
		Assigner:         assigner,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
	})
	selfCheckinService := service.NewSelfCheckinService(service.SelfCheckinDependencies{
		CampaignRepo:     campaignRepo,
		RegistrationRepo: registrationRepo,
		Checkins:         checkinService,
		Latch:            latch,
		LoginURL:         cfg.App.LoginURL,
		Logger:           logger,
	})
	staffService := service.NewStaffService(service.StaffDependencies{
		CampaignRepo:     campaignRepo,
		RegistrationRepo: registrationRepo,
		HistoryRepo:      historyRepo,
		Checkins:         checkinService,
		Dispatcher:       dispatcher,
		BoardSize:        cfg.Kiosk.BoardSize,
		Logger:           logger,
	})
	boardService := service.NewBoardService(service.BoardDependencies{
		CampaignRepo:     campaignRepo,
		RegistrationRepo: registrationRepo,
		PublicBaseURL:    cfg.App.PublicBaseURL,
		Size:             cfg.Kiosk.BoardSize,
	})

	hub := realtime.NewHub(logger, metrics)
	refresher := worker.NewBoardRefresher(worker.BoardRefresherConfig{
		Source:           boardService,
		Hub:              hub,
		Encode:           dto.EncodeBoard,
		Interval:         cfg.Kiosk.PollInterval(),
		RefreshPerSecond: cfg.Kiosk.RefreshPerSecond,
		Logger:           logger,
	})
	refresher.Subscribe(dispatcher)
	go refresher.Run(ctx)

	worker.StartActivityWorker(service.NewActivityService(dispatcher, logger))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, donorRepo, staffRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.App.CORSAllowOrigins)

	dependencies := map[string]handlers.Pinger{"postgres": pg}
	if redis.Enabled() {
		dependencies["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:           handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Checkin:          handlers.NewCheckinHandler(selfCheckinService),
		Staff:            handlers.NewStaffHandler(staffService),
		Kiosk:            handlers.NewKioskHandler(boardService, hub, logger),
		AuthMiddleware:   authMiddleware,
		Metrics:          metrics,
		KioskUsername:    cfg.Kiosk.Username,
		KioskPassHash:    cfg.Kiosk.PasswordHash,
		CheckinPerMinute: cfg.App.CheckinPerMinute,
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
