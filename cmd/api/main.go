package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/booking-service/internal/api/dto"
	httptransport "github.com/spec-kit/booking-service/internal/api/http"
	"github.com/spec-kit/booking-service/internal/api/http/handlers"
	"github.com/spec-kit/booking-service/internal/auth"
	"github.com/spec-kit/booking-service/internal/config"
	"github.com/spec-kit/booking-service/internal/events"
	"github.com/spec-kit/booking-service/internal/observability"
	"github.com/spec-kit/booking-service/internal/persistence"
	"github.com/spec-kit/booking-service/internal/repository"
	"github.com/spec-kit/booking-service/internal/repository/memory"
	"github.com/spec-kit/booking-service/internal/service"
	"github.com/spec-kit/booking-service/internal/worker"
)

type stores struct {
	tx       repository.TxManager
	users    repository.UserRepository
	rooms    repository.RoomRepository
	bookings repository.BookingRepository
}

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

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	st := openStores(pg)
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	bookingDeps := service.BookingDependencies{
		TxManager:   st.tx,
		BookingRepo: st.bookings,
		RoomRepo:    st.rooms,
		UserRepo:    st.users,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		Location:    cfg.App.Location(),
	}
	bookingService := service.NewBookingService(bookingDeps)
	expiryService := service.NewExpiryService(bookingDeps)
	roomService := service.NewRoomService(st.rooms, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(cfg.Auth, st.users, tokens)
	seedAdmin(ctx, cfg.Auth, authService, logger)

	if cfg.Sweeper.Enabled {
		expiryWorker := startExpiryWorker(ctx, cfg, expiryService, redis, logger)
		defer expiryWorker.Stop()
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	validator := dto.NewValidator()
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService, service.NewUserService(cfg.Auth, st.users, logger), validator),
		Bookings:       handlers.NewBookingsHandler(bookingService, validator),
		Rooms:          handlers.NewRoomsHandler(roomService, bookingService, validator),
		Admin:          handlers.NewAdminHandler(expiryService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, st.users),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func openStores(pg *persistence.Postgres) stores {
	if !pg.Enabled() {
		mem := memory.NewStore()
		return stores{tx: mem, users: mem.Users(), rooms: mem.Rooms(), bookings: mem.Bookings()}
	}
	pool := pg.PoolHandle()
	return stores{
		tx:       repository.NewTxManager(pool),
		users:    repository.NewUserRepository(pool),
		rooms:    repository.NewRoomRepository(pool),
		bookings: repository.NewBookingRepository(pool),
	}
}

func seedAdmin(ctx context.Context, cfg config.AuthConfig, authService *service.AuthService, logger *zap.Logger) {
	if cfg.AdminUsername == "" || cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	created, err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}
	if created {
		logger.Info("admin account created", zap.String("username", cfg.AdminUsername))
	}
}

func startExpiryWorker(ctx context.Context, cfg *config.Config, sweeper worker.Sweeper, redis *persistence.Redis, logger *zap.Logger) *worker.ExpiryWorker {
	hour, minute, err := cfg.Sweeper.Clock()
	if err != nil {
		logger.Fatal("invalid SWEEP_AT", zap.Error(err))
	}

	var client goredis.UniversalClient
	if redis.Enabled() {
		client = redis.Client
	}
	lock := worker.NewRedisLock(client, config.NewCircuitBreaker("Redis-SweepLock", logger), logger)

	w := worker.NewExpiryWorker(sweeper, lock, worker.ExpiryWorkerConfig{
		Hour:       hour,
		Minute:     minute,
		Location:   cfg.App.Location(),
		RunOnStart: cfg.Sweeper.RunOnStart,
		LockKey:    cfg.Sweeper.LockKey,
		LockTTL:    cfg.Sweeper.LockTTL(),
	}, logger)
	w.Start(ctx)
	return w
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
