package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "parkflow/backend/libs/redis"
	"parkflow/backend/services/parking-service/internal/config"
	"parkflow/backend/services/parking-service/internal/db"
	"parkflow/backend/services/parking-service/internal/events"
	httpserver "parkflow/backend/services/parking-service/internal/http"
	"parkflow/backend/services/parking-service/internal/http/handlers"
	"parkflow/backend/services/parking-service/internal/http/middleware"
	redisstore "parkflow/backend/services/parking-service/internal/redis"
	"parkflow/backend/services/parking-service/internal/repository"
	"parkflow/backend/services/parking-service/internal/service"
)

// App wires parking-service dependencies.
type App struct {
	server      *httpserver.Server
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, err
		}
		logger.Info("schema applied")
	}

	deps := service.Dependencies{
		Runner:    service.NewPostgresRunner(repository.NewStore(sqlDB, cfg.Database.LockTimeout)),
		Sessions:  repository.NewSessionRepository(sqlDB),
		Operators: repository.NewOperatorRepository(sqlDB),
		Zones:     repository.NewTenantRepository(sqlDB),
		Tariffs:   repository.NewTariffRepository(sqlDB),
		Clients:   repository.NewFrequentClientRepository(sqlDB),
		Bookings:  repository.NewServiceBookingRepository(sqlDB),
	}

	var redisClient *redis.Client
	if cfg.CacheEnabled() {
		redisClient, err = libredis.NewRedisClient(libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		deps.Cache = redisstore.NewStore(redisClient, cfg.Redis.TTL)
	} else {
		logger.Info("active session cache disabled")
	}

	hub := events.NewHub(cfg.Events.Buffer, logger)
	deps.Events = hub

	sessionsService := service.NewSessionsService(deps, service.Options{
		MaxTxRetries:    cfg.Billing.MaxTxRetries,
		DefaultLocation: cfg.Location(),
		CutoverHour:     cfg.Billing.DayCutoverHour,
	}, logger)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Sessions: handlers.NewSessionsHandlers(sessionsService, logger),
		Registry: handlers.NewRegistryHandlers(sessionsService, logger),
		Bookings: handlers.NewBookingsHandlers(sessionsService, logger),
		Events: handlers.NewEventsHandler(
			events.NewServer(hub, cfg.Events.PingInterval, cfg.Events.WriteTimeout, logger),
			sessionsService,
			logger,
		),
		Health:   handlers.NewHealthHandler(sqlDB),
		Tokens:   middleware.NewTokenService(cfg.JWT.Secret, cfg.JWT.Leeway),
		Logger:   logger,
	})
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
