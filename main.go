package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"storyfeed-api/handlers"
	"storyfeed-api/initializers"
	"storyfeed-api/middleware"
	"storyfeed-api/pkg/activity"
	"storyfeed-api/pkg/appenv"
	"storyfeed-api/pkg/config"
	"storyfeed-api/pkg/events"
	"storyfeed-api/pkg/feed"
	"storyfeed-api/pkg/logging"
	"storyfeed-api/pkg/metrics"
	"storyfeed-api/pkg/notify"
	"storyfeed-api/repository"
	"storyfeed-api/websocket"
)

const serviceName = "storyfeed-api"

func main() {
	logger := logging.NewLoggerWithService(serviceName)
	config.LoadEnv(logger)
	logger.SetLevel(config.GetLogLevel())

	dbURL := config.RequireEnv("DATABASE_URL")
	jwtSecret := config.GetEnv("JWT_SECRET", "")
	if len(jwtSecret) < 32 {
		logger.Fatal("JWT_SECRET must be set and at least 32 characters")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initializers.ConnectDB(ctx, initializers.DBConfigFromEnv(dbURL), logger)
	if err != nil {
		logger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()

	if err := initializers.RunMigrations(db, config.GetEnv("MIGRATIONS_PATH", "file://migrations")); err != nil {
		logger.WithError(err).Fatal("Migration failed")
	}

	defaults, err := initializers.InitDefaults(ctx, db, config.GetEnv("SYSTEM_AUTHOR_USERNAME", initializers.DefaultSystemUsername))
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize default data")
	}

	catalog := activity.DefaultCatalog()
	if path := config.GetEnv("ACTIVITY_CATALOG_PATH", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.WithError(err).Fatal("Failed to read activity catalog")
		}
		if catalog, err = activity.LoadCatalog(raw); err != nil {
			logger.WithError(err).Fatal("Invalid activity catalog")
		}
	}

	activitiesRepo := repository.NewActivitiesRepository(db, catalog)
	authorsRepo := repository.NewAuthorsRepository(db)
	storiesRepo := repository.NewStoriesRepository(db)
	followsRepo := repository.NewFollowsRepository(db)

	hub := websocket.NewHub(logger)
	collector := metrics.NewCollector(serviceName, hub.Total)

	bus := events.NewBus(logger)
	bus.Subscribe(notify.NewActivityPusher(hub, logger).Handle)
	bus.Subscribe(func(_ context.Context, ev events.ActivityCreated) {
		collector.ActivityEvent(ev.ActivityType)
	})

	var publisher events.Publisher = bus
	if redisURL := config.GetEnv("REDIS_URL", ""); redisURL != "" {
		client, err := initializers.ConnectRedis(ctx, redisURL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer client.Close()

		relay := events.NewRedisRelay(client, config.GetEnv("REDIS_CHANNEL", events.DefaultRedisChannel), bus, logger)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Redis relay stopped")
			}
		}()
		publisher = relay
		logger.Info("Fan-out across instances enabled via Redis")
	}

	engine := feed.NewEngine(activitiesRepo, storiesRepo, catalog, logger)
	recorder := feed.NewRecorder(activitiesRepo, catalog, publisher, logger)

	if appenv.IsProduction() || config.GetEnv("GIN_MODE", "") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(gin.Recovery())

	if proxies := config.GetEnvList("TRUSTED_PROXIES"); len(proxies) > 0 {
		if err := r.SetTrustedProxies(proxies); err != nil {
			logger.WithError(err).Fatal("Invalid TRUSTED_PROXIES")
		}
	} else {
		_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	}

	r.Use(middleware.CORSMiddleware())
	r.Use(collector.Middleware())

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfigFromEnv())
	go limiter.Janitor(ctx)

	handlers.RegisterRoutes(r, handlers.Routes{
		Activities:     handlers.NewActivitiesHandler(engine, authorsRepo, followsRepo, activitiesRepo, collector, logger),
		Stories:        handlers.NewStoriesHandler(storiesRepo, authorsRepo, recorder, logger),
		Follows:        handlers.NewFollowsHandler(followsRepo, authorsRepo, recorder, logger),
		SystemMessages: handlers.NewSystemMessagesHandler(recorder, defaults.SystemAuthorID, logger),
		Auth:           middleware.AuthMiddleware(jwtSecret),
		Admin:          middleware.AdminMiddleware(config.GetEnv("ADMIN_TOKEN", "")),
		RateLimit:      limiter.Middleware(),
		Health:         handlers.HealthCheck(db),
		Metrics:        collector.Handler(),
		WebSocket:      websocket.ServeWS(hub),
	})

	srv := &http.Server{
		Addr:              ":" + config.GetEnv("PORT", "8080"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}
