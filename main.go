package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"home-services-api/cache"
	"home-services-api/config"
	"home-services-api/gateway"
	"home-services-api/handlers"
	"home-services-api/jobs"
	"home-services-api/logger"
	"home-services-api/metrics"
	"home-services-api/middleware"
	"home-services-api/migrations"
	"home-services-api/notify"
	"home-services-api/routes"
	"home-services-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const jobTimeout = 2 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.Init(cfg.Logging, cfg.IsProduction())
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := config.InitDB(cfg.Database)
	if err != nil {
		logger.Fatal("failed to open database", err)
	}
	if err := migrations.Run(db, cfg.Database.Driver, cfg.Database.DSN); err != nil {
		logger.Fatal("failed to migrate database", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to get sql handle", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher, err := notify.NewDispatcher(notify.NewMailer(cfg.SMTP), cfg.SMTP.Workers)
	if err != nil {
		logger.Fatal("failed to start mail pool", err)
	}

	var catalogCache cache.CatalogCache = cache.Nop{}
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		redisCache, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			catalogCache = redisCache
		}
	}

	tokens := middleware.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL)
	svc := services.New(services.Deps{
		DB:      db,
		Config:  cfg,
		Tokens:  tokens,
		Gateway: gateway.NewClient(cfg.Cashfree),
		Mail:    dispatcher,
		Cache:   catalogCache,
	})

	if err := svc.Auth.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Fatal("failed to seed admin", err)
	}

	handlers.RegisterValidators()
	h := handlers.New(svc, !cfg.IsProduction())
	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst)

	r := gin.New()
	r.Use(gin.Recovery(), logger.GinLogger(), middleware.CORS(), metrics.GinMiddleware())

	r.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := config.Ping(pingCtx, sqlDB); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Home Services Marketplace API",
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Home Services Marketplace API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"USER", "VENDOR", "ADMIN"},
		})
	})

	routes.SetupRoutes(r, h, tokens, authLimiter)

	scheduler := jobs.New(jobTimeout)
	if err := jobs.RegisterDefaults(scheduler, cfg.Reconcile, svc.Payments, authLimiter); err != nil {
		logger.Fatal("failed to register jobs", err)
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	dispatcher.Close()
	if redisCache != nil {
		_ = redisCache.Close()
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("close database", zap.Error(err))
	}
}
