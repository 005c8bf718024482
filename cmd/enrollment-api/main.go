package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/enrollment-intake-api/internal/handler"
	"github.com/noah-isme/enrollment-intake-api/internal/middleware"
	"github.com/noah-isme/enrollment-intake-api/internal/repository"
	"github.com/noah-isme/enrollment-intake-api/internal/service"
	"github.com/noah-isme/enrollment-intake-api/pkg/cache"
	"github.com/noah-isme/enrollment-intake-api/pkg/config"
	"github.com/noah-isme/enrollment-intake-api/pkg/database"
	"github.com/noah-isme/enrollment-intake-api/pkg/logger"
	"github.com/noah-isme/enrollment-intake-api/pkg/mail"
	corsmiddleware "github.com/noah-isme/enrollment-intake-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/enrollment-intake-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Redis only backs rate limiting; running without it degrades to a
	// per-instance in-memory limiter rather than refusing to start.
	var limiterStore middleware.BucketStore
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, falling back to in-memory rate limiting", "error", err)
		redisClient = nil
		limiterStore = middleware.NewMemoryBucketStore()
	} else {
		defer redisClient.Close() //nolint:errcheck
		limiterStore = middleware.NewRedisBucketStore(redisClient)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sender := mail.NewSMTPSender(cfg.Mail)
	notifier := service.NewNotificationService(sender, cfg.Mail, metricsSvc, logr)
	intakeSvc := service.NewIntakeService(enrollmentRepo, notifier, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, validate, logr)

	intakeHandler := handler.NewIntakeHandler(intakeSvc, metricsSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	healthHandler := handler.NewHealthHandler(enrollmentSvc, redisClient)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	limiter := middleware.NewRateLimiter(limiterStore, cfg.RateLimit, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	r.POST("/send", limiter.General(), limiter.Submission(), intakeHandler.Submit)

	api := r.Group("/api", limiter.General())
	{
		api.POST("/route", limiter.Submission(), intakeHandler.Submit)
		api.GET("/students", enrollmentHandler.List)
		api.GET("/students/stats", enrollmentHandler.Stats)
		api.GET("/students/export", enrollmentHandler.Export)
		api.GET("/students/:id", enrollmentHandler.Get)
		api.PATCH("/students/:id/status", enrollmentHandler.UpdateStatus)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
