package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/tuition-credit-api/api/swagger"
	"github.com/noah-isme/tuition-credit-api/internal/handler"
	"github.com/noah-isme/tuition-credit-api/internal/middleware"
	"github.com/noah-isme/tuition-credit-api/internal/repository"
	"github.com/noah-isme/tuition-credit-api/internal/service"
	"github.com/noah-isme/tuition-credit-api/pkg/cache"
	"github.com/noah-isme/tuition-credit-api/pkg/config"
	"github.com/noah-isme/tuition-credit-api/pkg/database"
	"github.com/noah-isme/tuition-credit-api/pkg/jobs"
	"github.com/noah-isme/tuition-credit-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tuition-credit-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tuition-credit-api/pkg/middleware/requestid"
)

// @title Tuition Credit API
// @version 1.0.0
// @description Enrollment and session-credit ledger for the tuition center
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, credit caching disabled", "error", err)
		redisClient = nil
	}
	if !cfg.Credits.CacheEnabled {
		redisClient = nil
	}

	metrics := service.NewMetricsService()

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	extensionRepo := repository.NewExtensionRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, orderRepo, courseRepo, cacheRepo, metrics, nil, logr)
	creditSvc := service.NewCreditService(enrollmentRepo, extensionRepo, cacheRepo, metrics, service.CreditServiceConfig{
		CacheTTL:          cfg.Credits.CacheTTL,
		ExpiringThreshold: cfg.Credits.ExpiringThreshold,
		ExpiringWindow:    cfg.Credits.ExpiringWindow,
	}, nil, logr)

	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	creditHandler := handler.NewCreditHandler(creditSvc)
	extensionHandler := handler.NewExtensionHandler(creditSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/orders/:id/complete", enrollmentHandler.CompleteOrder)

		api.GET("/enrollments", enrollmentHandler.List)
		api.GET("/enrollments/expiring", creditHandler.Expiring)
		api.GET("/enrollments/:id", enrollmentHandler.Get)
		api.POST("/enrollments/:id/extensions", extensionHandler.Create)
		api.GET("/enrollments/:id/extensions", extensionHandler.List)

		api.GET("/students/:id/credits", creditHandler.StudentCredits)
		api.GET("/students/:id/credits/valid", creditHandler.StudentValidCredits)

		api.POST("/admin/expiry-sweep", creditHandler.Sweep)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sweep.Enabled {
		sweepQueue := jobs.NewQueue("expiry-sweep", func(ctx context.Context, job jobs.Job) error {
			result, err := creditSvc.SweepExpired(ctx)
			if err != nil {
				return err
			}
			logr.Sugar().Infow("scheduled expiry sweep finished", "job_id", job.ID, "updated", result.UpdatedCount)
			return nil
		}, jobs.QueueConfig{
			Workers:    1,
			MaxRetries: cfg.Sweep.MaxRetries,
			RetryDelay: cfg.Sweep.RetryDelay,
			Logger:     logr,
		})
		sweepQueue.Start(ctx)
		defer sweepQueue.Stop()

		go func() {
			ticker := time.NewTicker(cfg.Sweep.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := sweepQueue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "expiry-sweep"}); err != nil {
						logr.Sugar().Warnw("failed to enqueue expiry sweep", "error", err)
					}
				}
			}
		}()
		logr.Sugar().Infow("expiry sweep scheduled", "interval", cfg.Sweep.Interval.String())
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
