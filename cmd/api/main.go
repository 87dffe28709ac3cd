package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/bbec/class-ops-api/api/swagger"
	"github.com/bbec/class-ops-api/internal/handler"
	"github.com/bbec/class-ops-api/internal/middleware"
	"github.com/bbec/class-ops-api/internal/repository"
	"github.com/bbec/class-ops-api/internal/service"
	"github.com/bbec/class-ops-api/pkg/cache"
	"github.com/bbec/class-ops-api/pkg/config"
	"github.com/bbec/class-ops-api/pkg/database"
	"github.com/bbec/class-ops-api/pkg/logger"
	corsmiddleware "github.com/bbec/class-ops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bbec/class-ops-api/pkg/middleware/requestid"
)

// @title Class Ops API
// @version 1.0.0
// @description Class scheduling and billing service
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	location, err := time.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid business timezone", "timezone", cfg.Billing.Timezone, "error", err)
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Reports.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, report cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, true)
		}
	}

	validate := validator.New()

	sessionRepo := repository.NewSessionRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	uploadSvc := service.NewUploadService(uploadRepo, sessionRepo, logr)

	sessionSvc := service.NewSessionService(sessionRepo, courseRepo, userRepo, uploadSvc, cacheSvc, validate, logr, service.SessionServiceConfig{
		DefaultHours: mustDecimal(cfg.Billing.DefaultHours, "1.5"),
		DefaultRate:  mustDecimal(cfg.Billing.DefaultRate, "600"),
		Location:     location,
	})

	reportSvc := service.NewReportService(sessionRepo, uploadRepo, cacheSvc, logr, location, cfg.Reports.CacheTTL)
	billingSvc := service.NewBillingService(sessionRepo, uploadRepo, metricsSvc, logr, location)
	exportSvc := service.NewExportService(cfg.Billing.BusinessName)
	directorySvc := service.NewDirectoryService(courseRepo, userRepo)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, authSvc, handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Sessions:  handler.NewSessionHandler(sessionSvc),
		Uploads:   handler.NewUploadHandler(uploadSvc),
		Reports:   handler.NewReportHandler(reportSvc),
		Billing:   handler.NewBillingHandler(billingSvc, exportSvc),
		Directory: handler.NewDirectoryHandler(directorySvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("timezone", cfg.Billing.Timezone))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func mustDecimal(raw, fallback string) decimal.Decimal {
	if d, err := decimal.NewFromString(raw); err == nil {
		return d
	}
	return decimal.RequireFromString(fallback)
}
