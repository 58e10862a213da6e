package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/cojovi/material-pricing-api/api/swagger"
	"github.com/cojovi/material-pricing-api/internal/handler"
	"github.com/cojovi/material-pricing-api/internal/middleware"
	"github.com/cojovi/material-pricing-api/internal/models"
	"github.com/cojovi/material-pricing-api/internal/notify"
	"github.com/cojovi/material-pricing-api/internal/repository"
	"github.com/cojovi/material-pricing-api/internal/service"
	"github.com/cojovi/material-pricing-api/pkg/cache"
	"github.com/cojovi/material-pricing-api/pkg/config"
	"github.com/cojovi/material-pricing-api/pkg/database"
	"github.com/cojovi/material-pricing-api/pkg/logger"
	corsmiddleware "github.com/cojovi/material-pricing-api/pkg/middleware/cors"
	reqidmiddleware "github.com/cojovi/material-pricing-api/pkg/middleware/requestid"
	"github.com/cojovi/material-pricing-api/pkg/storage"
)

// @title Material Pricing API
// @version 1.0.0
// @description Construction materials pricing dashboard backend
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Dashboard aggregates fall back to direct DB reads without Redis.
		logr.Warn("redis unavailable, dashboard caching disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	localStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("export storage init failed", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	materialRepo := repository.NewMaterialRepository(db)
	historyRepo := repository.NewPriceHistoryRepository(db)
	requestRepo := repository.NewPriceRequestRepository(db)
	userRepo := repository.NewUserRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	exportRepo := repository.NewExportJobRepository(db)

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.Slack.BotToken != "" && cfg.Slack.ChannelID != "" {
		notifier = notify.NewSlackNotifier(cfg.Slack.BotToken, cfg.Slack.ChannelID)
		logr.Info("slack notifications enabled", zap.String("channel", cfg.Slack.ChannelID))
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "material-pricing-api",
	})
	materialSvc := service.NewMaterialService(materialRepo, historyRepo, notifier, metricsSvc, validate, logr)
	requestSvc := service.NewPriceRequestService(requestRepo, materialRepo, notifier, metricsSvc, validate, logr)
	importSvc := service.NewImportService(materialRepo, historyRepo, metricsSvc, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, materialRepo, historyRepo, requestRepo, redisClient, metricsSvc, cfg.Dashboard.CacheTTL, logr)
	exportSvc := service.NewExportService(exportRepo, materialRepo, historyRepo, localStorage, signer, metricsSvc, validate, cfg.Exports.WorkerConcurrency, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exportSvc.Start(ctx)
	defer exportSvc.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	materialHandler := handler.NewMaterialHandler(materialSvc)
	requestHandler := handler.NewPriceRequestHandler(requestSvc)
	importHandler := handler.NewImportHandler(importSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	// Dashboard aggregates are cached; drop them after any successful mutation.
	invalidateDashboard := func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() < http.StatusBadRequest {
			dashboardSvc.Invalidate(c.Request.Context())
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	// Download links carry their own signed token, no session required.
	api.GET("/exports/download", exportHandler.Download)

	authed := api.Group("", middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/materials", materialHandler.List)
	authed.GET("/materials/search", materialHandler.Search)
	authed.GET("/materials/:id", materialHandler.Get)
	authed.GET("/materials/:id/history", materialHandler.History)

	authed.POST("/price-change-requests", requestHandler.Submit)
	authed.GET("/price-change-requests", requestHandler.List)
	authed.GET("/price-change-requests/:id", requestHandler.Get)

	authed.GET("/price-changes/recent", dashboardHandler.RecentChanges)
	authed.GET("/dashboard/stats", dashboardHandler.Stats)
	authed.GET("/dashboard/locations", dashboardHandler.LocationPerformance)
	authed.GET("/dashboard/distributors", dashboardHandler.DistributorPerformance)
	authed.GET("/dashboard/trending", dashboardHandler.Trending)

	authed.POST("/exports", exportHandler.Create)
	authed.GET("/exports/:id", exportHandler.Status)

	admin := authed.Group("", middleware.RequireRoles(models.RoleAdmin), invalidateDashboard)
	admin.POST("/materials", middleware.Audit(userRepo, "create", "material"), materialHandler.Create)
	admin.PATCH("/materials/:id", middleware.Audit(userRepo, "update", "material"), materialHandler.Update)
	admin.DELETE("/materials/:id", middleware.Audit(userRepo, "delete", "material"), materialHandler.Delete)
	admin.POST("/materials/bulk-upload", middleware.Audit(userRepo, "import", "material"), importHandler.BulkUpload)
	admin.POST("/price-history/import", middleware.Audit(userRepo, "import", "price_history"), importHandler.ImportHistory)
	admin.POST("/price-change-requests/:id/approve", middleware.Audit(userRepo, "approve", "price_change_request"), requestHandler.Approve)
	admin.POST("/price-change-requests/:id/reject", middleware.Audit(userRepo, "reject", "price_change_request"), requestHandler.Reject)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("server shutdown failed", zap.Error(err))
	}
}
