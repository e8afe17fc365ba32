package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/qau-se/cfms-api/api/swagger"
	"github.com/qau-se/cfms-api/internal/handler"
	"github.com/qau-se/cfms-api/internal/middleware"
	"github.com/qau-se/cfms-api/internal/models"
	"github.com/qau-se/cfms-api/internal/repository"
	"github.com/qau-se/cfms-api/internal/service"
	"github.com/qau-se/cfms-api/pkg/broadcast"
	"github.com/qau-se/cfms-api/pkg/cache"
	"github.com/qau-se/cfms-api/pkg/config"
	"github.com/qau-se/cfms-api/pkg/database"
	"github.com/qau-se/cfms-api/pkg/export"
	"github.com/qau-se/cfms-api/pkg/jobs"
	"github.com/qau-se/cfms-api/pkg/logger"
	corsmiddleware "github.com/qau-se/cfms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/qau-se/cfms-api/pkg/middleware/requestid"
	"github.com/qau-se/cfms-api/pkg/storage"
)

// @title CFMS API
// @version 1.0.0
// @description Course folder management system: folder lifecycle, review feedback and report generation
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
		logr.Sugar().Warnw("redis unavailable, degrading to in-process broadcast and no cache", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	folderRepo := repository.NewFolderRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	historyRepo := repository.NewStatusHistoryRepository(db)
	deadlineRepo := repository.NewDeadlineRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metrics := service.NewMetricsService()
	validate := validator.New()

	// The feedback broadcast rides Redis pub/sub when available so every
	// API instance sees writes from every other one.
	var bus broadcast.Bus
	if redisClient != nil {
		bus = broadcast.NewRedisBus(redisClient, cfg.Feedback.BroadcastChannel, logr)
	} else {
		bus = broadcast.NewMemoryBus()
	}

	persistSection := func(ctx context.Context, folderID, section string, content json.RawMessage) error {
		start := time.Now()
		err := folderRepo.UpdateSection(ctx, folderID, section, content)
		metrics.ObserveDBQuery("folder_update_section", time.Since(start))
		return err
	}
	sessions := service.NewSessionManager(persistSection, service.SessionManagerConfig{
		DebounceWindow: cfg.Autosave.DebounceWindow,
		PersistTimeout: cfg.Autosave.PersistTimeout,
		IdleTTL:        cfg.Autosave.SessionIdleTTL,
		SweepInterval:  cfg.Autosave.SweepInterval,
		MaxSessions:    cfg.Autosave.MaxSessionCount,
	}, logr, metrics)
	sessions.Start(rootCtx)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "cfms-api",
	})
	notificationService := service.NewNotificationService(notificationRepo, userRepo, logr)
	deadlineService := service.NewDeadlineService(deadlineRepo, validate, logr)
	folderService := service.NewFolderService(folderRepo, service.NewStatusRegistry(), service.NewPermissionEvaluator(), sessions, historyRepo, notificationService, deadlineService, validate, logr)
	feedbackService := service.NewFeedbackService(feedbackRepo, meteredBus{bus: bus, metrics: metrics}, logr)
	auditService := service.NewAuditService(auditRepo, folderService, logr)

	// Report pipeline: queue -> worker -> export -> signed download.
	var reportService *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportService := service.NewExportService(folderRepo, feedbackRepo, historyRepo, userRepo, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, export.NewReviewReportRenderer())

		worker := service.NewReportWorker(reportRepo, exportService, notificationService, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("review-reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(rootCtx)
		defer queue.Stop()

		reportService = service.NewReportService(reportRepo, queue, exportService, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: time.Hour,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportService.RecoverPendingJobs(rootCtx)
		reportService.StartCleanup(rootCtx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authService)
	folderHandler := handler.NewFolderHandler(folderService)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService)
	deadlineHandler := handler.NewDeadlineHandler(deadlineService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	auditHandler := handler.NewAuditHandler(auditService)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	authed := auth.Group("", middleware.JWT(authService))
	authed.POST("/logout", authHandler.Logout)
	authed.POST("/change-password", authHandler.ChangePassword)
	authed.GET("/me", authHandler.Me)

	folders := api.Group("/folders", middleware.JWT(authService))
	folders.Use(middleware.CacheResponse(cacheRepo, metrics, cfg.Folders.CacheTTL))
	folders.POST("", middleware.RequireRoles(models.RoleFaculty), folderHandler.Create)
	folders.GET("", folderHandler.List)
	folders.GET("/status-counts", folderHandler.StatusCounts)
	folders.GET("/:id", folderHandler.Get)
	folders.GET("/:id/history", folderHandler.History)
	folders.PUT("/:id/sections/:section", middleware.RequireRoles(models.RoleFaculty), folderHandler.EditSection)
	folders.POST("/:id/flush", middleware.RequireRoles(models.RoleFaculty), folderHandler.FlushEdits)
	folders.DELETE("/:id/session", middleware.RequireRoles(models.RoleFaculty), folderHandler.CloseSession)
	folders.POST("/:id/session/hide", middleware.RequireRoles(models.RoleFaculty), folderHandler.HideSession)
	folders.POST("/:id/session/beacon", middleware.RequireRoles(models.RoleFaculty), folderHandler.Beacon)
	folders.POST("/:id/submit", middleware.RequireRoles(models.RoleFaculty), folderHandler.Submit)
	folders.POST("/:id/decide", middleware.RequireRoles(models.RoleCoordinator, models.RoleAuditMember, models.RoleConvener, models.RoleHOD), folderHandler.Decide)
	folders.GET("/:id/feedback", feedbackHandler.Get)
	folders.PUT("/:id/feedback", middleware.RequireRoles(models.RoleCoordinator, models.RoleAuditMember), feedbackHandler.Put)
	folders.POST("/:id/audit", middleware.RequireRoles(models.RoleConvener), auditHandler.Assign)
	folders.GET("/:id/audit", auditHandler.List)
	folders.POST("/:id/audit/decision", middleware.RequireRoles(models.RoleAuditMember), auditHandler.SubmitDecision)

	deadlines := api.Group("/deadlines", middleware.JWT(authService))
	deadlines.PUT("", middleware.RequireRoles(models.RoleHOD), deadlineHandler.Set)
	deadlines.GET("", deadlineHandler.List)

	notifications := api.Group("/notifications", middleware.JWT(authService))
	notifications.GET("", notificationHandler.List)
	notifications.POST("/:id/read", notificationHandler.MarkRead)
	notifications.POST("/read-all", notificationHandler.MarkAllRead)

	if reportService != nil {
		reportHandler := handler.NewReportHandler(reportService)
		folders.POST("/:id/report", reportHandler.Create)
		reports := api.Group("/reports")
		reports.GET("/download/:token", reportHandler.Download)
		reports.GET("/:id", middleware.JWT(authService), reportHandler.Status)
	}

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown error", "error", err)
	}

	// Flush buffered autosave state before the process exits.
	sessions.Stop()
	rootCancel()
}

// meteredBus counts accepted feedback broadcasts while delegating to
// the underlying bus.
type meteredBus struct {
	bus     broadcast.Bus
	metrics *service.MetricsService
}

func (b meteredBus) Publish(ctx context.Context, event broadcast.Event) error {
	if err := b.bus.Publish(ctx, event); err != nil {
		return err
	}
	b.metrics.ObserveFeedbackBroadcast()
	return nil
}
