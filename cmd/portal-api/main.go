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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edustack/portal-api/api/swagger"
	"github.com/edustack/portal-api/internal/handler"
	"github.com/edustack/portal-api/internal/middleware"
	"github.com/edustack/portal-api/internal/repository"
	"github.com/edustack/portal-api/internal/service"
	"github.com/edustack/portal-api/pkg/cache"
	"github.com/edustack/portal-api/pkg/config"
	"github.com/edustack/portal-api/pkg/database"
	"github.com/edustack/portal-api/pkg/jobs"
	"github.com/edustack/portal-api/pkg/logger"
	corsmiddleware "github.com/edustack/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edustack/portal-api/pkg/middleware/requestid"
	"github.com/edustack/portal-api/pkg/storage"
)

// @title Student Portal Drive API
// @version 1.0.0
// @description Hierarchical file/folder drive with trash, restore, and retention sweeping
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
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Drive.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, path cache disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	blobStore, err := storage.NewBlobStore(cfg.Blob.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init blob store", "error", err)
	}

	folderRepo := repository.NewFolderRepository(db)
	fileRepo := repository.NewFileRepository(db)
	trashRepo := repository.NewTrashRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Drive.PathCacheTTL, logr, cfg.Drive.CacheEnabled && redisClient != nil)
	events := service.NewEventBroker(logr)
	pathSvc := service.NewPathService(folderRepo, cacheSvc, cfg.Drive.MaxDepth, logr)

	treeSvc := service.NewTreeService(folderRepo, fileRepo, pathSvc, events, metricsSvc, logr, service.TreeServiceConfig{
		MaxNameLength: cfg.Drive.MaxNameLength,
	})
	fileSvc := service.NewFileService(fileRepo, folderRepo, blobStore, events, metricsSvc, logr, service.FileServiceConfig{
		MaxNameLength: cfg.Drive.MaxNameLength,
	})

	cleanupSvc := service.NewBlobCleanupService(blobStore, logr, jobs.QueueConfig{Logger: logr})
	trashSvc := service.NewTrashService(trashRepo, folderRepo, fileRepo, pathSvc, events, metricsSvc, cleanupSvc, logr, service.TrashServiceConfig{
		RetentionWindow: cfg.Trash.RetentionWindow,
	})
	exportSvc := service.NewExportService(trashSvc, logr)
	sweeperSvc := service.NewSweeperService(trashSvc, metricsSvc, cfg.Trash.SweepInterval, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	if cfg.Trash.SweepEnabled {
		sweeperSvc.Start(ctx)
		defer sweeperSvc.Stop()
	}

	folderHandler := handler.NewFolderHandler(treeSvc, trashSvc)
	fileHandler := handler.NewFileHandler(fileSvc, trashSvc)
	driveHandler := handler.NewDriveHandler(treeSvc, trashSvc, events)
	trashHandler := handler.NewTrashHandler(trashSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	verifier := middleware.NewTokenVerifier(cfg.JWT.Secret)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(verifier))

	drive := api.Group("/drive")
	{
		drive.POST("/folders", folderHandler.Create)
		drive.GET("/folders", folderHandler.List)
		drive.GET("/folders/:id/breadcrumbs", folderHandler.Breadcrumbs)
		drive.PATCH("/folders/:id", folderHandler.Rename)
		drive.DELETE("/folders/:id", folderHandler.Delete)

		drive.POST("/files", fileHandler.Upload)
		drive.GET("/files", fileHandler.List)
		drive.GET("/files/:id/download", fileHandler.Download)
		drive.PATCH("/files/:id", fileHandler.Update)
		drive.DELETE("/files/:id", fileHandler.Delete)

		drive.POST("/move", driveHandler.Move)
		drive.GET("/stats", driveHandler.Stats)
		drive.GET("/events", driveHandler.Events)

		drive.GET("/trash", trashHandler.List)
		drive.DELETE("/trash", trashHandler.Empty)
		drive.POST("/trash/:id/restore", trashHandler.Restore)
		drive.DELETE("/trash/:id", middleware.RequireStaff(), trashHandler.Purge)
		drive.POST("/trash/folders/:id/restore", trashHandler.RestoreFolder)

		if cfg.Exports.Enabled {
			drive.GET("/trash/export", middleware.RequireStaff(), trashHandler.Export)
		}
	}

	api.GET("/metrics", middleware.RequireStaff(), metricsHandler.Prometheus)
	api.GET("/admin/metrics", middleware.RequireStaff(), metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
