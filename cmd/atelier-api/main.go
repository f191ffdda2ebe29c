package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/stitchline/atelier-api/api/swagger"
	"github.com/stitchline/atelier-api/internal/handler"
	"github.com/stitchline/atelier-api/internal/middleware"
	"github.com/stitchline/atelier-api/internal/models"
	"github.com/stitchline/atelier-api/internal/repository"
	"github.com/stitchline/atelier-api/internal/service"
	"github.com/stitchline/atelier-api/pkg/cache"
	"github.com/stitchline/atelier-api/pkg/config"
	"github.com/stitchline/atelier-api/pkg/database"
	"github.com/stitchline/atelier-api/pkg/jobs"
	"github.com/stitchline/atelier-api/pkg/logger"
	corsmiddleware "github.com/stitchline/atelier-api/pkg/middleware/cors"
	reqidmiddleware "github.com/stitchline/atelier-api/pkg/middleware/requestid"
	"github.com/stitchline/atelier-api/pkg/storage"
)

// @title Atelier Workflow API
// @version 0.1.0
// @description Made-to-order garment production workflow tracker
// @BasePath /api/v1
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	mediaStore, err := storage.NewMediaStore(cfg.Media.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare media storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Media.SignedURLSecret, cfg.Media.SignedURLTTL)

	// Repositories.
	packetRepo := repository.NewPacketRepository(db)
	orderRepo := repository.NewOrderItemRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Notification delivery is logging-only here; the queue gives it retry
	// and backpressure semantics without blocking mutations.
	notifier := service.NewQueueNotifier(func(ctx context.Context, event service.NotificationEvent) error {
		logr.Info("workflow event",
			zap.String("type", event.Type),
			zap.String("order_item_id", event.OrderItemID),
			zap.String("packet_id", event.PacketID),
			zap.String("actor_id", event.ActorID))
		return nil
	}, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notifier.Start(context.Background())
	defer notifier.Stop()

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, logr)
	assignmentSvc := service.NewAssignmentService(rosterRepo, logr)
	mediaClient := service.NewStorageMediaClient(mediaStore, signer)
	packetSvc := service.NewPacketService(packetRepo, orderRepo, inventoryRepo, assignmentSvc, cacheRepo, notifier, logr)
	orderSvc := service.NewOrderService(orderRepo, packetSvc, cacheRepo, notifier,
		cfg.Workflow.BoardCacheTTL, cfg.Workflow.DetailCacheTTL, logr)
	sectionSvc := service.NewSectionService(orderRepo, mediaClient, cacheRepo, notifier, logr)
	salesSvc := service.NewSalesService(orderRepo, approvalRepo, paymentRepo, cacheRepo, notifier, logr)
	exportSvc := service.NewExportService(packetRepo, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	packetHandler := handler.NewPacketHandler(packetSvc)
	sectionHandler := handler.NewSectionHandler(sectionSvc, cfg.Media.MaxFileSize)
	salesHandler := handler.NewSalesHandler(salesSvc)
	rosterHandler := handler.NewRosterHandler(assignmentSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", authHandler.Me)
	authed.GET("/board", orderHandler.Board)
	authed.GET("/metrics/snapshot", metricsHandler.Snapshot)
	authed.GET("/approvals", salesHandler.Approvals)

	orders := authed.Group("/order-items")
	{
		orders.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleSales), orderHandler.Create)
		orders.GET("/:id", orderHandler.Get)
		orders.POST("/:id/inventory-check",
			middleware.RequirePermission(models.PermissionPickMaterials), orderHandler.InventoryCheck)
		orders.POST("/:id/complete-production",
			middleware.RequirePermission(models.PermissionPickMaterials), orderHandler.CompleteProduction)
		orders.GET("/:id/packet", packetHandler.GetForOrderItem)
		orders.GET("/:id/rejections", sectionHandler.Rejections)
		orders.POST("/:id/confirm-videos",
			middleware.RequirePermission(models.PermissionReviewSections), sectionHandler.ConfirmVideos)

		sections := orders.Group("/:id/sections/:name")
		sections.Use(middleware.RequirePermission(models.PermissionReviewSections))
		{
			sections.POST("/approve", sectionHandler.Approve)
			sections.POST("/reject", sectionHandler.Reject)
			sections.POST("/video", sectionHandler.UploadVideo)
			sections.PUT("/video-ref", sectionHandler.AttachVideo)
			sections.GET("/video", sectionHandler.PlaybackURL)
		}

		sales := orders.Group("/:id")
		sales.Use(middleware.RequirePermission(models.PermissionManageSales, models.PermissionManagePayments))
		{
			sales.POST("/send-to-client", salesHandler.SendToClient)
			sales.POST("/client-approve", salesHandler.ClientApprove)
			sales.POST("/re-video", salesHandler.ReVideo)
			sales.POST("/alterations", salesHandler.Alteration)
			sales.POST("/scratch", salesHandler.Scratch)
			sales.POST("/cancel", salesHandler.Cancel)
			sales.POST("/payments", salesHandler.RecordPayment)
			sales.GET("/payments", salesHandler.Payments)
			sales.POST("/account-approve", salesHandler.AccountApprove)
			sales.POST("/dispatch", salesHandler.Dispatch)
		}
	}

	packets := authed.Group("/packets")
	{
		packets.GET("/:id", packetHandler.Get)
		packets.GET("/:id/removed-items", packetHandler.RemovedItems)
		packets.POST("/:id/assign",
			middleware.RequirePermission(models.PermissionAssignTasks), packetHandler.Assign)
		packets.POST("/:id/start",
			middleware.RequirePermission(models.PermissionPickMaterials), packetHandler.Start)
		packets.POST("/:id/pick",
			middleware.RequirePermission(models.PermissionPickMaterials), packetHandler.PickItem)
		packets.POST("/:id/complete",
			middleware.RequirePermission(models.PermissionPickMaterials), packetHandler.Complete)
		packets.POST("/:id/approve",
			middleware.RequirePermission(models.PermissionReviewPackets), packetHandler.Approve)
		packets.POST("/:id/reject",
			middleware.RequirePermission(models.PermissionReviewPackets), packetHandler.Reject)

		if cfg.Exports.Enabled {
			packets.GET("/:id/export/pick-list", exportHandler.PickListSheet)
			packets.GET("/:id/export/timeline", exportHandler.TimelineCSV)
		}
	}

	roster := authed.Group("/roster")
	{
		roster.GET("/heads", rosterHandler.ListHeads)
		roster.POST("/heads", middleware.RequireRoles(models.RoleAdmin), rosterHandler.AddHead)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
