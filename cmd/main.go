package main

import (
	"support-chat-service/internal/access"
	"support-chat-service/internal/chat"
	"support-chat-service/internal/docproc"
	"support-chat-service/internal/handler"
	"support-chat-service/internal/middleware"
	"support-chat-service/internal/store"
	"support-chat-service/internal/workflow"
	"support-chat-service/pkg/config"
	"support-chat-service/pkg/database"
	"support-chat-service/pkg/jwtutil"
	"support-chat-service/pkg/logger"
	"support-chat-service/pkg/mailer"
	"support-chat-service/pkg/storage"
	"support-chat-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting support chat service...", zap.String("environment", cfg.Server.Env))

	// Initialize database (now includes migrations automatically)
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed")

	// Initialize token signing
	jwtutil.Initialize(&cfg.JWT)

	// Stores over the shared gorm handle
	db := database.GetDB()
	documentStore := store.NewDocumentStore(db)
	notificationStore := store.NewNotificationStore(db)
	tenantStore := store.NewTenantStore(db)
	grantStore := store.NewGrantStore(db)

	// Domain collaborators
	resolver := access.NewResolver(grantStore)
	storageService := storage.NewService(cfg.Storage)
	processorClient := docproc.NewProcessorClient(&cfg.Processor, log)
	docController := docproc.NewController(
		documentStore,
		notificationStore,
		tenantStore,
		processorClient,
		storageService,
		jwtutil.GenerateWorkflowToken,
		cfg.Storage.ProcessorTTL,
		log,
	)
	workflowClient := workflow.NewClient(&cfg.Workflow, log)
	fallbackPolicy := chat.NewFallbackPolicy(cfg.Workflow.MaxRetries)
	mailService := mailer.New(cfg.SMTP, log)

	handler.Init(cfg, resolver, docController, workflowClient, fallbackPolicy, storageService, mailService)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/", handler.Hello)
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	// Processor callback, authenticated by shared secret header
	e.POST("/webhooks/processing", handler.ProcessingWebhook)

	// Protected API, bearer token required
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	api.POST("/chat", handler.Chat)

	api.GET("/conversations", handler.ListConversations)
	api.GET("/conversations/:id/messages", handler.GetConversationMessages)

	api.POST("/documents/upload-url", handler.CreateUploadURL)
	api.POST("/documents", handler.IngestDocument)
	api.GET("/documents", handler.ListDocuments)
	api.GET("/documents/status", handler.DocumentStatus)
	api.POST("/documents/:id/retry", handler.RetryDocument)
	api.DELETE("/documents/:id", handler.DeleteDocument)

	api.GET("/notifications", handler.ListNotifications)
	api.POST("/notifications/:id/read", handler.MarkNotificationRead)

	api.POST("/tenants", handler.CreateTenant)
	api.GET("/tenants", handler.ListTenants)
	api.GET("/tenants/:id", handler.GetTenant)
	api.DELETE("/tenants/:id", handler.DeleteTenant)

	api.POST("/tenant-access", handler.GrantTenantAccess)
	api.DELETE("/tenant-access", handler.RevokeTenantAccess)

	api.POST("/users", handler.InviteUser)
	api.GET("/users", handler.ListUsers)
	api.POST("/users/:id/reset-password", handler.ResetUserPassword)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
