package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"scipedia/internal/config"
	"scipedia/internal/database"
	"scipedia/internal/handlers"
	"scipedia/internal/logger"
	"scipedia/internal/middleware"
	"scipedia/internal/repositories"
	"scipedia/internal/routes"
	"scipedia/internal/services"
	"scipedia/internal/storage"
	"scipedia/internal/validator"
	"scipedia/internal/workers"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}

	ginRouter := SetupRouter(cfg, gormDB)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	storageInstance, err := storage.NewObjectStorage(storage.Config{
		Type:           cfg.Storage.Type,
		Bucket:         cfg.Storage.Bucket,
		BucketID:       cfg.Storage.BucketID,
		KeyID:          cfg.Storage.KeyID,
		ApplicationKey: cfg.Storage.ApplicationKey,
		BaseURL:        cfg.Storage.BaseURL,
		Endpoint:       cfg.Storage.Endpoint,
		Region:         cfg.Storage.Region,
		AccessKey:      cfg.Storage.AccessKey,
		SecretKey:      cfg.Storage.SecretKey,
		BasePath:       cfg.Storage.BasePath,
		Timeout:        cfg.StorageTimeout(),
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	userRepo := repositories.NewUserRepository(gormDB)
	agentRepo := repositories.NewAgentRepository(gormDB)

	userService := services.NewUserService(userRepo)
	agentService := services.NewAgentService(agentRepo)
	attachmentService := services.NewAttachmentService(
		agentRepo, userRepo, storageInstance,
		cfg.Upload.MaxSize, cfg.StorageTimeout(),
	)

	base := handlers.NewBaseHandler(validator.New())
	appHandlers := &routes.AppHandlers{
		AgentHandler:   handlers.NewAgentHandler(base, agentService, attachmentService),
		UserHandler:    handlers.NewUserHandler(base, userService, attachmentService),
		GeneralHandler: handlers.NewGeneralHandler(base, userService),
	}

	if cfg.Reconcile.Enabled {
		worker := workers.NewReconcileWorker(storageInstance, agentRepo, userRepo, cfg.Reconcile)
		worker.Start(context.Background())
		logger.Info("Reconcile worker started",
			"interval_minutes", cfg.Reconcile.IntervalMinutes,
			"delete_orphans", cfg.Reconcile.DeleteOrphans)
	}

	ginRouter := initializeGinRouter(cfg)
	routes.RegisterRoutes(ginRouter, appHandlers)

	return ginRouter
}

func initializeGinRouter(cfg *config.Config) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg))
	return router
}
