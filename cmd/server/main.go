package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sestra24/recruitment-service/internal/cache"
	"github.com/sestra24/recruitment-service/internal/config"
	"github.com/sestra24/recruitment-service/internal/events"
	"github.com/sestra24/recruitment-service/internal/handlers"
	"github.com/sestra24/recruitment-service/internal/models"
	"github.com/sestra24/recruitment-service/internal/repositories/postgres"
	"github.com/sestra24/recruitment-service/internal/services"
	"github.com/sestra24/recruitment-service/internal/storage"
	"github.com/sestra24/recruitment-service/internal/utils"
	"github.com/sestra24/recruitment-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentLogger()
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(
		&models.NurseApplication{},
		&models.TestQuestion{},
		&models.TestAnswer{},
	); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	publisher, err := events.NewKafkaEventPublisher(events.PublisherConfig{
		KafkaBrokers: cfg.KafkaBrokers,
		TopicName:    cfg.EventTopic,
		Logger:       slog.Default(),
	})
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	store, err := storage.NewLocalStore(cfg.StorageDir, "/files")
	if err != nil {
		logger.Error("Failed to init document storage", "error", err)
		os.Exit(1)
	}

	repo := postgres.NewRepository(db)
	cacheService := cache.NewRedisCache(redisClient, slog.Default())
	validator := utils.NewValidator()

	applicationService := services.NewApplicationService(repo, publisher, logger, validator)
	testService := services.NewTestService(repo, cacheService, publisher, logger, validator)
	documentService := services.NewDocumentService(repo, store, logger)
	importService := services.NewQuestionImportService(repo, cacheService, logger)

	handlers.InitAuth(cfg)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))
	router.Static("/files", cfg.StorageDir)

	handlerManager := handlers.NewHandlerManager(
		applicationService,
		testService,
		documentService,
		importService,
		logger,
	)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
	logger.Info("Server stopped")
}
