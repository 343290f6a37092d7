package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/venkatvisarapu/personal-finance-assistant/internal/api"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/api/handlers"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/repository"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/service"
	"github.com/venkatvisarapu/personal-finance-assistant/pkg/auth"
	"github.com/venkatvisarapu/personal-finance-assistant/pkg/config"
	"github.com/venkatvisarapu/personal-finance-assistant/pkg/logger"
	"github.com/venkatvisarapu/personal-finance-assistant/pkg/postgres"

	"go.uber.org/zap"
)

// @title Personal Finance Assistant API
// @version 1.0
// @description REST API for tracking income and expenses, with AI-assisted receipt ingestion.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting personal finance assistant")

	if err := postgres.RunMigrations(&cfg.Database); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)
	uploadRepo := repository.NewUploadRepository(db, appLogger)

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration)

	authService := service.NewAuthService(userRepo, jwtManager, appLogger)
	txService := service.NewTransactionService(txRepo, appLogger)

	extractor := service.NewGeminiClient(&cfg.Gemini, appLogger)
	ingestService := service.NewIngestService(
		uploadRepo,
		txRepo,
		extractor,
		cfg.Upload.Dir,
		cfg.Upload.MaxImageSide,
		cfg.Gemini.Timeout,
		appLogger,
	)

	authHandler := handlers.NewAuthHandler(authService, appLogger)
	txHandler := handlers.NewTransactionHandler(txService, appLogger)
	uploadHandler := handlers.NewUploadHandler(ingestService, appLogger)

	app := api.SetupRouter(authHandler, txHandler, uploadHandler, jwtManager, authService, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
