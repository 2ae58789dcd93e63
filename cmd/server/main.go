package main

import (
	"alcyxob/diet-collab/internal/api"
	"alcyxob/diet-collab/internal/config"
	"alcyxob/diet-collab/internal/repository/mongo"
	"alcyxob/diet-collab/internal/service"
	"alcyxob/diet-collab/internal/storage"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title Diet Collaboration API
// @version 1.0
// @description Plan governance, suggestion workflow and plan-vs-intake reconciliation for nutrition plans.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("FATAL: Could not initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting diet collaboration server")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}
	logger.Info("configuration loaded")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		logger.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("database connection established", zap.String("database", cfg.Database.Name))

	// --- Ensure Indexes ---
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsurePlanIndexes(ctx, appDB.Collection("plans"))
		mongo.EnsureGrantIndexes(ctx, appDB.Collection("permission_grants"))
		mongo.EnsureAuditIndexes(ctx, appDB.Collection("audit_records"))
		mongo.EnsureSuggestionIndexes(ctx, appDB.Collection("suggestions"))
		mongo.EnsureIntakeIndexes(ctx, appDB.Collection("intake_records"))
		mongo.EnsureReconciliationIndexes(ctx, appDB.Collection("reconciliation_results"))
		logger.Info("index creation process completed")
	}()

	// --- Initialize Storage ---
	reportArchive, err := storage.NewS3Archive(cfg.S3, logger)
	if err != nil {
		logger.Fatal("failed to initialize report archive", zap.Error(err))
	}

	// --- Initialize Repositories ---
	planRepo := mongo.NewMongoPlanRepository(appDB)
	grantRepo := mongo.NewMongoGrantRepository(appDB)
	auditRepo := mongo.NewMongoAuditRepository(appDB)
	suggestionRepo := mongo.NewMongoSuggestionRepository(appDB)
	intakeRepo := mongo.NewMongoIntakeRepository(appDB)
	reconciliationRepo := mongo.NewMongoReconciliationRepository(appDB)

	// --- Initialize Services ---
	planService := service.NewPlanService(planRepo, grantRepo, logger)
	permissionService := service.NewPermissionService(planRepo, grantRepo, auditRepo, logger)
	suggestionService := service.NewSuggestionService(planRepo, grantRepo, suggestionRepo, auditRepo, logger)
	reconciliationService := service.NewReconciliationService(planRepo, grantRepo, intakeRepo, reconciliationRepo, reportArchive, logger)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	api.SetupRoutes(router, cfg.JWT.Secret, planService, permissionService, suggestionService, reconciliationService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen and serve error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
