package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/card-nexus/internal/api"
	"github.com/codyseavey/card-nexus/internal/auth"
	"github.com/codyseavey/card-nexus/internal/config"
	"github.com/codyseavey/card-nexus/internal/database"
	"github.com/codyseavey/card-nexus/internal/importer"
	"github.com/codyseavey/card-nexus/internal/logging"
	"github.com/codyseavey/card-nexus/internal/scheduler"
	"github.com/codyseavey/card-nexus/internal/services"
)

func main() {
	cfg := config.Load()
	log := logging.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	db, err := database.Open(database.Options{
		Driver:      cfg.DBDriver,
		Path:        cfg.DBPath,
		DatabaseURL: cfg.DatabaseURL,
		Debug:       cfg.LogLevel == "debug",
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	catalog := services.NewCatalogService(db, cfg.PriceWindow)
	listings := services.NewListingService(db, cfg.ListingTTL, log)

	// Catalog sync reuses the importer pipeline; its progress output is
	// dropped since the server logs a summary instead.
	loader, err := importer.NewLoader(db, importer.StrategyAuto, log)
	if err != nil {
		log.Fatal("Failed to initialize card loader", zap.Error(err))
	}
	runner := importer.NewRunner(loader, log, importer.WithOutput(io.Discard))
	cardAPI := importer.NewCardAPIClient(importer.CardAPIConfig{
		BaseURL:  cfg.CardAPIBaseURL,
		APIKey:   cfg.CardAPIKey,
		PageSize: cfg.CardAPIPageSize,
		Delay:    cfg.CardAPIDelay,
	}, log)

	sched, err := scheduler.New(scheduler.Config{
		Listings:     listings,
		Catalog:      catalog,
		Sync:         importer.NewAPISync(cardAPI, runner, log),
		SyncInterval: cfg.CatalogSyncInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize scheduler", zap.Error(err))
	}
	sched.Start()

	if n, err := catalog.RefreshCardCount(context.Background()); err != nil {
		log.Warn("Failed to count catalog cards", zap.Error(err))
	} else {
		log.Info("Catalog loaded", zap.Int64("cards", n))
	}

	router := api.SetupRouter(api.Deps{
		Catalog:      catalog,
		Users:        services.NewUserService(db, tokens, log),
		Listings:     listings,
		Transactions: services.NewTransactionService(db, log),
		Reviews:      services.NewReviewService(db),
		Decks:        services.NewDeckService(db),
		Forum:        services.NewForumService(db),
		Tokens:       tokens,
		Log:          log,
		CORSOrigins:  cfg.CORSOrigins,
		FrontendPath: cfg.FrontendDistPath,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	if err := sched.Shutdown(); err != nil {
		log.Warn("Scheduler shutdown failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
