package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/affiliate"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/balance"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/config"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/db"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/entitlement"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/idempotency"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/intent"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/logger"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/notification"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/payment"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/renewal"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/server"
)

// @title ScortBrasil Monetization API
// @version 1.0
// @description Credit ledger, entitlement purchases and renewals for seller profiles.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {

	logger.Init()
	logger.Info("Starting monetization service")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	notifier := notification.New(cfg.RedisAddr, database)
	defer notifier.Close()
	logger.Info("Notification service initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go notifier.Start(ctx)

	balances := balance.NewRepository(database)
	intents := intent.NewRepository(database)
	entitlements := entitlement.NewRepository(database)
	guard := idempotency.NewGuard(database, cfg.ClaimStaleAfter)
	commissions := affiliate.NewService(affiliate.NewRepository(database), balances)
	gateway := payment.NewGatewayClient(cfg.GatewayBaseURL, cfg.GatewayToken, cfg.GatewayTimeout)

	processor := payment.NewProcessor(gateway, guard, intents, balances, entitlements, commissions, notifier)
	scheduler := renewal.NewScheduler(entitlements, balances, intents, guard, notifier,
		cfg.SchedulerTick, cfg.RenewalLookahead, cfg.IntentTTL)
	go scheduler.Run(ctx)

	srv := server.New(database, cfg, notifier, processor, scheduler)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
