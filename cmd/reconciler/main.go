package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/topupgh/topup-api/internal/config"
	"github.com/topupgh/topup-api/internal/domain/settlement"
	"github.com/topupgh/topup-api/internal/domain/transaction"
	"github.com/topupgh/topup-api/internal/domain/user"
	"github.com/topupgh/topup-api/internal/domain/wallet"
	"github.com/topupgh/topup-api/internal/pkg/database"
	"github.com/topupgh/topup-api/internal/pkg/logger"
	"github.com/topupgh/topup-api/internal/pkg/tpp"
	"github.com/topupgh/topup-api/internal/worker"
)

// Standalone reconciliation worker. Runs the same loop the API embeds, for
// deployments that keep settlement off the request-serving process.
func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().Msg("Starting reconciler worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	tppClient := tpp.NewClient(tpp.Config{
		BaseURL:         cfg.TPPBaseURL,
		APIKey:          cfg.TPPAPIKey,
		APISecret:       cfg.TPPAPISecret,
		Retailer:        cfg.TPPRetailer,
		SenderID:        cfg.TPPSenderID,
		PurchaseTimeout: cfg.TPPPurchaseTimeout,
		QueryTimeout:    cfg.TPPQueryTimeout,
	})

	userRepo := user.NewRepository(db)
	walletRepo := wallet.NewRepository(db)
	trxRepo := transaction.NewRepository(db)
	settlementService := settlement.NewService(db, walletRepo, trxRepo, userRepo)

	reconciler := worker.NewReconciler(trxRepo, tppClient, settlementService, cfg.ReconcilerInterval, cfg.ReconcilerBatchSize)
	reconciler.Start()

	if cfg.BalanceSyncEnabled {
		balanceSync := worker.NewBalanceSync(walletRepo, userRepo, tppClient, cfg.BalanceSyncInterval)
		balanceSync.Start()
		defer balanceSync.Stop()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")
	reconciler.Stop()
	log.Info().Msg("Reconciler exited properly")
}
