package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/topupgh/topup-api/internal/config"
	"github.com/topupgh/topup-api/internal/domain/admin"
	"github.com/topupgh/topup-api/internal/domain/commission"
	"github.com/topupgh/topup-api/internal/domain/purchase"
	"github.com/topupgh/topup-api/internal/domain/settlement"
	"github.com/topupgh/topup-api/internal/domain/transaction"
	"github.com/topupgh/topup-api/internal/domain/user"
	"github.com/topupgh/topup-api/internal/domain/wallet"
	"github.com/topupgh/topup-api/internal/middleware"
	"github.com/topupgh/topup-api/internal/pkg/database"
	"github.com/topupgh/topup-api/internal/pkg/jwt"
	"github.com/topupgh/topup-api/internal/pkg/logger"
	"github.com/topupgh/topup-api/internal/pkg/response"
	"github.com/topupgh/topup-api/internal/pkg/tpp"
	"github.com/topupgh/topup-api/internal/worker"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Topup API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	tppClient := tpp.NewClient(tpp.Config{
		BaseURL:         cfg.TPPBaseURL,
		APIKey:          cfg.TPPAPIKey,
		APISecret:       cfg.TPPAPISecret,
		Retailer:        cfg.TPPRetailer,
		SenderID:        cfg.TPPSenderID,
		PurchaseTimeout: cfg.TPPPurchaseTimeout,
		QueryTimeout:    cfg.TPPQueryTimeout,
	})

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	walletRepo := wallet.NewRepository(db)
	commissionRepo := commission.NewRepository(db)
	trxRepo := transaction.NewRepository(db)

	// ---------- Services ----------
	walletService := wallet.NewService(walletRepo)
	commissionService := commission.NewService(commissionRepo)
	settlementService := settlement.NewService(db, walletRepo, trxRepo, userRepo)
	purchaseService := purchase.NewService(
		commissionService,
		walletService,
		trxRepo,
		tppClient,
		settlementService,
		tppClient,
	)
	adminService := admin.NewService(db, userRepo, walletRepo, commissionService, trxRepo, tppClient)

	// ---------- Handlers ----------
	walletHandler := wallet.NewHandler(walletService)
	purchaseHandler := purchase.NewHandler(purchaseService)
	adminHandler := admin.NewHandler(adminService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Background workers ----------
	reconciler := worker.NewReconciler(trxRepo, tppClient, settlementService, cfg.ReconcilerInterval, cfg.ReconcilerBatchSize)
	reconciler.Start()
	defer reconciler.Stop()

	if cfg.BalanceSyncEnabled {
		balanceSync := worker.NewBalanceSync(walletRepo, userRepo, tppClient, cfg.BalanceSyncInterval)
		balanceSync.Start()
		defer balanceSync.Stop()
	}

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(middleware.RateLimit(redis, cfg.RateLimitPerMinute))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/wallet", walletHandler.Routes(authMiddleware))
		r.Mount("/vendor", purchaseHandler.Routes(authMiddleware))
		r.Mount("/admin", adminHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
