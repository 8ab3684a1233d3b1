package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/storage/memory"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// storage bundles the repositories of the selected database driver.
type storage struct {
	wallets      ports.WalletRepository
	transactions ports.TransactionRepository
	audit        ports.AuditRepository
	transactor   ports.DBTransactor
	health       ports.HealthChecker
	close        func()
}

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("WLG_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("driver", cfg.Database.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting Wallet Ledger")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open storage")
	}
	defer store.close()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	ledgerSvc := service.NewLedgerService(
		store.wallets,
		store.transactions,
		idempotencyCache,
		store.transactor,
		cfg.Ledger.IdempotencyTTL,
		logger.Component(log, "ledger"),
	)
	defaults, err := service.DefaultWalletsFromConfig(cfg.Ledger.DefaultWallets)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid ledger.default_wallets")
	}
	provisioningSvc := service.NewProvisioningService(store.wallets, defaults, logger.Component(log, "provisioning"))
	querySvc := service.NewWalletQueryService(store.wallets, store.transactions)
	auditSvc := service.NewAuditService(store.audit, logger.Component(log, "audit"))

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:        ledgerSvc,
		ProvisioningSvc:  provisioningSvc,
		QuerySvc:         querySvc,
		TokenSvc:         tokenSvc,
		RateLimitStore:   rateLimitStore,
		HealthCheckers:   []ports.HealthChecker{store.health, redisStorage.NewHealthCheck(rdb)},
		AuditSvc:         auditSvc,
		Logger:           logger.Component(log, "http"),
		AdjustRateLimit:  cfg.Ledger.AdjustRateLimit,
		AdjustRateWindow: cfg.Ledger.AdjustRateWindow,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Database.Driver {
	case "memory":
		log.Warn().Msg("Using in-memory storage, balances are lost on restart")
		mem := memory.NewStore()
		return &storage{
			wallets:      mem.Wallets(),
			transactions: mem.Transactions(),
			audit:        mem.Audit(),
			transactor:   mem,
			health:       mem,
			close:        func() {},
		}, nil

	case "postgres":
		if cfg.Database.AutoMigrate {
			if err := pgStorage.MigrateUp(cfg.Database.MigrateURL(), log); err != nil {
				return nil, fmt.Errorf("auto-migrate: %w", err)
			}
		}

		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("PostgreSQL connected")

		return &storage{
			wallets:      pgStorage.NewWalletRepo(pool),
			transactions: pgStorage.NewTransactionRepo(pool),
			audit:        pgStorage.NewAuditRepo(pool),
			transactor:   pgStorage.NewTransactor(pool),
			health:       pgStorage.NewHealthCheck(pool),
			close:        pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}
