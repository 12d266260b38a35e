package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bch-paywall/config"
	"bch-paywall/internal/adapter/chain"
	httpHandler "bch-paywall/internal/adapter/http/handler"
	pgStorage "bch-paywall/internal/adapter/storage/postgres"
	redisStorage "bch-paywall/internal/adapter/storage/redis"
	"bch-paywall/internal/core/ports"
	"bch-paywall/internal/service"
	"bch-paywall/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present (development convenience; real deployments use
	// environment variables directly).
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Bool("test_mode", cfg.Confirmation.TestMode).
		Msg("Starting BCH paywall service")

	ctx := context.Background()

	// PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Repositories and Redis stores
	sessionRepo := pgStorage.NewSessionRepo(pool)
	snapshotCache := redisStorage.NewSnapshotCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Chain providers, ranked. First healthy answer wins.
	httpClient := &http.Client{Timeout: cfg.Oracle.ProviderTimeout}
	providers := []chain.Provider{
		chain.NewBitcoinComProvider(cfg.Oracle.BitcoinComURL, httpClient),
		chain.NewBlockchairProvider(cfg.Oracle.BlockchairURL, httpClient),
		chain.NewFullstackProvider(cfg.Oracle.FullstackURL, httpClient),
	}
	oracle := chain.NewFailoverOracle(
		providers,
		snapshotCache,
		cfg.Oracle.ProviderTimeout,
		cfg.Oracle.CacheTTL,
		log,
	)

	// Confirmation mode: boot default from config, runtime-switchable.
	bootMode := ports.ModeLive
	if cfg.Confirmation.TestMode {
		bootMode = ports.ModeTest
	}
	modeSource := service.NewRuntimeModeSource(bootMode)
	clock := service.SystemClock{}

	// Core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.Admin.JWTSecret, cfg.Admin.JWTExpiry, cfg.Admin.JWTIssuer)

	// Business services
	issuer := service.NewDemoAddressIssuer(sessionRepo, log)
	policy := service.NewConfirmationPolicy(oracle, modeSource, clock, cfg.Confirmation.TestDelay, log)
	sessionSvc := service.NewPaymentSessionService(sessionRepo, issuer, policy, modeSource, clock, log)
	adminSvc := service.NewAdminService(cfg.Admin.PasswordHash, hashSvc, tokenSvc, log)
	reportingSvc := service.NewReportingService(sessionRepo, clock)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SessionSvc:     sessionSvc,
		AdminSvc:       adminSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		ModeSource:     modeSource,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

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
