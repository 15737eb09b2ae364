package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/novastreamlab/FHE-AI/internal/api"
	"github.com/novastreamlab/FHE-AI/internal/api/middleware"
	"github.com/novastreamlab/FHE-AI/internal/config"
	"github.com/novastreamlab/FHE-AI/internal/crypto"
	"github.com/novastreamlab/FHE-AI/internal/gateway"
	"github.com/novastreamlab/FHE-AI/internal/ledger"
	"github.com/novastreamlab/FHE-AI/internal/models"
	"github.com/novastreamlab/FHE-AI/internal/store"
)

func main() {
	cfg := config.Load()

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Ledger store: PostgreSQL when configured, SQLite otherwise
	var db store.LedgerStore
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		db = pg
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		lite, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		db = lite
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite")
	}
	defer db.Close()

	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	var nonces store.NonceStore
	if redisStore == nil {
		mem, err := store.NewMemoryNonceStore()
		if err != nil {
			logger.Fatal().Err(err).Msg("nonce store open failed")
		}
		defer mem.Close()
		nonces = mem
		logger.Warn().Msg("REDIS_URL not set, nonces are process-local and rate limiting is off")
	}

	vault, err := gateway.OpenVault(cfg.VaultPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("vault open failed")
	}
	defer vault.Close()
	if cfg.VaultPath == "" {
		logger.Warn().Msg("VAULT_PATH not set, gateway vault is in-memory")
	}

	gw := gateway.New(vault, gatewayKey(cfg, logger), logger)
	l := ledger.New(db, gw, deployPolicy(cfg, logger), logger)

	router := api.NewRouter(logger, api.Deps{
		Ledger:  l,
		Gateway: gw,
		DB:      db,
		Redis:   redisStore,
		Nonces:  nonces,
		Limits: middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("gateway_key", gw.PublicKey()).
			Msg("starting FHE-AI node")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

func gatewayKey(cfg *config.Config, logger zerolog.Logger) ed25519.PrivateKey {
	if cfg.GatewayKey != "" {
		key, err := crypto.ParsePrivateKey(cfg.GatewayKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid GATEWAY_KEY")
		}
		return key
	}
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		logger.Fatal().Err(err).Msg("gateway key generation failed")
	}
	logger.Warn().Msg("GATEWAY_KEY not set, using an ephemeral gateway key")
	return key
}

func deployPolicy(cfg *config.Config, logger zerolog.Logger) ledger.DeployPolicy {
	parse := func(name, value string) models.Address {
		if value == "" {
			return models.ZeroAddress
		}
		a, err := models.ParseAddress(value)
		if err != nil {
			logger.Fatal().Err(err).Str("var", name).Msg("invalid address")
		}
		return a
	}
	return ledger.DeployPolicy{
		Deployer: parse("DEPLOYER_ADDRESS", cfg.DeployerAddress),
		Bot:      parse("BOT_ADDRESS", cfg.BotAddress),
		Response: parse("RESPONSE_ADDRESS", cfg.ResponseAddress),
	}
}
