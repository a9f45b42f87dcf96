package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/modelrelay/relay-api/internal/config"
	"github.com/modelrelay/relay-api/internal/crypto"
	"github.com/modelrelay/relay-api/internal/platform/logger"
	"github.com/modelrelay/relay-api/internal/platform/otel"
	"github.com/modelrelay/relay-api/internal/registry"
	"github.com/modelrelay/relay-api/internal/relay"
	"github.com/modelrelay/relay-api/internal/server"
	"github.com/modelrelay/relay-api/internal/server/validator"
	"github.com/modelrelay/relay-api/internal/store/cache"
	"github.com/modelrelay/relay-api/internal/store/sqlite"
	"github.com/modelrelay/relay-api/internal/telemetry"
	"github.com/modelrelay/relay-api/internal/version"
)

func main() {
	logger.Initialize(logger.DefaultConfig())
	defer logger.Sync()
	log := logger.Get()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	if cfg.Updates.CheckEnabled {
		go version.CheckForUpdates(log)
	}

	cipher := crypto.NewCipher(cfg.Crypto.Key)
	if !cipher.Ready() {
		log.Warn("APP_ENC_KEY not configured; credential storage disabled")
	}

	repo, err := sqlite.NewStorage(cfg.Store.DSN)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer func() {
		_ = repo.Close()
	}()

	var cacheSvc cache.CacheService = cache.NewMemoryCache()
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		cacheSvc = redisCache
		log.Info("using redis cache", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.Tracing.Enabled {
		shutdown, err := otel.InitTracer("relay-api", log, os.Stdout)
		if err != nil {
			log.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	registrySvc := registry.NewService(log, repo, cipher, cacheSvc)
	telemetrySvc := telemetry.NewService(log, repo)
	relaySvc := relay.NewService(log, registrySvc, telemetrySvc, &http.Client{}, cipher.Decrypt)

	validator.InitValidator()

	srv := server.New(cfg, log, server.Services{
		Registry:  registrySvc,
		Relay:     relaySvc,
		Telemetry: telemetrySvc,
	})

	log.Info("starting relay",
		zap.String("addr", cfg.Addr()),
		zap.String("env", cfg.Server.Env),
		zap.Bool("encryption", cipher.Ready()),
	)
	if err := srv.Run(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
