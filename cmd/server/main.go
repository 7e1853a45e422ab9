// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/lacosa/internal/auth"
	"github.com/jason-s-yu/lacosa/internal/broadcast"
	"github.com/jason-s-yu/lacosa/internal/cache"
	"github.com/jason-s-yu/lacosa/internal/config"
	"github.com/jason-s-yu/lacosa/internal/database"
	"github.com/jason-s-yu/lacosa/internal/game"
	"github.com/jason-s-yu/lacosa/internal/handlers"
	"github.com/jason-s-yu/lacosa/internal/registry"
	"github.com/jason-s-yu/lacosa/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	signer, err := newSigner(cfg)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.StoreBackend == config.BackendRedis || cfg.ActionLog {
		rdb, err = cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	st, closeStore, err := openStore(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer closeStore()

	var recorder registry.ActionRecorder = cache.NopRecorder{}
	if cfg.ActionLog {
		recorder = cache.NewActionLog(rdb, cfg.Historian.QueueName)
	}

	rules := game.DefaultRules()
	rules.StrictTurns = cfg.StrictTurns

	hub := broadcast.NewHub(broadcast.DefaultBuffer, logger)
	reg := registry.New(st,
		registry.WithBroadcaster(hub),
		registry.WithRecorder(recorder),
		registry.WithRules(rules),
		registry.WithLogger(logger),
	)
	srv := &handlers.Server{
		Registry:       reg,
		Hub:            hub,
		Signer:         signer,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		Production:     cfg.Env == "production",
	}

	addr := ":" + cfg.Port
	if !srv.Production {
		addr = "localhost:" + cfg.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(logrus.Fields{"addr": addr, "store": cfg.StoreBackend}).Info("Running")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newSigner(cfg config.Config) (*auth.Signer, error) {
	priv, pub := os.Getenv("JWT_PRIVATE_KEY_PATH"), os.Getenv("JWT_PUBLIC_KEY_PATH")
	if priv != "" && pub != "" {
		return auth.NewSignerFromPath(priv, pub, cfg.TokenExpire)
	}
	return auth.NewSigner(cfg.TokenExpire)
}

func openStore(ctx context.Context, cfg config.Config, rdb *redis.Client) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := database.Connect(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store.NewPostgresStore(pool), pool.Close, nil
	case config.BackendRedis:
		return store.NewRedisStore(rdb, cfg.SessionTTL), func() {}, nil
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}
