// cmd/historian/main.go is an asynchronous historian service that pops action records from a
// Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/lacosa/internal/cache"
	"github.com/jason-s-yu/lacosa/internal/config"
	"github.com/jason-s-yu/lacosa/internal/database"
	"github.com/jason-s-yu/lacosa/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Postgres.DSN())
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatalf("schema: %v", err)
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	svc := historian.New(
		historian.NewRedisQueue(rdb, cfg.Historian.QueueName),
		historian.NewPostgresSink(pool),
		cfg.Historian,
		logger,
	)
	if err := svc.Run(ctx); err != nil {
		logger.Errorf("historian exited: %v", err)
	}
	logger.Info("Historian shutdown complete.")
}
