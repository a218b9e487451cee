package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	catalogrepo "storefront/internal/repository/catalog"
	"storefront/internal/seed"
)

func main() {
	cfg := config.Load()
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	stats, err := seed.Apply(ctx, catalogrepo.NewPostgres(pool, logger, cfg.DefaultLocale), logger)
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}

	logger.Info("seed applied", zap.Int("products", stats.Products), zap.Int("variants", stats.Variants))
}
