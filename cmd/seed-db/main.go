package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/promo-engine/internal/domain/auth"
	"github.com/xenking/promo-engine/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PROMO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PROMO_API_KEY_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("PROMO_SEED_API_KEY")
	}
	if apiKey == "" {
		lg.Fatal("API key is required: set --api-key or PROMO_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PROMO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, apiKey, apiKeyPepper); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}

	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, apiKey, pepper string) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	categories := postgres.NewCategoryRepository(pool)
	for _, c := range seedCategories() {
		if err := categories.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert category %s", c.Slug)
		}
	}
	lg.Info("Upserted categories", zap.Int("count", len(seedCategories())))

	products := postgres.NewProductRepository(pool)
	for _, p := range seedProducts() {
		if err := products.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		lg.Debug("Upserted product", zap.String("id", p.ID), zap.String("name", p.Name))
	}

	promotions := postgres.NewPromotionRepository(pool)
	promos := seedPromotions()
	for _, p := range promos {
		if err := promotions.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert promotion %s", p.ID)
		}
		lg.Debug("Upserted promotion", zap.String("id", p.ID), zap.String("scope", string(p.Scope())))
	}
	lg.Info("Upserted promotions", zap.Int("count", len(promos)))

	rewards := postgres.NewRewardRepository(pool)
	for _, r := range seedRewards() {
		if err := rewards.Upsert(ctx, r); err != nil {
			return errors.Wrapf(err, "upsert reward %s", r.ID)
		}
	}

	apikeys := postgres.NewAPIKeyRepository(pool)
	if err := apikeys.Upsert(ctx, auth.APIKeyInfo{
		ID:      "seed-key",
		KeyHash: auth.HashKey(apiKey, []byte(pepper)),
		Name:    "Seed API key",
		Scopes:  []string{auth.ScopeCreateOrder},
	}); err != nil {
		return errors.Wrap(err, "upsert api key")
	}
	lg.Info("Upserted API key")

	return nil
}
