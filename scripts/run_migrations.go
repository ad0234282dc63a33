package main

import (
	"context"
	"os"

	"github.com/safar/wareq/internal/config"
	"github.com/safar/wareq/internal/database"
	"github.com/safar/wareq/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New(logger.Config{})
		l.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: go run scripts/run_migrations.go [up|down]")
	}
	direction := os.Args[1]

	ctx := logger.WithContext(context.Background(), log)

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db, "migrations", direction)
	if err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	log.Info().Int("count", len(applied)).Str("direction", direction).Msg("migrations complete")
}
