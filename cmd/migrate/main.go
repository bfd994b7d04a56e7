package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Rrens/invitation-agent/internal/config"
	"github.com/Rrens/invitation-agent/internal/repository/postgres"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	down := flag.Int("down", 0, "number of migrations to roll back instead of migrating up")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if cfg.Database.Driver != "postgres" {
		// The sqlite store migrates itself on open.
		fmt.Printf("Nothing to do for database driver %q\n", cfg.Database.Driver)
		return
	}

	log.Info().Str("host", cfg.Database.Host).Int("port", cfg.Database.Port).Msg("Migrating database")

	if *down > 0 {
		err = postgres.RollbackMigrations(cfg.Database.DSN(), cfg.Database.MigrationsURL, *down)
	} else {
		err = postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsURL)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
