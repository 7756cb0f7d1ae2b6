package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

// Applies migrations/migrations.sql against DATABASE_URL. The hosted
// project owns the schema; this exists for local and staging databases.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("error opening database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("error pinging database")
	}

	sqlBytes, err := os.ReadFile("migrations/migrations.sql")
	if err != nil {
		log.Fatal().Err(err).Msg("error reading migrations file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Info().Msg("applying migrations")
	if _, err := db.ExecContext(ctx, string(sqlBytes)); err != nil {
		log.Fatal().Err(err).Msg("error applying migrations")
	}

	log.Info().Msg("migrations applied")
}
