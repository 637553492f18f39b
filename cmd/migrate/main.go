// README: Schema migration CLI (up, down, version, force) over migrations/.
package main

import (
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"carpool/internal/config"
	"carpool/internal/infra"
)

const usage = "usage: migrate <up|down|version|force N>"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	infra.NewLogger(cfg.Log.Level, cfg.Log.Pretty)

	if len(os.Args) < 2 {
		log.Fatal().Msg(usage)
	}

	dir := os.Getenv("CARPOOL_MIGRATIONS_DIR")
	if dir == "" {
		dir = "migrations"
	}
	m, err := migrate.New("file://"+dir, cfg.DB.DSN)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("create migrate instance")
	}
	defer m.Close()

	switch os.Args[1] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("apply migrations")
		}
		log.Info().Msg("migrations applied")

	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("roll back migration")
		}
		log.Info().Msg("migration rolled back")

	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatal().Err(err).Msg("read version")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")

	case "force":
		if len(os.Args) < 3 {
			log.Fatal().Msg(usage)
		}
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("invalid version")
		}
		if err := m.Force(version); err != nil {
			log.Fatal().Err(err).Int("version", version).Msg("force version")
		}
		log.Info().Int("version", version).Msg("version forced")

	default:
		log.Fatal().Str("command", os.Args[1]).Msg(usage)
	}
}
