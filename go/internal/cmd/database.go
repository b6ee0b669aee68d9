package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdev12/luckydraw/go/internal/dbconfig"
	"github.com/mcdev12/luckydraw/go/internal/gamedb"
	"github.com/rs/zerolog/log"
)

func setupDatabase(ctx context.Context) (*sql.DB, dbconfig.Config, error) {
	dbCfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		return nil, dbconfig.Config{}, err
	}

	database, err := dbconfig.Open(dbCfg)
	if err != nil {
		return nil, dbconfig.Config{}, err
	}

	if err := gamedb.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, dbconfig.Config{}, fmt.Errorf("failed to migrate: %w", err)
	}

	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("database", dbCfg.Database).
		Msg("connected to database")
	return database, dbCfg, nil
}
