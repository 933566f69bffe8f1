package app

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/config"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/db"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/keystone"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/redis"
)

type Infra struct {
	DB    *db.DB
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	sqlDB, err := sql.Open("postgres", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	table := keystone.TableName(cfg.ListKey)
	var extraUnique []string
	if cfg.PasswordSecretField != "" {
		extraUnique = append(extraUnique, cfg.PasswordEmailField)
	}
	if err := db.RunListMigration(ctx, sqlDB, table, cfg.IdentityField, extraUnique...); err != nil {
		return nil, err
	}

	log.Info().Str("table", table).Msg("database ready")

	redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}

	log.Info().Msg("redis ready")

	return &Infra{
		DB:    &db.DB{DB: sqlDB},
		Redis: redisClient,
	}, nil
}
