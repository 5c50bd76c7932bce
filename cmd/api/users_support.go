package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yourusername/gatehouse/internal/config"
	"github.com/yourusername/gatehouse/internal/storage"
	"github.com/yourusername/gatehouse/internal/users"
)

// setupUsers は設定に応じたリポジトリでユーザーサービスを組み立てます。
// 戻り値の cleanup は外部接続を閉じます。
func setupUsers(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*users.Service, func(), error) {
	hasher, err := users.NewBcryptHasher(cfg.BcryptCost, cfg.HashConcurrency)
	if err != nil {
		return nil, nil, err
	}

	var (
		repo    users.Repository
		cleanup = func() {}
	)
	switch cfg.UserStore {
	case config.StoreRedis:
		rdb, err := storage.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		repo = users.NewRedisRepository(rdb)
		cleanup = func() {
			if err := rdb.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close redis client")
			}
		}
		logger.Info().Msg("using redis user store")
	default:
		repo = users.NewMemoryRepository()
		logger.Info().Msg("using in-memory user store")
	}

	return users.NewService(repo, hasher, logger), cleanup, nil
}

// seedUsers は設定の初期ユーザーを起動時投入用の形式に変換します。
func seedUsers(cfg *config.Config) []users.SeedUser {
	seeds := make([]users.SeedUser, 0, len(cfg.Seeds))
	for _, s := range cfg.Seeds {
		if s.Email == "" || s.Password == "" {
			continue
		}
		seeds = append(seeds, users.SeedUser{
			Username: s.Username,
			Email:    s.Email,
			Password: s.Password,
			Role:     users.Role(s.Role),
		})
	}
	return seeds
}
