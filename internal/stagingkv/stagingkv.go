// Package stagingkv opens the key-value backend selected by STAGING_BACKEND.
package stagingkv

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"carbooking/internal/config"
	"carbooking/internal/modules/staging"
	"carbooking/internal/pkg/badgerkv"
	"carbooking/internal/pkg/rediskv"
	"carbooking/internal/repository"
)

// Open returns the configured backend and a func that releases it. The sql
// backend shares db and needs no release.
func Open(cfg *config.Config, db *gorm.DB, log *zap.Logger) (staging.KV, func(), error) {
	switch cfg.StagingBackend {
	case config.StagingBadger:
		bcfg := badgerkv.DefaultConfig(cfg.BadgerPath)
		bcfg.TTL = cfg.StagingTTL
		bcfg.Logger = log.Named("badger")
		kv, err := badgerkv.Open(bcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger staging: %w", err)
		}
		return kv, func() { _ = kv.Close() }, nil

	case config.StagingRedis:
		kv := rediskv.New(rediskv.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.StagingTTL,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := kv.Ping(ctx); err != nil {
			_ = kv.Close()
			return nil, nil, fmt.Errorf("connect redis staging: %w", err)
		}
		return kv, func() { _ = kv.Close() }, nil

	case config.StagingSQL:
		if db == nil {
			return nil, nil, fmt.Errorf("sql staging needs a database")
		}
		return repository.NewStagingRepository(db), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown staging backend %q", cfg.StagingBackend)
	}
}
