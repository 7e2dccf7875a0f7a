package apl

import (
	"fmt"

	"github.com/feedsync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// New creates the credential store selected by cfg.APL.Type.
// The returned close function releases connections held by the store.
func New(cfg *config.Config, logger *zap.Logger) (CredentialStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.APL.Type {
	case "redis":
		store, err := NewRedisStore(RedisConfig{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.App.BaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis credential store: %w", err)
		}
		logger.Info("using Redis credential store", zap.String("addr", cfg.Redis.Addr()))
		return store, store.Close, nil
	case "file", "":
		logger.Info("using file credential store", zap.String("path", cfg.APL.FilePath))
		return NewFileStore(cfg.APL.FilePath), noop, nil
	case "static":
		logger.Warn("using static credential store; not for production")
		return NewStaticStore(AuthData{
			Token:  cfg.APL.Token,
			APIURL: cfg.Saleor.APIURL,
			AppID:  cfg.APL.AppID,
		}), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown credential store type %q", cfg.APL.Type)
	}
}
