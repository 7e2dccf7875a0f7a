// Package storage publishes generated feed documents.
package storage

import (
	"context"
	"fmt"

	appfeed "github.com/feedsync/backend/internal/application/feed"
	"github.com/feedsync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	TypeLocal = "local"
	TypeS3    = "s3"
	TypeNone  = "none"

	contentType = "application/xml; charset=utf-8"
)

// New returns the publisher selected by cfg.Type.
// A nil publisher with a nil error means publishing is disabled.
func New(ctx context.Context, cfg config.StorageConfig, fileName string, logger *zap.Logger) (appfeed.FeedPublisher, error) {
	switch cfg.Type {
	case TypeLocal, "":
		return NewLocalPublisher(cfg.LocalDir, fileName, logger)
	case TypeS3:
		p, err := NewS3Publisher(cfg, fileName, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := p.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return p, nil
	case TypeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("storage: unknown type %q", cfg.Type)
	}
}
