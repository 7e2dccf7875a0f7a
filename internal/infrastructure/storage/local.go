package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	appfeed "github.com/feedsync/backend/internal/application/feed"
	"go.uber.org/zap"
)

var _ appfeed.FeedPublisher = (*LocalPublisher)(nil)

// LocalPublisher writes the feed into a directory served by a web server.
// Readers see either the previous or the new document, never a partial one.
type LocalPublisher struct {
	dir    string
	name   string
	logger *zap.Logger
}

// NewLocalPublisher creates dir if needed
func NewLocalPublisher(dir, fileName string, logger *zap.Logger) (*LocalPublisher, error) {
	if dir == "" {
		return nil, errors.New("storage: local directory is required")
	}
	if fileName == "" || filepath.Base(fileName) != fileName {
		return nil, fmt.Errorf("storage: invalid file name %q", fileName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalPublisher{dir: dir, name: fileName, logger: logger}, nil
}

// Path returns the published file path
func (p *LocalPublisher) Path() string {
	return filepath.Join(p.dir, p.name)
}

// Publish replaces the file through a temp file and rename
func (p *LocalPublisher) Publish(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(p.dir, "."+p.name+".*")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, p.Path()); err != nil {
		return fmt.Errorf("storage: rename to %s: %w", p.Path(), err)
	}
	committed = true

	p.logger.Info("Feed published", zap.String("path", p.Path()), zap.Int("bytes", len(doc)))
	return nil
}
