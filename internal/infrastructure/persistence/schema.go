package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feedsync/backend/internal/domain/graph"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSchemaVersionMismatch is returned when the stored layout is not the one this build writes
var ErrSchemaVersionMismatch = errors.New("persistence: graph schema version mismatch")

// AutoMigrate creates the graph layout and records its version.
// Postgres deployments use the SQL migrations instead.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(graphModels()...); err != nil {
		return fmt.Errorf("failed to migrate graph schema: %w", err)
	}
	row := SchemaModel{Version: graph.SchemaVersion, AppliedAt: time.Now().UTC()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record graph schema version: %w", err)
	}
	return nil
}

// EnsureSchemaVersion fails unless the store holds the expected layout version
func EnsureSchemaVersion(ctx context.Context, store graph.Store) error {
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version != graph.SchemaVersion {
		return fmt.Errorf("%w: stored %d, expected %d", ErrSchemaVersionMismatch, version, graph.SchemaVersion)
	}
	return nil
}
