package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
)

// Models lists every persisted entity in migration order.
func Models() []interface{} {
	return []interface{}{
		&collections.Collection{},
		&collections.Layer{},
		&collections.Component{},
		&collections.Artwork{},
		&collections.ArtworkComponent{},
		&collections.GenerationRun{},
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// EnsureRunIndexes adds the partial indexes used by the run claim query.
func EnsureRunIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_collection_operation_runnable
		ON collection_operation(created_at)
		WHERE deleted_at IS NULL AND status NOT IN ('completed', 'error');
	`).Error; err != nil {
		return fmt.Errorf("create idx_collection_operation_runnable: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_art_image_component_component
		ON art_image_component(component_id, artwork_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_art_image_component_component: %w", err)
	}
	return nil
}
