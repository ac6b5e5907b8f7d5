package collections

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Layer is one stacking slot. Lower Rank is drawn first.
type Layer struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CollectionID uuid.UUID   `gorm:"type:uuid;not null;index:idx_layer_collection_rank,priority:1" json:"collection_id"`
	Collection   *Collection `gorm:"constraint:OnDelete:CASCADE;foreignKey:CollectionID;references:ID" json:"-"`
	Name         string      `gorm:"column:name;not null" json:"name"`
	Rank         int         `gorm:"column:layer_order;not null;default:0;index:idx_layer_collection_rank,priority:2" json:"order"`
	Required     bool        `gorm:"column:required;not null" json:"required"`

	Components []*Component `gorm:"foreignKey:LayerID;constraint:OnDelete:CASCADE" json:"components,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Layer) TableName() string { return "image_layer" }

func (l *Layer) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
