package collections

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ComponentClasses partition a collection's components into independent trait sets.
var ComponentClasses = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}

const DefaultComponentClass = "A"

func ValidComponentClass(class string) bool {
	class = strings.TrimSpace(class)
	for _, c := range ComponentClasses {
		if c == class {
			return true
		}
	}
	return false
}

type Component struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CollectionID   uuid.UUID `gorm:"type:uuid;not null;index" json:"collection_id"`
	LayerID        uuid.UUID `gorm:"type:uuid;not null;index:idx_component_layer_class,priority:1" json:"layer_id"`
	Layer          *Layer    `gorm:"constraint:OnDelete:CASCADE;foreignKey:LayerID;references:ID" json:"-"`
	Name           string    `gorm:"column:name;not null" json:"name"`
	ComponentClass string    `gorm:"column:component_class;not null;default:'A';index:idx_component_layer_class,priority:2" json:"component_class"`
	// RarityWeight is a percentage relative to siblings in the same layer and class.
	RarityWeight float64 `gorm:"column:rarity_weight;not null;default:0" json:"rarity_weight"`
	ImageKey     string  `gorm:"column:image_key;not null" json:"image_key"`
	ContentType  string  `gorm:"column:content_type" json:"content_type,omitempty"`

	GeneratedNumber int     `gorm:"column:generated_number;not null;default:0" json:"generated_number"`
	Rarity          float64 `gorm:"column:rarity;not null;default:0" json:"rarity"`
	RarityPercent   float64 `gorm:"column:rarity_percent;not null;default:0" json:"rarity_percent"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Component) TableName() string { return "component_image" }

func (c *Component) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
