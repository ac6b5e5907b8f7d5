package collections

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const MetadataFormatOpenSea = "opensea"

type Collection struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Name                string    `gorm:"column:name;not null" json:"name"`
	Description         string    `gorm:"column:description" json:"description"`
	ExternalURLTemplate string    `gorm:"column:external_url_template" json:"external_url_template,omitempty"`
	MetadataFormat      string    `gorm:"column:metadata_format;not null;default:'opensea'" json:"metadata_format"`
	FileTokenCID        string    `gorm:"column:file_token_cid" json:"file_token_cid,omitempty"`
	// GeneratedTrait is the total number of component occurrences across all artworks.
	GeneratedTrait int `gorm:"column:generated_trait;not null;default:0" json:"generated_trait"`

	Layers []*Layer `gorm:"foreignKey:CollectionID;constraint:OnDelete:CASCADE" json:"layers,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Collection) TableName() string { return "collection" }

func (c *Collection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
