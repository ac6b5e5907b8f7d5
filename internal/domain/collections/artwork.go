package collections

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Artwork is one generated image. DNA is unique per collection.
type Artwork struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CollectionID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_artwork_collection_dna,priority:1;index" json:"collection_id"`
	OwnerUserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	GenerationRunID *uuid.UUID `gorm:"type:uuid;index" json:"generation_run_id,omitempty"`
	Name            string     `gorm:"column:name;not null;index" json:"name"`
	Description     string     `gorm:"column:description" json:"description"`
	Filename        string     `gorm:"column:filename;not null" json:"filename"`
	ImageKey        string     `gorm:"column:image_key;not null" json:"image_key"`
	ContentType     string     `gorm:"column:content_type;not null;default:'image/png'" json:"content_type"`
	ComponentClass  string     `gorm:"column:component_class" json:"component_class"`
	DNA             string     `gorm:"column:dna;not null;uniqueIndex:idx_artwork_collection_dna,priority:2" json:"dna"`
	Rarity          float64    `gorm:"column:rarity;not null;default:0" json:"rarity"`
	RarityPercent   float64    `gorm:"column:rarity_percent;not null;default:0" json:"rarity_percent"`

	Components []ArtworkComponent `gorm:"foreignKey:ArtworkID;constraint:OnDelete:CASCADE" json:"components,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Artwork) TableName() string { return "art_image" }

func (a *Artwork) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ComponentIDs lists the artwork's components bottom layer first.
func (a *Artwork) ComponentIDs() []uuid.UUID {
	ordered := make([]ArtworkComponent, len(a.Components))
	copy(ordered, a.Components)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].LayerRank < ordered[j].LayerRank })
	out := make([]uuid.UUID, 0, len(ordered))
	for _, c := range ordered {
		out = append(out, c.ComponentID)
	}
	return out
}

// FilenameStem is the filename without its extension ("12.png" -> "12").
func (a *Artwork) FilenameStem() string {
	return strings.TrimSuffix(a.Filename, path.Ext(a.Filename))
}

// OrdinalFromFilename parses "<n>.png"; ok is false for anything else.
func OrdinalFromFilename(filename string) (n int, ok bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(filename, path.Ext(filename)))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ArtworkComponent links an artwork to one chosen component.
type ArtworkComponent struct {
	ArtworkID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"artwork_id"`
	ComponentID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"component_id"`
	LayerID     uuid.UUID `gorm:"type:uuid;not null" json:"layer_id"`
	LayerRank   int       `gorm:"column:layer_order;not null;default:0" json:"layer_order"`
}

func (ArtworkComponent) TableName() string { return "art_image_component" }

// DNA is the order-insensitive signature of a component set.
func DNA(componentIDs []uuid.UUID) string {
	if len(componentIDs) == 0 {
		return ""
	}
	ids := make([]string, 0, len(componentIDs))
	for _, id := range componentIDs {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, "|")))
	return hex.EncodeToString(sum[:])
}
