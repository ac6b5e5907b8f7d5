package generation

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
)

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// TokenMetadata is the OpenSea token metadata document.
type TokenMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	ExternalURL string      `json:"external_url,omitempty"`
	Attributes  []Attribute `json:"attributes"`
}

// MetadataSources resolves names for an artwork's component links.
type MetadataSources struct {
	Layers     map[uuid.UUID]*collections.Layer
	Components map[uuid.UUID]*collections.Component
}

func BuildMetadata(col *collections.Collection, art *collections.Artwork, src MetadataSources) TokenMetadata {
	md := TokenMetadata{
		Name:        art.Name,
		Description: art.Description,
		Image:       "ipfs://" + col.FileTokenCID + "/" + art.Filename,
		Attributes:  []Attribute{},
	}
	if tpl := strings.TrimSpace(col.ExternalURLTemplate); tpl != "" {
		md.ExternalURL = strings.NewReplacer(
			"{id}", art.ID.String(),
			"{filename_without_extension}", art.FilenameStem(),
			"{filename}", art.Filename,
		).Replace(tpl)
	}
	for _, id := range art.ComponentIDs() {
		comp, ok := src.Components[id]
		if !ok {
			continue
		}
		trait := ""
		if layer, ok := src.Layers[comp.LayerID]; ok {
			trait = layer.Name
		}
		md.Attributes = append(md.Attributes, Attribute{TraitType: trait, Value: comp.Name})
	}
	return md
}

func EncodeMetadata(md TokenMetadata) ([]byte, error) {
	return json.MarshalIndent(md, "", "  ")
}
