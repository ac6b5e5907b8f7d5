package generation

import (
	"fmt"

	"github.com/google/uuid"
)

func ArtworkFilename(ordinal int) string {
	return fmt.Sprintf("%d.png", ordinal)
}

func ArtworkName(ordinal int) string {
	return fmt.Sprintf("#%d", ordinal)
}

// ArtworkImageKey is scoped by artwork id so renumbering never collides.
func ArtworkImageKey(collectionID, artworkID uuid.UUID, ordinal int) string {
	return fmt.Sprintf("collections/%s/artworks/%s/%s", collectionID, artworkID, ArtworkFilename(ordinal))
}

func ComponentImageKey(collectionID, componentID uuid.UUID, filename string) string {
	return fmt.Sprintf("collections/%s/components/%s/%s", collectionID, componentID, filename)
}

func MetadataKey(collectionID uuid.UUID, stem string) string {
	return fmt.Sprintf("collections/%s/metadata/%s.json", collectionID, stem)
}
