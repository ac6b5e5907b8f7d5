package generation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
)

// Guard rejects candidates whose component set already exists in the collection.
// It remembers signatures it has seen so repeated draws skip the store.
type Guard struct {
	collectionID uuid.UUID
	artworks     ArtworkStore
	seen         map[string]struct{}
	onReject     func()
}

func NewGuard(collectionID uuid.UUID, artworks ArtworkStore) *Guard {
	return &Guard{collectionID: collectionID, artworks: artworks, seen: map[string]struct{}{}}
}

func (g *Guard) Accept(ctx context.Context, plan *Plan, c Candidate) (bool, error) {
	ids := plan.ComponentIDs(c)
	if len(ids) == 0 {
		return false, nil
	}
	dna := collections.DNA(ids)
	if _, dup := g.seen[dna]; dup {
		g.rejected()
		return false, nil
	}
	exists, err := g.artworks.ExistsWithComponents(ctx, g.collectionID, ids)
	if err != nil {
		return false, fmt.Errorf("check existing artwork: %w", err)
	}
	g.seen[dna] = struct{}{}
	if exists {
		g.rejected()
		return false, nil
	}
	return true, nil
}

func (g *Guard) rejected() {
	if g.onReject != nil {
		g.onReject()
	}
}
