package generation

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

type ComponentStats struct {
	GeneratedNumber int
	Rarity          float64
	RarityPercent   float64
}

type RarityReport struct {
	Images          int
	TraitOccurrence int
	Components      map[uuid.UUID]ComponentStats
}

type RarityCalculator struct {
	log      *logger.Logger
	layers   LayerStore
	artworks ArtworkStore
}

func NewRarityCalculator(log *logger.Logger, layers LayerStore, artworks ArtworkStore) *RarityCalculator {
	return &RarityCalculator{log: log.With("service", "RarityCalculator"), layers: layers, artworks: artworks}
}

// Recount recomputes component and artwork rarity from the collection's current artworks.
func (r *RarityCalculator) Recount(ctx context.Context, collectionID uuid.UUID) (*RarityReport, error) {
	arts, err := r.artworks.ListArtworks(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list artworks: %w", err)
	}
	report := &RarityReport{Images: len(arts), Components: map[uuid.UUID]ComponentStats{}}

	counts := map[uuid.UUID]int{}
	for _, a := range arts {
		for _, id := range a.ComponentIDs() {
			counts[id]++
			report.TraitOccurrence++
		}
	}

	// Components that no artwork uses any more go back to zero.
	if err := r.resetUnused(ctx, collectionID, counts); err != nil {
		return nil, err
	}
	if len(arts) == 0 || report.TraitOccurrence == 0 {
		if err := r.layers.SetGeneratedTrait(ctx, collectionID, 0); err != nil {
			return nil, fmt.Errorf("set generated trait: %w", err)
		}
		return report, nil
	}

	ids := make([]uuid.UUID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	total := float64(report.TraitOccurrence)
	images := float64(report.Images)
	for _, id := range ids {
		n := counts[id]
		st := ComponentStats{
			GeneratedNumber: n,
			Rarity:          1 / (float64(n) / total),
			RarityPercent:   float64(n) / images * 100,
		}
		report.Components[id] = st
		if err := r.layers.UpdateComponentStats(ctx, id, st.GeneratedNumber, st.Rarity, st.RarityPercent); err != nil {
			return nil, fmt.Errorf("update component %s stats: %w", id, err)
		}
	}
	if err := r.layers.SetGeneratedTrait(ctx, collectionID, report.TraitOccurrence); err != nil {
		return nil, fmt.Errorf("set generated trait: %w", err)
	}

	for _, a := range arts {
		compIDs := a.ComponentIDs()
		var rarity, pct float64
		for _, id := range compIDs {
			st := report.Components[id]
			rarity += st.Rarity
			pct += st.RarityPercent
		}
		if len(compIDs) > 0 {
			pct /= float64(len(compIDs))
		}
		label := "#" + a.FilenameStem()
		if err := r.artworks.UpdateArtwork(ctx, a.ID, map[string]interface{}{
			"rarity":         rarity,
			"rarity_percent": pct,
			"name":           label,
			"description":    label,
		}); err != nil {
			return nil, fmt.Errorf("update artwork %s rarity: %w", a.ID, err)
		}
	}
	r.log.Info("rarity recounted", "collection_id", collectionID, "images", report.Images, "trait_occurrence", report.TraitOccurrence)
	return report, nil
}

func (r *RarityCalculator) resetUnused(ctx context.Context, collectionID uuid.UUID, used map[uuid.UUID]int) error {
	layers, err := r.layers.ListLayers(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("list layers: %w", err)
	}
	for _, l := range layers {
		comps, err := r.layers.ListComponents(ctx, l.ID, "")
		if err != nil {
			return fmt.Errorf("list components for layer %s: %w", l.ID, err)
		}
		for _, c := range comps {
			if _, ok := used[c.ID]; ok || (c.GeneratedNumber == 0 && c.Rarity == 0 && c.RarityPercent == 0) {
				continue
			}
			if err := r.layers.UpdateComponentStats(ctx, c.ID, 0, 0, 0); err != nil {
				return fmt.Errorf("reset component %s stats: %w", c.ID, err)
			}
		}
	}
	return nil
}
