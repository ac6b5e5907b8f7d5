package generation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

// Shuffler reassigns public ordinals #1..#N to a collection's artworks in random order.
// Renumbering breaks any external reference to the old ordinals.
type Shuffler struct {
	log      *logger.Logger
	artworks ArtworkStore
	images   ImageStore
}

func NewShuffler(log *logger.Logger, artworks ArtworkStore, images ImageStore) *Shuffler {
	return &Shuffler{log: log.With("service", "Shuffler"), artworks: artworks, images: images}
}

type renumber struct {
	art     *collections.Artwork
	before  map[string]interface{}
	oldKey  string
	ordinal int
	newKey  string
	copied  bool
	updated bool
}

func (r *renumber) moves() bool { return r.newKey != r.oldKey }

// Shuffle returns the new ordinal per artwork id.
//
// Images are copied to their new keys first, then rows are updated, and old
// keys are deleted last. A failure before the last step restores every row it
// touched and removes the copies, so rows always point at live objects and
// ordinals stay unique.
func (s *Shuffler) Shuffle(ctx context.Context, collectionID uuid.UUID, rng *rand.Rand) (map[uuid.UUID]int, error) {
	arts, err := s.artworks.ListArtworks(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list artworks: %w", err)
	}
	perm := rng.Perm(len(arts))
	plan := make([]*renumber, len(arts))
	for i, a := range arts {
		ordinal := perm[i] + 1
		plan[i] = &renumber{
			art:     a,
			before:  artworkFields(a.Name, a.Description, a.Filename, a.ImageKey),
			oldKey:  a.ImageKey,
			ordinal: ordinal,
			newKey:  ArtworkImageKey(collectionID, a.ID, ordinal),
		}
	}

	if err := s.apply(ctx, plan); err != nil {
		if rbErr := s.rollback(context.WithoutCancel(ctx), plan); rbErr != nil {
			s.log.Error("token shuffle rollback incomplete", "collection_id", collectionID, "error", rbErr)
			return nil, errors.Join(err, rbErr)
		}
		return nil, err
	}

	assigned := make(map[uuid.UUID]int, len(plan))
	for _, r := range plan {
		assigned[r.art.ID] = r.ordinal
		if r.moves() {
			if err := s.images.Delete(ctx, r.oldKey); err != nil {
				s.log.Warn("stale artwork image left behind", "key", r.oldKey, "error", err)
			}
		}
	}
	s.log.Info("token ids shuffled", "collection_id", collectionID, "count", len(plan))
	return assigned, nil
}

func (s *Shuffler) apply(ctx context.Context, plan []*renumber) error {
	for _, r := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.moves() {
			continue
		}
		if err := s.images.Copy(ctx, r.oldKey, r.newKey); err != nil {
			return fmt.Errorf("copy artwork %s image: %w", r.art.ID, err)
		}
		r.copied = true
	}
	for _, r := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := ArtworkName(r.ordinal)
		if err := s.artworks.UpdateArtwork(ctx, r.art.ID, artworkFields(name, name, ArtworkFilename(r.ordinal), r.newKey)); err != nil {
			return fmt.Errorf("update artwork %s ordinal: %w", r.art.ID, err)
		}
		r.updated = true
	}
	return nil
}

func (s *Shuffler) rollback(ctx context.Context, plan []*renumber) error {
	var errs []error
	for _, r := range plan {
		if r.updated {
			if err := s.artworks.UpdateArtwork(ctx, r.art.ID, r.before); err != nil {
				errs = append(errs, fmt.Errorf("restore artwork %s: %w", r.art.ID, err))
				// the row still references the copy; keep it
				continue
			}
		}
		if r.copied {
			if err := s.images.Delete(ctx, r.newKey); err != nil {
				s.log.Warn("shuffle copy left behind", "key", r.newKey, "error", err)
			}
		}
	}
	return errors.Join(errs...)
}

func artworkFields(name, description, filename, imageKey string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"filename":    filename,
		"image_key":   imageKey,
	}
}
