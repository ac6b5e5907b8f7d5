package generation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

func seedShuffleFixture(t *testing.T, n int) (*memStore, *memImages) {
	t.Helper()
	store := newMemStore()
	images := newMemImages()
	l := store.addLayer("L", 0, true)
	for i := 1; i <= n; i++ {
		c := store.addComponent(l, fmt.Sprintf("c%d", i), 10)
		art := addArtwork(store, ArtworkFilename(i), c)
		art.Name = ArtworkName(i)
		art.ImageKey = ArtworkImageKey(store.collection.ID, art.ID, i)
		_ = images.Write(context.Background(), art.ImageKey, []byte{byte(i)}, "image/png")
	}
	return store, images
}

func TestShuffleIsBijection(t *testing.T) {
	store, images := seedShuffleFixture(t, 6)
	before := map[uuid.UUID][]byte{}
	for _, a := range store.allArtworks() {
		data, _, _ := images.Read(context.Background(), a.ImageKey)
		before[a.ID] = data
	}

	s := NewShuffler(logger.Nop(), store, images)
	assigned, err := s.Shuffle(context.Background(), store.collection.ID, rand.New(rand.NewPCG(9, 9)))
	if err != nil {
		t.Fatalf("Shuffle: %v", err)
	}
	if len(assigned) != 6 {
		t.Fatalf("want 6 assignments got %d", len(assigned))
	}
	names := map[string]bool{}
	for _, a := range store.allArtworks() {
		names[a.Name] = true
		want := assigned[a.ID]
		if a.Name != ArtworkName(want) || a.Description != ArtworkName(want) || a.Filename != ArtworkFilename(want) {
			t.Fatalf("artwork %s not renamed consistently: %+v", a.ID, a)
		}
		data, _, err := images.Read(context.Background(), a.ImageKey)
		if err != nil {
			t.Fatalf("image missing after rename: %v", err)
		}
		if string(data) != string(before[a.ID]) {
			t.Fatalf("image content moved to the wrong artwork")
		}
	}
	for i := 1; i <= 6; i++ {
		if !names[ArtworkName(i)] {
			t.Fatalf("missing name %s", ArtworkName(i))
		}
	}
	if images.count() != 6 {
		t.Fatalf("renames must not leave stale objects, have %d", images.count())
	}
}

func TestShuffleIsUniform(t *testing.T) {
	store, images := seedShuffleFixture(t, 3)
	ids := []uuid.UUID{}
	for _, a := range store.allArtworks() {
		ids = append(ids, a.ID)
	}
	s := NewShuffler(logger.Nop(), store, images)
	rng := rand.New(rand.NewPCG(42, 1))

	const trials = 3000
	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		assigned, err := s.Shuffle(context.Background(), store.collection.ID, rng)
		if err != nil {
			t.Fatalf("Shuffle: %v", err)
		}
		counts[fmt.Sprint(assigned[ids[0]], assigned[ids[1]], assigned[ids[2]])]++
	}
	if len(counts) != 6 {
		t.Fatalf("want all 6 orderings, saw %d: %v", len(counts), counts)
	}
	for k, n := range counts {
		// expected 500 each; ±100 is about five standard deviations
		if n < 400 || n > 600 {
			t.Fatalf("ordering %s appeared %d times out of %d", k, n, trials)
		}
	}
}

// flakyArtworks fails the failOn-th UpdateArtwork call.
type flakyArtworks struct {
	*memStore
	calls  int
	failOn int
}

func (f *flakyArtworks) UpdateArtwork(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	f.calls++
	if f.calls == f.failOn {
		return errors.New("db down")
	}
	return f.memStore.UpdateArtwork(ctx, id, fields)
}

func TestShuffleRestoresRowsWhenUpdateFails(t *testing.T) {
	store, images := seedShuffleFixture(t, 4)
	before := map[uuid.UUID]collections.Artwork{}
	for _, a := range store.allArtworks() {
		before[a.ID] = *a
	}

	s := NewShuffler(logger.Nop(), &flakyArtworks{memStore: store, failOn: 2}, images)
	if _, err := s.Shuffle(context.Background(), store.collection.ID, rand.New(rand.NewPCG(3, 4))); err == nil {
		t.Fatalf("expected update failure")
	}

	names := map[string]int{}
	for _, a := range store.allArtworks() {
		was := before[a.ID]
		if a.Name != was.Name || a.Filename != was.Filename || a.ImageKey != was.ImageKey {
			t.Fatalf("artwork %s not restored: got %+v want %+v", a.ID, a, was)
		}
		if !images.has(a.ImageKey) {
			t.Fatalf("artwork %s points at missing image %s", a.ID, a.ImageKey)
		}
		names[a.Name]++
	}
	for name, n := range names {
		if n != 1 {
			t.Fatalf("name %s used %d times", name, n)
		}
	}
	if images.count() != 4 {
		t.Fatalf("copies must be cleaned up, have %d objects", images.count())
	}
}

func TestShuffleCancelledLeavesCollectionIntact(t *testing.T) {
	store, images := seedShuffleFixture(t, 3)
	keys := map[uuid.UUID]string{}
	for _, a := range store.allArtworks() {
		keys[a.ID] = a.ImageKey
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewShuffler(logger.Nop(), store, images)
	if _, err := s.Shuffle(ctx, store.collection.ID, rand.New(rand.NewPCG(1, 2))); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	for _, a := range store.allArtworks() {
		if a.ImageKey != keys[a.ID] || !images.has(a.ImageKey) {
			t.Fatalf("artwork %s changed on a cancelled shuffle", a.ID)
		}
	}
	if images.count() != 3 {
		t.Fatalf("want 3 objects, have %d", images.count())
	}
}
