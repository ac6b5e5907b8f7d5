package generation

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
)

func TestGuardRejectsExistingComponentSet(t *testing.T) {
	store := newMemStore()
	a := store.addLayer("A", 0, true)
	b := store.addLayer("B", 1, false)
	x := store.addComponent(a, "x", 50)
	store.addComponent(a, "y", 50)
	p := store.addComponent(b, "p", 50)

	// Existing artwork stores the components in reverse order.
	store.artworks = append(store.artworks, &collections.Artwork{
		ID:           uuid.New(),
		CollectionID: store.collection.ID,
		Name:         "#1",
		DNA:          collections.DNA([]uuid.UUID{p.ID, x.ID}),
	})

	plan, err := NewPlanner(DefaultConfig(), store).Plan(context.Background(), store.collection.ID, "A", 4)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	idx := func(layer *collections.Layer, comp *collections.Component) int {
		key := OptionKey{LayerID: layer.ID}
		if comp != nil {
			key.ComponentID = comp.ID
		}
		return plan.index[key]
	}

	g := NewGuard(store.collection.ID, store)
	ctx := context.Background()

	ok, err := g.Accept(ctx, plan, Candidate{Options: []int{idx(a, x), idx(b, p)}})
	if err != nil || ok {
		t.Fatalf("duplicate set must be rejected: ok=%v err=%v", ok, err)
	}
	ok, err = g.Accept(ctx, plan, Candidate{Options: []int{idx(a, x), idx(b, nil)}})
	if err != nil || !ok {
		t.Fatalf("x alone should be accepted: ok=%v err=%v", ok, err)
	}
	// Second time around the guard remembers the signature.
	ok, _ = g.Accept(ctx, plan, Candidate{Options: []int{idx(a, x), idx(b, nil)}})
	if ok {
		t.Fatalf("repeated candidate must be rejected")
	}
}

func TestGuardRejectsEmptyCandidate(t *testing.T) {
	store := newMemStore()
	l := store.addLayer("A", 0, false)
	store.addComponent(l, "x", 50)
	plan, err := NewPlanner(DefaultConfig(), store).Plan(context.Background(), store.collection.ID, "A", 2)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	none := plan.index[OptionKey{LayerID: l.ID}]
	ok, err := NewGuard(store.collection.ID, store).Accept(context.Background(), plan, Candidate{Options: []int{none}})
	if err != nil || ok {
		t.Fatalf("all-none candidate must be rejected: ok=%v err=%v", ok, err)
	}
}
