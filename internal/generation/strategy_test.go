package generation

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
)

func twoByTwoPlan(t *testing.T) (*memStore, *Plan) {
	t.Helper()
	store := newMemStore()
	a := store.addLayer("A", 0, true)
	b := store.addLayer("B", 1, true)
	store.addComponent(a, "x", 50)
	store.addComponent(a, "y", 50)
	store.addComponent(b, "p", 50)
	store.addComponent(b, "q", 50)
	plan, err := NewPlanner(DefaultConfig(), store).Plan(context.Background(), store.collection.ID, "A", 4)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return store, plan
}

func drain(t *testing.T, s Strategy, slots int) ([]Candidate, int) {
	t.Helper()
	var out []Candidate
	skipped := 0
	for i := 0; i < slots; i++ {
		c, err := s.Next(context.Background())
		if errors.Is(err, ErrSlotExhausted) {
			skipped++
			continue
		}
		if errors.Is(err, ErrSearchExhausted) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, c)
	}
	return out, skipped
}

func assertQuotasRespected(t *testing.T, plan *Plan) {
	t.Helper()
	for i := 0; i < plan.OptionCount(); i++ {
		if o := plan.Option(i); o.Used > o.Quota {
			t.Fatalf("option %v used %d over quota %d", o.Key, o.Used, o.Quota)
		}
	}
}

func assertDistinct(t *testing.T, plan *Plan, cands []Candidate) {
	t.Helper()
	seen := map[string]bool{}
	for _, c := range cands {
		dna := collections.DNA(plan.ComponentIDs(c))
		if seen[dna] {
			t.Fatalf("duplicate candidate %v", c.Options)
		}
		seen[dna] = true
	}
}

func TestRejectionStrategyRespectsQuotas(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		_, plan := twoByTwoPlan(t)
		cfg := DefaultConfig()
		cfg.MaxTries = 50
		s, err := NewStrategy(collections.StrategyNormalRandom, cfg, plan, newDedupeAcceptor(), rand.New(rand.NewPCG(seed, 7)))
		if err != nil {
			t.Fatalf("NewStrategy: %v", err)
		}
		cands, _ := drain(t, s, 4)
		assertQuotasRespected(t, plan)
		assertDistinct(t, plan, cands)
		if len(cands) == 0 {
			t.Fatalf("seed %d: expected at least one candidate", seed)
		}
	}
}

func TestRejectionStrategyStopsWhenOptionsRunOut(t *testing.T) {
	store := newMemStore()
	l := store.addLayer("A", 0, true)
	store.addComponent(l, "only", 100)
	plan, err := NewPlanner(DefaultConfig(), store).Plan(context.Background(), store.collection.ID, "A", 1)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	s, _ := NewStrategy(collections.StrategyNormalRandom, DefaultConfig(), plan, newDedupeAcceptor(), rand.New(rand.NewPCG(1, 1)))
	if _, err := s.Next(context.Background()); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrSearchExhausted) {
		t.Fatalf("want ErrSearchExhausted got %v", err)
	}
}

func TestRejectionStrategySlotExhausted(t *testing.T) {
	_, plan := twoByTwoPlan(t)
	cfg := DefaultConfig()
	cfg.MaxTries = 5
	rejectAll := acceptFunc(func(*Plan, Candidate) bool { return false })
	s, _ := NewStrategy(collections.StrategyNormalRandom, cfg, plan, rejectAll, rand.New(rand.NewPCG(1, 2)))
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrSlotExhausted) {
		t.Fatalf("want ErrSlotExhausted got %v", err)
	}
	for i := 0; i < plan.OptionCount(); i++ {
		if plan.Option(i).Used != 0 {
			t.Fatalf("rejected candidates must not consume quota")
		}
	}
}

func TestExhaustiveStrategyEnumeratesEverything(t *testing.T) {
	_, plan := twoByTwoPlan(t)
	s, err := NewStrategy(collections.StrategyRandomAfter, DefaultConfig(), plan, newDedupeAcceptor(), rand.New(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}
	cands, skipped := drain(t, s, 10)
	if skipped != 0 {
		t.Fatalf("exhaustive strategy never skips slots, got %d", skipped)
	}
	if len(cands) != 4 {
		t.Fatalf("want all 4 combinations got %d", len(cands))
	}
	assertQuotasRespected(t, plan)
	assertDistinct(t, plan, cands)
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrSearchExhausted) {
		t.Fatalf("want ErrSearchExhausted after draining got %v", err)
	}
}

func TestExhaustiveStrategyDiscardsTuplesWithoutHeadroom(t *testing.T) {
	store := newMemStore()
	a := store.addLayer("A", 0, true)
	b := store.addLayer("B", 1, true)
	store.addComponent(a, "x", 100)
	store.addComponent(b, "p", 50)
	store.addComponent(b, "q", 50)
	plan, err := NewPlanner(DefaultConfig(), store).Plan(context.Background(), store.collection.ID, "A", 2)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	// Cap x at one use so whichever tuple comes second lacks headroom.
	plan.Option(0).Quota = 1
	s, _ := NewStrategy(collections.StrategyRandomAfter, DefaultConfig(), plan, newDedupeAcceptor(), rand.New(rand.NewPCG(5, 6)))
	cands, _ := drain(t, s, 5)
	if len(cands) != 1 {
		t.Fatalf("x can be used once, want 1 candidate got %d", len(cands))
	}
	assertQuotasRespected(t, plan)
}

func TestExhaustiveStrategyProductCap(t *testing.T) {
	_, plan := twoByTwoPlan(t)
	cfg := DefaultConfig()
	cfg.MaxProductSize = 3
	if _, err := NewStrategy(collections.StrategyRandomAfter, cfg, plan, newDedupeAcceptor(), rand.New(rand.NewPCG(1, 1))); !errors.Is(err, ErrProductTooLarge) {
		t.Fatalf("want ErrProductTooLarge got %v", err)
	}
}

func TestNewStrategyUnknown(t *testing.T) {
	_, plan := twoByTwoPlan(t)
	if _, err := NewStrategy("bogus", DefaultConfig(), plan, newDedupeAcceptor(), rand.New(rand.NewPCG(1, 1))); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("want ErrInvalidRequest got %v", err)
	}
}

type acceptFunc func(*Plan, Candidate) bool

func (f acceptFunc) Accept(_ context.Context, p *Plan, c Candidate) (bool, error) { return f(p, c), nil }
