package generation

import (
	"context"
	"math/rand/v2"
	"slices"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
)

// rejectionStrategy draws uniformly per layer among options that still have
// quota and retries a bounded number of times per slot.
type rejectionStrategy struct {
	maxTries int
	plan     *Plan
	guard    Acceptor
	rng      *rand.Rand
	live     [][]int
}

func newRejectionStrategy(cfg Config, plan *Plan, guard Acceptor, rng *rand.Rand) *rejectionStrategy {
	s := &rejectionStrategy{maxTries: cfg.MaxTries, plan: plan, guard: guard, rng: rng}
	for _, lp := range plan.Layers {
		var opts []int
		for _, i := range lp.Options {
			if plan.Option(i).Headroom() {
				opts = append(opts, i)
			}
		}
		if len(opts) > 0 {
			s.live = append(s.live, opts)
		}
	}
	return s
}

func (s *rejectionStrategy) Name() string { return collections.StrategyNormalRandom }

func (s *rejectionStrategy) Next(ctx context.Context) (Candidate, error) {
	if len(s.live) == 0 {
		return Candidate{}, ErrSearchExhausted
	}
	for try := 0; try < s.maxTries; try++ {
		if err := ctx.Err(); err != nil {
			return Candidate{}, err
		}
		cand := Candidate{Options: make([]int, len(s.live))}
		for li, opts := range s.live {
			cand.Options[li] = opts[s.rng.IntN(len(opts))]
		}
		ok, err := s.guard.Accept(ctx, s.plan, cand)
		if err != nil {
			return Candidate{}, err
		}
		if ok {
			s.plan.Commit(cand)
			s.prune(cand)
			return cand, nil
		}
	}
	return Candidate{}, ErrSlotExhausted
}

// prune drops options that ran out of quota and layers left with no options.
func (s *rejectionStrategy) prune(c Candidate) {
	for li, chosen := range c.Options {
		if s.plan.Option(chosen).Headroom() {
			continue
		}
		s.live[li] = slices.DeleteFunc(s.live[li], func(i int) bool { return i == chosen })
	}
	s.live = slices.DeleteFunc(s.live, func(opts []int) bool { return len(opts) == 0 })
}
