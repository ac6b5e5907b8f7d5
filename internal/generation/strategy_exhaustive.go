package generation

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
)

// exhaustiveStrategy walks a shuffled enumeration of every option tuple.
// Tuples are mixed-radix integers decoded on demand; each is tried once.
type exhaustiveStrategy struct {
	plan   *Plan
	guard  Acceptor
	radix  []int
	tuples []uint64
	pos    int
}

func newExhaustiveStrategy(cfg Config, plan *Plan, guard Acceptor, rng *rand.Rand) (*exhaustiveStrategy, error) {
	s := &exhaustiveStrategy{plan: plan, guard: guard}
	var size uint64 = 1
	for _, lp := range plan.Layers {
		n := uint64(len(lp.Options))
		if n == 0 {
			continue
		}
		if size > cfg.MaxProductSize/n {
			return nil, fmt.Errorf("%w: exceeds %d tuples", ErrProductTooLarge, cfg.MaxProductSize)
		}
		size *= n
		s.radix = append(s.radix, len(lp.Options))
	}
	if len(s.radix) == 0 {
		return s, nil
	}
	s.tuples = make([]uint64, size)
	for i := range s.tuples {
		s.tuples[i] = uint64(i)
	}
	rng.Shuffle(len(s.tuples), func(i, j int) { s.tuples[i], s.tuples[j] = s.tuples[j], s.tuples[i] })
	return s, nil
}

func (s *exhaustiveStrategy) Name() string { return collections.StrategyRandomAfter }

// Remaining is the number of tuples not yet tried.
func (s *exhaustiveStrategy) Remaining() int { return len(s.tuples) - s.pos }

func (s *exhaustiveStrategy) Next(ctx context.Context) (Candidate, error) {
	for s.pos < len(s.tuples) {
		if err := ctx.Err(); err != nil {
			return Candidate{}, err
		}
		cand := s.decode(s.tuples[s.pos])
		s.pos++
		if !s.hasHeadroom(cand) {
			continue
		}
		ok, err := s.guard.Accept(ctx, s.plan, cand)
		if err != nil {
			return Candidate{}, err
		}
		if !ok {
			continue
		}
		s.plan.Commit(cand)
		return cand, nil
	}
	s.tuples, s.pos = nil, 0
	return Candidate{}, ErrSearchExhausted
}

func (s *exhaustiveStrategy) decode(t uint64) Candidate {
	cand := Candidate{Options: make([]int, 0, len(s.radix))}
	li := 0
	for _, lp := range s.plan.Layers {
		if len(lp.Options) == 0 {
			continue
		}
		r := uint64(s.radix[li])
		cand.Options = append(cand.Options, lp.Options[t%r])
		t /= r
		li++
	}
	return cand
}

func (s *exhaustiveStrategy) hasHeadroom(c Candidate) bool {
	for _, i := range c.Options {
		if !s.plan.Option(i).Headroom() {
			return false
		}
	}
	return true
}
