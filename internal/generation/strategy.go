package generation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
)

var (
	// ErrSlotExhausted means the strategy gave up on the current slot but may produce more.
	ErrSlotExhausted = errors.New("generation: slot exhausted")
	// ErrSearchExhausted means no further candidate can ever be produced.
	ErrSearchExhausted = errors.New("generation: search space exhausted")
	ErrProductTooLarge = errors.New("generation: combination product too large")
	ErrInvalidRequest  = errors.New("generation: invalid request")
)

// Acceptor decides whether a candidate may become an artwork.
type Acceptor interface {
	Accept(ctx context.Context, plan *Plan, c Candidate) (bool, error)
}

// Strategy yields accepted candidates. Quotas are committed before Next returns.
type Strategy interface {
	Name() string
	Next(ctx context.Context) (Candidate, error)
}

// NewStrategy builds the strategy named by kind over plan.
func NewStrategy(kind string, cfg Config, plan *Plan, guard Acceptor, rng *rand.Rand) (Strategy, error) {
	cfg = cfg.normalized()
	switch kind {
	case collections.StrategyNormalRandom, "":
		return newRejectionStrategy(cfg, plan, guard, rng), nil
	case collections.StrategyRandomAfter:
		return newExhaustiveStrategy(cfg, plan, guard, rng)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidRequest, kind)
	}
}
