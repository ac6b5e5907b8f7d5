package generation

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
)

type ChoiceKind uint8

const (
	ChoiceNone ChoiceKind = iota
	ChoiceComponent
)

// Choice is what a layer contributes to a candidate: one component or nothing.
type Choice struct {
	Kind      ChoiceKind
	Component *collections.Component
}

func NoneChoice() Choice { return Choice{Kind: ChoiceNone} }

func ComponentChoice(c *collections.Component) Choice {
	return Choice{Kind: ChoiceComponent, Component: c}
}

func (c Choice) IsNone() bool { return c.Kind == ChoiceNone }

// OptionKey addresses an option in the plan arena. ComponentID is uuid.Nil for "none".
type OptionKey struct {
	LayerID     uuid.UUID
	ComponentID uuid.UUID
}

type Option struct {
	Key       OptionKey
	LayerRank int
	Choice    Choice
	Quota     int
	Used      int
}

func (o *Option) Headroom() bool { return o.Used+1 <= o.Quota }

type LayerPlan struct {
	Layer *collections.Layer
	// Options index into the plan arena.
	Options []int
}

// Plan is the per-run quota table. Options live in one flat arena; layers and
// strategies refer to them by index.
type Plan struct {
	Amount int
	Layers []LayerPlan

	arena       []Option
	index       map[OptionKey]int
	extraChoice bool
}

func (p *Plan) Option(i int) *Option { return &p.arena[i] }

func (p *Plan) Lookup(key OptionKey) (*Option, bool) {
	i, ok := p.index[key]
	if !ok {
		return nil, false
	}
	return &p.arena[i], true
}

func (p *Plan) OptionCount() int { return len(p.arena) }

// Commit records one accepted candidate against the quotas.
func (p *Plan) Commit(c Candidate) {
	for _, i := range c.Options {
		p.arena[i].Used++
	}
}

// FeasibleCombinations is the number of distinct candidates the plan can
// produce, saturating at math.MaxUint64.
func (p *Plan) FeasibleCombinations() uint64 {
	if len(p.Layers) == 0 {
		return 0
	}
	var product uint64 = 1
	for _, lp := range p.Layers {
		n := uint64(len(lp.Options))
		if p.extraChoice && p.layerHasHeadroom(lp) {
			// Carries over a phantom option; overstates capacity.
			n++
		}
		if n == 0 {
			continue
		}
		if product > math.MaxUint64/n {
			return math.MaxUint64
		}
		product *= n
	}
	return product
}

func (p *Plan) layerHasHeadroom(lp LayerPlan) bool {
	for _, i := range lp.Options {
		if p.arena[i].Choice.Kind == ChoiceComponent && p.arena[i].Headroom() {
			return true
		}
	}
	return false
}

// Candidate is one option index per planned layer, in layer order.
type Candidate struct {
	Options []int
}

// Components resolves the candidate to its chosen components, bottom first, skipping "none".
func (p *Plan) Components(c Candidate) []*collections.Component {
	out := make([]*collections.Component, 0, len(c.Options))
	for _, i := range c.Options {
		if opt := p.arena[i]; !opt.Choice.IsNone() {
			out = append(out, opt.Choice.Component)
		}
	}
	return out
}

// ComponentIDs is Components reduced to ids.
func (p *Plan) ComponentIDs(c Candidate) []uuid.UUID {
	comps := p.Components(c)
	ids := make([]uuid.UUID, 0, len(comps))
	for _, comp := range comps {
		ids = append(ids, comp.ID)
	}
	return ids
}

type Planner struct {
	cfg    Config
	layers LayerStore
}

func NewPlanner(cfg Config, layers LayerStore) *Planner {
	return &Planner{cfg: cfg.normalized(), layers: layers}
}

// Plan allocates per-component quotas for amount images across the collection's layers.
func (pl *Planner) Plan(ctx context.Context, collectionID uuid.UUID, class string, amount int) (*Plan, error) {
	layers, err := pl.layers.ListLayers(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list layers: %w", err)
	}
	plan := &Plan{
		Amount:      amount,
		index:       map[OptionKey]int{},
		extraChoice: pl.cfg.ExtraChoiceBump,
	}
	for _, layer := range layers {
		comps, err := pl.layers.ListComponents(ctx, layer.ID, class)
		if err != nil {
			return nil, fmt.Errorf("list components for layer %s: %w", layer.ID, err)
		}
		lp := LayerPlan{Layer: layer}
		total := 0
		for _, comp := range comps {
			quota := int(math.RoundToEven(float64(amount) * comp.RarityWeight / 100))
			if quota <= 0 {
				continue
			}
			if quota+total < amount {
				total += quota
			} else {
				quota = amount - total
				total = amount
			}
			used, err := pl.layers.CountArtworksUsing(ctx, comp.ID)
			if err != nil {
				return nil, fmt.Errorf("count artworks using %s: %w", comp.ID, err)
			}
			if used >= quota {
				continue
			}
			lp.Options = append(lp.Options, plan.add(Option{
				Key:       OptionKey{LayerID: layer.ID, ComponentID: comp.ID},
				LayerRank: layer.Rank,
				Choice:    ComponentChoice(comp),
				Quota:     quota,
				Used:      used,
			}))
		}
		if len(lp.Options) == 0 {
			continue
		}
		if !layer.Required {
			noneQuota := amount - total
			if noneQuota <= 0 {
				noneQuota = int(math.RoundToEven(pl.cfg.NoneFallbackPercent / 100 * float64(amount)))
			}
			if noneQuota > 0 {
				lp.Options = append(lp.Options, plan.add(Option{
					Key:       OptionKey{LayerID: layer.ID},
					LayerRank: layer.Rank,
					Choice:    NoneChoice(),
					Quota:     noneQuota,
				}))
			}
		}
		plan.Layers = append(plan.Layers, lp)
	}
	return plan, nil
}

func (p *Plan) add(o Option) int {
	p.arena = append(p.arena, o)
	i := len(p.arena) - 1
	p.index[o.Key] = i
	return i
}
