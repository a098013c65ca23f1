package ballot

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Config carries everything a generator needs for one district.
type Config struct {
	NumVoters       int
	Slates          map[string][]string
	BlocProportions map[string]float64
	Cohesion        map[string]map[string]float64
	Alphas          map[string]map[string]float64
}

// Generator produces a synthetic electorate. Implementations draw all
// randomness from rng so equal seeds give equal profiles.
type Generator interface {
	Generate(ctx context.Context, cfg Config, rng *rand.Rand) (*Profile, error)
}

var registry = map[string]Generator{
	"slate_pl":  slatePL{},
	"slate_bt":  slateBT{},
	"cambridge": cambridge{},
}

// Lookup returns the generator registered under name.
func Lookup(name string) (Generator, error) {
	g, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown voter model %q", name)
	}
	return g, nil
}

// Known reports whether name is a registered voter model.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Models lists registered voter models in sorted order.
func Models() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c Config) blocs() []string {
	blocs := make([]string, 0, len(c.BlocProportions))
	for b := range c.BlocProportions {
		blocs = append(blocs, b)
	}
	sort.Strings(blocs)
	return blocs
}

func (c Config) slates() []string {
	slates := make([]string, 0, len(c.Slates))
	for s := range c.Slates {
		slates = append(slates, s)
	}
	sort.Strings(slates)
	return slates
}

func (c Config) candidates() []string {
	var out []string
	for _, s := range c.slates() {
		out = append(out, c.Slates[s]...)
	}
	return out
}

func (c Config) validate() error {
	if c.NumVoters <= 0 {
		return fmt.Errorf("num_voters must be positive, got %d", c.NumVoters)
	}
	if len(c.Slates) == 0 {
		return fmt.Errorf("no slates")
	}
	sum := 0.0
	for _, b := range c.blocs() {
		p := c.BlocProportions[b]
		if p < 0 || p > 1 || math.IsNaN(p) {
			return fmt.Errorf("bloc proportion %s=%v outside [0, 1]", b, p)
		}
		if _, ok := c.Cohesion[b]; !ok {
			return fmt.Errorf("no cohesion parameters for bloc %s", b)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("bloc proportions sum to %v", sum)
	}
	return nil
}

// blocVoters splits numVoters across blocs by largest remainder so the
// counts always add up to numVoters.
func blocVoters(numVoters int, blocs []string, props map[string]float64) map[string]int {
	counts := make(map[string]int, len(blocs))
	type rem struct {
		bloc string
		frac float64
	}
	rems := make([]rem, 0, len(blocs))
	assigned := 0
	for _, b := range blocs {
		exact := float64(numVoters) * props[b]
		n := int(math.Floor(exact))
		counts[b] = n
		assigned += n
		rems = append(rems, rem{b, exact - float64(n)})
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; assigned < numVoters && len(rems) > 0; i++ {
		counts[rems[i%len(rems)].bloc]++
		assigned++
	}
	return counts
}

// candidateSupport draws, per slate, a Dirichlet support vector over that
// slate's candidates using the bloc's alpha for the slate.
func candidateSupport(cfg Config, bloc string, rng *rand.Rand) map[string][]float64 {
	out := make(map[string][]float64, len(cfg.Slates))
	for _, s := range cfg.slates() {
		alpha := 1.0
		if a, ok := cfg.Alphas[bloc][s]; ok && a > 0 {
			alpha = a
		}
		alphas := make([]float64, len(cfg.Slates[s]))
		for i := range alphas {
			alphas[i] = alpha
		}
		out[s] = dirichlet(rng, alphas)
	}
	return out
}

// fillSlots turns a sequence of slate labels into a ranking by drawing each
// slate's candidates in Plackett-Luce order from the bloc's support.
func fillSlots(seq []string, cfg Config, support map[string][]float64, rng *rand.Rand) []string {
	orders := make(map[string][]string, len(cfg.Slates))
	for _, s := range cfg.slates() {
		cands := cfg.Slates[s]
		perm := plackettLuce(rng, support[s])
		order := make([]string, len(perm))
		for i, idx := range perm {
			order[i] = cands[idx]
		}
		orders[s] = order
	}
	ranking := make([]string, 0, len(seq))
	for _, s := range seq {
		ranking = append(ranking, orders[s][0])
		orders[s] = orders[s][1:]
	}
	return ranking
}

// generate runs the shared per-bloc loop. draw returns one voter's ranking.
func generate(ctx context.Context, cfg Config, rng *rand.Rand,
	prepare func(bloc string) (func() []string, error),
) (*Profile, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	blocs := cfg.blocs()
	counts := blocVoters(cfg.NumVoters, blocs, cfg.BlocProportions)
	b := newBuilder()
	for _, bloc := range blocs {
		if counts[bloc] == 0 {
			continue
		}
		draw, err := prepare(bloc)
		if err != nil {
			return nil, fmt.Errorf("bloc %s: %w", bloc, err)
		}
		for v := 0; v < counts[bloc]; v++ {
			if v%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			b.add(draw(), 1)
		}
	}
	return b.profile(cfg.candidates()), nil
}
