package ballot

import (
	"context"
	"math/rand/v2"
)

// slatePL ranks slates position by position: each slot goes to a slate with
// candidates left, chosen proportionally to the bloc's cohesion for it.
type slatePL struct{}

func (slatePL) Generate(ctx context.Context, cfg Config, rng *rand.Rand) (*Profile, error) {
	return generate(ctx, cfg, rng, func(bloc string) (func() []string, error) {
		support := candidateSupport(cfg, bloc, rng)
		return func() []string {
			seq := plackettSlates(cfg, bloc, rng, totalCandidates(cfg))
			return fillSlots(seq, cfg, support, rng)
		}, nil
	})
}

// cambridge picks the first slate by cohesion and then continues in
// slate-PL order, truncating the ballot at a uniformly drawn length.
type cambridge struct{}

func (cambridge) Generate(ctx context.Context, cfg Config, rng *rand.Rand) (*Profile, error) {
	return generate(ctx, cfg, rng, func(bloc string) (func() []string, error) {
		support := candidateSupport(cfg, bloc, rng)
		k := totalCandidates(cfg)
		return func() []string {
			length := 1 + rng.IntN(k)
			seq := plackettSlates(cfg, bloc, rng, length)
			return fillSlots(seq, cfg, support, rng)
		}, nil
	})
}

func totalCandidates(cfg Config) int {
	n := 0
	for _, c := range cfg.Slates {
		n += len(c)
	}
	return n
}

// plackettSlates draws length slate labels, never exceeding a slate's size.
func plackettSlates(cfg Config, bloc string, rng *rand.Rand, length int) []string {
	slates := cfg.slates()
	left := make([]int, len(slates))
	for i, s := range slates {
		left[i] = len(cfg.Slates[s])
	}
	seq := make([]string, 0, length)
	w := make([]float64, len(slates))
	for len(seq) < length {
		open := false
		for i, s := range slates {
			w[i] = 0
			if left[i] > 0 {
				w[i] = cfg.Cohesion[bloc][s]
				open = true
			}
		}
		if !open {
			break
		}
		i := chooseOpen(rng, w, left)
		seq = append(seq, slates[i])
		left[i]--
	}
	return seq
}

// chooseOpen is choose restricted to slates with candidates left; when every
// open slate has zero weight one of them is taken uniformly.
func chooseOpen(rng *rand.Rand, w []float64, left []int) int {
	total := 0.0
	for _, x := range w {
		total += x
	}
	if total > 0 {
		return choose(rng, w)
	}
	var open []int
	for i, n := range left {
		if n > 0 {
			open = append(open, i)
		}
	}
	return open[rng.IntN(len(open))]
}
