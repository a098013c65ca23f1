package ballot

import (
	"context"
	"math"
	"math/rand/v2"
)

// maxEnumerated caps the number of slate sequences enumerated exactly.
// Larger spaces are sampled with a Metropolis chain over adjacent swaps.
const maxEnumerated = 20000

// metropolisSweeps is the number of proposals per slot run for each voter
// when the sequence space is sampled instead of enumerated.
const metropolisSweeps = 20

// slateBT scores every slate sequence with a Bradley-Terry product over
// ordered pairs of positions and samples sequences in proportion to it.
type slateBT struct{}

func (slateBT) Generate(ctx context.Context, cfg Config, rng *rand.Rand) (*Profile, error) {
	return generate(ctx, cfg, rng, func(bloc string) (func() []string, error) {
		support := candidateSupport(cfg, bloc, rng)
		coh := cfg.Cohesion[bloc]
		slates := cfg.slates()
		counts := make([]int, len(slates))
		for i, s := range slates {
			counts[i] = len(cfg.Slates[s])
		}

		if sequenceCount(counts) <= maxEnumerated {
			seqs := enumerateSequences(slates, counts)
			weights := make([]float64, len(seqs))
			for i, seq := range seqs {
				weights[i] = math.Exp(btLogWeight(seq, coh))
			}
			return func() []string {
				return fillSlots(seqs[choose(rng, weights)], cfg, support, rng)
			}, nil
		}

		return func() []string {
			seq := plackettSlates(cfg, bloc, rng, totalCandidates(cfg))
			metropolis(seq, coh, rng, metropolisSweeps*len(seq))
			return fillSlots(seq, cfg, support, rng)
		}, nil
	})
}

// btLogWeight is the log of prod_{i<j} c[s_i] / (c[s_i] + c[s_j]).
func btLogWeight(seq []string, coh map[string]float64) float64 {
	lw := 0.0
	for i := 0; i < len(seq); i++ {
		for j := i + 1; j < len(seq); j++ {
			lw += math.Log(pairProb(coh[seq[i]], coh[seq[j]]))
		}
	}
	return lw
}

// pairProb is the chance a slate with cohesion a is ranked above one with b.
func pairProb(a, b float64) float64 {
	if a+b == 0 {
		return 0.5
	}
	return a / (a + b)
}

// metropolis mutates seq in place with adjacent-swap proposals targeting the
// Bradley-Terry distribution.
func metropolis(seq []string, coh map[string]float64, rng *rand.Rand, steps int) {
	if len(seq) < 2 {
		return
	}
	for ; steps > 0; steps-- {
		i := rng.IntN(len(seq) - 1)
		a, b := seq[i], seq[i+1]
		if a == b {
			continue
		}
		// Only the (i, i+1) pair changes order.
		ratio := pairProb(coh[b], coh[a]) / pairProb(coh[a], coh[b])
		if math.IsNaN(ratio) || rng.Float64() < ratio {
			seq[i], seq[i+1] = b, a
		}
	}
}

// sequenceCount returns the multinomial coefficient for counts, saturating
// above maxEnumerated.
func sequenceCount(counts []int) int {
	n := 0
	total := 1.0
	for _, c := range counts {
		for k := 1; k <= c; k++ {
			n++
			total = total * float64(n) / float64(k)
			if total > maxEnumerated {
				return maxEnumerated + 1
			}
		}
	}
	return int(math.Round(total))
}

// enumerateSequences lists every distinct arrangement of slate labels with
// the given multiplicities, in lexicographic slate order.
func enumerateSequences(slates []string, counts []int) [][]string {
	left := append([]int(nil), counts...)
	total := 0
	for _, c := range counts {
		total += c
	}
	var out [][]string
	cur := make([]string, 0, total)
	var walk func()
	walk = func() {
		if len(cur) == total {
			out = append(out, append([]string(nil), cur...))
			return
		}
		for i, s := range slates {
			if left[i] == 0 {
				continue
			}
			left[i]--
			cur = append(cur, s)
			walk()
			cur = cur[:len(cur)-1]
			left[i]++
		}
	}
	walk()
	return out
}
