package ballot

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// gamma samples Gamma(shape, 1) with the Marsaglia-Tsang method.
func gamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return gamma(rng, shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3
	c := 1 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// dirichlet samples a probability vector. If every component underflows the
// result is uniform.
func dirichlet(rng *rand.Rand, alphas []float64) []float64 {
	out := make([]float64, len(alphas))
	for i, a := range alphas {
		out[i] = gamma(rng, a)
	}
	sum := floats.Sum(out)
	if sum == 0 || math.IsInf(sum, 0) {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	floats.Scale(1/sum, out)
	return out
}

// choose returns an index drawn proportionally to weights, uniformly when
// every weight is zero. It panics on an empty slice.
func choose(rng *rand.Rand, weights []float64) int {
	total := floats.Sum(weights)
	if total <= 0 {
		return rng.IntN(len(weights))
	}
	r := rng.Float64() * total
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		r -= w
		if r < 0 {
			return i
		}
	}
	return last
}

// plackettLuce draws a full permutation of indices: each position picks
// among the remaining items proportionally to their weight.
func plackettLuce(rng *rand.Rand, weights []float64) []int {
	remaining := make([]int, len(weights))
	w := make([]float64, len(weights))
	for i := range remaining {
		remaining[i] = i
		w[i] = weights[i]
	}
	perm := make([]int, 0, len(weights))
	for len(remaining) > 0 {
		k := choose(rng, w)
		perm = append(perm, remaining[k])
		remaining = append(remaining[:k], remaining[k+1:]...)
		w = append(w[:k], w[k+1:]...)
	}
	return perm
}
