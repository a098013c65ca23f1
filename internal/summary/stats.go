package summary

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Distribution describes plan-level focal seats for one (n, winners, model).
type Distribution struct {
	NumDistricts int     `json:"district_num"`
	Winners      int     `json:"winners"`
	VoterModel   string  `json:"voter_model"`
	TotalSeats   int     `json:"total_seats"`
	Count        int     `json:"count"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Median       float64 `json:"median"`
	Max          float64 `json:"max"`
}

// MeanShare is the mean focal seat share.
func (d Distribution) MeanShare() float64 {
	if d.TotalSeats == 0 {
		return 0
	}
	return d.Mean / float64(d.TotalSeats)
}

type distKey struct {
	n, w  int
	model string
}

// Distributions groups plan rows by configuration and model. Plans are
// sorted by (n, winners, model) so output order is stable.
func Distributions(plans []PlanRow) []Distribution {
	values := make(map[distKey][]float64)
	seats := make(map[distKey]int)
	var keys []distKey
	for _, p := range plans {
		k := distKey{p.NumDistricts, p.Winners, p.VoterModel}
		if _, ok := values[k]; !ok {
			keys = append(keys, k)
		}
		values[k] = append(values[k], float64(p.FocalSeats))
		seats[k] = p.TotalSeats
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].n != keys[j].n {
			return keys[i].n < keys[j].n
		}
		if keys[i].w != keys[j].w {
			return keys[i].w < keys[j].w
		}
		return keys[i].model < keys[j].model
	})

	out := make([]Distribution, 0, len(keys))
	for _, k := range keys {
		out = append(out, Describe(k.n, k.w, k.model, seats[k], values[k]))
	}
	return out
}

// Describe summarizes one sample of focal seat counts.
func Describe(n, w int, model string, totalSeats int, xs []float64) Distribution {
	d := Distribution{NumDistricts: n, Winners: w, VoterModel: model, TotalSeats: totalSeats, Count: len(xs)}
	if len(xs) == 0 {
		return d
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	d.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		d.StdDev = stat.StdDev(sorted, nil)
	}
	d.Min = floats.Min(sorted)
	d.Max = floats.Max(sorted)
	d.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return d
}
