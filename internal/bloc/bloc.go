// Package bloc holds the two-bloc arithmetic shared by settings derivation and
// summarization.
package bloc

import (
	"fmt"
	"sort"
)

// Proportion is interest/total, 0 when total is 0.
func Proportion(interest, total float64) float64 {
	if total == 0 {
		return 0
	}
	return interest / total
}

// TurnoutAdjust reweights a population share p by each bloc's turnout:
//
//	p*tf / (p*tf + (1-p)*to)
//
// The result is 0 when the denominator vanishes and is clamped to [0, 1].
func TurnoutAdjust(p, focalTurnout, otherTurnout float64) float64 {
	num := p * focalTurnout
	den := num + (1-p)*otherTurnout
	if den == 0 {
		return 0
	}
	return clamp01(num / den)
}

// CombinedSupport is the expected focal-slate vote share when a fraction a of
// the electorate is focal:
//
//	a*c[f][f] + (1-a)*c[o][f]
func CombinedSupport(a float64, cohesion map[string]map[string]float64, focal, other string) float64 {
	return a*cohesion[focal][focal] + (1-a)*cohesion[other][focal]
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

// DistrictTotals are population sums over one district's units.
type DistrictTotals struct {
	District int
	Interest float64
	Total    float64
}

// Proportion is the district's raw (unadjusted) interest share.
func (d DistrictTotals) Proportion() float64 { return Proportion(d.Interest, d.Total) }

// SumByDistrict groups per-unit counts by district id. The result is sorted
// by district id.
func SumByDistrict(assignment []int, interest, total []float64) ([]DistrictTotals, error) {
	if len(assignment) != len(total) || len(interest) != len(total) {
		return nil, fmt.Errorf("assignment covers %d units, population table has %d", len(assignment), len(total))
	}
	byID := make(map[int]*DistrictTotals)
	for u, d := range assignment {
		t, ok := byID[d]
		if !ok {
			t = &DistrictTotals{District: d}
			byID[d] = t
		}
		t.Interest += interest[u]
		t.Total += total[u]
	}
	out := make([]DistrictTotals, 0, len(byID))
	for _, t := range byID {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })
	return out, nil
}
