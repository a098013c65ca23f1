// Package tabulate elects winners from a ballot profile.
package tabulate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"repsim/internal/ballot"
)

// ErrNotEnoughCandidates is returned when fewer candidates appear on ballots
// than there are seats to fill.
var ErrNotEnoughCandidates = errors.New("not enough candidates")

// Tabulator elects seats winners from a profile, in election order.
type Tabulator interface {
	Tabulate(p *ballot.Profile, seats int) ([]string, error)
}

// For returns plurality for single-seat districts and STV otherwise.
func For(seats int) Tabulator {
	if seats == 1 {
		return Plurality{}
	}
	return STV{}
}

// Plurality elects the seats candidates with the most first choices. Ties go
// to the lexicographically smaller name.
type Plurality struct{}

func (Plurality) Tabulate(p *ballot.Profile, seats int) ([]string, error) {
	if err := check(p, seats); err != nil {
		return nil, err
	}
	tally := make(map[string]float64, len(p.Candidates))
	for _, c := range p.Candidates {
		tally[c] = 0
	}
	for _, b := range p.Ballots {
		if len(b.Ranking) > 0 {
			tally[b.Ranking[0]] += b.Weight
		}
	}
	ranked := rank(tally)
	return ranked[:seats], nil
}

// STV runs sequential single transferable vote with a Droop quota and
// fractional (Gregory) surplus transfers. One candidate is elected or
// eliminated per round.
type STV struct{}

type stvBallot struct {
	ranking []string
	weight  float64
}

func (STV) Tabulate(p *ballot.Profile, seats int) ([]string, error) {
	if err := check(p, seats); err != nil {
		return nil, err
	}
	ballots := make([]stvBallot, 0, len(p.Ballots))
	for _, b := range p.Ballots {
		if b.Weight > 0 && len(b.Ranking) > 0 {
			ballots = append(ballots, stvBallot{b.Ranking, b.Weight})
		}
	}
	quota := math.Floor(p.TotalWeight()/float64(seats+1)) + 1

	continuing := make(map[string]bool, len(p.Candidates))
	for _, c := range p.Candidates {
		continuing[c] = true
	}
	var elected []string

	for len(elected) < seats {
		tally := make(map[string]float64, len(continuing))
		for c := range continuing {
			tally[c] = 0
		}
		for _, b := range ballots {
			if top, ok := topContinuing(b.ranking, continuing); ok {
				tally[top] += b.weight
			}
		}
		order := rank(tally)

		if len(order) <= seats-len(elected) {
			elected = append(elected, order...)
			break
		}

		if leader := order[0]; tally[leader] >= quota {
			elected = append(elected, leader)
			ratio := (tally[leader] - quota) / tally[leader]
			for i := range ballots {
				if top, ok := topContinuing(ballots[i].ranking, continuing); ok && top == leader {
					ballots[i].weight *= ratio
				}
			}
			delete(continuing, leader)
			continue
		}

		delete(continuing, order[len(order)-1])
	}
	return elected[:seats], nil
}

func topContinuing(ranking []string, continuing map[string]bool) (string, bool) {
	for _, c := range ranking {
		if continuing[c] {
			return c, true
		}
	}
	return "", false
}

// rank orders candidates by descending tally, ties by name.
func rank(tally map[string]float64) []string {
	out := make([]string, 0, len(tally))
	for c := range tally {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if tally[out[i]] != tally[out[j]] {
			return tally[out[i]] > tally[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func check(p *ballot.Profile, seats int) error {
	if seats <= 0 {
		return fmt.Errorf("seats must be positive, got %d", seats)
	}
	if p == nil || len(p.Ballots) == 0 || p.TotalWeight() <= 0 {
		return errors.New("empty profile")
	}
	if len(p.Candidates) < seats {
		return fmt.Errorf("%w: %d candidates for %d seats", ErrNotEnoughCandidates, len(p.Candidates), seats)
	}
	return nil
}
