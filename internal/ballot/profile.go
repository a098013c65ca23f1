// Package ballot holds the ranked-ballot profile model, its CSV codec and the
// synthetic electorate generators.
package ballot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Ballot is one distinct ranking and the number of voters casting it.
type Ballot struct {
	Ranking []string
	Weight  float64
}

// Profile is an electorate: a set of distinct weighted rankings.
type Profile struct {
	Candidates []string
	Ballots    []Ballot
}

// TotalWeight sums ballot weights.
func (p *Profile) TotalWeight() float64 {
	var total float64
	for _, b := range p.Ballots {
		total += b.Weight
	}
	return total
}

// builder collapses identical rankings into one weighted ballot.
type builder struct {
	index   map[string]int
	ballots []Ballot
}

func newBuilder() *builder {
	return &builder{index: make(map[string]int)}
}

func (b *builder) add(ranking []string, weight float64) {
	key := strings.Join(ranking, "\x1f")
	if i, ok := b.index[key]; ok {
		b.ballots[i].Weight += weight
		return
	}
	b.index[key] = len(b.ballots)
	b.ballots = append(b.ballots, Ballot{Ranking: append([]string(nil), ranking...), Weight: weight})
}

// profile returns ballots sorted by ranking so output is independent of the
// order voters were drawn in.
func (b *builder) profile(candidates []string) *Profile {
	sort.Slice(b.ballots, func(i, j int) bool {
		return lessRanking(b.ballots[i].Ranking, b.ballots[j].Ranking)
	})
	cands := append([]string(nil), candidates...)
	sort.Strings(cands)
	return &Profile{Candidates: cands, Ballots: b.ballots}
}

func lessRanking(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// WriteCSV writes the profile as "weight,rank_1..rank_k", one row per ballot.
// Short rankings are padded with empty cells.
func (p *Profile) WriteCSV(w io.Writer) error {
	depth := 0
	for _, b := range p.Ballots {
		depth = max(depth, len(b.Ranking))
	}
	cw := csv.NewWriter(w)
	header := make([]string, depth+1)
	header[0] = "weight"
	for i := 1; i <= depth; i++ {
		header[i] = "rank_" + strconv.Itoa(i)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, depth+1)
	for _, b := range p.Ballots {
		clear(row)
		row[0] = strconv.FormatFloat(b.Weight, 'g', -1, 64)
		copy(row[1:], b.Ranking)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a profile written by WriteCSV. Candidates are every name
// that appears in some ranking.
func ReadCSV(r io.Reader) (*Profile, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("profile csv: empty file")
		}
		return nil, fmt.Errorf("profile csv header: %w", err)
	}
	if len(header) == 0 || header[0] != "weight" {
		return nil, fmt.Errorf("profile csv: first column must be weight, got %v", header)
	}

	seen := make(map[string]bool)
	var cands []string
	b := newBuilder()
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("profile csv line %d: %w", line, err)
		}
		weight, err := strconv.ParseFloat(rec[0], 64)
		if err != nil || weight < 0 {
			return nil, fmt.Errorf("profile csv line %d: bad weight %q", line, rec[0])
		}
		var ranking []string
		for _, c := range rec[1:] {
			if c == "" {
				break
			}
			ranking = append(ranking, c)
			if !seen[c] {
				seen[c] = true
				cands = append(cands, c)
			}
		}
		b.add(ranking, weight)
	}
	return b.profile(cands), nil
}
