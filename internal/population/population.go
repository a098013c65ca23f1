// Package population loads per-unit population counts. Row order must match
// the unit order of the sampler's assignments.
package population

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Table holds the two columns the pipeline needs, one value per unit.
type Table struct {
	Total    []float64
	Interest []float64
}

// Units is the number of geographic units.
func (t *Table) Units() int { return len(t.Total) }

// Sums returns the geography-wide totals.
func (t *Table) Sums() (interest, total float64) {
	for i := range t.Total {
		total += t.Total[i]
		interest += t.Interest[i]
	}
	return interest, total
}

// Share is interest over total for the whole geography, 0 when empty.
func (t *Table) Share() float64 {
	interest, total := t.Sums()
	if total == 0 {
		return 0
	}
	return interest / total
}

// LoadFile reads a CSV table from path.
func LoadFile(path, totalCol, interestCol string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open population table: %w", err)
	}
	defer f.Close()
	return Load(f, totalCol, interestCol)
}

// Load reads a CSV table with a header row naming totalCol and interestCol.
// Empty cells count as zero.
func Load(r io.Reader, totalCol, interestCol string) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("population table is empty")
		}
		return nil, fmt.Errorf("population header: %w", err)
	}
	ti, ii := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case totalCol:
			ti = i
		case interestCol:
			ii = i
		}
	}
	if ti < 0 || ii < 0 {
		return nil, fmt.Errorf("population table must have columns %q and %q, got %v", totalCol, interestCol, header)
	}

	t := &Table{}
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("population row %d: %w", row, err)
		}
		total, err := parseCount(rec[ti])
		if err != nil {
			return nil, fmt.Errorf("population row %d column %s: %w", row, totalCol, err)
		}
		interest, err := parseCount(rec[ii])
		if err != nil {
			return nil, fmt.Errorf("population row %d column %s: %w", row, interestCol, err)
		}
		t.Total = append(t.Total, total)
		t.Interest = append(t.Interest, interest)
	}
	return t, nil
}

func parseCount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative count %v", v)
	}
	return v, nil
}
