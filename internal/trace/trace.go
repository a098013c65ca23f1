// Package trace reads the sampler's plan-assignment trace and selects a
// deterministic stride of plans from it.
package trace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrShortTrace is returned, after every available sample has been
// delivered, when the trace ends before chain_length entries.
var ErrShortTrace = errors.New("trace shorter than chain length")

// Entry is one JSONL record written by the sampler.
type Entry struct {
	Assignment  []int `json:"assignment"`
	SampleIndex int   `json:"sample_index"`
}

// Sample is a selected entry together with its plan index, the zero-based
// position of the entry in the trace.
type Sample struct {
	Plan  int
	Entry Entry
}

// Subsampler picks every Stride()-th entry of the first ChainLength entries.
type Subsampler struct {
	ChainLength   int
	NumSubsamples int
}

// NewSubsampler rejects non-positive subsample counts and counts above the
// chain length.
func NewSubsampler(chainLength, numSubsamples int) (Subsampler, error) {
	if numSubsamples <= 0 {
		return Subsampler{}, fmt.Errorf("num_subsamples must be positive, got %d", numSubsamples)
	}
	if numSubsamples > chainLength {
		return Subsampler{}, fmt.Errorf("num_subsamples (%d) exceeds chain_length (%d)", numSubsamples, chainLength)
	}
	return Subsampler{ChainLength: chainLength, NumSubsamples: numSubsamples}, nil
}

// Stride is chain_length / num_subsamples. A zero stride selects every entry.
func (s Subsampler) Stride() int {
	if s.NumSubsamples <= 0 {
		return 1
	}
	stride := s.ChainLength / s.NumSubsamples
	if stride == 0 {
		return 1
	}
	return stride
}

// Selected reports whether the entry at position idx is kept.
func (s Subsampler) Selected(idx int) bool {
	return idx < s.ChainLength && idx%s.Stride() == 0
}

// Stats summarizes one pass over a trace.
type Stats struct {
	Read     int
	Selected int
	Units    int
}

// Select streams r, calling fn for each selected entry in trace order. It
// reads at most ChainLength entries. Every entry must assign the same number
// of units; units > 0 additionally pins that number.
func (s Subsampler) Select(ctx context.Context, r io.Reader, units int, fn func(Sample) error) (Stats, error) {
	dec := json.NewDecoder(r)
	stats := Stats{Units: units}
	for stats.Read < s.ChainLength {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		var e Entry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return stats, fmt.Errorf("trace entry %d: %w", stats.Read, err)
		}
		idx := stats.Read
		stats.Read++

		if stats.Units == 0 {
			stats.Units = len(e.Assignment)
		}
		if len(e.Assignment) != stats.Units {
			return stats, fmt.Errorf("trace entry %d assigns %d units, want %d", idx, len(e.Assignment), stats.Units)
		}
		if !s.Selected(idx) {
			continue
		}
		stats.Selected++
		if err := fn(Sample{Plan: idx, Entry: e}); err != nil {
			return stats, err
		}
	}
	if stats.Read < s.ChainLength {
		return stats, fmt.Errorf("%w: read %d of %d entries", ErrShortTrace, stats.Read, s.ChainLength)
	}
	return stats, nil
}

// SelectFile opens path and runs Select over it.
func (s Subsampler) SelectFile(ctx context.Context, path string, units int, fn func(Sample) error) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()
	return s.Select(ctx, f, units, fn)
}

// Write encodes entries as JSONL, the format the sampler produces.
func Write(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	for i, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("trace entry %d: %w", i, err)
		}
	}
	return nil
}
