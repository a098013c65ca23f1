// Package plot draws seat-share histograms with reference markers.
package plot

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"repsim/internal/artifact"
)

// Figure size.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// Series is one histogram layer: integer seat counts for one voter model.
type Series struct {
	Label  string
	Color  color.Color
	Values []float64
}

// Marker is a dashed vertical reference line.
type Marker struct {
	Label string
	X     float64
	Color color.Color
}

// Figure describes one overlaid histogram plot.
type Figure struct {
	Title   string
	XLabel  string
	YLabel  string
	Series  []Series
	Markers []Marker
}

// Bins counts values into unit-width bins centered on integers.
func Bins(values []float64) []plotter.HistogramBin {
	counts := make(map[int]float64)
	for _, v := range values {
		counts[int(math.Round(v))]++
	}
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	bins := make([]plotter.HistogramBin, len(keys))
	for i, k := range keys {
		bins[i] = plotter.HistogramBin{Min: float64(k) - 0.5, Max: float64(k) + 0.5, Weight: counts[k]}
	}
	return bins
}

// translucent returns c with alpha set so overlapping layers stay visible.
func translucent(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0x99}
}

// Build assembles the plot without rendering it.
func Build(f Figure) (*gplot.Plot, error) {
	p := gplot.New()
	p.Title.Text = f.Title
	p.X.Label.Text = f.XLabel
	p.Y.Label.Text = f.YLabel
	p.Legend.Top = true

	ymax := 1.0
	for _, s := range f.Series {
		if len(s.Values) == 0 {
			continue
		}
		h := &plotter.Histogram{
			Bins:      Bins(s.Values),
			Width:     1,
			FillColor: translucent(s.Color),
			LineStyle: plotter.DefaultLineStyle,
		}
		for _, b := range h.Bins {
			ymax = math.Max(ymax, b.Weight)
		}
		p.Add(h)
		p.Legend.Add(s.Label, h)
	}

	for _, m := range f.Markers {
		if math.IsNaN(m.X) || math.IsInf(m.X, 0) {
			continue
		}
		l, err := plotter.NewLine(plotter.XYs{{X: m.X, Y: 0}, {X: m.X, Y: ymax * 1.05}})
		if err != nil {
			return nil, fmt.Errorf("marker %s: %w", m.Label, err)
		}
		l.LineStyle.Color = m.Color
		l.LineStyle.Width = vg.Points(1.5)
		l.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
		p.Add(l)
		p.Legend.Add(m.Label, l)
	}
	return p, nil
}

// Save renders the figure to path. The image format comes from the
// extension; the file is written atomically.
func Save(path string, f Figure) error {
	p, err := Build(f)
	if err != nil {
		return err
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		ext = "png"
	}
	wt, err := p.WriterTo(Width, Height, ext)
	if err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	return artifact.Write(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}
