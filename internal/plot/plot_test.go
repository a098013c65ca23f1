package plot

import (
	"bytes"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/plot/plotter"
)

func TestBins(t *testing.T) {
	got := Bins([]float64{2, 1, 2, 4, 2})
	want := []plotter.HistogramBin{
		{Min: 0.5, Max: 1.5, Weight: 1},
		{Min: 1.5, Max: 2.5, Weight: 3},
		{Min: 3.5, Max: 4.5, Weight: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if len(Bins(nil)) != 0 {
		t.Error("want no bins for no values")
	}
}

func sampleFigure() Figure {
	return Figure{
		Title:  "sample 4x1",
		XLabel: "focal seats",
		YLabel: "plans",
		Series: []Series{
			{Label: "Impulsive", Color: color.RGBA{R: 0x8D, G: 0xB6, A: 0xFF}, Values: []float64{1, 2, 2}},
			{Label: "Cambridge", Color: color.RGBA{R: 0xE3, G: 0x26, B: 0x36, A: 0xFF}, Values: []float64{2, 3}},
			{Label: "empty", Color: color.Black},
		},
		Markers: []Marker{
			{Label: "Combined support", X: 2.12, Color: color.Black},
			{Label: "Population share", X: 1.6, Color: color.Gray{Y: 0x80}},
			{Label: "skipped", X: math.NaN(), Color: color.Black},
		},
	}
}

func TestSave_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figures", "sample_4x1_Plurality_bymode.png")
	if err := Save(path, sampleFigure()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("not a PNG: % x", data[:8])
	}
}

func TestBuild_Legend(t *testing.T) {
	p, err := Build(sampleFigure())
	if err != nil {
		t.Fatal(err)
	}
	if p.Title.Text != "sample 4x1" {
		t.Errorf("title = %q", p.Title.Text)
	}
}

func TestSave_UnknownFormat(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "x.bogus"), sampleFigure()); err == nil {
		t.Fatal("want error for unknown image format")
	}
}
