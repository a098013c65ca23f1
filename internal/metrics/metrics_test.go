package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStage_Observe(t *testing.T) {
	s := NewStage("profiles", "sample")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Succeeded()
		}()
	}
	wg.Wait()
	s.Fail()
	s.Observe(Skipped, 3)
	s.Observe(OK, 0)

	want := Counts{OK: 10, Failed: 1, Skipped: 3}
	if got := s.Counts(); got != want {
		t.Errorf("Counts = %+v, want %+v", got, want)
	}
	if got := testutil.ToFloat64(s.tasks.WithLabelValues(OK)); got != 10 {
		t.Errorf("ok counter = %v", got)
	}
	if want.Total() != 14 {
		t.Errorf("Total = %d", want.Total())
	}
}

func TestStage_WriteTextfile(t *testing.T) {
	s := NewStage("elections", "sample")
	s.Succeeded()
	s.Finish()
	path := filepath.Join(t.TempDir(), "metrics", "sample_elections.prom")
	if err := s.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`repsim_stage_tasks_total{outcome="ok",run="sample",stage="elections"} 1`,
		`repsim_stage_tasks_total{outcome="failed",run="sample",stage="elections"} 0`,
		"repsim_stage_duration_seconds",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}
}
