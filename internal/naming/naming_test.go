package naming

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSettingsPath_RoundTrip(t *testing.T) {
	s := New("outputs", "sample")
	got := s.SettingsPath(4, 7, 3)
	want := filepath.Join("outputs", "settings", "sample_settings", "4",
		"sample_4_sample_settings_district_plan_007_district_03.json")
	if got != want {
		t.Fatalf("SettingsPath = %s, want %s", got, want)
	}
	id := s.Decode(got)
	if diff := cmp.Diff(Identity{Plan: 7, District: 3, Replicate: Unknown}, id); diff != "" {
		t.Errorf("decode (-want +got):\n%s", diff)
	}
}

func TestProfilePath_RoundTrip(t *testing.T) {
	s := New("outputs", "sample")
	tests := []struct {
		plan, district, rep int
	}{
		{0, 0, 0},
		{12, 5, 1},
		{999, 99, 17},
		{1234, 120, 3},
	}
	for _, tt := range tests {
		p := s.ProfilePath("slate_pl", 8, tt.plan, tt.district, tt.rep)
		id := s.Decode(p)
		want := Identity{Plan: Index(tt.plan), District: Index(tt.district), Replicate: Index(tt.rep)}
		if diff := cmp.Diff(want, id); diff != "" {
			t.Errorf("decode(%s) (-want +got):\n%s", p, diff)
		}
		if !id.Complete() {
			t.Errorf("decode(%s) incomplete", p)
		}
	}
}

func TestProfileName_DerivedFromSettings(t *testing.T) {
	s := New("", "run")
	got := s.ProfileName(4, 1, 2, 0)
	want := "run_4_profile_district_plan_001_district_02_v0.csv"
	if got != want {
		t.Errorf("ProfileName = %s, want %s", got, want)
	}
}

func TestWinnerSetPath_RoundTrip(t *testing.T) {
	s := New("out", "sample")
	p := s.WinnerSetPath("slate_bt", 5, 3)
	want := filepath.Join("out", "election_results", "sample_election_results", "slate_bt",
		"sample_5_districts_3_winners_for_voter_mode_slate_bt.json")
	if p != want {
		t.Fatalf("WinnerSetPath = %s, want %s", p, want)
	}
	n, w, model, ok := s.DecodeWinnerSet(p)
	if !ok || n != 5 || w != 3 || model != "slate_bt" {
		t.Errorf("DecodeWinnerSet = %d, %d, %q, %v", n, w, model, ok)
	}
	if _, _, _, ok := s.DecodeWinnerSet("other_5_districts_3_winners_for_voter_mode_x.json"); ok {
		t.Error("foreign run decoded")
	}
	id := s.Decode(p)
	if id.Plan.Known() || id.District.Known() || id.Replicate.Known() {
		t.Errorf("winner set name should carry no plan identity, got %+v", id)
	}
}

func TestDecode_Policy(t *testing.T) {
	tests := []struct {
		name string
		want Identity
	}{
		{"x_plan12_district3_v2.csv", Identity{12, 3, 2}},
		{"x_Plan-4_District-9-v1.csv", Identity{4, 9, 1}},
		{"district_1_plan_2_district_5_v0.csv", Identity{2, 5, 0}},
		{"plan_3_district_4.json", Identity{3, 4, Unknown}},
		{"random_file.csv", Identity{Unknown, Unknown, Unknown}},
		{"plan_1_district_2_version3.csv", Identity{1, 2, Unknown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Decode(tt.name)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_RunNameWithIdentityTokens(t *testing.T) {
	s := New("outputs", "plan9_district7_v3")
	p := s.ProfilePath("cambridge", 4, 1, 2, 0)
	want := Identity{Plan: 1, District: 2, Replicate: 0}
	if diff := cmp.Diff(want, s.Decode(p)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestIndexString(t *testing.T) {
	if Unknown.String() != "unknown" || Index(4).String() != "4" {
		t.Errorf("got %s, %s", Unknown, Index(4))
	}
}
