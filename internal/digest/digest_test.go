package digest

import (
	"testing"
	"time"

	"spacecat/internal/api"
)

func TestCompile(t *testing.T) {
	t.Parallel()

	images := []api.Image{
		{ImageType: "LIGHT", Filter: "Ha", ExposureTime: 300, HFR: 1.8},
		{ImageType: "LIGHT", Filter: "OIII", ExposureTime: 300, HFR: 2.0},
		{ImageType: "DARK", ExposureTime: 300},
		{ImageType: "FLAT", Filter: "Ha", ExposureTime: 2},
	}
	s := Compile(images)

	if s.TotalFrames != 4 || s.LightFrames != 2 || s.Calibration != 2 {
		t.Fatalf("stats = %+v", s)
	}
	if s.Integration != 10*time.Minute {
		t.Fatalf("integration = %v, want 10m (lights only)", s.Integration)
	}
	if len(s.Filters) != 2 || s.Filters[0] != "Ha" || s.Filters[1] != "OIII" {
		t.Fatalf("filters = %v", s.Filters)
	}
	if s.AvgHFR != 1.9 {
		t.Fatalf("avg hfr = %v, want 1.9", s.AvgHFR)
	}
}

func TestCompileEmpty(t *testing.T) {
	t.Parallel()

	s := Compile(nil)
	if s.TotalFrames != 0 || s.AvgHFR != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestDigestMessage(t *testing.T) {
	t.Parallel()

	s := Stats{
		TotalFrames: 42,
		LightFrames: 36,
		Calibration: 6,
		Integration: 3*time.Hour + 5*time.Minute,
		Filters:     []string{"Ha", "L"},
		AvgHFR:      1.92,
	}
	msg := s.Message()
	if msg.Title != "📋 Session Digest" {
		t.Fatalf("title = %q", msg.Title)
	}
	want := map[string]string{
		"Total Frames": "42",
		"Integration":  "3h 05m",
		"Filters":      "Ha, L",
		"Avg HFR":      "1.92",
	}
	for _, f := range msg.Fields {
		if v, ok := want[f.Name]; ok {
			if f.Value != v {
				t.Errorf("%s = %q, want %q", f.Name, f.Value, v)
			}
			delete(want, f.Name)
		}
	}
	for name := range want {
		t.Errorf("field %q missing", name)
	}
}
