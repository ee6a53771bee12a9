package updater

import (
	"strings"
	"testing"
	"time"

	"spacecat/internal/api"
	"spacecat/internal/chat"
)

func TestEventColors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		event string
		want  int
	}{
		{"CAMERA-CONNECTED", chat.ColorGreen},
		{"CAMERA-DISCONNECTED", chat.ColorRed},
		{"FILTERWHEEL-CHANGED", chat.ColorBlue},
		{"MOUNT-PARKED", chat.ColorYellow},
		{"MOUNT-BEFORE-FLIP", chat.ColorOrange},
		{"AUTOFOCUS-FINISHED", chat.ColorPurple},
		{"TS-TARGETSTART", chat.ColorCyan},
		{"SOME-ERROR-THING", chat.ColorRed},
		{"SOME-WARNING-THING", chat.ColorOrange},
		{"NEVER-HEARD-OF-IT", chat.ColorGray},
	}
	for _, tt := range tests {
		if got := eventColor(tt.event); got != tt.want {
			t.Errorf("eventColor(%q) = %#x, want %#x", tt.event, got, tt.want)
		}
	}
}

func TestFrameColors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		frame string
		want  int
	}{
		{"LIGHT", chat.ColorGreen},
		{"DARK", chat.ColorGray},
		{"FLAT", chat.ColorBlue},
		{"BIAS", chat.ColorPurple},
		{"SNAPSHOT", chat.ColorCyan},
	}
	for _, tt := range tests {
		if got := frameColor(tt.frame); got != tt.want {
			t.Errorf("frameColor(%q) = %#x, want %#x", tt.frame, got, tt.want)
		}
	}
}

func TestImageTitleCarriesSkipCount(t *testing.T) {
	t.Parallel()

	img := &api.Image{ImageType: "LIGHT", CameraName: "ASI2600"}
	now := time.Now()

	msg := buildImage(img, nil, 0, nil, now)
	if msg.Title != "📸 New LIGHT Frame Captured" {
		t.Fatalf("title = %q", msg.Title)
	}

	msg = buildImage(img, nil, 3, nil, now)
	if !strings.Contains(msg.Title, "(+3 skipped)") {
		t.Fatalf("title = %q, want skip count", msg.Title)
	}
	var found bool
	for _, f := range msg.Fields {
		if f.Name == "Images Since Last Post" && f.Value == "4 images" {
			found = true
		}
	}
	if !found {
		t.Fatalf("fields = %+v, want Images Since Last Post = 4 images", msg.Fields)
	}
}

func TestImageFlipFieldOnlyWhenImminent(t *testing.T) {
	t.Parallel()

	img := &api.Image{ImageType: "LIGHT"}
	now := time.Now()
	far := 2.5
	near := 0.5

	hasFlip := func(m *chat.Message) bool {
		for _, f := range m.Fields {
			if f.Name == "Meridian Flip In" {
				return true
			}
		}
		return false
	}
	if hasFlip(buildImage(img, nil, 0, &far, now)) {
		t.Fatal("flip field should be omitted when hours away")
	}
	if !hasFlip(buildImage(img, nil, 0, &near, now)) {
		t.Fatal("flip field should appear when imminent")
	}
}

func TestAutofocusMessageQuality(t *testing.T) {
	t.Parallel()

	report := &api.AutofocusReport{
		Filter:               "Ha",
		Method:               "StarHFR",
		Duration:             "00:01:42",
		Temperature:          -9.6,
		AutoFocuserName:      "ZWO EAF",
		InitialFocusPoint:    api.FocusPoint{Position: 21040},
		CalculatedFocusPoint: api.FocusPoint{Position: 21112, Value: 1.74},
		MeasurePoints:        make([]api.FocusPoint, 9),
		RSquares:             api.RSquares{Hyperbolic: 0.994},
	}
	msg := buildAutofocus(report)
	if msg.Color != chat.ColorGreen {
		t.Fatalf("color = %#x, want green for a clean fit", msg.Color)
	}
	var change string
	for _, f := range msg.Fields {
		if f.Name == "Position Change" {
			change = f.Value
		}
	}
	if change != "+72" {
		t.Fatalf("position change = %q, want +72", change)
	}

	report.RSquares.Hyperbolic = 0.42
	if got := buildAutofocus(report); got.Color != chat.ColorOrange {
		t.Fatalf("color = %#x, want orange for a poor fit", got.Color)
	}
}

func TestWelcomeWithoutTarget(t *testing.T) {
	t.Parallel()

	msg := buildWelcome(nil, 12, 40, 2, nil, nil, time.Now())
	if msg.Color != chat.ColorGreen {
		t.Fatalf("color = %#x", msg.Color)
	}
	if msg.Fields[0].Name != "Current Target" || msg.Fields[0].Value != "None detected" {
		t.Fatalf("first field = %+v", msg.Fields[0])
	}
}
