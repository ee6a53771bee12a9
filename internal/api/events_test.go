package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseEventKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want EventKind
	}{
		{"exact", "IMAGE-SAVE", KindImageSave},
		{"lowercase", "image-save", KindImageSave},
		{"padded", "  TS-TARGETSTART ", KindTargetStart},
		{"unknown", "SOMETHING-NEW", KindOther},
		{"empty", "", KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseEventKind(tt.in); got != tt.want {
				t.Fatalf("ParseEventKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEventUnmarshal(t *testing.T) {
	t.Parallel()

	raw := `{"Time":"2026-08-27T22:15:03","Event":"FILTERWHEEL-CHANGED","New":{"Name":"Ha","Id":3},"Previous":{"Name":"L","Id":0}}`
	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Kind != KindFilterWheelChanged {
		t.Fatalf("kind = %v, want %v", ev.Kind, KindFilterWheelChanged)
	}
	if ev.Time != "2026-08-27T22:15:03" {
		t.Fatalf("time kept verbatim, got %q", ev.Time)
	}
	if ev.At.IsZero() {
		t.Fatal("wire time should parse")
	}
	fc, ok := ev.FilterChange()
	if !ok {
		t.Fatal("expected filter change detail")
	}
	if fc.New.Name != "Ha" || fc.Previous.Name != "L" {
		t.Fatalf("filter change = %+v", fc)
	}
	if fc.Redundant() {
		t.Fatal("Ha != L should not be redundant")
	}
}

func TestEventFingerprintStable(t *testing.T) {
	t.Parallel()

	raw := `{"Time":"2026-08-27T22:15:03","Event":"IMAGE-SAVE","B":2,"A":1}`
	var a, b Event
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("fingerprints differ: %q vs %q", a.Fingerprint(), b.Fingerprint())
	}
	if a.Fingerprint() != "2026-08-27T22:15:03|IMAGE-SAVE|A=1|B=2" {
		t.Fatalf("fingerprint = %q", a.Fingerprint())
	}
}

func TestEventFingerprintDistinguishes(t *testing.T) {
	t.Parallel()

	mk := func(s string) *Event {
		t.Helper()
		var ev Event
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return &ev
	}
	a := mk(`{"Time":"2026-08-27T22:15:03","Event":"IMAGE-SAVE"}`)
	b := mk(`{"Time":"2026-08-27T22:15:04","Event":"IMAGE-SAVE"}`)
	c := mk(`{"Time":"2026-08-27T22:15:03","Event":"GUIDER-DITHER"}`)
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("different timestamps must differ")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatal("different event names must differ")
	}
}

func TestTargetStartDetail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    string
		wantOK bool
		target string
	}{
		{
			"real target",
			`{"Time":"2026-08-27T21:00:00","Event":"TS-TARGETSTART","TargetName":"M31","ProjectName":"Andromeda","Coordinates":{"RA":0.712,"RAString":"00:42:44","Dec":41.27,"DecString":"41:16:09"},"Rotation":12.5}`,
			true, "M31",
		},
		{
			"placeholder filtered",
			`{"Time":"2026-08-27T21:00:00","Event":"TS-TARGETSTART","TargetName":"Sequential Instruction Set"}`,
			false, "",
		},
		{
			"empty name filtered",
			`{"Time":"2026-08-27T21:00:00","Event":"TS-TARGETSTART","TargetName":""}`,
			false, "",
		},
		{
			"wrong kind",
			`{"Time":"2026-08-27T21:00:00","Event":"IMAGE-SAVE","TargetName":"M31"}`,
			false, "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var ev Event
			if err := json.Unmarshal([]byte(tt.raw), &ev); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			ts, ok := ev.TargetStart()
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && ts.TargetName != tt.target {
				t.Fatalf("target = %q, want %q", ts.TargetName, tt.target)
			}
		})
	}
}

func TestParseWireTime(t *testing.T) {
	t.Parallel()

	got := parseWireTime("2026-08-27T22:15:03")
	want := time.Date(2026, 8, 27, 22, 15, 3, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("parseWireTime = %v, want %v", got, want)
	}
	if !parseWireTime("garbage").IsZero() {
		t.Fatal("garbage should parse to zero time")
	}
}
