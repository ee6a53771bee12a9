package updater

import (
	"testing"

	"spacecat/internal/api"
)

func tsEvent(name string, ra, dec float64) api.TargetStart {
	return api.TargetStart{
		TargetName:  name,
		Coordinates: api.Coordinates{RA: ra, Dec: dec},
	}
}

func TestTargetStartPrecedence(t *testing.T) {
	t.Parallel()

	tr := NewTracker()

	// Sequence reports a target first.
	if _, changed := tr.ObserveSequence("M 101"); !changed {
		t.Fatal("first sequence target should change")
	}

	// A target-start event overrides it.
	old, changed := tr.ObserveTargetStart(tsEvent("M31", 0.712, 41.27))
	if !changed || old == nil || old.Name != "M 101" {
		t.Fatalf("changed=%v old=%+v", changed, old)
	}

	// While the event source holds, sequence targets are ignored.
	if _, changed := tr.ObserveSequence("Placeholder"); changed {
		t.Fatal("sequence must not override a target-start resolution")
	}
	if tr.Current().Name != "M31" {
		t.Fatalf("current = %q, want M31", tr.Current().Name)
	}

	// A newer target-start event supersedes the previous one.
	old, changed = tr.ObserveTargetStart(tsEvent("M42", 1.42, -5.39))
	if !changed || old.Name != "M31" {
		t.Fatalf("changed=%v old=%+v", changed, old)
	}
	if tr.Current().Name != "M42" {
		t.Fatalf("current = %q, want M42", tr.Current().Name)
	}
}

func TestExactlyOneTransitionPerTarget(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	transitions := 0

	for _, ts := range []api.TargetStart{
		tsEvent("M31", 0.712, 41.27),
		tsEvent("M42", 1.42, -5.39),
	} {
		if _, changed := tr.ObserveTargetStart(ts); changed {
			transitions++
		}
		// The sequence keeps reporting its placeholder between events.
		if _, changed := tr.ObserveSequence("Sequential Instruction Set"); changed {
			transitions++
		}
	}
	if transitions != 2 {
		t.Fatalf("transitions = %d, want 2 (M31 then M42, never the placeholder)", transitions)
	}
	if tr.Current().Name != "M42" {
		t.Fatalf("current = %q, want M42", tr.Current().Name)
	}
}

func TestRepeatedResolutionIsNoOp(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.ObserveTargetStart(tsEvent("M31", 0.712, 41.27))

	if _, changed := tr.ObserveTargetStart(tsEvent("M31", 0.712, 41.27)); changed {
		t.Fatal("identical target must not report a change")
	}
}

func TestCoordinateChangeIsAChange(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.ObserveTargetStart(tsEvent("Mosaic", 10.0, 20.0))

	if _, changed := tr.ObserveTargetStart(tsEvent("Mosaic", 10.5, 20.0)); !changed {
		t.Fatal("same name with different coordinates is a different target")
	}
}

func TestSeedDoesNotReportChange(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Seed(&Target{Name: "M31", Source: SourceTargetStart})
	if tr.Current() == nil || tr.Current().Name != "M31" {
		t.Fatalf("current = %+v", tr.Current())
	}

	// Re-deriving the seeded target must be silent.
	if _, changed := tr.ObserveTargetStart(tsEvent("M31", 0, 0)); changed {
		t.Fatal("seeded target re-observed must not change")
	}
}

func TestEmptySequenceNameIgnored(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	if _, changed := tr.ObserveSequence(""); changed {
		t.Fatal("empty name must be ignored")
	}
}
