package updater

import (
	"testing"
	"time"
)

func TestGateArithmetic(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 27, 22, 0, 0, 0, time.UTC)
	g := NewGate(60 * time.Second)

	emit, skipped := g.Decide(base)
	if !emit || skipped != 0 {
		t.Fatalf("first image: emit=%v skipped=%d, want emit with 0 skipped", emit, skipped)
	}

	emit, _ = g.Decide(base.Add(30 * time.Second))
	if emit {
		t.Fatal("image inside the window must be skipped")
	}
	if g.Skipped() != 1 {
		t.Fatalf("skip counter = %d, want 1", g.Skipped())
	}

	emit, skipped = g.Decide(base.Add(61 * time.Second))
	if !emit || skipped != 1 {
		t.Fatalf("after window: emit=%v skipped=%d, want emit with 1 skipped", emit, skipped)
	}
	if g.Skipped() != 0 {
		t.Fatalf("counter must reset after emit, got %d", g.Skipped())
	}
}

func TestGateExactBoundary(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 27, 22, 0, 0, 0, time.UTC)
	g := NewGate(60 * time.Second)
	g.Decide(base)

	emit, _ := g.Decide(base.Add(60 * time.Second))
	if !emit {
		t.Fatal("elapsed == interval must emit")
	}
}
