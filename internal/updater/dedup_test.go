package updater

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"spacecat/internal/api"
	"spacecat/internal/storage"
	logx "spacecat/pkg/logx"
)

func mkEvent(t *testing.T, raw string) *api.Event {
	t.Helper()
	var ev api.Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return &ev
}

func TestAdmitOnce(t *testing.T) {
	t.Parallel()

	d := NewDeduper(24*time.Hour, nil, logx.Nop())
	ctx := context.Background()
	now := time.Now()
	e := mkEvent(t, `{"Time":"2026-08-27T22:15:03","Event":"IMAGE-SAVE"}`)

	if !d.Admit(ctx, e, now) {
		t.Fatal("first admit must succeed")
	}
	// Same fingerprint appearing in the next fetch.
	repeat := mkEvent(t, `{"Time":"2026-08-27T22:15:03","Event":"IMAGE-SAVE"}`)
	if d.Admit(ctx, repeat, now.Add(5*time.Second)) {
		t.Fatal("repeat must be rejected")
	}
}

func TestWindowEviction(t *testing.T) {
	t.Parallel()

	d := NewDeduper(time.Hour, nil, logx.Nop())
	ctx := context.Background()
	now := time.Now()
	e := mkEvent(t, `{"Time":"2026-08-27T22:15:03","Event":"GUIDER-DITHER"}`)

	d.Admit(ctx, e, now)
	if d.Len() != 1 {
		t.Fatalf("len = %d", d.Len())
	}
	d.Sweep(now.Add(2 * time.Hour))
	if d.Len() != 0 {
		t.Fatal("expired fingerprint should be evicted")
	}

	// The API only reports recent history, so after eviction a genuinely
	// re-reported event would be admitted again; that is the accepted
	// tradeoff of the sliding window.
	if !d.Admit(ctx, e, now.Add(2*time.Hour)) {
		t.Fatal("post-eviction admit must succeed")
	}
}

func TestWarmFromStore(t *testing.T) {
	t.Parallel()

	st, err := storage.Open(storage.Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "seen.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	now := time.Now()
	e := mkEvent(t, `{"Time":"2026-08-27T22:15:03","Event":"IMAGE-SAVE"}`)

	first := NewDeduper(24*time.Hour, st, logx.Nop())
	if !first.Admit(ctx, e, now) {
		t.Fatal("first admit must succeed")
	}

	// Simulated restart: a fresh deduper warms from the same store and
	// must not re-admit the event.
	second := NewDeduper(24*time.Hour, st, logx.Nop())
	second.Warm(ctx, now)
	if second.Admit(ctx, e, now.Add(time.Minute)) {
		t.Fatal("warmed deduper must reject the persisted fingerprint")
	}
}
