package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "spacecat/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "seen.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = (%v, %v), want (nil, nil)", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "bogus"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver should error")
	}
}

func TestPutAndReload(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.PutSeen(ctx, "a", now.Add(time.Hour)); err != nil {
		t.Fatalf("PutSeen: %v", err)
	}
	if err := st.PutSeen(ctx, "b", now.Add(-time.Minute)); err != nil {
		t.Fatalf("PutSeen: %v", err)
	}

	active, err := st.ActiveKeys(ctx, now)
	if err != nil {
		t.Fatalf("ActiveKeys: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active = %v, want only the unexpired key", active)
	}
	if _, ok := active["a"]; !ok {
		t.Fatal("key a missing")
	}
}

func TestPutSeenUpsert(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.PutSeen(ctx, "k", now.Add(time.Minute)); err != nil {
		t.Fatalf("PutSeen: %v", err)
	}
	later := now.Add(2 * time.Hour)
	if err := st.PutSeen(ctx, "k", later); err != nil {
		t.Fatalf("PutSeen upsert: %v", err)
	}

	active, err := st.ActiveKeys(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("ActiveKeys: %v", err)
	}
	until, ok := active["k"]
	if !ok {
		t.Fatal("upserted key should still be active")
	}
	if until.UnixMilli() != later.UnixMilli() {
		t.Fatalf("until = %v, want %v", until, later)
	}
}

func TestPruneExpired(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_ = st.PutSeen(ctx, "old", now.Add(-time.Hour))
	_ = st.PutSeen(ctx, "new", now.Add(time.Hour))

	if err := st.PruneExpired(ctx, now); err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	active, err := st.ActiveKeys(ctx, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("ActiveKeys: %v", err)
	}
	if _, ok := active["old"]; ok {
		t.Fatal("expired key survived prune")
	}
	if _, ok := active["new"]; !ok {
		t.Fatal("live key was pruned")
	}
}
