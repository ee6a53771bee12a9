package updater

import (
	"context"
	"time"

	"spacecat/internal/api"
	"spacecat/internal/storage"
	logx "spacecat/pkg/logx"
)

// Deduper tracks which event fingerprints have already been processed.
// Entries expire after the configured window; the upstream API only
// reports a bounded recent history, so anything older can never reappear.
//
// Not safe for concurrent use. The orchestrator is the only caller.
type Deduper struct {
	window time.Duration
	seen   map[string]time.Time
	store  storage.Store
	log    logx.Logger
}

func NewDeduper(window time.Duration, store storage.Store, log logx.Logger) *Deduper {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Deduper{
		window: window,
		seen:   make(map[string]time.Time),
		store:  store,
		log:    log,
	}
}

// Warm loads persisted fingerprints so a restart does not re-announce
// events delivered by the previous run. No-op without a store.
func (d *Deduper) Warm(ctx context.Context, now time.Time) {
	if d.store == nil {
		return
	}
	active, err := d.store.ActiveKeys(ctx, now)
	if err != nil {
		d.log.Warn("dedup warm failed", logx.Err(err))
		return
	}
	for k, until := range active {
		d.seen[k] = until
	}
	if len(active) > 0 {
		d.log.Info("dedup state restored", logx.Int("keys", len(active)))
	}
}

// Admit reports whether the event is new. A new event is recorded and
// admitted exactly once; repeats within the window are rejected.
func (d *Deduper) Admit(ctx context.Context, e *api.Event, now time.Time) bool {
	fp := e.Fingerprint()
	if until, ok := d.seen[fp]; ok && now.Before(until) {
		return false
	}
	until := now.Add(d.window)
	d.seen[fp] = until
	if d.store != nil {
		if err := d.store.PutSeen(ctx, fp, until); err != nil {
			d.log.Warn("dedup persist failed", logx.Err(err))
		}
	}
	return true
}

// Sweep evicts expired fingerprints. Called once per cycle.
func (d *Deduper) Sweep(now time.Time) {
	for k, until := range d.seen {
		if now.After(until) {
			delete(d.seen, k)
		}
	}
}

// Len reports the live seen-set size.
func (d *Deduper) Len() int { return len(d.seen) }
