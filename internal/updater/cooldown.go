package updater

import "time"

// Gate throttles image notifications: at most one emission per interval,
// counting everything suppressed in between.
//
// Not safe for concurrent use. The orchestrator is the only caller.
type Gate struct {
	interval time.Duration
	last     time.Time
	skipped  int
}

func NewGate(interval time.Duration) *Gate {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Gate{interval: interval}
}

// Decide returns emit=true when an image notification may go out now,
// carrying the number of images skipped since the previous emission; the
// counter then resets. emit=false increments the counter.
func (g *Gate) Decide(now time.Time) (emit bool, skipped int) {
	if g.last.IsZero() || now.Sub(g.last) >= g.interval {
		skipped = g.skipped
		g.skipped = 0
		g.last = now
		return true, skipped
	}
	g.skipped++
	return false, 0
}

// Skipped reports the current counter without mutating it.
func (g *Gate) Skipped() int { return g.skipped }
