package chat

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "spacecat/pkg/logx"
)

// Outcome records one sink's delivery result.
type Outcome struct {
	Sink string
	Err  error
}

// Broadcaster fans a message out to every configured sink concurrently.
// One sink failing never blocks or cancels the others; each delivery gets
// its own timeout and the caller receives the per-sink outcomes.
type Broadcaster struct {
	sinks   []Sink
	limiter *rate.Limiter
	timeout time.Duration
	log     logx.Logger
}

// NewBroadcaster wires the sinks behind a shared rate limit. ratePerSec <= 0
// disables limiting.
func NewBroadcaster(sinks []Sink, ratePerSec float64, log logx.Logger) *Broadcaster {
	if log.IsZero() {
		log = logx.Nop()
	}
	b := &Broadcaster{
		sinks:   sinks,
		timeout: 30 * time.Second,
		log:     log,
	}
	if ratePerSec > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	return b
}

// Sinks returns the number of configured sinks.
func (b *Broadcaster) Sinks() int { return len(b.sinks) }

// Send delivers msg to every sink. The returned outcomes are in sink order.
func (b *Broadcaster) Send(ctx context.Context, msg *Message) []Outcome {
	return b.dispatch(ctx, func(ctx context.Context, s Sink) error {
		return s.Send(ctx, msg)
	})
}

// SendWithImage delivers msg with an attachment to every sink.
func (b *Broadcaster) SendWithImage(ctx context.Context, msg *Message, att *Attachment) []Outcome {
	if att == nil || len(att.Data) == 0 {
		return b.Send(ctx, msg)
	}
	return b.dispatch(ctx, func(ctx context.Context, s Sink) error {
		return s.SendWithImage(ctx, msg, att)
	})
}

func (b *Broadcaster) dispatch(ctx context.Context, deliver func(context.Context, Sink) error) []Outcome {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			out := make([]Outcome, len(b.sinks))
			for i, s := range b.sinks {
				out[i] = Outcome{Sink: s.Name(), Err: err}
			}
			return out
		}
	}

	outcomes := make([]Outcome, len(b.sinks))
	var wg sync.WaitGroup
	for i, s := range b.sinks {
		wg.Add(1)
		go func(i int, s Sink) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()
			err := deliver(sctx, s)
			outcomes[i] = Outcome{Sink: s.Name(), Err: err}
			if err != nil {
				b.log.Warn("delivery failed",
					logx.String("sink", s.Name()), logx.Err(err))
			}
		}(i, s)
	}
	wg.Wait()
	return outcomes
}

// Failed counts the failures in a set of outcomes.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
