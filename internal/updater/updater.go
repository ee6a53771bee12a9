package updater

import (
	"context"
	"fmt"
	"time"

	"spacecat/internal/api"
	"spacecat/internal/chat"
	"spacecat/internal/metrics"
	"spacecat/internal/storage"
	logx "spacecat/pkg/logx"
)

// Options is the orchestrator's immutable configuration snapshot.
type Options struct {
	PollInterval     time.Duration
	ImageCooldown    time.Duration
	DedupWindow      time.Duration
	AttachThumbnails bool
}

// Orchestrator drives the poll cycle. It is the sole owner of all
// notification state; nothing else mutates the deduper, tracker or gate.
type Orchestrator struct {
	client *api.Client
	bcast  *chat.Broadcaster

	dedup   *Deduper
	tracker *Tracker
	gate    *Gate

	seenImages map[string]struct{}
	flipHours  *float64

	opts Options
	log  logx.Logger
}

func New(client *api.Client, bcast *chat.Broadcaster, store storage.Store, opts Options, log logx.Logger) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Orchestrator{
		client:     client,
		bcast:      bcast,
		dedup:      NewDeduper(opts.DedupWindow, store, log),
		tracker:    NewTracker(),
		gate:       NewGate(opts.ImageCooldown),
		seenImages: make(map[string]struct{}),
		opts:       opts,
		log:        log,
	}
}

// Run seeds the baseline and then polls until ctx is canceled. The only
// fatal errors are baseline ones; inside the loop every failure is
// absorbed and logged.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.baseline(ctx); err != nil {
		return fmt.Errorf("baseline: %w", err)
	}

	ticker := time.NewTimer(o.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		o.cycle(ctx)
		ticker.Reset(o.opts.PollInterval)
	}
}

// baseline learns the pre-existing history so the first live cycle only
// reports genuinely new activity, then announces startup.
func (o *Orchestrator) baseline(ctx context.Context) error {
	now := time.Now()
	o.dedup.Warm(ctx, now)

	events, err := o.client.EventHistory(ctx)
	if err != nil {
		return fmt.Errorf("event history: %w", err)
	}
	o.seedEvents(ctx, events, now)

	if seq, err := o.client.CurrentSequence(ctx); err != nil {
		o.log.Warn("sequence unavailable during baseline", logx.Err(err))
	} else {
		o.applySequence(ctx, seq, false, nil)
	}

	images, err := o.client.ImageHistory(ctx, true)
	if err != nil {
		return fmt.Errorf("image history: %w", err)
	}
	for i := range images {
		o.seenImages[images[i].Key()] = struct{}{}
	}

	o.log.Info("baseline established",
		logx.Int("events", o.dedup.Len()),
		logx.Int("images", len(o.seenImages)),
		logx.Int("sinks", o.bcast.Sinks()))
	if t := o.tracker.Current(); t != nil {
		o.log.Info("current target",
			logx.String("name", t.Name), logx.String("source", t.Source.String()))
	}

	if o.bcast.Sinks() > 0 {
		mount, err := o.client.MountStatus(ctx)
		if err != nil {
			mount = nil
		}
		msg := buildWelcome(o.tracker.Current(), o.dedup.Len(), len(o.seenImages),
			o.bcast.Sinks(), o.flipHours, mount, time.Now())
		o.deliver(ctx, msg)
	}
	return nil
}

// seedEvents marks all historical fingerprints as seen and installs the
// latest target-start target without reporting a change.
func (o *Orchestrator) seedEvents(ctx context.Context, events []api.Event, now time.Time) {
	var latest *Target
	var latestAt string
	for i := range events {
		e := &events[i]
		if fc, ok := e.FilterChange(); ok && e.Kind == api.KindFilterWheelChanged && fc.Redundant() {
			continue
		}
		if ts, ok := e.TargetStart(); ok {
			if latest == nil || e.Time > latestAt {
				latest = targetFromEvent(ts)
				latestAt = e.Time
			}
		}
		o.dedup.Admit(ctx, e, now)
	}
	if latest != nil {
		o.tracker.Seed(latest)
	}
}

// fetchResult joins the cycle's independent category fetches.
type fetchResult struct {
	events    []api.Event
	eventsErr error

	images    []api.Image
	imagesErr error

	seq    *api.Sequence
	seqErr error

	mount    *api.MountInfo
	mountErr error

	autofocus    *api.AutofocusReport
	autofocusErr error
}

func (o *Orchestrator) fetch(ctx context.Context) *fetchResult {
	var res fetchResult
	done := make(chan struct{}, 5)
	go func() { res.events, res.eventsErr = o.client.EventHistory(ctx); done <- struct{}{} }()
	go func() { res.images, res.imagesErr = o.client.ImageHistory(ctx, true); done <- struct{}{} }()
	go func() { res.seq, res.seqErr = o.client.CurrentSequence(ctx); done <- struct{}{} }()
	go func() { res.mount, res.mountErr = o.client.MountStatus(ctx); done <- struct{}{} }()
	go func() { res.autofocus, res.autofocusErr = o.client.LastAutofocus(ctx); done <- struct{}{} }()
	for i := 0; i < 5; i++ {
		<-done
	}
	return &res
}

func (o *Orchestrator) cycle(ctx context.Context) {
	started := time.Now()
	defer func() {
		metrics.PollCycles.Inc()
		metrics.CycleDuration.Observe(time.Since(started).Seconds())
	}()

	res := o.fetch(ctx)
	o.noteFetchErrors(res)

	now := time.Now()
	if res.seqErr == nil {
		o.applySequence(ctx, res.seq, true, res.mount)
	}
	if res.eventsErr == nil {
		o.processEvents(ctx, res, now)
	}
	if res.imagesErr == nil {
		o.processImages(ctx, res.images, now)
	}
	o.dedup.Sweep(now)
}

func (o *Orchestrator) noteFetchErrors(res *fetchResult) {
	for _, f := range []struct {
		category string
		err      error
	}{
		{"events", res.eventsErr},
		{"images", res.imagesErr},
		{"sequence", res.seqErr},
		{"mount", res.mountErr},
		{"autofocus", res.autofocusErr},
	} {
		if f.err == nil {
			continue
		}
		metrics.FetchErrors.WithLabelValues(f.category).Inc()
		if api.IsUnavailable(f.err) {
			continue
		}
		o.log.Warn("fetch failed",
			logx.String("category", f.category), logx.Err(f.err))
	}
}

// applySequence refreshes the flip countdown and, unless a target-start
// event holds precedence, resolves the sequence-reported target.
func (o *Orchestrator) applySequence(ctx context.Context, seq *api.Sequence, notify bool, mount *api.MountInfo) {
	if hours, ok := seq.MeridianFlipHours(); ok {
		o.flipHours = &hours
	} else {
		o.flipHours = nil
	}

	name, ok := seq.CurrentTarget()
	if !ok {
		return
	}
	old, changed := o.tracker.ObserveSequence(name)
	if !changed || !notify {
		return
	}
	next := o.tracker.Current()
	o.log.Info("sequence target", logx.String("name", next.Name))
	if o.bcast.Sinks() == 0 {
		return
	}
	now := time.Now()
	if old != nil {
		o.deliver(ctx, buildTargetChange(old, next, o.flipHours, mount, now))
	} else {
		o.deliver(ctx, buildTargetStart(next, o.flipHours, mount, now))
	}
}

func (o *Orchestrator) processEvents(ctx context.Context, res *fetchResult, now time.Time) {
	for i := range res.events {
		e := &res.events[i]
		if e.Kind == api.KindFilterWheelChanged {
			if fc, ok := e.FilterChange(); ok && fc.Redundant() {
				continue
			}
		}
		if !o.dedup.Admit(ctx, e, now) {
			metrics.EventsDeduped.Inc()
			continue
		}
		o.log.Info("new event",
			logx.String("time", e.Time), logx.String("event", e.Name))
		o.handleEvent(ctx, e, res)
	}
}

func (o *Orchestrator) handleEvent(ctx context.Context, e *api.Event, res *fetchResult) {
	switch e.Kind {
	case api.KindTargetStart:
		o.handleTargetStart(ctx, e, res.mount)
	case api.KindAutofocusFinished:
		o.handleAutofocusFinished(ctx, res)
	case api.KindMountBeforeFlip, api.KindMountAfterFlip, api.KindMountParked:
		if o.bcast.Sinks() > 0 {
			o.deliver(ctx, buildMountEvent(e, o.tracker.Current(), res.mount))
		}
	case api.KindImageSave:
		// Covered by image polling.
	default:
		if o.bcast.Sinks() > 0 {
			o.deliver(ctx, buildGenericEvent(e))
		}
	}
}

func (o *Orchestrator) handleTargetStart(ctx context.Context, e *api.Event, mount *api.MountInfo) {
	ts, ok := e.TargetStart()
	if !ok {
		return
	}
	old, changed := o.tracker.ObserveTargetStart(ts)
	if !changed {
		return
	}
	next := o.tracker.Current()
	o.log.Info("target start", logx.String("name", next.Name))
	if o.bcast.Sinks() == 0 {
		return
	}
	now := time.Now()
	if old != nil {
		o.deliver(ctx, buildTargetChange(old, next, o.flipHours, mount, now))
	} else {
		o.deliver(ctx, buildTargetStart(next, o.flipHours, mount, now))
	}
}

func (o *Orchestrator) handleAutofocusFinished(ctx context.Context, res *fetchResult) {
	report := res.autofocus
	if report == nil {
		o.log.Warn("autofocus detail unavailable", logx.Err(res.autofocusErr))
		return
	}
	o.log.Info("autofocus completed",
		logx.String("filter", report.Filter),
		logx.Float64("r_squared", report.BestRSquared()),
		logx.Int("position_change", report.PositionChange()))
	if o.bcast.Sinks() > 0 {
		o.deliver(ctx, buildAutofocus(report))
	}
}

func (o *Orchestrator) processImages(ctx context.Context, images []api.Image, now time.Time) {
	for i := range images {
		img := &images[i]
		key := img.Key()
		if _, seen := o.seenImages[key]; seen {
			continue
		}
		o.seenImages[key] = struct{}{}
		o.log.Info("new image",
			logx.String("date", img.Date),
			logx.String("type", img.ImageType),
			logx.String("filter", img.Filter))
		if o.bcast.Sinks() == 0 {
			continue
		}

		emit, skipped := o.gate.Decide(now)
		if !emit {
			metrics.ImagesSkipped.Inc()
			continue
		}
		msg := buildImage(img, o.tracker.Current(), skipped, o.flipHours, now)
		if !o.opts.AttachThumbnails {
			o.deliver(ctx, msg)
			continue
		}
		data, mime, err := o.client.Thumbnail(ctx, i)
		if err != nil || len(data) == 0 {
			// Degrade to text-only rather than dropping the notification.
			o.log.Warn("thumbnail fetch failed", logx.Err(err))
			o.deliver(ctx, msg)
			continue
		}
		o.deliverWithImage(ctx, msg, &chat.Attachment{
			Data: data, Filename: "thumbnail.jpg", MIME: mime,
		})
	}
}

func (o *Orchestrator) deliver(ctx context.Context, msg *chat.Message) {
	for _, out := range o.bcast.Send(ctx, msg) {
		metrics.RecordOutcome(out.Sink, out.Err)
	}
}

func (o *Orchestrator) deliverWithImage(ctx context.Context, msg *chat.Message, att *chat.Attachment) {
	for _, out := range o.bcast.SendWithImage(ctx, msg, att) {
		metrics.RecordOutcome(out.Sink, out.Err)
	}
}
