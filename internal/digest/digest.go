// Package digest compiles a scheduled session summary from the full image
// history and broadcasts it once per schedule tick.
package digest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"spacecat/internal/api"
	"spacecat/internal/chat"
	logx "spacecat/pkg/logx"
)

type Config struct {
	// Schedule is a cron expression; default "0 8 * * *" (daily 08:00).
	Schedule string
	Timezone string
}

// Stats is the aggregated view of one session's image history.
type Stats struct {
	TotalFrames int
	LightFrames int
	Calibration int
	Integration time.Duration
	Filters     []string
	AvgHFR      float64
}

// Compile aggregates image history into session stats.
func Compile(images []api.Image) Stats {
	var s Stats
	filters := map[string]struct{}{}
	var hfrSum float64
	var hfrCount int
	for i := range images {
		img := &images[i]
		s.TotalFrames++
		if img.IsLight() {
			s.LightFrames++
			s.Integration += time.Duration(img.ExposureTime * float64(time.Second))
			if img.HFR > 0 {
				hfrSum += img.HFR
				hfrCount++
			}
		} else if img.IsCalibration() {
			s.Calibration++
		}
		if img.Filter != "" {
			filters[img.Filter] = struct{}{}
		}
	}
	for f := range filters {
		s.Filters = append(s.Filters, f)
	}
	sort.Strings(s.Filters)
	if hfrCount > 0 {
		s.AvgHFR = hfrSum / float64(hfrCount)
	}
	return s
}

// Message renders the stats as a chat notification.
func (s Stats) Message() *chat.Message {
	msg := &chat.Message{
		Title: "📋 Session Digest",
		Color: chat.ColorBlue,
		Fields: []chat.Field{
			{Name: "Total Frames", Value: fmt.Sprint(s.TotalFrames), Inline: true},
			{Name: "Light Frames", Value: fmt.Sprint(s.LightFrames), Inline: true},
			{Name: "Calibration Frames", Value: fmt.Sprint(s.Calibration), Inline: true},
			{Name: "Integration", Value: formatIntegration(s.Integration), Inline: true},
		},
	}
	if len(s.Filters) > 0 {
		filters := ""
		for i, f := range s.Filters {
			if i > 0 {
				filters += ", "
			}
			filters += f
		}
		msg.Fields = append(msg.Fields, chat.Field{Name: "Filters", Value: filters, Inline: true})
	}
	if s.AvgHFR > 0 {
		msg.Fields = append(msg.Fields, chat.Field{
			Name: "Avg HFR", Value: fmt.Sprintf("%.2f", s.AvgHFR), Inline: true,
		})
	}
	return msg
}

func formatIntegration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %02dm", h, m)
}

// Scheduler broadcasts a digest on a cron schedule.
type Scheduler struct {
	client *api.Client
	bcast  *chat.Broadcaster
	cfg    Config
	log    logx.Logger
}

func NewScheduler(client *api.Client, bcast *chat.Broadcaster, cfg Config, log logx.Logger) *Scheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 8 * * *"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{client: client, bcast: bcast, cfg: cfg, log: log}
}

// Run schedules digests until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	loc := time.Local
	if s.cfg.Timezone != "" {
		l, err := time.LoadLocation(s.cfg.Timezone)
		if err != nil {
			return fmt.Errorf("digest timezone: %w", err)
		}
		loc = l
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.emit(ctx) }); err != nil {
		return fmt.Errorf("digest schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}

func (s *Scheduler) emit(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	images, err := s.client.ImageHistory(cctx, true)
	if err != nil {
		s.log.Warn("digest fetch failed", logx.Err(err))
		return
	}
	if len(images) == 0 {
		s.log.Debug("digest skipped, no images")
		return
	}
	stats := Compile(images)
	s.log.Info("session digest",
		logx.Int("frames", stats.TotalFrames),
		logx.Int("lights", stats.LightFrames))
	s.bcast.Send(cctx, stats.Message())
}
