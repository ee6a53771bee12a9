// Package app wires the configured components into a running service.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"spacecat/internal/api"
	"spacecat/internal/chat"
	"spacecat/internal/chat/discord"
	"spacecat/internal/chat/matrix"
	"spacecat/internal/chat/telegram"
	"spacecat/internal/config"
	"spacecat/internal/digest"
	"spacecat/internal/metrics"
	"spacecat/internal/runtime/supervisor"
	"spacecat/internal/storage"
	"spacecat/internal/updater"
	logx "spacecat/pkg/logx"
)

type App struct {
	cfgPath string
	cfg     *config.Config

	logs *logx.Service
	log  logx.Logger

	client *api.Client
	bcast  *chat.Broadcaster
	store  storage.Store
	orch   *updater.Orchestrator
	digest *digest.Scheduler

	sup *supervisor.Supervisor
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	a := &App{cfgPath: cfgPath, cfg: cfg, logs: logs, log: log}

	if err := a.build(); err != nil {
		_ = logs.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build() error {
	cfg := a.cfg
	root := a.logs.Logger()

	timeout, err := cfg.API.RequestTimeout()
	if err != nil {
		return err
	}
	client, err := api.New(api.Config{
		BaseURL:          cfg.API.BaseURL,
		Timeout:          timeout,
		RetryMax:         cfg.API.RetryMax,
		BreakerThreshold: cfg.API.BreakerThreshold,
	}, root.With(logx.String("comp", "api")))
	if err != nil {
		return fmt.Errorf("api client: %w", err)
	}
	a.client = client

	sinks, err := buildSinks(cfg, root)
	if err != nil {
		return err
	}
	ratePerSec := float64(cfg.Chat.RatePerSec)
	if cfg.Chat.RatePerSec == 0 {
		ratePerSec = 5
	}
	a.bcast = chat.NewBroadcaster(sinks, ratePerSec, root.With(logx.String("comp", "chat")))
	if len(sinks) == 0 {
		a.log.Warn("no chat sinks enabled, running observe-only")
	}

	busyWait, err := cfg.Storage.BusyWait()
	if err != nil {
		return err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyWait,
	}, root.With(logx.String("comp", "storage")))
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if store != nil {
		a.log.Info("storage enabled", logx.String("driver", cfg.Storage.Driver))
	}
	a.store = store

	interval, err := cfg.Updater.Interval()
	if err != nil {
		return err
	}
	cooldown, err := cfg.Updater.Cooldown()
	if err != nil {
		return err
	}
	window, err := cfg.Updater.Window()
	if err != nil {
		return err
	}
	a.orch = updater.New(client, a.bcast, store, updater.Options{
		PollInterval:     interval,
		ImageCooldown:    cooldown,
		DedupWindow:      window,
		AttachThumbnails: cfg.Updater.AttachThumbnails,
	}, root.With(logx.String("comp", "updater")))

	if cfg.Digest.Enabled {
		a.digest = digest.NewScheduler(client, a.bcast, digest.Config{
			Schedule: cfg.Digest.Schedule,
			Timezone: cfg.Digest.Timezone,
		}, root.With(logx.String("comp", "digest")))
	}
	return nil
}

func buildSinks(cfg *config.Config, root logx.Logger) ([]chat.Sink, error) {
	var sinks []chat.Sink
	if d := cfg.Chat.Discord; d != nil && d.Enabled {
		s, err := discord.New(discord.Config{WebhookURL: d.WebhookURL},
			root.With(logx.String("comp", "discord")))
		if err != nil {
			return nil, fmt.Errorf("discord sink: %w", err)
		}
		sinks = append(sinks, s)
	}
	if m := cfg.Chat.Matrix; m != nil && m.Enabled {
		s, err := matrix.New(matrix.Config{
			HomeserverURL: m.HomeserverURL,
			Username:      m.Username,
			Password:      m.Password,
			AccessToken:   m.AccessToken,
			RoomID:        m.RoomID,
		}, root.With(logx.String("comp", "matrix")))
		if err != nil {
			return nil, fmt.Errorf("matrix sink: %w", err)
		}
		sinks = append(sinks, s)
	}
	if t := cfg.Chat.Telegram; t != nil && t.Enabled {
		s, err := telegram.New(telegram.Config{
			Token:    t.Token,
			ChatID:   t.ChatID,
			ThreadID: t.ThreadID,
		}, root.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, fmt.Errorf("telegram sink: %w", err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// Run starts every component and blocks until ctx is canceled or a fatal
// error occurs.
func (a *App) Run(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true))

	a.sup.Go("updater", a.orch.Run)

	if a.digest != nil {
		a.sup.Go("digest", a.digest.Run)
	}

	if a.cfg.Metrics.Enabled {
		addr := strings.TrimSpace(a.cfg.Metrics.Addr)
		if addr == "" {
			addr = "127.0.0.1:9900"
		}
		mlog := a.logs.Logger().With(logx.String("comp", "metrics"))
		a.sup.Go("metrics", func(ctx context.Context) error {
			return metrics.Serve(ctx, addr, mlog)
		})
	}

	// Config watch: the only hot-applicable setting is the log level; the
	// orchestrator's snapshot stays fixed for the process lifetime.
	wlog := a.logs.Logger().With(logx.String("comp", "config"))
	a.sup.Go0("config-watch", func(ctx context.Context) {
		config.Watch(ctx, a.cfgPath, wlog, func(next *config.Config) {
			a.logs.SetLevel(next.Logging.Level)
			wlog.Info("log level applied", logx.String("level", next.Logging.Level))
		})
	})

	a.notifySystemd()

	<-a.sup.Context().Done()
	return a.sup.Err()
}

// notifySystemd reports readiness and keeps the watchdog fed when running
// under systemd. Both calls are no-ops outside a systemd unit.
func (a *App) notifySystemd() {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify unavailable", logx.Err(err))
	} else if ok {
		a.log.Info("systemd readiness reported")
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	a.sup.Go0("watchdog", func(ctx context.Context) {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	})
}

// Stop shuts everything down, waiting up to timeout for goroutines.
func (a *App) Stop(timeout time.Duration) {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if a.sup != nil {
		a.sup.Stop(timeout)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.logs.Close()
}
