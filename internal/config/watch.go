package config

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "spacecat/pkg/logx"
)

// Watch monitors the config file and calls onReload with each successfully
// re-parsed and validated config. It returns when ctx is cancelled.
//
// Only hot-applicable settings (the logging level) are expected to be acted
// on by the callback; the engine's own snapshot is taken once at startup
// and stays fixed for the process lifetime.
func Watch(ctx context.Context, path string, log logx.Logger, onReload func(*Config)) {
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("config watch init failed", logx.Err(err), logx.String("dir", dir))
		return
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		log.Warn("config watch add failed", logx.Err(err), logx.String("dir", dir))
		return
	}
	log.Debug("config watcher started", logx.String("dir", dir), logx.String("file", file))

	// Debounce to avoid reacting to partial writes; editors commonly fire
	// several events per save.
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			cfg, err := Load(path)
			if err != nil {
				log.Warn("config reload rejected", logx.String("path", path), logx.Err(err))
				return
			}
			log.Debug("config reloaded", logx.String("path", path))
			onReload(cfg)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			// Compare by basename: robust across absolute/relative paths.
			if strings.EqualFold(filepath.Base(ev.Name), file) {
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					reload()
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			if err != nil {
				log.Warn("config watch error", logx.Err(err), logx.String("dir", dir))
			}
		}
	}
}
