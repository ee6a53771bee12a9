package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "spacecat/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled and dedup state lives
// only in memory.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store is the persistence API used by the updater's dedup layer.
type Store interface {
	// PutSeen records a fingerprint with its expiry.
	PutSeen(ctx context.Context, key string, until time.Time) error
	// ActiveKeys returns every fingerprint whose expiry is after now,
	// with its expiry. Used to warm the in-memory seen-set at startup.
	ActiveKeys(ctx context.Context, now time.Time) (map[string]time.Time, error)
	// PruneExpired drops fingerprints whose expiry has passed.
	PruneExpired(ctx context.Context, now time.Time) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
