package config

type Config struct {
	API     APIConfig     `json:"api"`
	Updater UpdaterConfig `json:"updater"`
	Chat    ChatConfig    `json:"chat"`
	Digest  DigestConfig  `json:"digest,omitempty"`
	Storage StorageConfig `json:"storage,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty"`
	Logging LoggingConfig `json:"logging"`
}

// APIConfig points at the instrument-control HTTP API.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type APIConfig struct {
	BaseURL string `json:"base_url"`
	// Timeout is the per-request HTTP timeout. Default: "30s".
	Timeout string `json:"timeout,omitempty"`
	// RetryMax is the number of retries per request on top of the first
	// attempt. Default: 3.
	RetryMax int `json:"retry_max,omitempty"`
	// BreakerThreshold trips the circuit breaker after this many
	// consecutive failures. Default: 5. Set -1 to disable the breaker.
	BreakerThreshold int `json:"breaker_threshold,omitempty"`
}

// UpdaterConfig controls the poll/notify engine.
type UpdaterConfig struct {
	// PollInterval between cycles. Default: "5s".
	PollInterval string `json:"poll_interval,omitempty"`
	// ImageCooldown is the minimum gap between two image notifications.
	// Images arriving inside the window are counted and reported on the
	// next emitted one. Default: "60s".
	ImageCooldown string `json:"image_cooldown,omitempty"`
	// DedupWindow bounds the in-memory seen-event set. Fingerprints older
	// than the window are evicted. Default: "24h".
	DedupWindow string `json:"dedup_window,omitempty"`
	// AttachThumbnails fetches and attaches the capture thumbnail to
	// image notifications. Delivery degrades to text-only when the
	// thumbnail fetch fails.
	AttachThumbnails bool `json:"attach_thumbnails,omitempty"`
}

// ChatConfig enumerates the notification sinks. A sink with enabled=false
// (or an omitted section) is not constructed at all.
type ChatConfig struct {
	// RatePerSec caps outgoing deliveries across all sinks. Default: 5.
	RatePerSec int             `json:"rate_per_sec,omitempty"`
	Discord    *DiscordConfig  `json:"discord,omitempty"`
	Matrix     *MatrixConfig   `json:"matrix,omitempty"`
	Telegram   *TelegramConfig `json:"telegram,omitempty"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type MatrixConfig struct {
	Enabled       bool   `json:"enabled"`
	HomeserverURL string `json:"homeserver_url"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	// AccessToken skips the login call when set.
	AccessToken string `json:"access_token,omitempty"`
	RoomID      string `json:"room_id"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
}

// DigestConfig controls the scheduled session summary.
type DigestConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a cron spec (five fields). Default: "0 8 * * *".
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// StorageConfig controls the optional seen-fingerprint persistence.
//
// Driver values:
//   - "none" (or empty): volatile in-memory state only; a restart may
//     re-emit notifications for events already delivered
//   - "sqlite": persist fingerprints so restarts stay quiet
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:9900"
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}
