package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Load reads, decodes, and validates the config file. YAML and JSON are
// both accepted; unknown fields are rejected either way.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// coerceToJSONBytes converts YAML config to JSON bytes so the strict JSON
// decoder (DisallowUnknownFields) serves both formats.
//
// Returns (jsonBytes, format, err) where format is "json" or "yaml".
func coerceToJSONBytes(path string, data []byte) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, "json", nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, "yaml", fmt.Errorf("yaml unmarshal: %w", err)
	}

	v = normalizeYAML(v)

	j, err := json.Marshal(v)
	if err != nil {
		return nil, "yaml", fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, "yaml", nil
}

// normalizeYAML ensures all map keys are strings so the result can be
// JSON-marshaled.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = normalizeYAML(v)
		}
		return m
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}

// Validate enforces the fatal construction-time rules. A config that fails
// here must never reach the poll loop.
func (c *Config) Validate() error {
	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("api.base_url must start with http:// or https://")
	}
	if _, err := c.API.RequestTimeout(); err != nil {
		return err
	}
	if c.API.RetryMax < 0 || c.API.RetryMax > 10 {
		return fmt.Errorf("api.retry_max must be between 0 and 10")
	}
	if _, err := c.Updater.Interval(); err != nil {
		return err
	}
	if _, err := c.Updater.Cooldown(); err != nil {
		return err
	}
	if _, err := c.Updater.Window(); err != nil {
		return err
	}

	if d := c.Chat.Discord; d != nil && d.Enabled && strings.TrimSpace(d.WebhookURL) == "" {
		return fmt.Errorf("chat.discord.webhook_url is required when enabled")
	}
	if m := c.Chat.Matrix; m != nil && m.Enabled {
		if strings.TrimSpace(m.HomeserverURL) == "" {
			return fmt.Errorf("chat.matrix.homeserver_url is required when enabled")
		}
		if strings.TrimSpace(m.RoomID) == "" {
			return fmt.Errorf("chat.matrix.room_id is required when enabled")
		}
		if strings.TrimSpace(m.AccessToken) == "" && strings.TrimSpace(m.Username) == "" {
			return fmt.Errorf("chat.matrix: either access_token or username/password is required")
		}
	}
	if t := c.Chat.Telegram; t != nil && t.Enabled {
		if strings.TrimSpace(t.Token) == "" {
			return fmt.Errorf("chat.telegram.token is required when enabled")
		}
		if t.ChatID == 0 {
			return fmt.Errorf("chat.telegram.chat_id is required when enabled")
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "none", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}

	if lvl := strings.TrimSpace(c.Logging.Level); lvl != "" {
		switch strings.ToUpper(lvl) {
		case "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
		default:
			return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
		}
	}
	return nil
}

func parseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := parseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// Resolved duration accessors. Defaults live here so the rest of the code
// never re-parses strings.

func (a APIConfig) RequestTimeout() (time.Duration, error) {
	return parseDurationOrDefault("api.timeout", a.Timeout, 30*time.Second)
}

func (u UpdaterConfig) Interval() (time.Duration, error) {
	return parseDurationOrDefault("updater.poll_interval", u.PollInterval, 5*time.Second)
}

func (u UpdaterConfig) Cooldown() (time.Duration, error) {
	return parseDurationOrDefault("updater.image_cooldown", u.ImageCooldown, 60*time.Second)
}

func (u UpdaterConfig) Window() (time.Duration, error) {
	return parseDurationOrDefault("updater.dedup_window", u.DedupWindow, 24*time.Hour)
}

func (s StorageConfig) BusyWait() (time.Duration, error) {
	return parseDurationField("storage.busy_timeout", s.BusyTimeout)
}
