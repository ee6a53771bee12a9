package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	logx "spacecat/pkg/logx"
)

const apiPrefix = "/v2/api"

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RetryMax is the number of retries per request on top of the first
	// attempt.
	RetryMax int
	// BreakerThreshold trips the shared breaker after this many
	// consecutive request failures; <0 disables the breaker.
	BreakerThreshold int
}

type Client struct {
	base     string
	http     *http.Client
	retryMax int
	breaker  *gobreaker.CircuitBreaker
	log      logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api base url is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retryMax := cfg.RetryMax
	if retryMax < 0 {
		retryMax = 0
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	c := &Client{
		base:     base,
		http:     &http.Client{Timeout: timeout},
		retryMax: retryMax,
		log:      log,
	}

	if cfg.BreakerThreshold >= 0 {
		threshold := uint32(cfg.BreakerThreshold)
		if threshold == 0 {
			threshold = 5
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "spacecat-api",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("api breaker state change",
					logx.String("from", from.String()), logx.String("to", to.String()))
			},
		})
	}

	return c, nil
}

func (c *Client) BaseURL() string { return c.base }

// do runs one GET with retry/backoff and the circuit breaker, returning the
// raw body. 4xx statuses are permanent; 5xx and transport errors retry.
func (c *Client) do(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := c.base + apiPrefix + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	attempt := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, backoff.Permanent(&Error{Kind: KindNetwork, Endpoint: endpoint, Err: err})
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, &Error{Kind: KindNetwork, Endpoint: endpoint, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
		if err != nil {
			return nil, &Error{Kind: KindNetwork, Endpoint: endpoint, Err: err}
		}
		if resp.StatusCode != http.StatusOK {
			apiErr := &Error{
				Kind:     KindHTTP,
				Endpoint: endpoint,
				Status:   resp.StatusCode,
				Message:  strings.TrimSpace(string(body)),
			}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, backoff.Permanent(apiErr)
			}
			return nil, apiErr
		}
		return body, nil
	}

	run := func() ([]byte, error) {
		bo := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.retryMax)), ctx)
		return backoff.RetryWithData(attempt, bo)
	}

	if c.breaker == nil {
		return run()
	}
	out, err := c.breaker.Execute(func() (any, error) {
		return run()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &Error{Kind: KindUnavailable, Endpoint: endpoint, Err: err}
		}
		return nil, err
	}
	body, _ := out.([]byte)
	return body, nil
}

// getJSON fetches an endpoint and unwraps the response envelope.
func getJSON[T any](ctx context.Context, c *Client, endpoint string, params url.Values) (T, error) {
	var zero T
	body, err := c.do(ctx, endpoint, params)
	if err != nil {
		return zero, err
	}
	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, &Error{Kind: KindParse, Endpoint: endpoint, Err: err}
	}
	if !env.Success {
		return zero, &Error{Kind: KindRemote, Endpoint: endpoint, Message: env.Error}
	}
	return env.Response, nil
}

// EventHistory returns the full event history in wire order (ascending
// timestamps).
func (c *Client) EventHistory(ctx context.Context) ([]Event, error) {
	return getJSON[[]Event](ctx, c, "/event-history", nil)
}

// ImageHistory returns image capture metadata; all=true requests the whole
// session rather than the most recent entries.
func (c *Client) ImageHistory(ctx context.Context, all bool) ([]Image, error) {
	params := url.Values{}
	if all {
		params.Set("all", "true")
	}
	return getJSON[[]Image](ctx, c, "/image-history", params)
}

// CurrentSequence returns the sequencer state tree.
func (c *Client) CurrentSequence(ctx context.Context) (*Sequence, error) {
	items, err := getJSON[[]json.RawMessage](ctx, c, "/sequence/json", nil)
	if err != nil {
		return nil, err
	}
	return &Sequence{Items: items}, nil
}

// MountStatus returns the mount snapshot.
func (c *Client) MountStatus(ctx context.Context) (*MountInfo, error) {
	info, err := getJSON[MountInfo](ctx, c, "/equipment/mount/info", nil)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// LastAutofocus returns the most recent autofocus report, or nil when the
// API reports none.
func (c *Client) LastAutofocus(ctx context.Context) (*AutofocusReport, error) {
	report, err := getJSON[AutofocusReport](ctx, c, "/equipment/focuser/last-af", nil)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) && ae.Kind == KindRemote {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// Thumbnail fetches the JPEG thumbnail for an image by history index.
func (c *Client) Thumbnail(ctx context.Context, index int) ([]byte, string, error) {
	endpoint := fmt.Sprintf("/image/thumbnail/%d", index)
	body, err := c.do(ctx, endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	return body, "image/jpeg", nil
}

// Version returns the API version string (health check).
func (c *Client) Version(ctx context.Context) (string, error) {
	return getJSON[string](ctx, c, "/version", nil)
}
