// Package matrix delivers notifications to a Matrix room over the client
// API. It authenticates with a stored access token or a password login and
// renders rich messages as HTML-formatted m.room.message events.
package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"spacecat/internal/chat"
	logx "spacecat/pkg/logx"
)

type Config struct {
	HomeserverURL string
	Username      string
	Password      string
	AccessToken   string
	RoomID        string
	Timeout       time.Duration
}

type Sink struct {
	base   string
	room   string
	user   string
	pass   string
	token  atomic.Value // string
	txn    atomic.Int64
	http   *http.Client
	log    logx.Logger
	loginM sync.Mutex
}

func New(cfg Config, log logx.Logger) (*Sink, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.HomeserverURL), "/")
	if base == "" {
		return nil, errors.New("matrix homeserver url is empty")
	}
	if cfg.RoomID == "" {
		return nil, errors.New("matrix room id is empty")
	}
	if cfg.AccessToken == "" && (cfg.Username == "" || cfg.Password == "") {
		return nil, errors.New("matrix needs an access token or username+password")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Sink{
		base: base,
		room: cfg.RoomID,
		user: cfg.Username,
		pass: cfg.Password,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
	s.token.Store(cfg.AccessToken)
	s.txn.Store(time.Now().UnixNano())
	return s, nil
}

func (s *Sink) Name() string { return "matrix" }

// login exchanges username+password for an access token. Called lazily on
// the first send and again when the server reports the token invalid.
func (s *Sink) login(ctx context.Context) error {
	s.loginM.Lock()
	defer s.loginM.Unlock()
	if tok, _ := s.token.Load().(string); tok != "" {
		return nil
	}
	if s.user == "" || s.pass == "" {
		return errors.New("matrix: no token and no credentials")
	}
	body, _ := json.Marshal(map[string]any{
		"type":     "m.login.password",
		"password": s.pass,
		"identifier": map[string]any{
			"type": "m.id.user",
			"user": s.user,
		},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.base+"/_matrix/client/v3/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("matrix: build login: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("matrix: login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("matrix: login returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("matrix: decode login: %w", err)
	}
	if out.AccessToken == "" {
		return errors.New("matrix: login returned empty token")
	}
	s.token.Store(out.AccessToken)
	return nil
}

func (s *Sink) Send(ctx context.Context, msg *chat.Message) error {
	content := map[string]any{
		"msgtype":        "m.text",
		"body":           msg.PlainText(),
		"format":         "org.matrix.custom.html",
		"formatted_body": renderHTML(msg),
	}
	return s.sendEvent(ctx, content)
}

func (s *Sink) SendWithImage(ctx context.Context, msg *chat.Message, att *chat.Attachment) error {
	if err := s.Send(ctx, msg); err != nil {
		return err
	}
	uri, err := s.upload(ctx, att)
	if err != nil {
		return err
	}
	content := map[string]any{
		"msgtype": "m.image",
		"body":    att.Filename,
		"url":     uri,
		"info": map[string]any{
			"mimetype": att.MIME,
			"size":     len(att.Data),
		},
	}
	return s.sendEvent(ctx, content)
}

func (s *Sink) sendEvent(ctx context.Context, content map[string]any) error {
	if err := s.login(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("matrix: encode event: %w", err)
	}
	txn := s.txn.Add(1)
	u := fmt.Sprintf("%s/_matrix/client/v3/rooms/%s/send/m.room.message/%d",
		s.base, url.PathEscape(s.room), txn)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("matrix: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.execute(req)
}

// upload puts the attachment into the media repository and returns its
// mxc:// URI.
func (s *Sink) upload(ctx context.Context, att *chat.Attachment) (string, error) {
	u := s.base + "/_matrix/media/v3/upload?filename=" + url.QueryEscape(att.Filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(att.Data))
	if err != nil {
		return "", fmt.Errorf("matrix: build upload: %w", err)
	}
	mime := att.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	req.Header.Set("Content-Type", mime)
	s.authorize(req)
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("matrix: upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("matrix: upload returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	var out struct {
		ContentURI string `json:"content_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("matrix: decode upload: %w", err)
	}
	return out.ContentURI, nil
}

func (s *Sink) authorize(req *http.Request) {
	tok, _ := s.token.Load().(string)
	req.Header.Set("Authorization", "Bearer "+tok)
}

func (s *Sink) execute(req *http.Request) error {
	s.authorize(req)
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("matrix: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		// Token expired or revoked; force a fresh login next send.
		s.token.Store("")
		return errors.New("matrix: access token rejected")
	}
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("matrix: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

func renderHTML(msg *chat.Message) string {
	var b strings.Builder
	if msg.Title != "" {
		b.WriteString("<strong>")
		b.WriteString(html.EscapeString(msg.Title))
		b.WriteString("</strong>")
	}
	if msg.Body != "" {
		if b.Len() > 0 {
			b.WriteString("<br/>")
		}
		b.WriteString(html.EscapeString(msg.Body))
	}
	for _, f := range msg.Fields {
		b.WriteString("<br/><em>")
		b.WriteString(html.EscapeString(f.Name))
		b.WriteString(":</em> ")
		b.WriteString(html.EscapeString(f.Value))
	}
	if msg.Footer != "" {
		b.WriteString("<br/><sub>")
		b.WriteString(html.EscapeString(msg.Footer))
		b.WriteString("</sub>")
	}
	return b.String()
}
