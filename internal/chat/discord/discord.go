// Package discord delivers notifications through a Discord webhook.
//
// Messages render as embeds; attachments go out as multipart uploads
// referenced from the embed with an attachment:// URL.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"spacecat/internal/chat"
	logx "spacecat/pkg/logx"
)

type Config struct {
	WebhookURL string
	Timeout    time.Duration
}

type Sink struct {
	url  string
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sink, error) {
	url := strings.TrimSpace(cfg.WebhookURL)
	if url == "" {
		return nil, errors.New("discord webhook url is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sink{
		url:  url,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}, nil
}

func (s *Sink) Name() string { return "discord" }

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embedImage struct {
	URL string `json:"url"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Image       *embedImage  `json:"image,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

func buildEmbed(msg *chat.Message) embed {
	e := embed{
		Title:       msg.Title,
		Description: msg.Body,
		Color:       msg.Color,
	}
	for _, f := range msg.Fields {
		e.Fields = append(e.Fields, embedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if msg.Footer != "" {
		e.Footer = &embedFooter{Text: msg.Footer}
	}
	if !msg.Timestamp.IsZero() {
		e.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	return e
}

func (s *Sink) Send(ctx context.Context, msg *chat.Message) error {
	payload, err := json.Marshal(webhookPayload{Embeds: []embed{buildEmbed(msg)}})
	if err != nil {
		return fmt.Errorf("discord: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.execute(req)
}

func (s *Sink) SendWithImage(ctx context.Context, msg *chat.Message, att *chat.Attachment) error {
	e := buildEmbed(msg)
	e.Image = &embedImage{URL: "attachment://" + att.Filename}

	payload, err := json.Marshal(webhookPayload{Embeds: []embed{e}})
	if err != nil {
		return fmt.Errorf("discord: encode payload: %w", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormField("payload_json")
	if err != nil {
		return fmt.Errorf("discord: multipart: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return fmt.Errorf("discord: multipart: %w", err)
	}
	file, err := w.CreateFormFile("files[0]", att.Filename)
	if err != nil {
		return fmt.Errorf("discord: multipart: %w", err)
	}
	if _, err := file.Write(att.Data); err != nil {
		return fmt.Errorf("discord: multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("discord: multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &body)
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.execute(req)
}

func (s *Sink) execute(req *http.Request) error {
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("discord: webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
