// Package telegram delivers notifications to a Telegram chat through the
// bot API. Rich messages flatten to HTML text; attachments go out as photos
// with the message as caption.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"html"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"spacecat/internal/chat"
	logx "spacecat/pkg/logx"
)

type Config struct {
	Token    string
	ChatID   int64
	ThreadID int
	Timeout  time.Duration
}

type Sink struct {
	bot    *tele.Bot
	chatID int64
	thread int
	log    logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// The sink only sends; no poller is attached.
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Sink{bot: b, chatID: cfg.ChatID, thread: cfg.ThreadID, log: log}, nil
}

func (s *Sink) Name() string { return "telegram" }

func (s *Sink) Send(ctx context.Context, msg *chat.Message) error {
	opt := &tele.SendOptions{
		ParseMode: tele.ModeHTML,
		ThreadID:  s.thread,
	}
	_, err := s.bot.Send(&tele.Chat{ID: s.chatID}, renderHTML(msg), opt)
	return err
}

func (s *Sink) SendWithImage(ctx context.Context, msg *chat.Message, att *chat.Attachment) error {
	photo := &tele.Photo{
		File:    tele.FromReader(bytes.NewReader(att.Data)),
		Caption: renderHTML(msg),
	}
	opt := &tele.SendOptions{
		ParseMode: tele.ModeHTML,
		ThreadID:  s.thread,
	}
	_, err := s.bot.Send(&tele.Chat{ID: s.chatID}, photo, opt)
	return err
}

func renderHTML(msg *chat.Message) string {
	var b strings.Builder
	if msg.Title != "" {
		b.WriteString("<b>")
		b.WriteString(html.EscapeString(msg.Title))
		b.WriteString("</b>")
	}
	if msg.Body != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(html.EscapeString(msg.Body))
	}
	for _, f := range msg.Fields {
		b.WriteString("\n<i>")
		b.WriteString(html.EscapeString(f.Name))
		b.WriteString(":</i> ")
		b.WriteString(html.EscapeString(f.Value))
	}
	if msg.Footer != "" {
		b.WriteString("\n<i>")
		b.WriteString(html.EscapeString(msg.Footer))
		b.WriteString("</i>")
	}
	return b.String()
}
