package discord

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spacecat/internal/chat"
	logx "spacecat/pkg/logx"
)

func TestSendEmbed(t *testing.T) {
	t.Parallel()

	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	s, err := New(Config{WebhookURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	msg := &chat.Message{
		Title:  "Target started",
		Body:   "M31",
		Color:  chat.ColorGreen,
		Fields: []chat.Field{{Name: "RA", Value: "00:42:44", Inline: true}},
	}
	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Title != "Target started" || e.Color != chat.ColorGreen {
		t.Fatalf("embed = %+v", e)
	}
	if len(e.Fields) != 1 || !e.Fields[0].Inline {
		t.Fatalf("fields = %+v", e.Fields)
	}
}

func TestSendWithImageMultipart(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctype := r.Header.Get("Content-Type")
		mediaType, params, err := mime.ParseMediaType(ctype)
		if err != nil || mediaType != "multipart/form-data" {
			t.Errorf("content type = %q", ctype)
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		var sawPayload, sawFile bool
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			data, _ := io.ReadAll(part)
			switch part.FormName() {
			case "payload_json":
				sawPayload = strings.Contains(string(data), "attachment://frame.jpg")
			case "files[0]":
				sawFile = part.FileName() == "frame.jpg" && len(data) == 3
			}
		}
		if !sawPayload || !sawFile {
			t.Errorf("payload=%v file=%v", sawPayload, sawFile)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	s, err := New(Config{WebhookURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	att := &chat.Attachment{Data: []byte{1, 2, 3}, Filename: "frame.jpg", MIME: "image/jpeg"}
	if err := s.SendWithImage(context.Background(), &chat.Message{Title: "Image"}, att); err != nil {
		t.Fatalf("SendWithImage: %v", err)
	}
}

func TestSendReportsHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"rate limited"}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	s, err := New(Config{WebhookURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = s.Send(context.Background(), &chat.Message{Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v, want 429 surfaced", err)
	}
}
