package chat

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	logx "spacecat/pkg/logx"
)

type fakeSink struct {
	name   string
	fail   bool
	sends  atomic.Int32
	images atomic.Int32
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Send(ctx context.Context, msg *Message) error {
	f.sends.Add(1)
	if f.fail {
		return errors.New("sink down")
	}
	return nil
}

func (f *fakeSink) SendWithImage(ctx context.Context, msg *Message, att *Attachment) error {
	f.images.Add(1)
	if f.fail {
		return errors.New("sink down")
	}
	return nil
}

func TestBroadcastFailureIsolation(t *testing.T) {
	t.Parallel()

	good := &fakeSink{name: "good"}
	bad := &fakeSink{name: "bad", fail: true}
	b := NewBroadcaster([]Sink{good, bad}, 0, logx.Nop())

	outcomes := b.Send(context.Background(), &Message{Title: "hello"})
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	if Failed(outcomes) != 1 {
		t.Fatalf("failed = %d, want 1", Failed(outcomes))
	}
	if good.sends.Load() != 1 {
		t.Fatal("healthy sink must still receive the message")
	}
	for _, o := range outcomes {
		switch o.Sink {
		case "good":
			if o.Err != nil {
				t.Fatalf("good sink err = %v", o.Err)
			}
		case "bad":
			if o.Err == nil {
				t.Fatal("bad sink should report its error")
			}
		}
	}
}

func TestBroadcastImageFallsBackToSend(t *testing.T) {
	t.Parallel()

	s := &fakeSink{name: "only"}
	b := NewBroadcaster([]Sink{s}, 0, logx.Nop())

	b.SendWithImage(context.Background(), &Message{Title: "no data"}, nil)
	if s.sends.Load() != 1 || s.images.Load() != 0 {
		t.Fatalf("nil attachment should use Send, got sends=%d images=%d", s.sends.Load(), s.images.Load())
	}

	b.SendWithImage(context.Background(), &Message{Title: "with data"}, &Attachment{Data: []byte{1}, Filename: "x.jpg"})
	if s.images.Load() != 1 {
		t.Fatalf("images = %d, want 1", s.images.Load())
	}
}

func TestPlainTextFlattening(t *testing.T) {
	t.Parallel()

	m := &Message{
		Title:  "Image saved",
		Body:   "M31",
		Fields: []Field{{Name: "Filter", Value: "Ha"}},
		Footer: "session 3",
	}
	got := m.PlainText()
	want := "Image saved\nM31\nFilter: Ha\nsession 3"
	if got != want {
		t.Fatalf("PlainText = %q, want %q", got, want)
	}
}
