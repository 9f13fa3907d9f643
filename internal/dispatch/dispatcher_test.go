package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordingSender struct {
	mu      sync.Mutex
	calls   []Job
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *recordingSender) Reply(ctx context.Context, replyToken string, texts ...string) error {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	text := ""
	if len(texts) > 0 {
		text = texts[0]
	}
	s.calls = append(s.calls, Job{ReplyToken: replyToken, Text: text})
	return s.err
}

func (s *recordingSender) snapshot() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.calls))
	copy(out, s.calls)
	return out
}

func TestDispatcherDeliversJob(t *testing.T) {
	sender := &recordingSender{}
	d := New(sender, 2, 8, zap.NewNop(), nil)

	d.Send("U1", "token-1", "hello")
	d.Close()

	calls := sender.snapshot()
	if len(calls) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(calls))
	}
	if calls[0].ReplyToken != "token-1" || calls[0].Text != "hello" {
		t.Fatalf("unexpected delivery: %+v", calls[0])
	}
}

func TestDispatcherCapturesByValue(t *testing.T) {
	sender := &recordingSender{}
	d := New(sender, 1, 8, zap.NewNop(), nil)

	text := "first"
	d.Send("U1", "token-1", text)
	text = "mutated"
	_ = text
	d.Close()

	calls := sender.snapshot()
	if len(calls) != 1 || calls[0].Text != "first" {
		t.Fatalf("job should capture text by value, got %+v", calls)
	}
}

func TestDispatcherFallsBackInlineWhenQueueFull(t *testing.T) {
	sender := &recordingSender{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	d := New(sender, 1, 1, zap.NewNop(), nil)

	// Occupy the single worker, then fill the one-slot queue.
	d.Send("U1", "token-1", "busy")
	<-sender.started
	d.Send("U1", "token-2", "queued")

	done := make(chan struct{})
	go func() {
		// Queue is full: this must deliver inline rather than drop.
		d.Send("U1", "token-3", "inline")
		close(done)
	}()
	<-sender.started

	close(sender.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("inline delivery did not complete")
	}
	d.Close()

	if got := len(sender.snapshot()); got != 3 {
		t.Fatalf("deliveries = %d, want 3 (exactly one attempt per send)", got)
	}
}

func TestDispatcherNeverRetriesFailedDelivery(t *testing.T) {
	sender := &recordingSender{err: errors.New("expired token")}
	d := New(sender, 1, 8, zap.NewNop(), nil)

	d.Send("U1", "stale-token", "hello")
	d.Close()

	if got := len(sender.snapshot()); got != 1 {
		t.Fatalf("deliveries = %d, want exactly 1 attempt", got)
	}
}

func TestDispatcherSendAfterCloseDeliversInline(t *testing.T) {
	sender := &recordingSender{}
	d := New(sender, 1, 8, zap.NewNop(), nil)
	d.Close()

	d.Send("U1", "token-1", "after close")
	if got := len(sender.snapshot()); got != 1 {
		t.Fatalf("deliveries = %d, want 1", got)
	}
}
