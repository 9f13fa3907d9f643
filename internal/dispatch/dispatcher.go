package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akariosaki/hibari/internal/observability"
)

// Sender delivers one reply through the messaging platform.
type Sender interface {
	Reply(ctx context.Context, replyToken string, texts ...string) error
}

// Job captures everything a delivery needs by value. Reply tokens are
// single-use and expire within seconds, so the job must not reference
// request-scoped state.
type Job struct {
	UserID     string
	ReplyToken string
	Text       string
}

// Dispatcher delivers replies off the webhook request path through a bounded
// queue. When the queue is full the job is delivered inline instead, so
// exactly one delivery attempt happens per inbound event either way. A failed
// delivery is logged and counted, never retried.
type Dispatcher struct {
	sender      Sender
	jobs        chan Job
	sendTimeout time.Duration
	logger      *zap.Logger
	metrics     *observability.Metrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(sender Sender, workers, queueSize int, logger *zap.Logger, metrics *observability.Metrics) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		sender:      sender,
		jobs:        make(chan Job, queueSize),
		sendTimeout: 10 * time.Second,
		logger:      logger,
		metrics:     metrics,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.deliver(job)
	}
}

// Send hands the reply to a background worker. Falls back to inline delivery
// when the queue is full or the dispatcher is already closed.
func (d *Dispatcher) Send(userID, replyToken, text string) {
	job := Job{UserID: userID, ReplyToken: replyToken, Text: text}

	d.mu.Lock()
	if !d.closed {
		select {
		case d.jobs <- job:
			d.mu.Unlock()
			return
		default:
			d.logger.Warn("dispatch queue full, delivering inline", zap.String("user_id", userID))
		}
	}
	d.mu.Unlock()

	d.deliver(job)
}

func (d *Dispatcher) deliver(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sender.Reply(ctx, job.ReplyToken, job.Text); err != nil {
		if d.metrics != nil {
			d.metrics.Replies.WithLabelValues("error").Inc()
		}
		d.logger.Error("reply delivery failed",
			zap.String("user_id", job.UserID),
			zap.Error(err),
		)
		return
	}
	if d.metrics != nil {
		d.metrics.Replies.WithLabelValues("ok").Inc()
	}
}

// Close drains outstanding jobs and stops the workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}
