package relay

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akariosaki/hibari/internal/brain"
	"github.com/akariosaki/hibari/internal/line"
	"github.com/akariosaki/hibari/internal/observability"
	"github.com/akariosaki/hibari/internal/session"
)

// Dispatcher hands a reply off for delivery. Exactly one reply is dispatched
// per handled event.
type Dispatcher interface {
	Send(userID, replyToken, text string)
}

// Config carries the per-turn policy knobs.
type Config struct {
	DailyQuota   int
	MaxTurnPairs int
	BrainTimeout time.Duration

	SystemDirective string
	PersonaAck      string
	WelcomeMessage  string
	QuotaMessage    string
	FallbackMessage string
}

// Service implements the per-event handling policy: welcome on a fresh
// session, quota gate, AI turn with a fixed fallback on failure.
type Service struct {
	cfg        Config
	store      *session.Store
	adapter    brain.Adapter
	dispatcher Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func New(
	cfg Config,
	store *session.Store,
	adapter brain.Adapter,
	dispatcher Dispatcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:        cfg,
		store:      store,
		adapter:    adapter,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock overrides the wall clock used to resolve the calendar date.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// HandleEvents processes each decoded webhook event in order. A failing
// event never prevents the remaining events from being handled.
func (s *Service) HandleEvents(ctx context.Context, events []line.Event) {
	for _, ev := range events {
		s.handleEvent(ctx, ev)
	}
}

func (s *Service) handleEvent(ctx context.Context, ev line.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.WebhookEvents.WithLabelValues("panic").Inc()
			s.logger.Error("panic while handling event", zap.Any("panic", r))
		}
	}()

	if !ev.IsTextMessage() || ev.Source.UserID == "" {
		s.metrics.WebhookEvents.WithLabelValues("skipped").Inc()
		return
	}

	turnID := uuid.NewString()
	userID := ev.Source.UserID
	today := session.DayOf(s.now())
	log := s.logger.With(zap.String("turn_id", turnID), zap.String("user_id", userID))

	sess := s.store.Acquire(userID)
	defer sess.Release()
	s.metrics.ActiveSessions.Set(float64(s.store.Len()))

	if sess.ResetIfNewDay(today) {
		// First contact of the day: the triggering message is consumed by
		// the welcome reply and is not forwarded to the AI.
		s.metrics.WebhookEvents.WithLabelValues("welcome").Inc()
		log.Info("fresh session, sending welcome")
		s.dispatcher.Send(userID, ev.ReplyToken, s.cfg.WelcomeMessage)
		return
	}

	if !sess.QuotaRemaining(s.cfg.DailyQuota) {
		s.metrics.WebhookEvents.WithLabelValues("quota_exceeded").Inc()
		s.metrics.QuotaRejections.Inc()
		log.Info("daily quota exhausted", zap.Int("limit", s.cfg.DailyQuota))
		s.dispatcher.Send(userID, ev.ReplyToken, s.cfg.QuotaMessage)
		return
	}

	primed := brain.BuildContext(s.cfg.SystemDirective, s.cfg.PersonaAck, sess.History(), s.cfg.MaxTurnPairs)

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.BrainTimeout)
	defer cancel()

	start := s.now()
	reply, err := s.adapter.Generate(genCtx, primed, ev.Message.Text)
	s.metrics.ObserveBrainLatency(time.Since(start))

	if err != nil {
		var svcErr *brain.ServiceError
		if errors.As(err, &svcErr) {
			s.metrics.BrainErrors.WithLabelValues(svcErr.Provider, svcErr.Code).Inc()
		} else {
			s.metrics.BrainErrors.WithLabelValues(s.adapter.Name(), "unknown").Inc()
		}
		s.metrics.WebhookEvents.WithLabelValues("brain_error").Inc()
		log.Warn("AI call failed, sending fallback", zap.Error(err))
		// A failed exchange does not count against quota or enter history.
		s.dispatcher.Send(userID, ev.ReplyToken, s.cfg.FallbackMessage)
		return
	}

	sess.RecordTurn(ev.Message.Text, reply, today)
	s.metrics.WebhookEvents.WithLabelValues("answered").Inc()
	log.Info("turn answered",
		zap.Int("request_count", sess.RequestCount()),
		zap.Duration("brain_latency", time.Since(start)),
	)
	s.dispatcher.Send(userID, ev.ReplyToken, reply)
}
