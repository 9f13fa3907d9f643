package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/akariosaki/hibari/internal/config"
	"github.com/akariosaki/hibari/internal/line"
	"github.com/akariosaki/hibari/internal/observability"
)

// maxBodyBytes caps the webhook body read. Platform payloads are small; the
// cap protects against hostile posts.
const maxBodyBytes = 1 << 20

// Relay handles decoded webhook events.
type Relay interface {
	HandleEvents(ctx context.Context, events []line.Event)
}

type Server struct {
	cfg     config.Config
	relay   Relay
	metrics *observability.Metrics
	logger  *zap.Logger
}

func New(cfg config.Config, relay Relay, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		relay:   relay,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.cfg.WebhookRateLimit, time.Minute))
		r.Post("/callback", s.handleCallback)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ready",
		"brain_provider": s.cfg.BrainProvider,
	})
}

// handleCallback is the webhook endpoint. Verification failures abort the
// request; event-level failures are converted to user-visible fallback
// replies inside the relay, so a valid webhook always acknowledges with 200.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues("body_read_error").Inc()
		respondError(w, http.StatusBadRequest, "invalid_body", "could not read request body")
		return
	}

	claimed := r.Header.Get(line.SignatureHeader)
	if claimed == "" || !line.VerifySignature([]byte(s.cfg.ChannelSecret), body, claimed) {
		s.metrics.WebhookEvents.WithLabelValues("signature_invalid").Inc()
		s.logger.Warn("webhook signature rejected", zap.Bool("header_present", claimed != ""))
		respondError(w, http.StatusBadRequest, "signature_invalid", "signature verification failed")
		return
	}

	req, err := line.DecodeWebhook(body)
	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues("decode_error").Inc()
		s.logger.Warn("webhook decode failed", zap.Error(err))
		respondError(w, http.StatusBadRequest, "decode_error", "malformed webhook payload")
		return
	}

	s.relay.HandleEvents(r.Context(), req.Events)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
