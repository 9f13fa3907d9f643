package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/akariosaki/hibari/internal/brain"
	"github.com/akariosaki/hibari/internal/config"
	"github.com/akariosaki/hibari/internal/dispatch"
	"github.com/akariosaki/hibari/internal/httpapi"
	"github.com/akariosaki/hibari/internal/line"
	"github.com/akariosaki/hibari/internal/observability"
	"github.com/akariosaki/hibari/internal/relay"
	"github.com/akariosaki/hibari/internal/session"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Store
	Relay    *relay.Service
	Brain    brain.Adapter
	Metrics  *observability.Metrics

	// Cleanup drains the reply dispatcher; call it after the HTTP server
	// has stopped accepting webhooks.
	Cleanup func()
}

// Build wires the relay from configuration: brain adapter, platform client,
// dispatcher, session store, relay policy and HTTP surface.
func Build(cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	adapter, err := brain.NewAdapter(brain.Config{
		Provider:              cfg.BrainProvider,
		GeminiAPIKey:          cfg.GeminiAPIKey,
		GeminiModel:           cfg.GeminiModel,
		GeminiBaseURL:         cfg.GeminiBaseURL,
		GeminiSafetyThreshold: cfg.GeminiSafetyThreshold,
		OpenAIAPIKey:          cfg.OpenAIAPIKey,
		OpenAIModel:           cfg.OpenAIModel,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("brain adapter init failed: %w", err)
	}
	logger.Info("brain adapter ready", zap.String("provider", adapter.Name()))

	lineClient := line.NewClient(cfg.LineAPIBaseURL, cfg.ChannelAccessToken, logger)
	dispatcher := dispatch.New(lineClient, cfg.DispatchWorkers, cfg.DispatchQueueSize, logger, metrics)

	store := session.NewStore()

	relaySvc := relay.New(relay.Config{
		DailyQuota:      cfg.DailyQuota,
		MaxTurnPairs:    cfg.MaxTurnPairs,
		BrainTimeout:    cfg.BrainTimeout,
		SystemDirective: cfg.SystemDirective,
		PersonaAck:      cfg.PersonaAck,
		WelcomeMessage:  cfg.WelcomeMessage,
		QuotaMessage:    cfg.QuotaMessage,
		FallbackMessage: cfg.FallbackMessage,
	}, store, adapter, dispatcher, metrics, logger)

	api := httpapi.New(cfg, relaySvc, metrics, logger)

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: store,
		Relay:    relaySvc,
		Brain:    adapter,
		Metrics:  metrics,
		Cleanup:  dispatcher.Close,
	}, nil
}
