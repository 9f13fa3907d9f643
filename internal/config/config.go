package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the conversation relay service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	ChannelAccessToken string
	ChannelSecret      string
	LineAPIBaseURL     string

	BrainProvider         string
	BrainTimeout          time.Duration
	GeminiAPIKey          string
	GeminiModel           string
	GeminiBaseURL         string
	GeminiSafetyThreshold string
	OpenAIAPIKey          string
	OpenAIModel           string

	DailyQuota   int
	MaxTurnPairs int

	SystemDirective string
	PersonaAck      string
	WelcomeMessage  string
	QuotaMessage    string
	FallbackMessage string

	DispatchWorkers   int
	DispatchQueueSize int
	WebhookRateLimit  int
}

const (
	defaultSystemDirective = "あなたは「ひばり」という名前の親しみやすいアシスタントです。" +
		"丁寧で簡潔な日本語で答えてください。わからないことは正直にわからないと伝えてください。"
	defaultPersonaAck = "はい、わかりました。ひばりとして、親しみやすく丁寧にお答えします。"
	defaultWelcome    = "こんにちは！アシスタントのひばりです。今日も気軽に話しかけてくださいね。"
	defaultQuota      = "申し訳ありません、本日の利用回数の上限に達しました。" +
		"明日になるとまたご利用いただけます。お急ぎの場合はサポート窓口までご連絡ください。"
	defaultFallback = "申し訳ありません、現在メッセージを処理できません。しばらくしてからもう一度お試しください。"
)

// Load reads environment variables and applies safe defaults. The platform
// credentials are required; a brain API key is required for the backend the
// configured provider mode will actually use.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:              envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:      envOrDefault("APP_METRICS_NAMESPACE", "hibari"),
		ChannelAccessToken:    trimmedEnv("CHANNEL_ACCESS_TOKEN"),
		ChannelSecret:         trimmedEnv("CHANNEL_SECRET"),
		LineAPIBaseURL:        envOrDefault("LINE_API_BASE_URL", "https://api.line.me"),
		BrainProvider:         strings.ToLower(envOrDefault("BRAIN_PROVIDER", "auto")),
		GeminiAPIKey:          trimmedEnv("GEMINI_API_KEY"),
		GeminiModel:           envOrDefault("GEMINI_MODEL", "gemini-pro"),
		GeminiBaseURL:         envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiSafetyThreshold: envOrDefault("GEMINI_SAFETY_THRESHOLD", "BLOCK_NONE"),
		OpenAIAPIKey:          trimmedEnv("OPENAI_API_KEY"),
		OpenAIModel:           envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		SystemDirective:       envOrDefault("SYSTEM_DIRECTIVE", defaultSystemDirective),
		PersonaAck:            envOrDefault("PERSONA_ACK", defaultPersonaAck),
		WelcomeMessage:        envOrDefault("WELCOME_MESSAGE", defaultWelcome),
		QuotaMessage:          envOrDefault("QUOTA_MESSAGE", defaultQuota),
		FallbackMessage:       envOrDefault("FALLBACK_MESSAGE", defaultFallback),
		ShutdownTimeout:       15 * time.Second,
		BrainTimeout:          20 * time.Second,
		DailyQuota:            30,
		MaxTurnPairs:          6,
		DispatchWorkers:       4,
		DispatchQueueSize:     64,
		WebhookRateLimit:      120,
	}

	// The original deployment configured the listener with PORT.
	if port := trimmedEnv("PORT"); port != "" {
		cfg.BindAddr = ":" + port
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.BrainTimeout, err = durationFromEnv("BRAIN_TIMEOUT", cfg.BrainTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DailyQuota, err = intFromEnv("DAILY_QUOTA", cfg.DailyQuota)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxTurnPairs, err = intFromEnv("MAX_TURN_PAIRS", cfg.MaxTurnPairs)
	if err != nil {
		return Config{}, err
	}
	cfg.DispatchWorkers, err = intFromEnv("DISPATCH_WORKERS", cfg.DispatchWorkers)
	if err != nil {
		return Config{}, err
	}
	cfg.DispatchQueueSize, err = intFromEnv("DISPATCH_QUEUE_SIZE", cfg.DispatchQueueSize)
	if err != nil {
		return Config{}, err
	}
	cfg.WebhookRateLimit, err = intFromEnv("WEBHOOK_RATE_LIMIT", cfg.WebhookRateLimit)
	if err != nil {
		return Config{}, err
	}

	if cfg.ChannelAccessToken == "" {
		return Config{}, fmt.Errorf("CHANNEL_ACCESS_TOKEN is not set")
	}
	if cfg.ChannelSecret == "" {
		return Config{}, fmt.Errorf("CHANNEL_SECRET is not set")
	}
	switch cfg.BrainProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return Config{}, fmt.Errorf("BRAIN_PROVIDER=gemini but GEMINI_API_KEY is not set")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("BRAIN_PROVIDER=openai but OPENAI_API_KEY is not set")
		}
	case "auto", "mock":
	default:
		return Config{}, fmt.Errorf("invalid BRAIN_PROVIDER: %q (expected auto|gemini|openai|mock)", cfg.BrainProvider)
	}

	if cfg.BrainTimeout < time.Second {
		return Config{}, fmt.Errorf("BRAIN_TIMEOUT must be at least 1s")
	}
	if cfg.DailyQuota <= 0 {
		return Config{}, fmt.Errorf("DAILY_QUOTA must be positive")
	}
	if cfg.MaxTurnPairs <= 0 {
		return Config{}, fmt.Errorf("MAX_TURN_PAIRS must be positive")
	}
	if cfg.DispatchWorkers <= 0 {
		return Config{}, fmt.Errorf("DISPATCH_WORKERS must be positive")
	}
	if cfg.DispatchQueueSize <= 0 {
		return Config{}, fmt.Errorf("DISPATCH_QUEUE_SIZE must be positive")
	}
	if cfg.WebhookRateLimit <= 0 {
		return Config{}, fmt.Errorf("WEBHOOK_RATE_LIMIT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
