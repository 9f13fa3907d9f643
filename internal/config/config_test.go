package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("CHANNEL_ACCESS_TOKEN", "token")
	t.Setenv("CHANNEL_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.BrainProvider != "auto" {
		t.Fatalf("BrainProvider = %q, want %q", cfg.BrainProvider, "auto")
	}
	if cfg.DailyQuota != 30 {
		t.Fatalf("DailyQuota = %d, want 30", cfg.DailyQuota)
	}
	if cfg.MaxTurnPairs != 6 {
		t.Fatalf("MaxTurnPairs = %d, want 6", cfg.MaxTurnPairs)
	}
	if cfg.BrainTimeout != 20*time.Second {
		t.Fatalf("BrainTimeout = %v, want 20s", cfg.BrainTimeout)
	}
	if cfg.FallbackMessage == "" {
		t.Fatalf("FallbackMessage should have a default")
	}
}

func TestLoadPortOverridesBindAddr(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("CHANNEL_ACCESS_TOKEN", "token")
	t.Setenv("CHANNEL_SECRET", "secret")
	t.Setenv("APP_BIND_ADDR", ":9090")
	t.Setenv("PORT", "5000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":5000" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":5000")
	}
}

func TestLoadRequiresPlatformCredentials(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("CHANNEL_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() should fail without CHANNEL_ACCESS_TOKEN")
	}

	t.Setenv("CHANNEL_ACCESS_TOKEN", "token")
	t.Setenv("CHANNEL_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() should fail without CHANNEL_SECRET")
	}
}

func TestLoadRequiresKeyForExplicitProvider(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("CHANNEL_ACCESS_TOKEN", "token")
	t.Setenv("CHANNEL_SECRET", "secret")
	t.Setenv("BRAIN_PROVIDER", "gemini")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() should fail for gemini without GEMINI_API_KEY")
	}

	t.Setenv("GEMINI_API_KEY", "key")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BrainProvider != "gemini" {
		t.Fatalf("BrainProvider = %q, want %q", cfg.BrainProvider, "gemini")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("CHANNEL_ACCESS_TOKEN", "token")
	t.Setenv("CHANNEL_SECRET", "secret")

	t.Setenv("DAILY_QUOTA", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject DAILY_QUOTA=0")
	}
	t.Setenv("DAILY_QUOTA", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject non-numeric DAILY_QUOTA")
	}
	t.Setenv("DAILY_QUOTA", "")

	t.Setenv("BRAIN_TIMEOUT", "100ms")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject sub-second BRAIN_TIMEOUT")
	}
	t.Setenv("BRAIN_TIMEOUT", "")

	t.Setenv("BRAIN_PROVIDER", "bard")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject unknown BRAIN_PROVIDER")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"PORT",
		"CHANNEL_ACCESS_TOKEN",
		"CHANNEL_SECRET",
		"LINE_API_BASE_URL",
		"BRAIN_PROVIDER",
		"BRAIN_TIMEOUT",
		"GEMINI_API_KEY",
		"GEMINI_MODEL",
		"GEMINI_BASE_URL",
		"GEMINI_SAFETY_THRESHOLD",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
		"DAILY_QUOTA",
		"MAX_TURN_PAIRS",
		"SYSTEM_DIRECTIVE",
		"PERSONA_ACK",
		"WELCOME_MESSAGE",
		"QUOTA_MESSAGE",
		"FALLBACK_MESSAGE",
		"DISPATCH_WORKERS",
		"DISPATCH_QUEUE_SIZE",
		"WEBHOOK_RATE_LIMIT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
