package config

import (
	"testing"
	"time"

	"github.com/requisify/requisify/pkg/observability"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REQUISIFY_POSTGRES_URL", "postgres://localhost/requisify_test")
	t.Setenv("REQUISIFY_TOKEN_SECRET", testSecret)
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != "9090" {
		t.Errorf("Expected default health port 9090, got %s", cfg.Server.HealthPort)
	}
	if cfg.Auth.TokenTTL != 60*time.Minute {
		t.Errorf("Expected default token TTL 60m, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.SessionTTL != 60*time.Minute {
		t.Errorf("Expected default session TTL 60m, got %s", cfg.Auth.SessionTTL)
	}
	if cfg.Redis.URL != "localhost:6379" {
		t.Errorf("Expected default redis URL, got %s", cfg.Redis.URL)
	}
	if cfg.Database.AuditURL != "" {
		t.Errorf("Expected empty audit URL by default, got %s", cfg.Database.AuditURL)
	}
	if cfg.Observability.LogLevel != observability.InfoLevel {
		t.Errorf("Expected default log level info, got %s", cfg.Observability.LogLevel)
	}
	if !cfg.Observability.MetricsEnabled {
		t.Error("Expected metrics enabled by default")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REQUISIFY_PORT", "8888")
	t.Setenv("REQUISIFY_AUDIT_POSTGRES_URL", "postgres://localhost/requisify_audit")
	t.Setenv("REQUISIFY_TOKEN_TTL", "30m")
	t.Setenv("REQUISIFY_SESSION_TTL", "2h")
	t.Setenv("REQUISIFY_LOG_LEVEL", "debug")
	t.Setenv("REQUISIFY_METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8888" {
		t.Errorf("Expected port 8888, got %s", cfg.Server.Port)
	}
	if cfg.Database.AuditURL != "postgres://localhost/requisify_audit" {
		t.Errorf("Unexpected audit URL %s", cfg.Database.AuditURL)
	}
	if cfg.Auth.TokenTTL != 30*time.Minute {
		t.Errorf("Expected token TTL 30m, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Observability.LogLevel != observability.DebugLevel {
		t.Errorf("Expected debug log level, got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsEnabled {
		t.Error("Expected metrics disabled")
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T)
	}{
		{
			name: "missing postgres URL",
			setup: func(t *testing.T) {
				t.Setenv("REQUISIFY_TOKEN_SECRET", testSecret)
			},
		},
		{
			name: "missing token secret",
			setup: func(t *testing.T) {
				t.Setenv("REQUISIFY_POSTGRES_URL", "postgres://localhost/test")
			},
		},
		{
			name: "short token secret",
			setup: func(t *testing.T) {
				t.Setenv("REQUISIFY_POSTGRES_URL", "postgres://localhost/test")
				t.Setenv("REQUISIFY_TOKEN_SECRET", "too-short")
			},
		},
		{
			name: "same server and health port",
			setup: func(t *testing.T) {
				setRequiredEnv(t)
				t.Setenv("REQUISIFY_PORT", "9090")
			},
		},
		{
			name: "session TTL shorter than token TTL",
			setup: func(t *testing.T) {
				setRequiredEnv(t)
				t.Setenv("REQUISIFY_TOKEN_TTL", "1h")
				t.Setenv("REQUISIFY_SESSION_TTL", "10m")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			if _, err := LoadConfig(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  observability.LogLevel
	}{
		{"debug", observability.DebugLevel},
		{"info", observability.InfoLevel},
		{"warn", observability.WarnLevel},
		{"warning", observability.WarnLevel},
		{"error", observability.ErrorLevel},
		{"ERROR", observability.ErrorLevel},
		{"bogus", observability.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
