package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var keys = []string{
	"GITHUB_APP_ID", "GITHUB_PRIVATE_KEY_PATH", "GITHUB_PRIVATE_KEY", "GITHUB_WEBHOOK_SECRET",
	"GITHUB_TOKEN", "GITHUB_API_URL",
	"REVIEW_SENTRY_ADDR", "REVIEW_SENTRY_LOG_LEVEL", "REVIEW_SENTRY_LOG_FORMAT",
	"REVIEW_SENTRY_MODEL", "REVIEW_SENTRY_APP_NAME", "REVIEW_SENTRY_LOW_CONFIDENCE",
	"REVIEW_SENTRY_THROTTLE_WINDOW", "REVIEW_SENTRY_MIN_GROUND_TRUTHS", "REVIEW_SENTRY_MODELS_FILE",
	"REVIEW_TIMEOUT", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
}

// clearEnv unsets every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unsetting %s: %v", k, err)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.LogFormat != "text" || cfg.LogLevel != "info" {
		t.Errorf("log settings = %q/%q", cfg.LogFormat, cfg.LogLevel)
	}
	if cfg.ReviewTimeout != 5*time.Minute {
		t.Errorf("ReviewTimeout = %v", cfg.ReviewTimeout)
	}

	rc := cfg.Review()
	if rc.Model != "claude-sonnet-4-5-20250929" || rc.AppName != "review-sentry" {
		t.Errorf("Review() = %+v", rc)
	}
	if rc.LowConfidence != 0.5 || rc.ThrottleWindow != 24*time.Hour || rc.MinGroundTruths != 3 {
		t.Errorf("Review() = %+v", rc)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("REVIEW_SENTRY_MODEL", "gemini-2.5-pro")

	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"REVIEW_SENTRY_MODEL=claude-opus-4",
		"REVIEW_SENTRY_LOW_CONFIDENCE=0.7",
		"REVIEW_SENTRY_THROTTLE_WINDOW=1h",
		"GITHUB_APP_ID=42",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Model != "gemini-2.5-pro" {
		t.Errorf("Model = %q, process environment should win over the file", cfg.Model)
	}
	if cfg.LowConfidence != 0.7 {
		t.Errorf("LowConfidence = %v", cfg.LowConfidence)
	}
	if cfg.ThrottleWindow != time.Hour {
		t.Errorf("ThrottleWindow = %v", cfg.ThrottleWindow)
	}
	if cfg.App.AppID != 42 {
		t.Errorf("App.AppID = %d", cfg.App.AppID)
	}
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "confidence above one", key: "REVIEW_SENTRY_LOW_CONFIDENCE", value: "1.5"},
		{name: "unknown log format", key: "REVIEW_SENTRY_LOG_FORMAT", value: "xml"},
		{name: "zero ground truths", key: "REVIEW_SENTRY_MIN_GROUND_TRUTHS", value: "0"},
		{name: "bad duration", key: "REVIEW_TIMEOUT", value: "soon"},
		{name: "bad api url", key: "GITHUB_API_URL", value: "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Errorf("Load() with %s=%q expected error", tt.key, tt.value)
			}
		})
	}
}

func TestConfig_ValidateApp(t *testing.T) {
	tests := []struct {
		name    string
		app     GitHubApp
		wantErr bool
	}{
		{
			name: "inline key",
			app:  GitHubApp{AppID: 1, PrivateKey: "pem", WebhookSecret: "s"},
		},
		{
			name: "key file",
			app:  GitHubApp{AppID: 1, PrivateKeyPath: "/tmp/key.pem", WebhookSecret: "s"},
		},
		{
			name:    "no key",
			app:     GitHubApp{AppID: 1, WebhookSecret: "s"},
			wantErr: true,
		},
		{
			name:    "no secret",
			app:     GitHubApp{AppID: 1, PrivateKey: "pem"},
			wantErr: true,
		},
		{
			name:    "no app id",
			app:     GitHubApp{PrivateKey: "pem", WebhookSecret: "s"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{App: tt.app}
			err := cfg.ValidateApp()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateApp() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_PrivateKeyPEM(t *testing.T) {
	cfg := &Config{App: GitHubApp{PrivateKey: `-----BEGIN KEY-----\nabc\n-----END KEY-----`}}
	got, err := cfg.PrivateKeyPEM()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "-----BEGIN KEY-----\nabc\n-----END KEY-----" {
		t.Errorf("PrivateKeyPEM() = %q", got)
	}

	path := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(path, []byte("from file"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg = &Config{App: GitHubApp{PrivateKeyPath: path}}
	got, err = cfg.PrivateKeyPEM()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "from file" {
		t.Errorf("PrivateKeyPEM() = %q", got)
	}
}
