// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/nathantilsley/review-sentry/internal/review/domain"
)

// GitHubApp holds the credentials of the GitHub App installation flow.
type GitHubApp struct {
	// AppID is the numeric App id from GITHUB_APP_ID.
	AppID int64 `env:"GITHUB_APP_ID" validate:"required,gt=0"`
	// PrivateKeyPath is the PEM file from GITHUB_PRIVATE_KEY_PATH.
	PrivateKeyPath string `env:"GITHUB_PRIVATE_KEY_PATH" validate:"required_without=PrivateKey"`
	// PrivateKey is an inline PEM from GITHUB_PRIVATE_KEY.
	PrivateKey string `env:"GITHUB_PRIVATE_KEY" validate:"required_without=PrivateKeyPath"`
	// WebhookSecret verifies X-Hub-Signature-256, from GITHUB_WEBHOOK_SECRET.
	WebhookSecret string `env:"GITHUB_WEBHOOK_SECRET" validate:"required"`
}

// Config is the full process configuration.
type Config struct {
	App GitHubApp `validate:"-"`

	// Token is a personal or installation token used by one-shot reviews.
	Token string `env:"GITHUB_TOKEN"`
	// APIURL points at a GitHub Enterprise API, e.g. https://ghe.example.com/api/v3/.
	APIURL string `env:"GITHUB_API_URL" validate:"omitempty,url"`

	Addr      string `env:"REVIEW_SENTRY_ADDR" envDefault:":8080" validate:"required"`
	LogLevel  string `env:"REVIEW_SENTRY_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn warning error"`
	LogFormat string `env:"REVIEW_SENTRY_LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`

	Model           string        `env:"REVIEW_SENTRY_MODEL" envDefault:"claude-sonnet-4-5-20250929" validate:"required"`
	AppName         string        `env:"REVIEW_SENTRY_APP_NAME" envDefault:"review-sentry" validate:"required"`
	LowConfidence   float64       `env:"REVIEW_SENTRY_LOW_CONFIDENCE" envDefault:"0.5" validate:"gte=0,lte=1"`
	ThrottleWindow  time.Duration `env:"REVIEW_SENTRY_THROTTLE_WINDOW" envDefault:"24h" validate:"gte=0"`
	MinGroundTruths int           `env:"REVIEW_SENTRY_MIN_GROUND_TRUTHS" envDefault:"3" validate:"gte=1"`
	ModelsFile      string        `env:"REVIEW_SENTRY_MODELS_FILE"`
	ReviewTimeout   time.Duration `env:"REVIEW_TIMEOUT" envDefault:"5m" validate:"gt=0"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads envFile when it exists, then parses and validates the process
// environment. Variables already set take precedence over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ValidateApp checks the settings the webhook server needs.
func (c *Config) ValidateApp() error {
	if err := validate.Struct(&c.App); err != nil {
		return fmt.Errorf("invalid GitHub App configuration: %w", err)
	}
	return nil
}

// PrivateKeyPEM returns the App private key, reading the file when no inline
// key is configured.
func (c *Config) PrivateKeyPEM() ([]byte, error) {
	if c.App.PrivateKey != "" {
		return []byte(strings.ReplaceAll(c.App.PrivateKey, `\n`, "\n")), nil
	}
	data, err := os.ReadFile(c.App.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	return data, nil
}

// Review returns the per-run review settings.
func (c *Config) Review() domain.ReviewConfig {
	return domain.ReviewConfig{
		Model:           c.Model,
		AppName:         c.AppName,
		LowConfidence:   c.LowConfidence,
		ThrottleWindow:  c.ThrottleWindow,
		MinGroundTruths: c.MinGroundTruths,
	}
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	return env.ToMap(os.Environ())
}
