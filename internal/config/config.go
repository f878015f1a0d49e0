package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Analysis defaults. Overridable via config file or environment.
const (
	DefaultMinGroupSize         = 5    // groups below this floor never alert
	DefaultLargeResultThreshold = 20   // above this, rendering switches to compact
	DefaultFetchHours           = 24   // clustering lookback window
	DefaultQueryHours           = 24   // query lookback when no time reference found
	MaxLookbackHours            = 1440 // 60 days, hard ceiling on extracted windows
)

// LLM call defaults, matching the analysis prompts.
const (
	DefaultModel       = "gpt-4.1-2025-04-14"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 20000
)

// Config is the top-level zenwatch configuration.
type Config struct {
	Zendesk   ZendeskConfig             `json:"zendesk"`
	Providers map[string]ProviderConfig `json:"providers"`
	Notify    NotifyConfig              `json:"notify"`
	Analysis  AnalysisConfig            `json:"analysis"`
	API       APIConfig                 `json:"api"`
	DataDir   string                    `json:"data_dir"`
}

// ZendeskConfig holds ticket source credentials.
type ZendeskConfig struct {
	URL   string `json:"url"`   // https://yourcompany.zendesk.com
	Email string `json:"email"` // agent email for token auth
	Token string `json:"token"`
}

// ProviderConfig holds LLM provider settings.
type ProviderConfig struct {
	Type    string `json:"type,omitempty"` // "openai" (default) or "anthropic"
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model"`
}

// NotifyConfig holds notification sink settings.
type NotifyConfig struct {
	SlackWebhookURL string          `json:"slack_webhook_url,omitempty"`
	Telegram        *TelegramConfig `json:"telegram,omitempty"`
}

// TelegramConfig holds the optional Telegram sink settings.
type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

// AnalysisConfig holds thresholds and scheduling for ticket analysis.
type AnalysisConfig struct {
	MinGroupSize         int    `json:"min_group_size,omitempty"`
	LargeResultThreshold int    `json:"large_result_threshold,omitempty"`
	FetchHours           int    `json:"fetch_hours,omitempty"`
	Schedule             string `json:"schedule,omitempty"` // cron expression or @every form
}

// APIConfig holds status server settings.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Key  string `json:"api_key"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from environment variables. The classic
// unprefixed names (ZENDESK_URL, OPENAI_API_KEY, SLACK_WEBHOOK_URL,
// TICKET_CNT_THRESHOLD) are honored alongside ZENWATCH_-prefixed ones.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Zendesk: ZendeskConfig{
			URL:   getenv("ZENWATCH_ZENDESK_URL", os.Getenv("ZENDESK_URL")),
			Email: getenv("ZENWATCH_ZENDESK_EMAIL", os.Getenv("ZENDESK_EMAIL")),
			Token: getenv("ZENWATCH_ZENDESK_TOKEN", os.Getenv("ZENDESK_TOKEN")),
		},
		Providers: make(map[string]ProviderConfig),
		Notify: NotifyConfig{
			SlackWebhookURL: getenv("ZENWATCH_SLACK_WEBHOOK_URL", os.Getenv("SLACK_WEBHOOK_URL")),
		},
		Analysis: AnalysisConfig{
			MinGroupSize: getenvInt("TICKET_CNT_THRESHOLD", DefaultMinGroupSize),
			Schedule:     getenv("ZENWATCH_SCHEDULE", "@hourly"),
		},
		API: APIConfig{
			Host: getenv("ZENWATCH_API_HOST", "0.0.0.0"),
			Port: getenvInt("ZENWATCH_API_PORT", 8080),
			Key:  os.Getenv("ZENWATCH_API_KEY"),
		},
		DataDir: getenv("ZENWATCH_DATA_DIR", "./data"),
	}

	if apiKey := getenv("ZENWATCH_ANTHROPIC_API_KEY", os.Getenv("ANTHROPIC_API_KEY")); apiKey != "" {
		cfg.Providers["default"] = ProviderConfig{
			Type:   "anthropic",
			APIKey: apiKey,
			Model:  getenv("ZENWATCH_MODEL", "claude-sonnet-4-20250514"),
		}
	} else if apiKey := getenv("ZENWATCH_OPENAI_API_KEY", os.Getenv("OPENAI_API_KEY")); apiKey != "" {
		cfg.Providers["default"] = ProviderConfig{
			Type:    "openai",
			APIKey:  apiKey,
			BaseURL: os.Getenv("ZENWATCH_OPENAI_BASE_URL"),
			Model:   getenv("ZENWATCH_MODEL", DefaultModel),
		}
	}

	if token := os.Getenv("ZENWATCH_TELEGRAM_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("ZENWATCH_TELEGRAM_CHAT_ID"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: ZENWATCH_TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Notify.Telegram = &TelegramConfig{Token: token, ChatID: chatID}
	}

	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	if c.Analysis.MinGroupSize == 0 {
		c.Analysis.MinGroupSize = DefaultMinGroupSize
	}
	if c.Analysis.LargeResultThreshold == 0 {
		c.Analysis.LargeResultThreshold = DefaultLargeResultThreshold
	}
	if c.Analysis.FetchHours == 0 {
		c.Analysis.FetchHours = DefaultFetchHours
	}
	if c.Analysis.Schedule == "" {
		c.Analysis.Schedule = "@hourly"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
}

// Validate checks for required fields, collecting every problem.
func (c *Config) Validate() error {
	var errs []string

	if c.Zendesk.URL == "" {
		errs = append(errs, "zendesk.url is required")
	} else if !strings.HasPrefix(c.Zendesk.URL, "http://") && !strings.HasPrefix(c.Zendesk.URL, "https://") {
		errs = append(errs, fmt.Sprintf("zendesk.url %q must start with https://", c.Zendesk.URL))
	}
	if c.Zendesk.Email == "" {
		errs = append(errs, "zendesk.email is required")
	}
	if c.Zendesk.Token == "" {
		errs = append(errs, "zendesk.token is required")
	}

	if len(c.Providers) == 0 {
		errs = append(errs, "at least one provider is required")
	}
	for name, p := range c.Providers {
		if p.APIKey == "" {
			errs = append(errs, fmt.Sprintf("providers.%s.api_key is required", name))
		}
		if p.Model == "" {
			errs = append(errs, fmt.Sprintf("providers.%s.model is required", name))
		}
	}

	if c.Notify.SlackWebhookURL == "" && c.Notify.Telegram == nil {
		errs = append(errs, "at least one notification sink is required (notify.slack_webhook_url or notify.telegram)")
	}
	if c.Notify.Telegram != nil && c.Notify.Telegram.Token == "" {
		errs = append(errs, "notify.telegram.token is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
