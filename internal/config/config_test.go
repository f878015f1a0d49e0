package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validJSON() string {
	return `{
		"zendesk": {"url": "https://acme.zendesk.com", "email": "agent@acme.com", "token": "tok"},
		"providers": {"default": {"type": "openai", "api_key": "sk-test", "model": "gpt-4.1-2025-04-14"}},
		"notify": {"slack_webhook_url": "https://hooks.slack.com/services/T/B/X"},
		"analysis": {"min_group_size": 3, "schedule": "@every 30m"}
	}`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validJSON()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Zendesk.URL != "https://acme.zendesk.com" {
		t.Errorf("url = %q", cfg.Zendesk.URL)
	}
	if cfg.Analysis.MinGroupSize != 3 {
		t.Errorf("min group size = %d", cfg.Analysis.MinGroupSize)
	}
	// Untouched fields pick up defaults.
	if cfg.Analysis.LargeResultThreshold != DefaultLargeResultThreshold {
		t.Errorf("large threshold = %d", cfg.Analysis.LargeResultThreshold)
	}
	if cfg.Analysis.FetchHours != DefaultFetchHours {
		t.Errorf("fetch hours = %d", cfg.Analysis.FetchHours)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("data dir = %q", cfg.DataDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.json"); err == nil {
		t.Error("expected error")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	if _, err := Load(writeConfig(t, "{not json")); err == nil {
		t.Error("expected error")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"zendesk.url", "zendesk.email", "zendesk.token", "provider", "notification sink"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidateURLScheme(t *testing.T) {
	var c Config
	c.Zendesk = ZendeskConfig{URL: "acme.zendesk.com", Email: "agent@acme.com", Token: "tok"}
	c.Providers = map[string]ProviderConfig{"default": {APIKey: "k", Model: "m"}}
	c.Notify.SlackWebhookURL = "https://hooks.slack.com/x"
	c.applyDefaults()

	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "must start with https://") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ZENDESK_URL", "https://acme.zendesk.com")
	t.Setenv("ZENDESK_EMAIL", "agent@acme.com")
	t.Setenv("ZENDESK_TOKEN", "tok")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/X")
	t.Setenv("TICKET_CNT_THRESHOLD", "7")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Analysis.MinGroupSize != 7 {
		t.Errorf("min group size = %d, want 7 from TICKET_CNT_THRESHOLD", cfg.Analysis.MinGroupSize)
	}
	p := cfg.Providers["default"]
	if p.Type != "openai" || p.APIKey != "sk-test" || p.Model != DefaultModel {
		t.Errorf("provider = %+v", p)
	}
	if cfg.Analysis.Schedule != "@hourly" {
		t.Errorf("schedule = %q", cfg.Analysis.Schedule)
	}
}

func TestLoadFromEnvPrefixedWins(t *testing.T) {
	t.Setenv("ZENDESK_URL", "https://old.zendesk.com")
	t.Setenv("ZENWATCH_ZENDESK_URL", "https://new.zendesk.com")
	t.Setenv("ZENDESK_EMAIL", "agent@acme.com")
	t.Setenv("ZENDESK_TOKEN", "tok")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/X")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Zendesk.URL != "https://new.zendesk.com" {
		t.Errorf("url = %q, want prefixed override", cfg.Zendesk.URL)
	}
}

func TestLoadFromEnvAnthropicPreferred(t *testing.T) {
	t.Setenv("ZENDESK_URL", "https://acme.zendesk.com")
	t.Setenv("ZENDESK_EMAIL", "agent@acme.com")
	t.Setenv("ZENDESK_TOKEN", "tok")
	t.Setenv("ANTHROPIC_API_KEY", "ak-test")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/X")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Providers["default"].Type != "anthropic" {
		t.Errorf("provider type = %q", cfg.Providers["default"].Type)
	}
}
