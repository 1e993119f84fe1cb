package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv(EnvSMTPPassword, "")
	t.Setenv(EnvSlackWebhookURL, "")

	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr: got=%s", cfg.Server.Addr)
	}
	if cfg.Store.Name != "BulkMagic" {
		t.Fatalf("store name: got=%s", cfg.Store.Name)
	}
	if cfg.Slack.Channel != "general" || cfg.Slack.Username != "BulkMagic Bot" || cfg.Slack.IconEmoji != ":shopping_cart:" {
		t.Fatalf("slack defaults: %+v", cfg.Slack)
	}
	if cfg.Slack.Timeout() != 10*time.Second || cfg.Email.Timeout() != 20*time.Second {
		t.Fatalf("timeouts: slack=%s email=%s", cfg.Slack.Timeout(), cfg.Email.Timeout())
	}
	if cfg.Server.Limits.WebhookQPS != 0 || cfg.Server.Limits.MaxBodyBytes != 1<<20 {
		t.Fatalf("limits: %+v", cfg.Server.Limits)
	}
}

func TestParse_FullFile(t *testing.T) {
	t.Setenv(EnvSMTPPassword, "")
	t.Setenv(EnvSlackWebhookURL, "")

	raw := `
server:
  addr: ":9090"
  limits:
    webhookQPS: 5
store:
  name: Corner Shop
email:
  enabled: true
  username: shop@gmail.com
  password: app-password
  to: owner@example.com
slack:
  enabled: true
  webhookURL: https://hooks.slack.com/services/T/B/X
  channel: "#orders"
  timeoutMs: 2500
`
	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Server.Limits.WebhookBurst != 10 {
		t.Fatalf("burst default: got=%d", cfg.Server.Limits.WebhookBurst)
	}
	if cfg.Email.From != "shop@gmail.com" || cfg.Email.FromName != "Corner Shop" {
		t.Fatalf("email sender defaults: from=%s name=%s", cfg.Email.From, cfg.Email.FromName)
	}
	sc := cfg.SlackDispatcherConfig()
	if sc.Channel != "#orders" || sc.StoreName != "Corner Shop" || sc.Timeout != 2500*time.Millisecond {
		t.Fatalf("slack dispatcher config: %+v", sc)
	}
	if m := cfg.Email.Message(); m.To != "owner@example.com" {
		t.Fatalf("email message config: %+v", m)
	}
	if s := cfg.Email.SMTP(); s.Username != "shop@gmail.com" || s.Password != "app-password" {
		t.Fatalf("smtp config: %+v", s)
	}
}

func TestParse_EnvOverridesSecrets(t *testing.T) {
	t.Setenv(EnvSMTPPassword, "from-env")
	t.Setenv(EnvSlackWebhookURL, "https://hooks.example.com/abc")

	cfg, err := Parse([]byte("slack:\n  enabled: true\nemail:\n  password: from-file\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Email.Password != "from-env" {
		t.Fatalf("password: got=%s", cfg.Email.Password)
	}
	if cfg.Slack.WebhookURL != "https://hooks.example.com/abc" {
		t.Fatalf("webhook: got=%s", cfg.Slack.WebhookURL)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	t.Setenv(EnvSMTPPassword, "")
	t.Setenv(EnvSlackWebhookURL, "")

	cases := map[string]string{
		"slack without url":   "slack:\n  enabled: true\n",
		"slack bad url":       "slack:\n  enabled: true\n  webhookURL: not-a-url\n",
		"email no recipient":  "email:\n  enabled: true\n  username: a@example.com\n",
		"email bad recipient": "email:\n  enabled: true\n  username: a@example.com\n  to: nope\n",
		"email no server":     "email:\n  enabled: true\n  from: a@example.com\n  to: b@example.com\n",
		"bad yaml":            "server: [",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_ReadsFileAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("slack:\n  enabled: true\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte(EnvSlackWebhookURL+"=https://hooks.example.com/dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	// t.Setenv registers cleanup; unsetting lets godotenv fill the variable.
	t.Setenv(EnvSlackWebhookURL, "")
	if err := os.Unsetenv(EnvSlackWebhookURL); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}
	if err := LoadDotEnv(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.HasSuffix(cfg.Slack.WebhookURL, "/dotenv") {
		t.Fatalf("webhook from .env: got=%s", cfg.Slack.WebhookURL)
	}

	if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
