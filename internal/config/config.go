package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"order_notifier/internal/notify"
)

// Secrets can be kept out of config.yaml and supplied through the
// environment (or a .env file next to the binary).
const (
	EnvSMTPPassword    = "ORDER_NOTIFIER_SMTP_PASSWORD"
	EnvSlackWebhookURL = "ORDER_NOTIFIER_SLACK_WEBHOOK_URL"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Email  EmailConfig  `yaml:"email"`
	Slack  SlackConfig  `yaml:"slack"`
}

type ServerConfig struct {
	Addr   string       `yaml:"addr"`
	Cors   CorsConfig   `yaml:"cors"`
	Limits LimitsConfig `yaml:"limits"`
}

type CorsConfig struct {
	AllowOrigins     []string `yaml:"allowOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
}

type LimitsConfig struct {
	// WebhookQPS caps inbound webhook requests per second across all
	// clients. 0 disables the limit.
	WebhookQPS   float64 `yaml:"webhookQPS"`
	WebhookBurst int     `yaml:"webhookBurst"`
	// MaxBodyBytes bounds the size of an inbound payload.
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
}

type StoreConfig struct {
	Name string `yaml:"name"`
}

type EmailConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	SSL       bool   `yaml:"ssl"`
	From      string `yaml:"from"`
	FromName  string `yaml:"fromName"`
	To        string `yaml:"to"`
	TimeoutMs int    `yaml:"timeoutMs"`
}

func (c EmailConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c EmailConfig) SMTP() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		SSL:      c.SSL,
	}
}

func (c EmailConfig) Message() notify.EmailConfig {
	return notify.EmailConfig{From: c.From, FromName: c.FromName, To: c.To}
}

type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhookURL"`
	Channel    string `yaml:"channel"`
	Username   string `yaml:"username"`
	IconEmoji  string `yaml:"iconEmoji"`
	TimeoutMs  int    `yaml:"timeoutMs"`
}

func (c SlackConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return notify.DefaultSlackTimeout
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c Config) SlackDispatcherConfig() notify.SlackConfig {
	return notify.SlackConfig{
		WebhookURL: c.Slack.WebhookURL,
		Channel:    c.Slack.Channel,
		Username:   c.Slack.Username,
		IconEmoji:  c.Slack.IconEmoji,
		StoreName:  c.Store.Name,
		Timeout:    c.Slack.Timeout(),
	}
}

// Load reads the YAML file at path, overlays secrets from the environment,
// fills defaults and validates the result.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvSMTPPassword)); v != "" {
		c.Email.Password = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSlackWebhookURL)); v != "" {
		c.Slack.WebhookURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Limits.WebhookQPS < 0 {
		c.Server.Limits.WebhookQPS = 0
	}
	if c.Server.Limits.WebhookQPS > 0 && c.Server.Limits.WebhookBurst <= 0 {
		c.Server.Limits.WebhookBurst = 10
	}
	if c.Server.Limits.MaxBodyBytes <= 0 {
		c.Server.Limits.MaxBodyBytes = 1 << 20
	}
	if strings.TrimSpace(c.Store.Name) == "" {
		c.Store.Name = notify.DefaultStoreName
	}
	if c.Email.From == "" {
		c.Email.From = c.Email.Username
	}
	if c.Email.FromName == "" {
		c.Email.FromName = c.Store.Name
	}
	if c.Slack.Channel == "" {
		c.Slack.Channel = notify.DefaultSlackChannel
	}
	if c.Slack.Username == "" {
		c.Slack.Username = notify.DefaultSlackUsername
	}
	if c.Slack.IconEmoji == "" {
		c.Slack.IconEmoji = notify.DefaultSlackIconEmoji
	}
}

func (c Config) validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Email.Enabled {
		if err := c.Email.Message().Validate(); err != nil {
			return fmt.Errorf("email: %w", err)
		}
		if strings.TrimSpace(c.Email.Host) == "" && strings.TrimSpace(c.Email.Username) == "" {
			return errors.New("email: host or username is required")
		}
	}
	if c.Slack.Enabled {
		if strings.TrimSpace(c.Slack.WebhookURL) == "" {
			return fmt.Errorf("slack.webhookURL is required (or set %s)", EnvSlackWebhookURL)
		}
		u, err := url.Parse(c.Slack.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("slack.webhookURL must be an http(s) URL")
		}
	}
	return nil
}
