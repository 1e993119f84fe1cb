package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"order_notifier/internal/logbus"
	"order_notifier/internal/order"
)

const (
	DefaultSlackChannel   = "general"
	DefaultSlackUsername  = "BulkMagic Bot"
	DefaultSlackIconEmoji = ":shopping_cart:"
	DefaultSlackTimeout   = 10 * time.Second
)

type SlackConfig struct {
	WebhookURL string
	Channel    string
	Username   string
	IconEmoji  string
	StoreName  string
	Timeout    time.Duration
}

func (c SlackConfig) withDefaults() SlackConfig {
	out := c
	out.WebhookURL = strings.TrimSpace(out.WebhookURL)
	if strings.TrimSpace(out.Channel) == "" {
		out.Channel = DefaultSlackChannel
	}
	if strings.TrimSpace(out.Username) == "" {
		out.Username = DefaultSlackUsername
	}
	if strings.TrimSpace(out.IconEmoji) == "" {
		out.IconEmoji = DefaultSlackIconEmoji
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultSlackTimeout
	}
	return out
}

type slackPayload struct {
	Channel   string `json:"channel"`
	Username  string `json:"username"`
	IconEmoji string `json:"icon_emoji"`
	Text      string `json:"text"`
}

type SlackDispatcher struct {
	cfg    SlackConfig
	client *resty.Client
	bus    *logbus.Bus
	now    func() time.Time
}

func NewSlackDispatcher(cfg SlackConfig, bus *logbus.Bus) *SlackDispatcher {
	cfg = cfg.withDefaults()
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		bus.Log("debug", "slack webhook request", map[string]any{
			"method":  req.Method,
			"channel": cfg.Channel,
		})
		return nil
	})

	return &SlackDispatcher{
		cfg:    cfg,
		client: client,
		bus:    bus,
		now:    time.Now,
	}
}

func (d *SlackDispatcher) Channel() Channel { return ChannelSlack }

func (d *SlackDispatcher) Dispatch(ctx context.Context, message string, summary order.Summary) (string, error) {
	if err := d.post(ctx, message); err != nil {
		return "", err
	}
	return summary.ID, nil
}

// SendTest posts a diagnostic message with no order context.
func (d *SlackDispatcher) SendTest(ctx context.Context) error {
	return d.post(ctx, TestMessage(d.cfg.StoreName, d.now()))
}

func (d *SlackDispatcher) post(ctx context.Context, text string) error {
	if d.cfg.WebhookURL == "" {
		return &DeliveryError{Channel: ChannelSlack, Err: errors.New("no slack webhook URL configured")}
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(slackPayload{
			Channel:   d.cfg.Channel,
			Username:  d.cfg.Username,
			IconEmoji: d.cfg.IconEmoji,
			Text:      text,
		}).
		Post(d.cfg.WebhookURL)
	if err != nil {
		d.bus.Log("error", "slack webhook call failed", map[string]any{"error": err.Error()})
		return &DeliveryError{Channel: ChannelSlack, Err: err}
	}

	body := strings.TrimSpace(resp.String())
	d.bus.Log("info", "slack webhook response", map[string]any{
		"status": resp.StatusCode(),
		"body":   body,
	})
	if !resp.IsSuccess() {
		return &DeliveryError{
			Channel: ChannelSlack,
			Err:     fmt.Errorf("slack webhook: status %d: %s", resp.StatusCode(), body),
		}
	}
	return nil
}
