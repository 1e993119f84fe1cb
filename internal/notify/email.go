package notify

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"gopkg.in/gomail.v2"

	"order_notifier/internal/logbus"
	"order_notifier/internal/order"
)

const EmailSubject = "New Order Notification"

// MailSender is satisfied by *gomail.Dialer.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	SSL      bool
}

type EmailConfig struct {
	From     string
	FromName string
	To       string
}

func (c EmailConfig) Validate() error {
	if strings.TrimSpace(c.To) == "" {
		return errors.New("email recipient is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(c.To)); err != nil {
		return errors.New("invalid email recipient")
	}
	if strings.TrimSpace(c.From) == "" {
		return errors.New("email sender is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(c.From)); err != nil {
		return errors.New("invalid email sender")
	}
	return nil
}

// NewSMTPSender returns a dialer for cfg. An empty host is inferred from the
// username's mail domain.
func NewSMTPSender(cfg SMTPConfig) (*gomail.Dialer, error) {
	host, port, ssl := strings.TrimSpace(cfg.Host), cfg.Port, cfg.SSL
	if host == "" {
		var err error
		host, port, ssl, err = SMTPServerFor(cfg.Username)
		if err != nil {
			return nil, err
		}
	}
	if port <= 0 {
		port = 587
	}
	d := gomail.NewDialer(host, port, strings.TrimSpace(cfg.Username), strings.TrimSpace(cfg.Password))
	d.SSL = ssl
	return d, nil
}

// SMTPServerFor maps well-known mailbox providers to their submission
// server. Unknown domains fall back to smtp.<domain> over implicit TLS.
func SMTPServerFor(address string) (host string, port int, useSSL bool, err error) {
	parts := strings.Split(strings.TrimSpace(address), "@")
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return "", 0, false, errors.New("invalid email format")
	}
	domain := strings.ToLower(strings.TrimSpace(parts[1]))

	switch {
	case domain == "gmail.com" || strings.HasSuffix(domain, ".gmail.com") || domain == "googlemail.com":
		return "smtp.gmail.com", 587, false, nil
	case domain == "outlook.com" || strings.HasSuffix(domain, ".outlook.com") ||
		domain == "hotmail.com" || strings.HasSuffix(domain, ".hotmail.com") ||
		domain == "live.com" || strings.HasSuffix(domain, ".live.com"):
		return "smtp.office365.com", 587, false, nil
	case domain == "yahoo.com" || strings.HasSuffix(domain, ".yahoo.com"):
		return "smtp.mail.yahoo.com", 465, true, nil
	case domain == "icloud.com" || domain == "me.com":
		return "smtp.mail.me.com", 587, false, nil
	case domain == "qq.com" || strings.HasSuffix(domain, ".qq.com") || domain == "foxmail.com":
		return "smtp.qq.com", 465, true, nil
	case domain == "163.com" || domain == "126.com" || domain == "yeah.net":
		return "smtp.163.com", 465, true, nil
	default:
		return "smtp." + domain, 465, true, nil
	}
}

type EmailDispatcher struct {
	cfg    EmailConfig
	sender MailSender
	bus    *logbus.Bus
}

func NewEmailDispatcher(cfg EmailConfig, sender MailSender, bus *logbus.Bus) *EmailDispatcher {
	return &EmailDispatcher{cfg: cfg, sender: sender, bus: bus}
}

func (d *EmailDispatcher) Channel() Channel { return ChannelEmail }

func (d *EmailDispatcher) Dispatch(ctx context.Context, message string, summary order.Summary) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &DeliveryError{Channel: ChannelEmail, Err: err}
	}
	if d.sender == nil {
		return "", &DeliveryError{Channel: ChannelEmail, Err: errors.New("no mail transport configured")}
	}

	msg := gomail.NewMessage()
	from := strings.TrimSpace(d.cfg.From)
	if name := strings.TrimSpace(d.cfg.FromName); name != "" {
		msg.SetHeader("From", msg.FormatAddress(from, name))
	} else {
		msg.SetHeader("From", from)
	}
	msg.SetHeader("To", strings.TrimSpace(d.cfg.To))
	msg.SetHeader("Subject", EmailSubject)
	msg.SetBody("text/plain", message)

	if err := d.sender.DialAndSend(msg); err != nil {
		return "", &DeliveryError{Channel: ChannelEmail, Err: err}
	}
	d.bus.Log("info", "order email sent", map[string]any{
		"orderId": summary.ID,
		"to":      strings.TrimSpace(d.cfg.To),
	})
	return summary.ID, nil
}
