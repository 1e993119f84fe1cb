package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/quotedprintable"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"

	"order_notifier/internal/order"
	"order_notifier/internal/order/ordertest"
)

type fakeMailSender struct {
	calls int
	sent  []*gomail.Message
	err   error
}

func (f *fakeMailSender) DialAndSend(m ...*gomail.Message) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func messageBody(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	_, encoded, ok := strings.Cut(buf.String(), "\r\n\r\n")
	if !ok {
		t.Fatalf("no header/body separator in message")
	}
	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(encoded)))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return strings.ReplaceAll(string(decoded), "\r\n", "\n")
}

var testEmailConfig = EmailConfig{
	From:     "notifier@example.com",
	FromName: "BulkMagic",
	To:       "orders@example.com",
}

func TestEmailDispatcher_SendsSingleMessage(t *testing.T) {
	sender := &fakeMailSender{}
	d := NewEmailDispatcher(testEmailConfig, sender, nil)

	summary, err := order.Parse([]byte(ordertest.MultipleProducts()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	body, err := EmailFormatter{}.Format(summary)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	id, err := d.Dispatch(context.Background(), body, summary)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if id != ordertest.OrderID {
		t.Fatalf("order id: got=%s want=%s", id, ordertest.OrderID)
	}
	if sender.calls != 1 || len(sender.sent) != 1 {
		t.Fatalf("transport calls: got=%d sent=%d want=1", sender.calls, len(sender.sent))
	}

	m := sender.sent[0]
	if got := m.GetHeader("Subject"); len(got) != 1 || got[0] != EmailSubject {
		t.Fatalf("subject: got=%v", got)
	}
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "orders@example.com" {
		t.Fatalf("to: got=%v", got)
	}
	if got := m.GetHeader("From"); len(got) != 1 || !strings.Contains(got[0], "notifier@example.com") {
		t.Fatalf("from: got=%v", got)
	}
	if got := messageBody(t, m); got != body {
		t.Fatalf("body mismatch:\ngot:\n%s\nwant:\n%s", got, body)
	}
}

func TestEmailDispatcher_TransportFailure(t *testing.T) {
	cause := errors.New("smtp: connection refused")
	sender := &fakeMailSender{err: cause}
	d := NewEmailDispatcher(testEmailConfig, sender, nil)

	id, err := d.Dispatch(context.Background(), "body", order.Summary{ID: "abc"})
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("got=%v want DeliveryError", err)
	}
	if de.Channel != ChannelEmail || !errors.Is(err, cause) {
		t.Fatalf("delivery error: %+v", de)
	}
	if id != "" {
		t.Fatalf("order id on failure: got=%q", id)
	}
	if sender.calls != 1 {
		t.Fatalf("transport calls: got=%d want=1", sender.calls)
	}
}

func TestEmailDispatcher_CancelledContext(t *testing.T) {
	sender := &fakeMailSender{}
	d := NewEmailDispatcher(testEmailConfig, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Dispatch(ctx, "body", order.Summary{ID: "abc"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got=%v want context.Canceled", err)
	}
	if sender.calls != 0 {
		t.Fatalf("transport should not be called, got=%d", sender.calls)
	}
}

func TestEmailConfig_Validate(t *testing.T) {
	if err := testEmailConfig.Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}
	bad := []EmailConfig{
		{From: "a@example.com"},
		{From: "a@example.com", To: "not-an-address"},
		{To: "b@example.com"},
		{From: "nope", To: "b@example.com"},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Fatalf("expected error for %+v", c)
		}
	}
}

func TestSMTPServerFor(t *testing.T) {
	cases := []struct {
		addr string
		host string
		port int
		ssl  bool
	}{
		{"shop@gmail.com", "smtp.gmail.com", 587, false},
		{"shop@outlook.com", "smtp.office365.com", 587, false},
		{"shop@qq.com", "smtp.qq.com", 465, true},
		{"shop@bulkmagic.io", "smtp.bulkmagic.io", 465, true},
	}
	for _, tc := range cases {
		host, port, ssl, err := SMTPServerFor(tc.addr)
		if err != nil {
			t.Fatalf("%s: %v", tc.addr, err)
		}
		if host != tc.host || port != tc.port || ssl != tc.ssl {
			t.Fatalf("%s: got=%s:%d ssl=%v", tc.addr, host, port, ssl)
		}
	}
	if _, _, _, err := SMTPServerFor("no-at-sign"); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}

func TestNewSMTPSender(t *testing.T) {
	d, err := NewSMTPSender(SMTPConfig{Host: "mail.internal", Port: 2525, Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("NewSMTPSender: %v", err)
	}
	if d.Host != "mail.internal" || d.Port != 2525 || d.SSL {
		t.Fatalf("explicit host: got=%s:%d ssl=%v", d.Host, d.Port, d.SSL)
	}

	d, err = NewSMTPSender(SMTPConfig{Username: "shop@gmail.com", Password: "p"})
	if err != nil {
		t.Fatalf("NewSMTPSender: %v", err)
	}
	if d.Host != "smtp.gmail.com" || d.Port != 587 {
		t.Fatalf("inferred host: got=%s:%d", d.Host, d.Port)
	}

	if _, err := NewSMTPSender(SMTPConfig{}); err == nil {
		t.Fatalf("expected error without host or username")
	}
}
