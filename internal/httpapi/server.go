package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"order_notifier/internal/config"
	"order_notifier/internal/logbus"
	"order_notifier/internal/metrics"
	"order_notifier/internal/notify"
	"order_notifier/internal/order"
	"order_notifier/internal/ws"
)

const slackServiceName = "Slack Notification Service"

// SlackPinger sends a diagnostic message to Slack with no order attached.
type SlackPinger interface {
	SendTest(ctx context.Context) error
}

type Options struct {
	Cfg     config.Config
	Bus     *logbus.Bus
	Metrics *metrics.Registry
	// Email and Slack may be nil when the channel is disabled.
	Email       *notify.Pipeline
	Slack       *notify.Pipeline
	SlackPinger SlackPinger
}

type Server struct {
	cfg     config.Config
	bus     *logbus.Bus
	metrics *metrics.Registry
	email   *notify.Pipeline
	slack   *notify.Pipeline
	pinger  SlackPinger
	ws      *ws.Handler
	limiter *webhookLimiter
	now     func() time.Time
}

func New(opts Options) *Server {
	return &Server{
		cfg:     opts.Cfg,
		bus:     opts.Bus,
		metrics: opts.Metrics,
		email:   opts.Email,
		slack:   opts.Slack,
		pinger:  opts.SlackPinger,
		ws:      ws.NewHandler(opts.Bus, opts.Cfg.Server.Cors.AllowOrigins),
		limiter: newWebhookLimiter(opts.Cfg.Server.Limits),
		now:     time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/ws", s.ws)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.Handle("/webhook/order", s.limit(http.HandlerFunc(s.handleEmailWebhook)))

	api := http.NewServeMux()
	api.Handle("/api/slack/order-notification", s.limit(http.HandlerFunc(s.handleSlackOrder)))
	api.HandleFunc("/api/slack/test", s.handleSlackTest)
	api.HandleFunc("/api/slack/health", s.handleSlackHealth)
	api.HandleFunc("/api/logs", s.handleLogs)

	mux.Handle("/api/", corsMiddleware(s.cfg.Server.Cors, api))
	return requestID(s.bus, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"channels": map[string]any{
			"email": s.email != nil,
			"slack": s.slack != nil,
		},
	})
}

// handleEmailWebhook answers with the bare order id on success.
func (s *Server) handleEmailWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	if s.email == nil {
		writeDisabled(w, notify.ChannelEmail)
		return
	}
	raw, err := s.readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Email.Timeout())
	defer cancel()

	orderID, err := s.email.Notify(ctx, raw)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, orderID)
}

func (s *Server) handleSlackOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	if s.slack == nil {
		writeDisabled(w, notify.ChannelSlack)
		return
	}
	raw, err := s.readBody(w, r)
	if err != nil {
		writeSlackError(w, http.StatusBadRequest, err)
		return
	}

	orderID, err := s.slack.Notify(r.Context(), raw)
	if err != nil {
		writeSlackError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Slack notification sent successfully",
		"orderId": orderID,
	})
}

func (s *Server) handleSlackTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	if s.pinger == nil {
		writeDisabled(w, notify.ChannelSlack)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	if err := s.pinger.SendTest(ctx); err != nil {
		s.bus.Log("error", "slack test message failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  "error",
			"message": "Failed to send test notification: " + err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Test notification sent successfully",
	})
}

func (s *Server) handleSlackHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   slackServiceName,
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	logs := s.bus.Logs(r.URL.Query().Get("level"))
	if logs == nil {
		logs = []logbus.LogData{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": logs})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := s.cfg.Server.Limits.MaxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("payload exceeds %d bytes", tooLarge.Limit)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return raw, nil
}

// statusFor maps a pipeline error to the webhook's response code.
func statusFor(err error) int {
	var tsErr *notify.TimestampError
	var deliveryErr *notify.DeliveryError
	switch {
	case errors.Is(err, order.ErrMalformedPayload), errors.Is(err, order.ErrMissingOrder), errors.As(err, &tsErr):
		return http.StatusBadRequest
	case errors.As(err, &deliveryErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeDisabled(w http.ResponseWriter, ch notify.Channel) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{
		"error": fmt.Sprintf("%s notifications are disabled", ch),
	})
}

func writeSlackError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"status":  "error",
		"message": "Failed to send Slack notification: " + strings.TrimSpace(err.Error()),
	})
}
