package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"order_notifier/internal/config"
	"order_notifier/internal/logbus"
)

const requestIDHeader = "X-Request-ID"

type ctxKey struct{}

// RequestID returns the id assigned to the request carrying ctx, or "".
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the
// underlying connection.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func requestID(bus *logbus.Bus, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		// The websocket handshake needs the raw writer for Hijack.
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
		bus.Log("debug", "http request", map[string]any{
			"requestId": id,
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    rec.status,
			"ms":        time.Since(start).Milliseconds(),
		})
	})
}

// webhookLimiter caps inbound order webhooks across all senders. A nil
// limiter admits everything.
type webhookLimiter struct {
	lim *rate.Limiter
}

func newWebhookLimiter(cfg config.LimitsConfig) *webhookLimiter {
	if cfg.WebhookQPS <= 0 {
		return nil
	}
	burst := cfg.WebhookBurst
	if burst <= 0 {
		burst = 1
	}
	return &webhookLimiter{lim: rate.NewLimiter(rate.Limit(cfg.WebhookQPS), burst)}
}

func (l *webhookLimiter) allow() bool {
	if l == nil {
		return true
	}
	return l.lim.Allow()
}

func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow() {
			s.bus.Log("warn", "webhook rate limited", map[string]any{
				"path":      r.URL.Path,
				"requestId": RequestID(r.Context()),
			})
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
