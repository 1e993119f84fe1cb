package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg              *prometheus.Registry
	Received         *prometheus.CounterVec
	Rejected         *prometheus.CounterVec
	Sent             *prometheus.CounterVec
	Failed           *prometheus.CounterVec
	DefaultedAmounts *prometheus.CounterVec
	DispatchSec      *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_notifier_webhooks_received_total",
		Help: "Order webhooks received, by channel.",
	}, []string{"channel"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_notifier_webhooks_rejected_total",
		Help: "Order webhooks dropped before dispatch, by channel and reason.",
	}, []string{"channel", "reason"})
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_notifier_notifications_sent_total",
		Help: "Notifications accepted by the transport, by channel.",
	}, []string{"channel"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_notifier_notifications_failed_total",
		Help: "Notifications the transport refused or could not deliver, by channel.",
	}, []string{"channel"})
	defaulted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_notifier_defaulted_amounts_total",
		Help: "Orders whose total amount was missing or unparsable and defaulted to zero.",
	}, []string{"channel"})
	dispatch := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_notifier_dispatch_seconds",
		Help:    "Time spent in the outbound transport call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})

	r.MustRegister(received, rejected, sent, failed, defaulted, dispatch)
	return &Registry{
		reg:              r,
		Received:         received,
		Rejected:         rejected,
		Sent:             sent,
		Failed:           failed,
		DefaultedAmounts: defaulted,
		DispatchSec:      dispatch,
	}
}

func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// The helpers below are no-ops on a nil Registry so callers can run without
// metrics.

func (r *Registry) ObserveReceived(channel string) {
	if r == nil {
		return
	}
	r.Received.WithLabelValues(channel).Inc()
}

func (r *Registry) ObserveRejected(channel, reason string) {
	if r == nil {
		return
	}
	r.Rejected.WithLabelValues(channel, reason).Inc()
}

func (r *Registry) ObserveDefaultedAmount(channel string) {
	if r == nil {
		return
	}
	r.DefaultedAmounts.WithLabelValues(channel).Inc()
}

func (r *Registry) ObserveDispatch(channel string, took time.Duration, err error) {
	if r == nil {
		return
	}
	r.DispatchSec.WithLabelValues(channel).Observe(took.Seconds())
	if err != nil {
		r.Failed.WithLabelValues(channel).Inc()
		return
	}
	r.Sent.WithLabelValues(channel).Inc()
}
