package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order_notifier/internal/logbus"
	"order_notifier/internal/metrics"
	"order_notifier/internal/order"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSlack Channel = "slack"
)

// Formatter renders an order summary into the message body for one channel.
type Formatter interface {
	Channel() Channel
	Format(summary order.Summary) (string, error)
}

// Dispatcher makes exactly one outbound call per Dispatch and returns the
// order id of the summary it was given.
type Dispatcher interface {
	Channel() Channel
	Dispatch(ctx context.Context, message string, summary order.Summary) (string, error)
}

type PipelineOptions struct {
	Formatter  Formatter
	Dispatcher Dispatcher
	Bus        *logbus.Bus
	Metrics    *metrics.Registry
}

// Pipeline turns one raw webhook body into one notification on one channel.
type Pipeline struct {
	formatter  Formatter
	dispatcher Dispatcher
	bus        *logbus.Bus
	metrics    *metrics.Registry
}

func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.Formatter == nil || opts.Dispatcher == nil {
		return nil, errors.New("pipeline needs a formatter and a dispatcher")
	}
	if opts.Formatter.Channel() != opts.Dispatcher.Channel() {
		return nil, fmt.Errorf("formatter channel %q does not match dispatcher channel %q",
			opts.Formatter.Channel(), opts.Dispatcher.Channel())
	}
	return &Pipeline{
		formatter:  opts.Formatter,
		dispatcher: opts.Dispatcher,
		bus:        opts.Bus,
		metrics:    opts.Metrics,
	}, nil
}

func (p *Pipeline) Channel() Channel { return p.dispatcher.Channel() }

func (p *Pipeline) Notify(ctx context.Context, raw []byte) (string, error) {
	ch := string(p.Channel())
	p.metrics.ObserveReceived(ch)
	p.bus.Log("info", "processing order notification", map[string]any{"channel": ch, "bytes": len(raw)})

	summary, err := order.Parse(raw)
	if err != nil {
		p.metrics.ObserveRejected(ch, rejectReason(err))
		p.bus.Log("warn", "order payload rejected", map[string]any{"channel": ch, "error": err.Error()})
		return "", err
	}

	if summary.AmountDefaulted {
		p.metrics.ObserveDefaultedAmount(ch)
		p.bus.Log("warn", "order amount missing or not numeric, using 0", map[string]any{
			"channel": ch,
			"orderId": summary.ID,
		})
	} else {
		p.bus.Log("debug", "extracted order amount", map[string]any{
			"channel":  ch,
			"orderId":  summary.ID,
			"amount":   summary.TotalAmount.StringFixed(2),
			"currency": summary.Currency,
		})
	}

	message, err := p.formatter.Format(summary)
	if err != nil {
		p.metrics.ObserveRejected(ch, rejectReason(err))
		p.bus.Log("warn", "order notification could not be formatted", map[string]any{
			"channel": ch,
			"orderId": summary.ID,
			"error":   err.Error(),
		})
		return "", err
	}

	start := time.Now()
	orderID, err := p.dispatcher.Dispatch(ctx, message, summary)
	p.metrics.ObserveDispatch(ch, time.Since(start), err)
	if err != nil {
		p.bus.Log("error", "order notification failed", map[string]any{
			"channel": ch,
			"orderId": summary.ID,
			"error":   err.Error(),
		})
		return "", err
	}

	p.bus.Log("info", "order notification sent", map[string]any{
		"channel": ch,
		"orderId": orderID,
		"lines":   len(summary.Lines),
	})
	return orderID, nil
}

func rejectReason(err error) string {
	var tsErr *TimestampError
	switch {
	case errors.Is(err, order.ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, order.ErrMissingOrder):
		return "missing_order"
	case errors.As(err, &tsErr):
		return "bad_timestamp"
	default:
		return "other"
	}
}
