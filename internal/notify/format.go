package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"order_notifier/internal/order"
)

const (
	DefaultStoreName = "BulkMagic"

	tableHeaderFormat = "%-30s %-10s %-10s\n"
	tableRowFormat    = "%-30s %-10d %-10s\n"

	slackTimestampLayout = "2006-01-02T15:04:05"
	slackPlacedAtLayout  = "Jan 02, 2006 at 15:04"
	pickupLayout         = "15:04"
	pickupDelay          = 10 * time.Minute

	// The email pickup time is fixed and does not follow the order time.
	emailPickupTime = "20:40"
)

type tableRow struct {
	name  string
	qty   int
	price decimal.Decimal
}

// writeItemsTable renders the fixed-width item table: a header, a dashed
// separator and one row per line item, zero quantities included.
func writeItemsTable(b *strings.Builder, rows []tableRow) {
	fmt.Fprintf(b, tableHeaderFormat, "Item", "Quantity", "Price")
	fmt.Fprintf(b, tableHeaderFormat, "----", "--------", "-----")
	for _, r := range rows {
		fmt.Fprintf(b, tableRowFormat, r.name, r.qty, formatPrice(r.price))
	}
}

func formatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func storeOrDefault(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultStoreName
	}
	return name
}

func NewFormatter(ch Channel, storeName string) (Formatter, error) {
	switch ch {
	case ChannelEmail:
		return EmailFormatter{StoreName: storeName}, nil
	case ChannelSlack:
		return SlackFormatter{StoreName: storeName}, nil
	default:
		return nil, fmt.Errorf("unknown notification channel %q", ch)
	}
}

// EmailFormatter builds the plain-text email body. Each row shows the
// product's own price.
type EmailFormatter struct {
	StoreName string
}

func (EmailFormatter) Channel() Channel { return ChannelEmail }

func (f EmailFormatter) Format(s order.Summary) (string, error) {
	rows := make([]tableRow, 0, len(s.Lines))
	for _, l := range s.Lines {
		rows = append(rows, tableRow{name: l.ProductName, qty: l.Quantity, price: l.UnitPrice})
	}

	var table strings.Builder
	table.WriteString("Items Ordered\n")
	writeItemsTable(&table, rows)

	store := storeOrDefault(f.StoreName)
	return fmt.Sprintf(
		"You've received a new order on %s.\n\n"+
			"%s\n\n"+
			"Order Details:\n"+
			"✓ Order ID: %s\n"+
			"✓ Placed At: %s\n"+
			"✓ Buyer: %s\n\n"+
			"Please prepare this order for pickup by %s.\n\n"+
			"Thank you,\n"+
			"%s Team",
		store,
		table.String(),
		s.ID,
		emailTimestamp(s.CreatedAt),
		s.BuyerFirstName,
		emailPickupTime,
		store,
	), nil
}

// emailTimestamp only strips the "T" separator and a "+00:00" suffix; other
// offsets pass through untouched.
func emailTimestamp(created string) string {
	out := strings.ReplaceAll(created, "T", " ")
	return strings.ReplaceAll(out, "+00:00", "")
}

// SlackFormatter builds the mrkdwn message. Line items carry no price of
// their own in the webhook, so every row shows the order total.
type SlackFormatter struct {
	StoreName string
}

func (SlackFormatter) Channel() Channel { return ChannelSlack }

func (f SlackFormatter) Format(s order.Summary) (string, error) {
	placed, err := parseSlackTimestamp(s.CreatedAt)
	if err != nil {
		return "", err
	}

	rows := make([]tableRow, 0, len(s.Lines))
	for _, l := range s.Lines {
		rows = append(rows, tableRow{name: l.ProductName, qty: l.Quantity, price: s.TotalAmount})
	}
	var table strings.Builder
	writeItemsTable(&table, rows)

	store := storeOrDefault(f.StoreName)
	return fmt.Sprintf(
		"You've received a new order on %s.\n\n"+
			"*Items Ordered*\n"+
			"```\n"+
			"%s"+
			"```\n\n"+
			"*Order Details:*\n"+
			":heavy_check_mark:    Order ID: `%s`\n"+
			":heavy_check_mark:    Placed At: %s\n"+
			":heavy_check_mark:    Buyer: %s\n\n"+
			"Please prepare this order for pickup by *%s*.\n\n"+
			"Thank you,\n"+
			"%s Team",
		store,
		table.String(),
		s.ID,
		placed.Format(slackPlacedAtLayout),
		s.BuyerFirstName,
		placed.Add(pickupDelay).Format(pickupLayout),
		store,
	), nil
}

// parseSlackTimestamp reads the first 19 characters as a wall-clock time
// with no zone. Offsets and fractional seconds are ignored.
func parseSlackTimestamp(created string) (time.Time, error) {
	n := len(slackTimestampLayout)
	if len(created) < n {
		return time.Time{}, &TimestampError{
			Value: created,
			Err:   errors.New("shorter than YYYY-MM-DDTHH:MM:SS"),
		}
	}
	t, err := time.ParseInLocation(slackTimestampLayout, created[:n], time.UTC)
	if err != nil {
		return time.Time{}, &TimestampError{Value: created, Err: err}
	}
	return t, nil
}

// TestMessage is the diagnostic text sent by the Slack ping.
func TestMessage(storeName string, at time.Time) string {
	return fmt.Sprintf(
		"🚀 *%s Notification Service Test*\n\n"+
			"This is a test message to verify Slack integration is working properly.\n"+
			"Timestamp: %s",
		storeOrDefault(storeName),
		at.Format("2006-01-02 15:04:05"),
	)
}
