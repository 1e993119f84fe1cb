package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"order_notifier/internal/jsonval"
)

var (
	ErrMalformedPayload = errors.New("malformed order payload")
	ErrMissingOrder     = errors.New("payload has no order object")
)

// Summary is the normalized order every formatter works from. Absent
// fields are already defaulted.
type Summary struct {
	ID             string          `json:"id"`
	CreatedAt      string          `json:"createdAt"`
	BuyerFirstName string          `json:"buyerFirstName"`
	BuyerEmail     string          `json:"buyerEmail"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Currency       string          `json:"currency"`
	Lines          []Line          `json:"lines"`

	// AmountDefaulted is set when total.gross.amount was missing, null or
	// not a number and TotalAmount fell back to zero.
	AmountDefaulted bool `json:"amountDefaulted,omitempty"`
}

type Line struct {
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Parse builds a Summary from a raw "order created" webhook body. Only
// invalid JSON and a missing order object are errors.
func Parse(raw []byte) (Summary, error) {
	root, err := jsonval.Parse(raw)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	node := root.Get("order")
	if node.Kind() != jsonval.Object {
		return Summary{}, ErrMissingOrder
	}
	return fromNode(node), nil
}

func fromNode(node jsonval.Value) Summary {
	s := Summary{
		ID:             node.Get("id").Text(),
		CreatedAt:      node.Get("created").Text(),
		BuyerFirstName: node.Get("user.firstName").Text(),
		BuyerEmail:     node.Get("user.email").Text(),
		TotalAmount:    node.Get("total.gross.amount").Decimal(),
		Currency:       node.Get("total.gross.currency").Text(),
	}
	s.AmountDefaulted = !isNumeric(node.Get("total.gross.amount"))

	items := node.Get("lines").Items()
	s.Lines = make([]Line, 0, len(items))
	for _, item := range items {
		s.Lines = append(s.Lines, Line{
			ProductName: item.Get("variant.product.name").Text(),
			Quantity:    item.Get("quantity").Int(),
			UnitPrice:   item.Get("variant.product.price").Decimal(),
		})
	}
	return s
}

func isNumeric(v jsonval.Value) bool {
	switch v.Kind() {
	case jsonval.Number:
		return true
	case jsonval.String:
		_, err := decimal.NewFromString(strings.TrimSpace(v.Text()))
		return err == nil
	default:
		return false
	}
}
