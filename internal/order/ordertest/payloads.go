// Package ordertest holds webhook payload fixtures shared by package tests.
package ordertest

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	OrderID   = "T3JkZXI6NjE4NmMyYTAtMjM3MS00ZGRkLWI0YmEtMzQ0OWE3MjZmYjI4"
	CreatedAt = "2025-08-11T20:30:00.000000+00:00"
)

type Line struct {
	Quantity int
	Name     string
	// Price is written verbatim into the product node; "" leaves it out.
	Price string
}

// Payload renders an OrderCreated body. amount is written verbatim into
// total.gross.amount; pass "" to omit the key and "null" for a JSON null.
func Payload(amount string, lines ...Line) string {
	var b strings.Builder
	b.WriteString(`{"__typename":"OrderCreated","order":{`)
	fmt.Fprintf(&b, `"id":%q,"created":%q,"paymentStatus":"NOT_CHARGED",`, OrderID, CreatedAt)
	b.WriteString(`"total":{"gross":{`)
	if amount != "" {
		fmt.Fprintf(&b, `"amount":%s,`, amount)
	}
	b.WriteString(`"currency":"USD"}},"lines":[`)
	for i, l := range lines {
		if i > 0 {
			b.WriteString(",")
		}
		name, _ := json.Marshal(l.Name)
		fmt.Fprintf(&b, `{"quantity":%d,"variant":{"id":"UHJvZHVjdFZhcmlhbnQ6Mzg%d","product":{"id":"UHJvZHVjdDoxNT%d=","name":%s`, l.Quantity, i, i, name)
		if l.Price != "" {
			fmt.Fprintf(&b, `,"price":%s`, l.Price)
		}
		b.WriteString(`,"metadata":[{"key":"vendor_id","value":"2"}]}}}`)
	}
	b.WriteString(`],"user":{"id":"VXNlcjoxMg==","email":"test@example.com","firstName":"TestUser"}}}`)
	return b.String()
}

func MultipleProducts() string {
	return Payload("25.97",
		Line{Quantity: 2, Name: "Apple Juice"},
		Line{Quantity: 1, Name: "Orange Juice"},
		Line{Quantity: 3, Name: "Grape Juice"},
	)
}

func SingleProduct() string {
	return Payload("1.99", Line{Quantity: 1, Name: "Apple Juice", Price: "1.99"})
}

func LargeQuantities() string {
	return Payload("199.50",
		Line{Quantity: 50, Name: "Apple Juice"},
		Line{Quantity: 25, Name: "Orange Juice"},
	)
}

func WithZeroQuantity() string {
	return Payload("5.97",
		Line{Quantity: 1, Name: "Apple Juice"},
		Line{Quantity: 0, Name: "Orange Juice"},
	)
}

func MissingAmount() string {
	return Payload("", Line{Quantity: 1, Name: "Apple Juice"})
}

const (
	InvalidJSON  = "{ invalid json }"
	MissingOrder = `{"order_type":"OrderCreated"}`
)
