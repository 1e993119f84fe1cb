package notify

import "fmt"

// TimestampError is returned when an order timestamp cannot be read as
// YYYY-MM-DDTHH:MM:SS. The notification is not sent.
type TimestampError struct {
	Value string
	Err   error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("parse order timestamp %q: %v", e.Value, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }

// DeliveryError wraps a transport failure. No retry is attempted.
type DeliveryError struct {
	Channel Channel
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s notification: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
