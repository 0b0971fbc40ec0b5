package domain

import "encoding/json"

// Topic is the exchange all order lifecycle events are published to.
const Topic = "order"

// EventType names an order lifecycle event.
type EventType string

const (
	EventOrderCreate              EventType = "order_create"
	EventOrderStatusUpdate        EventType = "order_status_update"
	EventOrderPaymentStatusUpdate EventType = "order_payment_status_update"
)

// Envelope is the wire shape of a published event.
type Envelope struct {
	EventType EventType       `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// NewEnvelope wraps a snapshot in an envelope, marshalling the payload.
func NewEnvelope(eventType EventType, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{EventType: eventType, Data: data}, nil
}
