package models

import "time"

// Event types
const (
	EventTypeOrderFinalized        = "ORDER_FINALIZED"
	EventTypeOrderDeliverySelected = "ORDER_DELIVERY_SELECTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderFinalizedEvent published when a cart is converted into an order
type OrderFinalizedEvent struct {
	BaseEvent
	OrderID string     `json:"order_id"`
	Phone   string     `json:"phone"`
	Name    string     `json:"name"`
	Total   float64    `json:"total"`
	Items   []CartItem `json:"items"`
}

// OrderDeliverySelectedEvent published when the customer answers the
// delivery question
type OrderDeliverySelectedEvent struct {
	BaseEvent
	OrderID        string `json:"order_id"`
	DeliveryMethod string `json:"delivery_method"`
	Address        string `json:"address,omitempty"`
}
