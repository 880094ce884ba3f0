package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"freres-bot/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing order lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderFinalized publishes an OrderFinalized event
func (ep *EventPublisher) PublishOrderFinalized(ctx context.Context, event *models.OrderFinalizedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderDeliverySelected publishes an OrderDeliverySelected event
func (ep *EventPublisher) PublishOrderDeliverySelected(ctx context.Context, event *models.OrderDeliverySelectedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

func orderKey(orderID string) string {
	return fmt.Sprintf("order-%s", orderID)
}

// EventHandler routes consumed events to registered callbacks
type EventHandler struct {
	onOrderFinalized        func(context.Context, *models.OrderFinalizedEvent) error
	onOrderDeliverySelected func(context.Context, *models.OrderDeliverySelectedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderFinalized registers a handler for OrderFinalized events
func (eh *EventHandler) OnOrderFinalized(handler func(context.Context, *models.OrderFinalizedEvent) error) {
	eh.onOrderFinalized = handler
}

// OnOrderDeliverySelected registers a handler for OrderDeliverySelected events
func (eh *EventHandler) OnOrderDeliverySelected(handler func(context.Context, *models.OrderDeliverySelectedEvent) error) {
	eh.onOrderDeliverySelected = handler
}

// HandleMessage routes messages to the appropriate handler
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOrderFinalized:
		if eh.onOrderFinalized != nil {
			var event models.OrderFinalizedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderFinalized event: %w", err)
			}
			return eh.onOrderFinalized(ctx, &event)
		}

	case models.EventTypeOrderDeliverySelected:
		if eh.onOrderDeliverySelected != nil {
			var event models.OrderDeliverySelectedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderDeliverySelected event: %w", err)
			}
			return eh.onOrderDeliverySelected(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
