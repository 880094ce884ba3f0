package worker

import (
	"context"
	"fmt"
	"log"

	"freres-bot/internal/broker"
	"freres-bot/internal/messenger"
	"freres-bot/internal/models"
)

// ProcessedEventStore deduplicates consumed events across restarts.
type ProcessedEventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// NotificationWorker consumes order events and pings the shop operator so a
// new order never sits unnoticed.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        ProcessedEventStore
	sender       messenger.Sender
	operatorID   string
}

// NewNotificationWorker creates an order notification worker. operatorID is
// the messaging-provider user id of the shop operator.
func NewNotificationWorker(
	consumer *broker.Consumer,
	store ProcessedEventStore,
	sender messenger.Sender,
	operatorID string,
) *NotificationWorker {
	w := &NotificationWorker{
		consumer:   consumer,
		store:      store,
		sender:     sender,
		operatorID: operatorID,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderFinalized(w.handleOrderFinalized)
	eventHandler.OnOrderDeliverySelected(w.handleDeliverySelected)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleOrderFinalized(ctx context.Context, event *models.OrderFinalizedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("check event processed: %w", err)
	}
	if processed {
		return nil
	}

	text := fmt.Sprintf("🔔 Nuevo pedido %s de %s (%s)\n💵 Total: $%.2f\n📦 %d producto(s)",
		event.OrderID, event.Name, event.Phone, event.Total, len(event.Items))

	if err := w.sender.SendText(ctx, w.operatorID, text); err != nil {
		return fmt.Errorf("notify operator: %w", err)
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *NotificationWorker) handleDeliverySelected(ctx context.Context, event *models.OrderDeliverySelectedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("check event processed: %w", err)
	}
	if processed {
		return nil
	}

	text := fmt.Sprintf("📦 Pedido %s: entrega *%s*", event.OrderID, event.DeliveryMethod)
	if event.Address != "" {
		text += fmt.Sprintf("\n📍 %s", event.Address)
	}

	if err := w.sender.SendText(ctx, w.operatorID, text); err != nil {
		return fmt.Errorf("notify operator: %w", err)
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
