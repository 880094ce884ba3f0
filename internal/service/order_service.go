package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"freres-bot/internal/models"
	"freres-bot/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Catalog is the read-only product source used to validate additions.
type Catalog interface {
	ListProducts(ctx context.Context) (map[string]models.Product, error)
}

// OrderStore persists finalized orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	UpdateOrderDelivery(ctx context.Context, orderID, method, address string) error
}

// EventPublisher publishes order lifecycle events. May be nil when no broker
// is configured (events are then skipped).
type EventPublisher interface {
	PublishOrderFinalized(ctx context.Context, event *models.OrderFinalizedEvent) error
	PublishOrderDeliverySelected(ctx context.Context, event *models.OrderDeliverySelectedEvent) error
}

// OrderService accumulates cart line items on a session and converts a
// non-empty cart into a durable order.
type OrderService struct {
	catalog   Catalog
	orders    OrderStore
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(catalog Catalog, orders OrderStore, publisher EventPublisher) *OrderService {
	return &OrderService{
		catalog:   catalog,
		orders:    orders,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// AddItem validates a product id against the catalog and appends a snapshot
// of the product to the session cart. The snapshot keeps the line item
// immune to later catalog changes.
func (s *OrderService) AddItem(ctx context.Context, session *models.Session, productID string) (*models.CartItem, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	product, ok := products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrProductNotFound, productID)
	}

	if session.CartToken == "" {
		session.CartToken = uuid.New().String()
	}

	item := models.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Category:  product.Category,
	}
	session.Cart = append(session.Cart, item)
	return &item, nil
}

// Finalize converts the session cart into a persisted order and returns the
// order id. The cart and browsing sub-state are cleared only after the order
// row is durably written; a crash before the write leaves the cart intact.
// The idempotency key is derived from the phone, the cart token and the
// cart content, so an immediate retry with the same cart returns the
// existing order id instead of creating a second order.
func (s *OrderService) Finalize(ctx context.Context, session *models.Session) (string, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Finalize")
	defer span.End()

	if len(session.Cart) == 0 {
		return "", models.ErrEmptyCart
	}

	key := finalizeKey(session)

	existing, err := s.orders.GetOrderByIdempotencyKey(ctx, key)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return "", fmt.Errorf("check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Info("Duplicate finalize answered from idempotency key",
			zap.String("order_id", existing.ID),
			zap.String("phone", session.Phone))
		util.OrdersDuplicateFinalize.Inc()
		session.Cart = nil
		session.CartToken = ""
		session.ClearBrowsing()
		session.LastOrderID = existing.ID
		return existing.ID, nil
	}

	order := &models.Order{
		ID:             newOrderID(),
		Phone:          session.Phone,
		Name:           session.Name,
		Status:         models.OrderStatusPending,
		Total:          s.cartTotal(session.Cart),
		IdempotencyKey: key,
		Items:          append([]models.CartItem(nil), session.Cart...),
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return "", fmt.Errorf("persist order: %w", err)
	}

	session.Cart = nil
	session.CartToken = ""
	session.ClearBrowsing()
	session.LastOrderID = order.ID

	util.OrdersFinalizedTotal.Inc()
	s.logger.Info("Order finalized",
		zap.String("order_id", order.ID),
		zap.String("phone", order.Phone),
		zap.Float64("total", order.Total),
		zap.Int("items", len(order.Items)))

	if s.publisher != nil {
		event := &models.OrderFinalizedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderFinalized,
				Timestamp: time.Now(),
			},
			OrderID: order.ID,
			Phone:   order.Phone,
			Name:    order.Name,
			Total:   order.Total,
			Items:   order.Items,
		}
		if err := s.publisher.PublishOrderFinalized(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderFinalized event", zap.Error(err))
		}
	}

	return order.ID, nil
}

// SetDeliveryMethod records the customer's answer to the delivery question.
// Pickup needs no address; home delivery attaches the given address or the
// unspecified sentinel.
func (s *OrderService) SetDeliveryMethod(ctx context.Context, orderID, method, address string) error {
	if method == models.DeliveryHome && address == "" {
		address = models.AddressUnspecified
	}
	if method == models.DeliveryPickup {
		address = ""
	}

	if err := s.orders.UpdateOrderDelivery(ctx, orderID, method, address); err != nil {
		return err
	}

	util.DeliverySelectedTotal.WithLabelValues(method).Inc()

	if s.publisher != nil {
		event := &models.OrderDeliverySelectedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderDeliverySelected,
				Timestamp: time.Now(),
			},
			OrderID:        orderID,
			DeliveryMethod: method,
			Address:        address,
		}
		if err := s.publisher.PublishOrderDeliverySelected(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderDeliverySelected event", zap.Error(err))
		}
	}

	return nil
}

// Lookup retrieves an order snapshot by id.
func (s *OrderService) Lookup(ctx context.Context, orderID string) (*models.Order, error) {
	return s.orders.GetOrderByID(ctx, orderID)
}

// cartTotal sums line item prices. A price that fails numeric coercion
// contributes zero instead of aborting the order; the condition is logged
// and counted so bad catalog data stays visible.
func (s *OrderService) cartTotal(cart []models.CartItem) float64 {
	var total float64
	for _, item := range cart {
		price, err := strconv.ParseFloat(strings.TrimSpace(item.Price), 64)
		if err != nil {
			s.logger.Warn("Cart item price is not numeric, counted as zero",
				zap.String("product_id", item.ProductID),
				zap.String("price", item.Price))
			util.BadPriceItemsTotal.Inc()
			continue
		}
		total += price
	}
	return total
}

// finalizeKey derives the idempotency key from the phone, the cart token
// minted when the cart started, and the ordered cart content. The token
// keeps a later, genuinely new cart with identical content from colliding
// with an already-finalized one.
func finalizeKey(session *models.Session) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", session.Phone, session.CartToken)
	for _, item := range session.Cart {
		fmt.Fprintf(h, "|%s:%s", item.ProductID, item.Price)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func newOrderID() string {
	return fmt.Sprintf("PED-%s", uuid.New().String()[:8])
}
