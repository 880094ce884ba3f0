package store

import (
	"context"
	"database/sql"
	"fmt"

	"freres-bot/internal/models"
)

// CreateOrder inserts an order with its line items in one transaction. The
// unique idempotency_key constraint guarantees a retried finalize with the
// same cart content cannot produce a second row.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, phone, name, status, total, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	if err := tx.GetContext(ctx, &order.CreatedAt, query,
		order.ID, order.Phone, order.Name, order.Status, order.Total, order.IdempotencyKey); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, price, category)
			VALUES ($1, $2, $3, $4, $5)`,
			order.ID, item.ProductID, item.Name, item.Price, item.Category)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order with its line items
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.SelectContext(ctx, &order.Items,
		"SELECT product_id, name, price, category FROM order_items WHERE order_id = $1", id); err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}

	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key, or nil
// when no order with that key exists.
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderDelivery records the chosen delivery method on an order
func (s *Store) UpdateOrderDelivery(ctx context.Context, orderID, method, address string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET delivery_method = $1, delivery_address = $2 WHERE id = $3",
		method, address, orderID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, orderID)
	}
	return nil
}

// GetOrdersByPhone retrieves a customer's orders, newest first
func (s *Store) GetOrdersByPhone(ctx context.Context, phone string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE phone = $1 ORDER BY created_at DESC", phone)
	return orders, err
}
