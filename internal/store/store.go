package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"freres-bot/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// ListProducts returns the whole catalog keyed by product id. The bot treats
// the catalog as read-only; product rows are managed by the back office.
func (s *Store) ListProducts(ctx context.Context) (map[string]models.Product, error) {
	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	out := make(map[string]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// GetProfile retrieves a registered customer by phone
func (s *Store) GetProfile(ctx context.Context, phone string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.GetContext(ctx, &profile, "SELECT * FROM users WHERE phone = $1", phone)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrProfileNotFound, phone)
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile creates or updates a customer profile keyed by phone
func (s *Store) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	if profile.RegisteredAt.IsZero() {
		profile.RegisteredAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (phone, name, address, registered_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address`,
		profile.Phone, profile.Name, profile.Address, profile.RegisteredAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
