package bot

import (
	"context"

	"freres-bot/internal/models"
)

// Collaborator interfaces consumed by the engine. The Postgres store and the
// order service satisfy them in production; tests plug in fakes.

// Catalog is the read-only product source. The engine never mutates it.
type Catalog interface {
	ListProducts(ctx context.Context) (map[string]models.Product, error)
}

// ProfileStore persists registered customers keyed by phone.
type ProfileStore interface {
	GetProfile(ctx context.Context, phone string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
}

// OrderEngine is the cart and order engine invoked by the state machine.
type OrderEngine interface {
	AddItem(ctx context.Context, session *models.Session, productID string) (*models.CartItem, error)
	Finalize(ctx context.Context, session *models.Session) (string, error)
	SetDeliveryMethod(ctx context.Context, orderID, method, address string) error
	Lookup(ctx context.Context, orderID string) (*models.Order, error)
}
