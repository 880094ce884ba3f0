package models

import "time"

// Conversation states. A session is always in exactly one of these.
const (
	StateIdle                = "idle"
	StateRegistrationName    = "awaiting_registration_name"
	StateRegistrationPhone   = "awaiting_registration_phone"
	StateRegistrationAddress = "awaiting_registration_address"
	StateLoginPhone          = "awaiting_login_phone"
	StateLoggedIn            = "logged_in"
	StateChoosingCategory    = "choosing_category"
	StateBrowsingProduct     = "browsing_product"
	StateChoosingDelivery    = "choosing_delivery_method"
)

// Order statuses
const (
	OrderStatusPending = "pending"
)

// Delivery methods
const (
	DeliveryHome   = "home_delivery"
	DeliveryPickup = "pickup"
)

// AddressUnspecified is stored on a home delivery order when the profile
// carries no address.
const AddressUnspecified = "sin especificar"

// Product is a catalog entry. Owned by the catalog backing store; the bot
// only reads it. Price stays a string because the upstream catalog is
// loosely typed; coercion happens at order finalization.
type Product struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Price    string `db:"price" json:"price"`
	Category string `db:"category" json:"category"`
	Stock    int    `db:"stock" json:"stock"`
	ImageURL string `db:"image_url" json:"image_url,omitempty"`
}

// Profile is a registered customer, keyed by phone.
type Profile struct {
	Phone        string    `db:"phone" json:"phone"`
	Name         string    `db:"name" json:"name"`
	Address      string    `db:"address" json:"address"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// CartItem is a snapshot of a product at the moment it was added. Later
// catalog changes never alter it.
type CartItem struct {
	ProductID string `db:"product_id" json:"product_id"`
	Name      string `db:"name" json:"name"`
	Price     string `db:"price" json:"price"`
	Category  string `db:"category" json:"category"`
}

// Order is the durable record created when a cart is finalized.
type Order struct {
	ID              string     `db:"id" json:"id"`
	Phone           string     `db:"phone" json:"phone"`
	Name            string     `db:"name" json:"name"`
	Status          string     `db:"status" json:"status"`
	Total           float64    `db:"total" json:"total"`
	DeliveryMethod  string     `db:"delivery_method" json:"delivery_method,omitempty"`
	DeliveryAddress string     `db:"delivery_address" json:"delivery_address,omitempty"`
	IdempotencyKey  string     `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	Items           []CartItem `db:"-" json:"items"`
}

// Session holds the conversational state for one user id. Created implicitly
// on the first inbound message, mutated on every message, never destroyed.
type Session struct {
	UserID            string     `json:"user_id"`
	State             string     `json:"state"`
	Name              string     `json:"name,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Address           string     `json:"address,omitempty"`
	PendingCategories []string   `json:"pending_categories,omitempty"`
	CurrentCategory   string     `json:"current_category,omitempty"`
	CategoryProducts  []Product  `json:"category_products,omitempty"`
	ProductCursor     int        `json:"product_cursor"`
	Cart              []CartItem `json:"cart,omitempty"`
	CartToken         string     `json:"cart_token,omitempty"`
	LastOrderID       string     `json:"last_order_id,omitempty"`
	LastMessage       string     `json:"last_message,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewSession returns a fresh idle session for a user id.
func NewSession(userID string) *Session {
	return &Session{UserID: userID, State: StateIdle}
}

// ClearBrowsing resets category and pagination sub-state. Used after an
// order is finalized.
func (s *Session) ClearBrowsing() {
	s.PendingCategories = nil
	s.CurrentCategory = ""
	s.CategoryProducts = nil
	s.ProductCursor = 0
}

// Reply is one outbound message produced by the bot. Exactly one of Text or
// ImageURL is set.
type Reply struct {
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// TextReply builds a text reply.
func TextReply(text string) Reply { return Reply{Text: text} }

// ImageReply builds an image reply.
func ImageReply(url string) Reply { return Reply{ImageURL: url} }

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
