package models

import "errors"

// Domain errors shared across the store, service and bot layers. Anything
// not matched by errors.Is against these is treated as a backing-store
// failure and surfaced to the user as a generic technical-difficulty reply.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrEmptyCart       = errors.New("cart is empty")
)
