package models

import "time"

// Reservation records a committed stock deduction for one order. The
// uniqueness of OrderExternalID is the idempotency gate: at most one
// reservation — and therefore at most one decrement — per order.
type Reservation struct {
	ID              int         `json:"id"`
	OrderExternalID string      `json:"order_id"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
}
