package models

import "time"

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusConfirmed  OrderStatus = "CONFIRMED"
	StatusOutOfStock OrderStatus = "OUT_OF_STOCK"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusOutOfStock:
		return true
	}
	return false
}

// Terminal reports whether an order in status s can never change again.
func (s OrderStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusOutOfStock
}

type Order struct {
	ID         int         `json:"id"`
	ExternalID string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	Amount     float64     `json:"amount"`
	Status     OrderStatus `json:"status"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
}

// OrderItem is one line of an order. Position preserves the sequence the
// client sent the items in; stock checks and decrements walk items in that
// order so multi-item failures are deterministic.
type OrderItem struct {
	ID        int     `json:"-"`
	OrderID   int     `json:"-"`
	ProductID int     `json:"productId"`
	Qty       int     `json:"qty"`
	Price     float64 `json:"price,omitempty"`
	Position  int     `json:"-"`
}

type CreateOrderRequest struct {
	Items []CreateOrderItemRequest `json:"items" binding:"required"`
}

type CreateOrderItemRequest struct {
	ProductID int     `json:"productId" binding:"required"`
	Qty       int     `json:"qty" binding:"required"`
	Price     float64 `json:"price"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
