package db

import (
	"database/sql"
	"fmt"

	"github.com/shopmesh/fulfillment/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(database *PostgresDB) *OrderRepository {
	return &OrderRepository{db: database.Conn}
}

// Create inserts a new order with its items in one transaction.
func (r *OrderRepository) Create(order *models.Order) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orderQuery := `
		INSERT INTO orders (external_id, user_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err = tx.QueryRow(orderQuery, order.ExternalID, order.UserID, order.Amount, order.Status).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s: %w", order.ExternalID, models.ErrDuplicateOrder)
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, price, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		order.Items[i].Position = i
		err = tx.QueryRow(itemQuery,
			order.ID,
			order.Items[i].ProductID,
			order.Items[i].Qty,
			order.Items[i].Price,
			i,
		).Scan(&order.Items[i].ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetAll returns all orders, newest first, without items.
func (r *OrderRepository) GetAll() ([]models.Order, error) {
	query := `SELECT id, external_id, user_id, amount, status, created_at FROM orders ORDER BY id DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		err := rows.Scan(&o.ID, &o.ExternalID, &o.UserID, &o.Amount, &o.Status, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, nil
}

// GetByExternalID returns the order with its items in sequence order, or
// (nil, nil) when no such order exists.
func (r *OrderRepository) GetByExternalID(externalID string) (*models.Order, error) {
	orderQuery := `SELECT id, external_id, user_id, amount, status, created_at FROM orders WHERE external_id = $1`

	var order models.Order
	err := r.db.QueryRow(orderQuery, externalID).
		Scan(&order.ID, &order.ExternalID, &order.UserID, &order.Amount, &order.Status, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, price, position
		FROM order_items WHERE order_id = $1 ORDER BY position
	`
	rows, err := r.db.Query(itemsQuery, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Qty, &item.Price, &item.Position)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	return &order, nil
}

// UpdateStatusByExternalID sets the order status unconditionally. Ordering
// and idempotency guards belong to the callers, which are always internal
// consumers.
func (r *OrderRepository) UpdateStatusByExternalID(externalID string, status models.OrderStatus) error {
	query := `UPDATE orders SET status = $1 WHERE external_id = $2`

	result, err := r.db.Exec(query, status, externalID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("order %s: %w", externalID, models.ErrOrderNotFound)
	}

	return nil
}
