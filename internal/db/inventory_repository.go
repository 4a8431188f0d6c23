package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopmesh/fulfillment/internal/models"
)

type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(database *PostgresDB) *InventoryRepository {
	return &InventoryRepository{db: database.Conn}
}

// CheckAvailability verifies stock for every item without mutating anything.
// It walks items in their given sequence and returns the product id of the
// first insufficient item, or 0 when the whole order is fulfillable. A
// product that does not exist counts as insufficient.
func (r *InventoryRepository) CheckAvailability(items []models.OrderItem) (int, error) {
	query := `SELECT stock FROM products WHERE id = $1`

	for _, item := range items {
		var stock int
		err := r.db.QueryRow(query, item.ProductID).Scan(&stock)
		if err == sql.ErrNoRows {
			return item.ProductID, nil
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read stock for product %d: %w", item.ProductID, err)
		}
		if stock < item.Qty {
			return item.ProductID, nil
		}
	}
	return 0, nil
}

// HasReservation reports whether the order's stock was already deducted.
func (r *InventoryRepository) HasReservation(orderExternalID string) (bool, error) {
	query := `SELECT 1 FROM reservations WHERE order_external_id = $1`

	var one int
	err := r.db.QueryRow(query, orderExternalID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check reservation: %w", err)
	}
	return true, nil
}

// Reserve deducts stock for every item and records the reservation in one
// transaction. Each decrement re-verifies sufficiency, so stock never goes
// negative even when the pre-payment check passed on stale numbers. A
// concurrent reservation for the same order loses on the reservation row's
// uniqueness constraint and gets models.ErrAlreadyReserved.
func (r *InventoryRepository) Reserve(orderExternalID string, items []models.OrderItem) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	decrementQuery := `UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1`

	for _, item := range items {
		result, err := tx.Exec(decrementQuery, item.Qty, item.ProductID)
		if err != nil {
			return fmt.Errorf("failed to decrement stock for product %d: %w", item.ProductID, err)
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return fmt.Errorf("product %d: %w", item.ProductID, models.ErrInsufficientStock)
		}
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal reservation items: %w", err)
	}

	insertQuery := `INSERT INTO reservations (order_external_id, items) VALUES ($1, $2)`
	if _, err := tx.Exec(insertQuery, orderExternalID, itemsJSON); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s: %w", orderExternalID, models.ErrAlreadyReserved)
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	return nil
}
