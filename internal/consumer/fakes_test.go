package consumer

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopmesh/fulfillment/internal/models"
)

// fakeOrderStore is an in-memory OrderStore keyed by external id.
type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	err    error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string]*models.Order)}
}

func (s *fakeOrderStore) GetByExternalID(externalID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	o, ok := s.orders[externalID]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (s *fakeOrderStore) Create(order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.orders[order.ExternalID]; ok {
		return fmt.Errorf("order %s: %w", order.ExternalID, models.ErrDuplicateOrder)
	}
	copied := *order
	s.orders[order.ExternalID] = &copied
	return nil
}

func (s *fakeOrderStore) UpdateStatusByExternalID(externalID string, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	o, ok := s.orders[externalID]
	if !ok {
		return fmt.Errorf("order %s: %w", externalID, models.ErrOrderNotFound)
	}
	o.Status = status
	return nil
}

func (s *fakeOrderStore) status(externalID string) models.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[externalID]; ok {
		return o.Status
	}
	return ""
}

// fakeStockStore is an in-memory StockStore with per-product stock counts
// and a reservation set.
type fakeStockStore struct {
	mu           sync.Mutex
	stock        map[int]int
	reservations map[string][]models.OrderItem
	err          error
}

func newFakeStockStore(stock map[int]int) *fakeStockStore {
	return &fakeStockStore{
		stock:        stock,
		reservations: make(map[string][]models.OrderItem),
	}
}

func (s *fakeStockStore) CheckAvailability(items []models.OrderItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	for _, item := range items {
		if s.stock[item.ProductID] < item.Qty {
			return item.ProductID, nil
		}
	}
	return 0, nil
}

func (s *fakeStockStore) HasReservation(orderExternalID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.reservations[orderExternalID]
	return ok, nil
}

func (s *fakeStockStore) Reserve(orderExternalID string, items []models.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.reservations[orderExternalID]; ok {
		return fmt.Errorf("order %s: %w", orderExternalID, models.ErrAlreadyReserved)
	}
	// All-or-nothing, like the store transaction.
	for _, item := range items {
		if s.stock[item.ProductID] < item.Qty {
			return fmt.Errorf("product %d: %w", item.ProductID, models.ErrInsufficientStock)
		}
	}
	for _, item := range items {
		s.stock[item.ProductID] -= item.Qty
	}
	s.reservations[orderExternalID] = items
	return nil
}

func (s *fakeStockStore) stockOf(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[productID]
}

func (s *fakeStockStore) reservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

// fakeOrderEvents records order.confirmed publishes.
type fakeOrderEvents struct {
	mu        sync.Mutex
	confirmed []models.OrderEvent
	err       error
}

func (f *fakeOrderEvents) PublishOrderConfirmed(_ context.Context, evt models.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, evt)
	return nil
}

func (f *fakeOrderEvents) confirmedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.confirmed)
}

// fakeInventoryEvents records reserved/out-of-stock publishes.
type fakeInventoryEvents struct {
	mu         sync.Mutex
	reserved   []string
	outOfStock map[string]string
}

func newFakeInventoryEvents() *fakeInventoryEvents {
	return &fakeInventoryEvents{outOfStock: make(map[string]string)}
}

func (f *fakeInventoryEvents) PublishReserved(_ context.Context, orderID string, _ []models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserved = append(f.reserved, orderID)
	return nil
}

func (f *fakeInventoryEvents) PublishOutOfStock(_ context.Context, orderID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outOfStock[orderID] = reason
	return nil
}

// fakeNotifier records notification pushes.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeNotifier) OrderConfirmed(orderID, _ string, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, orderID)
	return nil
}

// fakeStatusCallback records status callbacks.
type fakeStatusCallback struct {
	mu       sync.Mutex
	statuses map[string]models.OrderStatus
	err      error
}

func newFakeStatusCallback() *fakeStatusCallback {
	return &fakeStatusCallback{statuses: make(map[string]models.OrderStatus)}
}

func (f *fakeStatusCallback) UpdateStatus(_ context.Context, orderID string, status models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.statuses[orderID] = status
	return nil
}
