package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopmesh/fulfillment/internal/models"
)

// OrderStore is the persistence surface the HTTP handlers need.
type OrderStore interface {
	Create(order *models.Order) error
	GetAll() ([]models.Order, error)
	GetByExternalID(externalID string) (*models.Order, error)
	UpdateStatusByExternalID(externalID string, status models.OrderStatus) error
}

// OrderEvents publishes order.created after a successful persist.
type OrderEvents interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
}

type OrderHandler struct {
	repo      OrderStore
	publisher OrderEvents
}

func NewOrderHandler(repo OrderStore, publisher OrderEvents) *OrderHandler {
	return &OrderHandler{repo: repo, publisher: publisher}
}

// HealthCheck returns server status
func (h *OrderHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "order-service"})
}

// ListOrders returns all orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.repo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, orders)
}

// GetOrder returns a single order with items
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.repo.GetByExternalID(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// CreateOrder validates the request, persists the order as PENDING and
// publishes order.created. The publish happens only after the commit; if it
// fails the order stands and the failure is logged loudly rather than
// hidden, since the caller already holds a durable order id.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user id"})
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no items provided"})
		return
	}

	order := models.Order{
		ExternalID: uuid.NewString(),
		UserID:     userID,
		Status:     models.StatusPending,
	}

	var amount float64
	for i, item := range req.Items {
		if item.Qty <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
			return
		}
		if item.Price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
			return
		}
		amount += float64(item.Qty) * item.Price
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Qty:       item.Qty,
			Price:     item.Price,
			Position:  i,
		})
	}
	order.Amount = amount

	if err := h.repo.Create(&order); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.publisher.PublishOrderCreated(c.Request.Context(), &order); err != nil {
		log.Printf("❌ Failed to publish order.created for %s: %v", order.ExternalID, err)
	} else {
		log.Printf("📤 Published order.created for %s", order.ExternalID)
	}

	log.Printf("✅ Order %s created with total $%.2f", order.ExternalID, order.Amount)
	c.JSON(http.StatusCreated, gin.H{"message": "order created", "orderId": order.ExternalID})
}

// UpdateOrderStatus is the internal status callback. It trusts its caller —
// always another service in this system — and updates unconditionally.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID := c.Param("orderId")

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.OrderStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	if err := h.repo.UpdateStatusByExternalID(orderID, status); err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	order, err := h.repo.GetByExternalID(orderID)
	if err != nil || order == nil {
		c.JSON(http.StatusOK, gin.H{"message": "order status updated"})
		return
	}

	c.JSON(http.StatusOK, order)
}
