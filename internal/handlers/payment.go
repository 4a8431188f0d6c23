package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopmesh/fulfillment/internal/models"
)

// PaymentEvents publishes payment.confirmed on behalf of the provider.
type PaymentEvents interface {
	PublishPaymentConfirmed(ctx context.Context, evt models.OrderEvent) error
}

// PaymentHandler simulates the payment-provider boundary: the webhook
// endpoint publishes payment.confirmed as if the provider had signaled a
// captured payment.
type PaymentHandler struct {
	publisher PaymentEvents
}

func NewPaymentHandler(publisher PaymentEvents) *PaymentHandler {
	return &PaymentHandler{publisher: publisher}
}

// HealthCheck returns server status
func (h *PaymentHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "payment-service"})
}

type createPaymentRequest struct {
	OrderID  string  `json:"orderId" binding:"required"`
	Amount   float64 `json:"amount" binding:"required"`
	Currency string  `json:"currency"`
}

// CreatePayment echoes a simulated payment intent.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"orderId":  req.OrderID,
		"amount":   req.Amount,
		"currency": req.Currency,
	})
}

type webhookRequest struct {
	OrderID string                          `json:"orderId" binding:"required"`
	UserID  string                          `json:"userId"`
	Amount  float64                         `json:"amount"`
	Items   []models.CreateOrderItemRequest `json:"items"`
}

// Webhook publishes payment.confirmed for the given order.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evt := models.OrderEvent{
		Type:    models.TypePaymentConfirmed,
		OrderID: req.OrderID,
		UserID:  req.UserID,
		Amount:  req.Amount,
		TS:      time.Now().UnixMilli(),
	}
	for _, item := range req.Items {
		evt.Items = append(evt.Items, models.OrderItem{
			ProductID: item.ProductID,
			Qty:       item.Qty,
			Price:     item.Price,
		})
	}

	if err := h.publisher.PublishPaymentConfirmed(c.Request.Context(), evt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "payment confirmed"})
}
