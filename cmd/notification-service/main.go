package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/shopmesh/fulfillment/internal/config"
	"github.com/shopmesh/fulfillment/internal/messaging"
	"github.com/shopmesh/fulfillment/internal/notify"
)

const servicePort = 8085

func main() {
	cfg := config.Load()

	rabbitMQ, err := messaging.NewRabbitMQ(cfg.RabbitHost, cfg.RabbitPort, cfg.RabbitUser, cfg.RabbitPassword)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitMQ.Close()

	if err := rabbitMQ.DeclareQueue(notify.Queue); err != nil {
		log.Fatalf("Failed to declare queue: %v", err)
	}

	messages, err := rabbitMQ.Consume(notify.Queue)
	if err != nil {
		log.Fatalf("Failed to consume messages: %v", err)
	}

	// Fire-and-forget sink: a bad message is dropped, never requeued, and a
	// failed delivery never ripples back into the saga.
	go func() {
		for msg := range messages {
			var n notify.Notification
			if err := json.Unmarshal(msg.Body, &n); err != nil {
				log.Printf("❌ Failed to parse notification: %v", err)
				msg.Nack(false, false)
				continue
			}

			// Stand-in for email delivery.
			log.Printf("📧 Notifying user %s: order %s %s ($%.2f)", n.UserID, n.OrderID, n.Type, n.Amount)
			msg.Ack(false)
		}
	}()

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy", "service": "notification-service"})
	})

	log.Printf("🚀 Notification Service starting on http://localhost:%d", servicePort)
	router.Run(fmt.Sprintf(":%d", servicePort))
}
