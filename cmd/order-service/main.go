package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/shopmesh/fulfillment/internal/config"
	"github.com/shopmesh/fulfillment/internal/consumer"
	"github.com/shopmesh/fulfillment/internal/db"
	"github.com/shopmesh/fulfillment/internal/discovery"
	"github.com/shopmesh/fulfillment/internal/handlers"
	"github.com/shopmesh/fulfillment/internal/messaging"
	"github.com/shopmesh/fulfillment/internal/notify"
	"github.com/shopmesh/fulfillment/internal/publisher"
	"github.com/shopmesh/fulfillment/internal/stream"
)

const (
	serviceName = "order-service"
	serviceID   = "order-service-1"
	servicePort = 8082
)

func main() {
	cfg := config.Load()

	// Connect to PostgreSQL
	database, err := db.NewPostgresDB(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Connect to the stream broker
	broker, err := stream.NewRedisBroker(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to stream broker: %v", err)
	}
	defer broker.Close()

	// Connect to RabbitMQ for the notification sink
	rabbitMQ, err := messaging.NewRabbitMQ(cfg.RabbitHost, cfg.RabbitPort, cfg.RabbitUser, cfg.RabbitPassword)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitMQ.Close()

	notifier, err := notify.NewPublisher(rabbitMQ)
	if err != nil {
		log.Fatalf("Failed to create notification publisher: %v", err)
	}

	// Register with Consul
	consul, err := discovery.NewConsulClient(cfg.ConsulHost, cfg.ConsulPort)
	if err != nil {
		log.Printf("⚠️ Consul unavailable, running unregistered: %v", err)
	} else {
		if err := consul.Register(discovery.ServiceConfig{
			Name: serviceName,
			ID:   serviceID,
			Port: servicePort,
			Tags: []string{"api", "orders"},
		}); err != nil {
			log.Fatalf("Failed to register service: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Deregister and stop consumers on shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		cancel()
		if consul != nil {
			consul.Deregister(serviceID)
		}
		os.Exit(0)
	}()

	orderRepo := db.NewOrderRepository(database)
	orderPublisher := publisher.NewOrderPublisher(broker)
	orderHandler := handlers.NewOrderHandler(orderRepo, orderPublisher)

	// Payment confirmation consumer
	paymentConsumer := consumer.NewPaymentConsumer(orderRepo, orderPublisher, notifier)
	c := &stream.Consumer{
		Broker:  broker,
		Stream:  publisher.PaymentConfirmedStream,
		Group:   consumer.PaymentGroup,
		Name:    fmt.Sprintf("order-%d", os.Getpid()),
		Handler: paymentConsumer.Handle,
		Retry:   stream.RetryPolicy{MaxRetries: cfg.MaxRetries, DLQ: publisher.PaymentsDLQStream},
		Block:   cfg.ConsumerBlock,
	}
	c.Start(ctx)

	// Setup router
	router := gin.Default()

	router.GET("/health", orderHandler.HealthCheck)
	router.GET("/orders", orderHandler.ListOrders)
	router.GET("/orders/:orderId", orderHandler.GetOrder)
	router.POST("/orders", orderHandler.CreateOrder)
	router.POST("/orders/:orderId/status", orderHandler.UpdateOrderStatus)

	log.Printf("🚀 Order Service starting on http://localhost:%d", servicePort)
	router.Run(fmt.Sprintf(":%d", servicePort))
}
