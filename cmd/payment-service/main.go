package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/shopmesh/fulfillment/internal/config"
	"github.com/shopmesh/fulfillment/internal/discovery"
	"github.com/shopmesh/fulfillment/internal/handlers"
	"github.com/shopmesh/fulfillment/internal/publisher"
	"github.com/shopmesh/fulfillment/internal/stream"
)

const (
	serviceName = "payment-service"
	serviceID   = "payment-service-1"
	servicePort = 8084
)

func main() {
	cfg := config.Load()

	// Connect to the stream broker
	broker, err := stream.NewRedisBroker(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to stream broker: %v", err)
	}
	defer broker.Close()

	// Register with Consul
	consul, err := discovery.NewConsulClient(cfg.ConsulHost, cfg.ConsulPort)
	if err != nil {
		log.Printf("⚠️ Consul unavailable, running unregistered: %v", err)
	} else {
		if err := consul.Register(discovery.ServiceConfig{
			Name: serviceName,
			ID:   serviceID,
			Port: servicePort,
			Tags: []string{"api", "payments"},
		}); err != nil {
			log.Fatalf("Failed to register service: %v", err)
		}
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		if consul != nil {
			consul.Deregister(serviceID)
		}
		os.Exit(0)
	}()

	paymentPublisher := publisher.NewPaymentPublisher(broker)
	paymentHandler := handlers.NewPaymentHandler(paymentPublisher)

	// Setup router
	router := gin.Default()

	router.GET("/health", paymentHandler.HealthCheck)
	router.POST("/payments", paymentHandler.CreatePayment)
	router.POST("/payments/webhook", paymentHandler.Webhook)

	log.Printf("🚀 Payment Service (simulated provider) starting on http://localhost:%d", servicePort)
	router.Run(fmt.Sprintf(":%d", servicePort))
}
