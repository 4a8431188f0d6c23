package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopmesh/fulfillment/internal/cache"
	"github.com/shopmesh/fulfillment/internal/client"
	"github.com/shopmesh/fulfillment/internal/config"
	"github.com/shopmesh/fulfillment/internal/consumer"
	"github.com/shopmesh/fulfillment/internal/db"
	"github.com/shopmesh/fulfillment/internal/discovery"
	"github.com/shopmesh/fulfillment/internal/handlers"
	"github.com/shopmesh/fulfillment/internal/publisher"
	"github.com/shopmesh/fulfillment/internal/stream"
)

const (
	serviceName = "inventory-service"
	serviceID   = "inventory-service-1"
	servicePort = 8081
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

	// Connect to Redis for the product read cache
	redisCache, err := cache.NewRedisCache(cfg.RedisAddr, 5*time.Minute)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	// Register with Consul
	consul, err := discovery.NewConsulClient(cfg.ConsulHost, cfg.ConsulPort)
	if err != nil {
		log.Printf("⚠️ Consul unavailable, running unregistered: %v", err)
	} else {
		if err := consul.Register(discovery.ServiceConfig{
			Name: serviceName,
			ID:   serviceID,
			Port: servicePort,
			Tags: []string{"api", "inventory"},
		}); err != nil {
			log.Fatalf("Failed to register service: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

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

	// Repositories and handlers
	productRepo := db.NewProductRepository(database)
	cachedRepo := db.NewCachedProductRepository(productRepo, redisCache)
	productHandler := handlers.NewProductHandler(cachedRepo)

	invRepo := db.NewInventoryRepository(database)
	invPublisher := publisher.NewInventoryPublisher(broker)
	orderClient := client.NewOrderClient(consul, cfg.OrderServiceURL)

	// Pre-payment availability check loop
	precheck := consumer.NewPrecheckConsumer(invRepo, invPublisher, orderClient)
	precheckConsumer := &stream.Consumer{
		Broker:  broker,
		Stream:  publisher.OrderCreatedStream,
		Group:   consumer.PrecheckGroup,
		Name:    fmt.Sprintf("inventory-%d", os.Getpid()),
		Handler: precheck.Handle,
		Retry:   stream.RetryPolicy{MaxRetries: cfg.MaxRetries, DLQ: publisher.InventoryDLQStream},
		Block:   cfg.ConsumerBlock,
	}
	precheckConsumer.Start(ctx)

	// Post-payment reservation commit loop
	reservation := consumer.NewReservationConsumer(invRepo, invPublisher)
	reservationConsumer := &stream.Consumer{
		Broker:  broker,
		Stream:  publisher.OrderConfirmedStream,
		Group:   consumer.ReservationGroup,
		Name:    fmt.Sprintf("inventory-commit-%d", os.Getpid()),
		Handler: reservation.Handle,
		Retry:   stream.RetryPolicy{MaxRetries: cfg.MaxRetries, DLQ: publisher.InventoryDLQStream},
		Block:   cfg.ConsumerBlock,
	}
	reservationConsumer.Start(ctx)

	// Setup router
	router := gin.Default()

	router.GET("/health", productHandler.HealthCheck)
	router.GET("/products", productHandler.ListProducts)
	router.GET("/products/:id", productHandler.GetProduct)
	router.POST("/products", productHandler.CreateProduct)
	router.DELETE("/products/:id", productHandler.DeleteProduct)

	log.Printf("🚀 Inventory Service starting on http://localhost:%d", servicePort)
	router.Run(fmt.Sprintf(":%d", servicePort))
}
