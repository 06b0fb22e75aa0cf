package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"warung/internal/handlers"
	"warung/internal/middleware"
	"warung/internal/models"
	"warung/internal/notifier"
	"warung/internal/repositories"
	"warung/internal/services"
	"warung/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	// Set up Viper to read configuration from environment variables
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_DSN", "") // empty: in-memory repositories
	viper.SetDefault("RABBITMQ_URL", "") // empty: log notifier, no events
	viper.SetDefault("JWT_SECRET", "change-me")
	viper.SetDefault("ADMIN_IDS", "")
	viper.SetDefault("PAYMENT_INSTRUCTIONS", "")
	viper.SetDefault("ORDER_PAYMENT_TIMEOUT", 60)
	viper.AutomaticEnv() // Load environment variables

	appPort := viper.GetString("APP_PORT")

	app, mqClient, err := newApp(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}
	if mqClient != nil {
		defer mqClient.Close() // Ensure the connection is closed on exit
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", appPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// newApp wires repositories, services and handlers into a Fiber app according
// to the given configuration. The returned RabbitMQ client is nil when no
// broker URL is configured.
func newApp(v *viper.Viper) (*fiber.App, *rabbitmq.Client, error) {
	// --- Repositories ---
	// With a database DSN the catalog and users persist via GORM; without
	// one everything is held in memory. The order registry is always
	// in-memory: it owns the live state machine.
	var (
		productRepo repositories.ProductRepository
		userRepo    repositories.UserRepository
	)
	if dsn := v.GetString("DATABASE_DSN"); dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, nil, err
		}
		if err := db.AutoMigrate(&models.Product{}, &models.User{}); err != nil {
			return nil, nil, err
		}
		productRepo = repositories.NewGORMProductRepository(db)
		userRepo = repositories.NewGORMUserRepository(db)
	} else {
		memProducts := repositories.NewMemoryProductRepository()
		seedProducts(memProducts)
		productRepo = memProducts
		userRepo = repositories.NewMemoryUserRepository()
	}
	orderRegistry := repositories.NewMemoryOrderRegistry()

	// --- Notifications ---
	var (
		mqClient      *rabbitmq.Client
		adminNotifier notifier.AdminNotifier = notifier.NewLogNotifier()
		events        services.EventPublisher
	)
	if url := v.GetString("RABBITMQ_URL"); url != "" {
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: url})
		if err != nil {
			return nil, nil, err
		}
		mqClient = client
		adminNotifier = notifier.NewAMQPNotifier(client)
		events = client

		// Stand-in for the chat gateway: consume and log order events.
		if err := client.ConsumeOrderEvents(func(msg amqp.Delivery) error {
			log.Printf("Order event (%s): %s", msg.RoutingKey, string(msg.Body))
			return nil
		}); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	}

	// --- Services ---
	authService := services.NewAuthService(userRepo, v.GetString("JWT_SECRET"), splitCSV(v.GetString("ADMIN_IDS")))
	catalogService := services.NewCatalogService(productRepo)
	orderService := services.NewOrderService(orderRegistry, productRepo, adminNotifier, authService, events,
		services.OrderServiceConfig{
			ProofTimeout: time.Duration(v.GetInt("ORDER_PAYMENT_TIMEOUT")) * time.Second,
			Instructions: v.GetString("PAYMENT_INSTRUCTIONS"),
		})

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(catalogService)
	orderHandler := handlers.NewOrderHandler(orderService)

	// --- Fiber App ---
	app := fiber.New()
	app.Use(logger.New()) // Request logger

	apiV1 := app.Group("/api/v1")

	// Authentication routes (public)
	authHandler.RegisterRoutes(apiV1)

	// Protected routes (require JWT authentication)
	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterRoutes(protectedRoutes)
	orderHandler.RegisterRoutes(protectedRoutes)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return app, mqClient, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// seedProducts populates the in-memory product repository with some initial data.
func seedProducts(repo repositories.ProductRepository) {
	products := []models.Product{
		{Name: "Game Voucher 100K", Description: "Digital game voucher", Price: 100000, Stock: 10, Delivery: "VOUCHER-XXXX-YYYY"},
		{Name: "Streaming Account", Description: "1 month premium streaming", Price: 55000, Stock: 25, Delivery: "user:pass via admin"},
		{Name: "E-book Bundle", Description: "10 programming e-books", Price: 25000, Stock: 50, Delivery: "https://example.com/download"},
	}

	for i := range products {
		if err := repo.Create(&products[i]); err != nil {
			log.Printf("Error seeding product %s: %v", products[i].Name, err)
		} else {
			log.Printf("Seeded product: %s (ID: %s)", products[i].Name, products[i].ID)
		}
	}
}
