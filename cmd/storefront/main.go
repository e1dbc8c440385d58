package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/codgamerofficial/Kultzr/internal/api"
	"github.com/codgamerofficial/Kultzr/internal/cart"
	cartcache "github.com/codgamerofficial/Kultzr/internal/cart/cache"
	cartrepo "github.com/codgamerofficial/Kultzr/internal/cart/repository"
	"github.com/codgamerofficial/Kultzr/internal/catalog"
	"github.com/codgamerofficial/Kultzr/internal/fulfillment"
	"github.com/codgamerofficial/Kultzr/internal/order"
	orderrepo "github.com/codgamerofficial/Kultzr/internal/order/repository"
	"github.com/codgamerofficial/Kultzr/internal/pricing"
)

type Config struct {
	HTTPPort           string
	JWTSecret          string
	MongoURI           string
	MongoDatabase      string
	RedisAddr          string
	CatalogDBPath      string
	CatalogMigrations  string
	PostgresHost       string
	PostgresPort       int
	PostgresUser       string
	PostgresPassword   string
	PostgresDB         string
	PostgresMigrations string
	KafkaBrokers       []string
	CartReplicaTimeout time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret-change-me"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getEnv("MONGO_DATABASE", "kultzr"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		CatalogDBPath:      getEnv("CATALOG_DB_PATH", "catalog.db"),
		CatalogMigrations:  getEnv("CATALOG_MIGRATIONS_PATH", "internal/catalog/migrations"),
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:       getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:   getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:         getEnv("POSTGRES_DB", "kultzr_orders"),
		PostgresMigrations: getEnv("ORDERS_MIGRATIONS_PATH", "internal/order/repository/migrations"),
		KafkaBrokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		CartReplicaTimeout: 5 * time.Second,
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persisted cart copy: MongoDB behind a Redis read cache.
	mongoDB, err := cartrepo.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())

	cartRepository := cartrepo.NewMongoRepository(mongoDB)
	if err := cartRepository.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create cart indexes: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	remote := cart.NewReplicator(cartRepository, cartcache.NewRedisCache(redisClient), cfg.CartReplicaTimeout)

	// Product catalog.
	cat, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()
	if err := cat.RunMigrations(cfg.CatalogMigrations); err != nil {
		log.Fatalf("Failed to run catalog migrations: %v", err)
	}

	// Orders.
	pgCred := &orderrepo.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.PostgresMigrations,
	}
	orderRepository, err := orderrepo.NewRepository(pgCred)
	if err != nil {
		log.Fatalf("Failed to connect to orders database: %v", err)
	}
	defer orderRepository.Close()
	if err := orderRepository.RunMigrations(pgCred); err != nil {
		log.Fatalf("Failed to run orders migrations: %v", err)
	}

	pricingCfg := pricing.DefaultConfig()
	orderService := order.NewService(orderRepository, cat, pricingCfg)

	// Fulfillment events drive the order status lifecycle.
	consumer := fulfillment.NewConsumer(orderService, cfg.KafkaBrokers...)
	defer consumer.Close()
	go consumer.Run(ctx)

	sessions := api.NewSessions(pricingCfg, remote)
	cartHandler := api.NewCartHandler(sessions, cat)
	checkoutHandler := api.NewCheckoutHandler(sessions, orderService)
	ordersHandler := api.NewOrdersHandler(orderService)
	sessionHandler := api.NewSessionHandler(sessions)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(api.AuthMiddleware([]byte(cfg.JWTSecret)))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})

		r.Post("/checkout", checkoutHandler.Checkout)
		r.Post("/session/sign-out", sessionHandler.SignOut)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{order_id}", ordersHandler.GetOrder)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
