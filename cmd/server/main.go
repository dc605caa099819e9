package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/guildpay/economy/docs"
	"github.com/guildpay/economy/internal/config"
	"github.com/guildpay/economy/internal/database"
	"github.com/guildpay/economy/internal/directory"
	"github.com/guildpay/economy/internal/handlers"
	mW "github.com/guildpay/economy/internal/middleware"
	"github.com/guildpay/economy/internal/services"
)

// @title Guildpay Economy API
// @version 1.0
// @description Virtual economy engine: ledger, wages, roulette wagers and entitlement shop
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("directory.base_url", "DIRECTORY_BASE_URL")
	viper.BindEnv("directory.token", "DIRECTORY_TOKEN")
	viper.BindEnv("directory.timeout", "DIRECTORY_TIMEOUT")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	docs.SwaggerInfo.Host = "localhost:8080"

	// Initialize storage
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Wire services. All authorization roles come from the economy config so
	// nothing is hard-coded into the services themselves.
	economyConfig := config.LoadEconomyConfig()
	roleDirectory := directory.NewHTTPDirectory()

	ledgerService := services.NewLedgerService(db)
	wageService := services.NewWageService(db, ledgerService, economyConfig)
	wagerService := services.NewWagerService(db, redisClient, ledgerService, economyConfig)
	shopService := services.NewShopService(db, redisClient, ledgerService, roleDirectory, economyConfig)

	economyHandler := handlers.NewEconomyHandler(ledgerService, wageService, wagerService)
	shopHandler := handlers.NewShopHandler(shopService)

	// Background retry of directory calls that survived a purchase failure
	reconcilerCtx, stopReconciler := context.WithCancel(context.Background())
	defer stopReconciler()
	reconciler := services.NewGrantReconciler(redisClient, roleDirectory)
	go reconciler.Run(reconcilerCtx, time.Minute)

	// Setup router
	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Static file server for shop item icons
	r.Handle("/static/item-icons/*", http.StripPrefix("/static/item-icons/",
		mW.StaticFileServer("./static/item-icons")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/accounts/balance", economyHandler.GetBalance)

			r.Post("/wages/policies", economyHandler.SetWagePolicy)
			r.Post("/wages/collect", economyHandler.CollectWage)

			r.Post("/wagers/roulette", economyHandler.PlaceWager)

			r.Get("/shop/items", shopHandler.ListItems)
			r.Post("/shop/items", shopHandler.AddItem)
			r.Post("/shop/purchase", shopHandler.PurchaseItem)
			r.Post("/shop/revoke", shopHandler.RevokeEntitlement)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stopReconciler()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
