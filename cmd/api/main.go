package main

import (
	"log"
	"os"
	"time"

	"github.com/autohelp/autohelp-backend/internal/database"
	"github.com/autohelp/autohelp-backend/internal/handlers"
	"github.com/autohelp/autohelp-backend/internal/lifecycle"
	"github.com/autohelp/autohelp-backend/internal/matching"
	"github.com/autohelp/autohelp-backend/internal/middleware"
	"github.com/autohelp/autohelp-backend/internal/reviews"
	"github.com/autohelp/autohelp-backend/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}

	// Initialize database with better error handling
	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Get underlying SQL DB instance
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Initialize Redis
	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize Storage (S3 or local fallback)
	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	coordinator := lifecycle.NewCoordinator(lifecycle.NewGormStore(db))
	matcher := matching.NewService(matching.NewGormStore(db))
	reviewGate := reviews.NewGate(reviews.NewGormStore(db))

	// Initialize router
	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Serve static files
	r.Static("/uploads", "/app/uploads")

	// Routes
	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			// User routes
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
				users.GET("/:id/reviews", handlers.ListUserReviews(reviewGate))
			}

			// Request lifecycle routes
			requests := protected.Group("/requests")
			{
				requests.POST("", handlers.CreateRequest(db, coordinator, hub))
				requests.GET("/nearby", handlers.NearbyRequests(matcher))
				requests.GET("/mine", handlers.MyRequests(db))
				requests.GET("/:id", handlers.GetRequest(coordinator))
				requests.POST("/:id/finish", handlers.FinishRequest(coordinator, hub))
				requests.POST("/:id/cancel", handlers.CancelRequest(coordinator, hub))
				requests.POST("/:id/photos", handlers.UploadRequestPhoto(coordinator))
				requests.POST("/:id/offers", handlers.SubmitOffer(db, coordinator, hub))
				requests.GET("/:id/offers", handlers.ListOffers(coordinator))
				requests.POST("/:id/reviews", handlers.SubmitReview(reviewGate))
			}

			// Offer routes
			offers := protected.Group("/offers")
			{
				offers.GET("/mine", handlers.MyOffers(db))
				offers.POST("/:offerId/accept", handlers.AcceptOffer(db, coordinator, hub))
			}

			// Garage routes
			vehicles := protected.Group("/vehicles")
			{
				vehicles.POST("", handlers.AddVehicle(db))
				vehicles.GET("", handlers.MyVehicles(db))
				vehicles.PUT("/:id", handlers.UpdateVehicle(db))
				vehicles.DELETE("/:id", handlers.DeleteVehicle(db))
			}

			// Station routes
			stations := protected.Group("/stations")
			{
				stations.PUT("/mine", handlers.UpsertMyStation(db))
				stations.GET("/mine", handlers.GetMyStation(db))
				stations.GET("/nearby", handlers.NearbyStations(db, matcher))
				stations.GET("/:id/reviews", handlers.ListStationReviews(db, reviewGate))
			}

			// Category routes
			categories := protected.Group("/categories")
			{
				categories.GET("", handlers.ListCategories(db))
				categories.GET("/tree", handlers.CategoryTree(db))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
