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

	"github.com/gamehive/backend/internal/config"
	"github.com/gamehive/backend/internal/database"
	"github.com/gamehive/backend/internal/events"
	"github.com/gamehive/backend/internal/handlers"
	mW "github.com/gamehive/backend/internal/middleware"
	"github.com/gamehive/backend/internal/services"
)

// @title GameHive Backend API
// @version 1.0
// @description API for the GameHive game review community
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("")

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
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	economyCfg := config.LoadEconomyConfig()

	bus := events.NewBus()
	notifier := services.NewNotificationService(redisClient, economyCfg)

	economyService := services.NewEconomyService(db, redisClient, notifier, economyCfg)
	achievementService := services.NewAchievementService(db, notifier)
	achievementService.Register(bus)

	discussionService := services.NewDiscussionService(db, bus, notifier, services.DefaultSanitizer)
	channelService := services.NewChannelService(db)
	reviewService := services.NewReviewService(db, bus, notifier, services.DefaultSanitizer)
	authService := services.NewAuthService(db, redisClient, bus, economyService, economyCfg)

	giftHandler := handlers.NewGiftHandler(economyService)
	discussionHandler := handlers.NewDiscussionHandler(db, discussionService)
	channelHandler := handlers.NewChannelHandler(db, channelService)
	reviewHandler := handlers.NewReviewHandler(db, reviewService)
	achievementHandler := handlers.NewAchievementHandler(achievementService)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
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

	// Static file server for gift images
	r.Handle("/static/gift-images/*", http.StripPrefix("/static/gift-images/",
		mW.StaticFileServer("./static/gift-images")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		r.Get("/gifts", giftHandler.ListGifts)
		r.Get("/gifts/counts", giftHandler.GiftCounts)

		r.Get("/apps/{appId}/channels", channelHandler.ListChannels)
		r.Get("/apps/{appId}/reviews", reviewHandler.ListReviews)
		r.Get("/reviews/{reviewId}", reviewHandler.GetReview)
		r.Get("/channels/{channelId}/discussions", discussionHandler.ListDiscussions)
		r.Get("/discussions/{discussionId}", discussionHandler.GetDiscussion)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/profile", authService.GetProfile)

			// Economy endpoints
			r.Post("/gifts/send", giftHandler.SendGift)
			r.Get("/ledger", giftHandler.ListLedger)

			// Achievement endpoints
			r.Get("/achievements", achievementHandler.ListProgress)

			// Channel administration endpoints
			r.Post("/apps/{appId}/channels", channelHandler.CreateChannel)
			r.Put("/channels/{channelId}", channelHandler.UpdateChannel)
			r.Delete("/channels/{channelId}", channelHandler.DeleteChannel)
			r.Post("/channels/{channelId}/moderators", channelHandler.AddModerator)
			r.Delete("/channels/{channelId}/moderators/{userId}", channelHandler.RemoveModerator)

			// Discussion endpoints
			r.Post("/channels/{channelId}/discussions", discussionHandler.CreateDiscussion)
			r.Put("/discussions/{discussionId}/close", discussionHandler.CloseDiscussion)
			r.Put("/discussions/{discussionId}/sticky", discussionHandler.StickyDiscussion)
			r.Delete("/discussions/{discussionId}", discussionHandler.DeleteDiscussion)
			r.Post("/discussions/{discussionId}/posts", discussionHandler.CreatePost)
			r.Delete("/posts/{postId}", discussionHandler.DeletePost)

			// Review endpoints
			r.Post("/apps/{appId}/reviews", reviewHandler.CreateReview)
			r.Put("/reviews/{reviewId}", reviewHandler.UpdateReview)
			r.Delete("/reviews/{reviewId}", reviewHandler.DeleteReview)
			r.Post("/reviews/{reviewId}/comments", reviewHandler.CreateComment)
			r.Delete("/comments/{commentId}", reviewHandler.DeleteComment)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
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

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
