package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flipperlab/backend/internal/admin"
	"github.com/flipperlab/backend/internal/api"
	"github.com/flipperlab/backend/internal/config"
	"github.com/flipperlab/backend/internal/database"
	"github.com/flipperlab/backend/internal/migrations"
	"github.com/flipperlab/backend/internal/presets"
	"github.com/flipperlab/backend/internal/redis"
	"github.com/flipperlab/backend/internal/session"
	"github.com/flipperlab/backend/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if cfg.MigrateOnStart {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Runtime overrides stored by admins win over env defaults
	if err := admin.ApplyRuntimeConfigToConfig(db, cfg); err != nil {
		log.Printf("[CONFIG] Runtime config not applied: %v", err)
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := presets.NewStore(db, rdb, cfg.PresetCacheSeconds)
	manager := session.NewManager(db, rdb, store, cfg)

	// Websocket hub fans session events out to subscribed clients
	hub := ws.NewHub(manager)
	go hub.Run(ctx.Done())
	hub.StartEventSubscriber(ctx, rdb)

	// Close idle sessions and persist their recordings
	go manager.StartExpiryChecker(ctx)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, db, cfg, store, manager, hub)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down, saving open sessions...")
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		manager.CloseAll(shutdownCtx)
		done()
		cancel()
		os.Exit(0)
	}()

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting flipper simulation server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
