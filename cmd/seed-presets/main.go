package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/flipperlab/backend/internal/admin"
	"github.com/flipperlab/backend/internal/config"
	"github.com/flipperlab/backend/internal/database"
	"github.com/flipperlab/backend/internal/migrations"
	"github.com/flipperlab/backend/internal/presets"
	"github.com/flipperlab/backend/internal/redis"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Redis is optional here; without it stale preset cache entries simply expire
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Printf("Redis unavailable (%v); preset cache will not be invalidated", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	// Seed admin account
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
		log.Printf("Using default admin username: %s", username)
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		adminToken = "change-me-in-production"
		log.Printf("WARNING: Using default admin token. Set ADMIN_TOKEN env var in production!")
	}

	var allowedIPs []string // empty allows any IP
	if v := os.Getenv("ADMIN_ALLOWED_IPS"); v != "" {
		allowedIPs = strings.Split(v, ",")
	}
	roles := []string{"super_admin"}

	if err := admin.CreateAdminAccount(db, username, "Admin", adminToken, roles, allowedIPs); err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}
	log.Printf("✓ Admin account %s created/updated (roles=%v)", username, roles)

	// Seed built-in presets so they can be edited in place
	store := presets.NewStore(db, rdb, cfg.PresetCacheSeconds)
	ctx := context.Background()
	for _, p := range presets.Defaults() {
		p := p
		if err := store.Upsert(ctx, &p); err != nil {
			log.Fatalf("Failed to seed preset %s: %v", p.Name, err)
		}
	}
	log.Printf("✓ Seeded %d flipper presets", len(presets.Defaults()))
}
