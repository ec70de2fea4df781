package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Simulation
	SessionExpiryMinutes int
	MaxSessions          int
	TableSlopeDegrees    float64
	DefaultBallRadius    float64
	DefaultBallMass      float64
	RealtimeTickMs       int
	MaxStepMs            int

	// Presets
	PresetCacheSeconds int

	// Security
	JWTSecret         string
	SessionTimeoutMin int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/flipperlab?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Simulation
		SessionExpiryMinutes: getEnvInt("SESSION_EXPIRY_MINUTES", 30),
		MaxSessions:          getEnvInt("MAX_SESSIONS", 64),
		TableSlopeDegrees:    getEnvFloat("TABLE_SLOPE_DEGREES", 6.5),
		DefaultBallRadius:    getEnvFloat("DEFAULT_BALL_RADIUS", 25),
		DefaultBallMass:      getEnvFloat("DEFAULT_BALL_MASS", 1),
		RealtimeTickMs:       getEnvInt("REALTIME_TICK_MS", 16),
		MaxStepMs:            getEnvInt("MAX_STEP_MS", 60000),

		// Presets
		PresetCacheSeconds: getEnvInt("PRESET_CACHE_SECONDS", 300),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 30),
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
