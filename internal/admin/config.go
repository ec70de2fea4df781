package admin

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/flipperlab/backend/internal/config"
	"github.com/flipperlab/backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// ErrConfigKeyNotFound is returned when updating a key that was never seeded.
var ErrConfigKeyNotFound = errors.New("config key not found")

// GetAllRuntimeConfig returns all runtime config entries
func GetAllRuntimeConfig(db *sqlx.DB) ([]models.RuntimeConfig, error) {
	var configs []models.RuntimeConfig
	err := db.Select(&configs, `
		SELECT key, value, value_type, description, updated_by, updated_at
		FROM runtime_config
		ORDER BY key
	`)
	return configs, err
}

// GetRuntimeConfigValue returns a single runtime config value
func GetRuntimeConfigValue(db *sqlx.DB, key string) (*models.RuntimeConfig, error) {
	var cfg models.RuntimeConfig
	err := db.Get(&cfg, `SELECT key, value, value_type, description, updated_by, updated_at FROM runtime_config WHERE key=$1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, ErrConfigKeyNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateValue checks a value against the declared value type
func ValidateValue(valueType, value string) error {
	switch valueType {
	case "int":
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("invalid integer value: %s", value)
		}
	case "float":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("invalid float value: %s", value)
		}
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid boolean value: %s (must be 'true' or 'false')", value)
		}
	}
	return nil
}

// UpdateRuntimeConfigValue updates a single runtime config value
func UpdateRuntimeConfigValue(db *sqlx.DB, key, value, adminUsername string) error {
	existing, err := GetRuntimeConfigValue(db, key)
	if err != nil {
		return err
	}
	if err := ValidateValue(existing.ValueType, value); err != nil {
		return err
	}

	_, err = db.Exec(`
		UPDATE runtime_config SET value=$1, updated_by=$2, updated_at=NOW() WHERE key=$3
	`, value, adminUsername, key)
	return err
}

// ApplyRuntimeConfigToConfig loads runtime config from DB and applies overrides to the Config struct
func ApplyRuntimeConfigToConfig(db *sqlx.DB, cfg *config.Config) error {
	configs, err := GetAllRuntimeConfig(db)
	if err != nil {
		return err
	}
	applied := ApplyOverrides(configs, cfg)
	log.Printf("[CONFIG] Applied %d runtime config overrides from database", applied)
	return nil
}

// Effective reports the simulation settings currently in force.
func Effective(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"session_expiry_minutes": cfg.SessionExpiryMinutes,
		"max_sessions":           cfg.MaxSessions,
		"realtime_tick_ms":       cfg.RealtimeTickMs,
		"max_step_ms":            cfg.MaxStepMs,
		"preset_cache_seconds":   cfg.PresetCacheSeconds,
		"table_slope_degrees":    cfg.TableSlopeDegrees,
		"default_ball_radius":    cfg.DefaultBallRadius,
		"default_ball_mass":      cfg.DefaultBallMass,
	}
}

// ApplyOverrides copies parseable entries onto cfg and returns how many were applied.
func ApplyOverrides(configs []models.RuntimeConfig, cfg *config.Config) int {
	applied := 0
	setInt := func(dst *int, value string) {
		if v, err := strconv.Atoi(value); err == nil && v > 0 {
			*dst = v
			applied++
		}
	}
	setFloat := func(dst *float64, value string) {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			*dst = v
			applied++
		}
	}

	for _, c := range configs {
		switch c.Key {
		case "session_expiry_minutes":
			setInt(&cfg.SessionExpiryMinutes, c.Value)
		case "max_sessions":
			setInt(&cfg.MaxSessions, c.Value)
		case "realtime_tick_ms":
			setInt(&cfg.RealtimeTickMs, c.Value)
		case "max_step_ms":
			setInt(&cfg.MaxStepMs, c.Value)
		case "preset_cache_seconds":
			setInt(&cfg.PresetCacheSeconds, c.Value)
		case "table_slope_degrees":
			setFloat(&cfg.TableSlopeDegrees, c.Value)
		case "default_ball_radius":
			setFloat(&cfg.DefaultBallRadius, c.Value)
		case "default_ball_mass":
			setFloat(&cfg.DefaultBallMass, c.Value)
		}
	}
	return applied
}
