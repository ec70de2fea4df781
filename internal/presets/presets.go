// Package presets stores named flipper configurations in postgres with a redis read-through cache.
package presets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/flipperlab/backend/internal/flipper"
	"github.com/flipperlab/backend/internal/models"
	rediskeys "github.com/flipperlab/backend/internal/redis"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const (
	SideLeft  = "left"
	SideRight = "right"
)

var (
	ErrNotFound    = errors.New("preset not found")
	ErrInvalidName = errors.New("invalid preset name")
	ErrInvalid     = errors.New("invalid preset")
)

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Preset is a decoded flipper preset.
type Preset struct {
	Name        string         `json:"name"`
	Side        string         `json:"side"`
	Description string         `json:"description"`
	Config      flipper.Config `json:"config"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Validate rejects presets that cannot describe a working flipper.
// Out of range physical values are left to flipper.NewStatic, which clamps them.
func (p *Preset) Validate() error {
	if !nameRe.MatchString(p.Name) || p.Name == "_all" {
		return fmt.Errorf("%q: %w", p.Name, ErrInvalidName)
	}
	if p.Side != SideLeft && p.Side != SideRight {
		return fmt.Errorf("side %q: %w", p.Side, ErrInvalid)
	}
	if p.Config.Length <= 0 || p.Config.BaseRadius <= 0 || p.Config.EndRadius <= 0 {
		return fmt.Errorf("geometry must be positive: %w", ErrInvalid)
	}
	if p.Config.StartAngle == p.Config.EndAngle {
		return fmt.Errorf("start and end angle are equal: %w", ErrInvalid)
	}
	if p.Config.Name == "" {
		p.Config.Name = p.Name
	}
	return nil
}

func fromModel(m *models.FlipperPreset) (*Preset, error) {
	p := &Preset{Name: m.Name, Side: m.Side, Description: m.Description, UpdatedAt: m.UpdatedAt}
	if err := json.Unmarshal(m.Config, &p.Config); err != nil {
		return nil, fmt.Errorf("decode preset %s: %w", m.Name, err)
	}
	return p, nil
}

// Store reads and writes presets. Rdb may be nil, which disables caching.
type Store struct {
	db  *sqlx.DB
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(db *sqlx.DB, rdb *redis.Client, cacheSeconds int) *Store {
	return &Store{db: db, rdb: rdb, ttl: time.Duration(cacheSeconds) * time.Second}
}

// Get returns a preset, checking the cache, then the database, then the built-in defaults.
func (s *Store) Get(ctx context.Context, name string) (*Preset, error) {
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, rediskeys.PresetKey(name)).Bytes()
		if err == nil {
			var p Preset
			if err := json.Unmarshal(data, &p); err == nil {
				return &p, nil
			}
		} else if err != redis.Nil {
			log.Printf("[PRESET] cache read %s: %v", name, err)
		}
	}

	var p *Preset
	if s.db != nil {
		var m models.FlipperPreset
		err := s.db.GetContext(ctx, &m, `
			SELECT id, name, side, description, config, created_at, updated_at
			FROM flipper_presets WHERE name=$1
		`, name)
		switch {
		case err == nil:
			if p, err = fromModel(&m); err != nil {
				return nil, err
			}
		case errors.Is(err, sql.ErrNoRows):
		default:
			return nil, fmt.Errorf("load preset %s: %w", name, err)
		}
	}
	if p == nil {
		d, ok := Builtin(name)
		if !ok {
			return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		p = &d
	}

	s.cache(ctx, rediskeys.PresetKey(name), p)
	return p, nil
}

// List returns every stored preset ordered by name, plus built-ins not overridden in the database.
func (s *Store) List(ctx context.Context) ([]Preset, error) {
	if s.rdb != nil {
		if data, err := s.rdb.Get(ctx, rediskeys.PresetListKey).Bytes(); err == nil {
			var out []Preset
			if err := json.Unmarshal(data, &out); err == nil {
				return out, nil
			}
		}
	}

	var rows []models.FlipperPreset
	if s.db != nil {
		if err := s.db.SelectContext(ctx, &rows, `
			SELECT id, name, side, description, config, created_at, updated_at
			FROM flipper_presets ORDER BY name
		`); err != nil {
			return nil, fmt.Errorf("list presets: %w", err)
		}
	}

	out := make([]Preset, 0, len(rows)+2)
	seen := map[string]bool{}
	for i := range rows {
		p, err := fromModel(&rows[i])
		if err != nil {
			log.Printf("[PRESET] skipping %s: %v", rows[i].Name, err)
			continue
		}
		seen[p.Name] = true
		out = append(out, *p)
	}
	for _, d := range Defaults() {
		if !seen[d.Name] {
			out = append(out, d)
		}
	}

	s.cache(ctx, rediskeys.PresetListKey, out)
	return out, nil
}

// Upsert validates and stores a preset, invalidating its cache entries.
func (s *Store) Upsert(ctx context.Context, p *Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if s.db == nil {
		return errors.New("preset store has no database")
	}
	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("encode preset config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flipper_presets (name, side, description, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			side = EXCLUDED.side,
			description = EXCLUDED.description,
			config = EXCLUDED.config,
			updated_at = NOW()
	`, p.Name, p.Side, p.Description, cfg)
	if err != nil {
		return fmt.Errorf("store preset %s: %w", p.Name, err)
	}

	s.invalidate(ctx, p.Name)
	log.Printf("[PRESET] Stored preset %s (%s)", p.Name, p.Side)
	return nil
}

// Delete removes a stored preset. Built-ins reappear once their stored override is gone.
func (s *Store) Delete(ctx context.Context, name string) error {
	if s.db == nil {
		return errors.New("preset store has no database")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM flipper_presets WHERE name=$1`, name)
	if err != nil {
		return fmt.Errorf("delete preset %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}

	s.invalidate(ctx, name)
	log.Printf("[PRESET] Deleted preset %s", name)
	return nil
}

func (s *Store) cache(ctx context.Context, key string, v interface{}) {
	if s.rdb == nil || s.ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.SetEx(ctx, key, data, s.ttl).Err(); err != nil {
		log.Printf("[PRESET] cache write %s: %v", key, err)
	}
}

func (s *Store) invalidate(ctx context.Context, name string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, rediskeys.PresetKey(name), rediskeys.PresetListKey).Err(); err != nil {
		log.Printf("[PRESET] cache invalidate %s: %v", name, err)
	}
}
