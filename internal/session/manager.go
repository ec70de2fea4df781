// Package session hosts live flipper tables for API and websocket clients.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/flipperlab/backend/internal/config"
	"github.com/flipperlab/backend/internal/flipper"
	"github.com/flipperlab/backend/internal/presets"
	"github.com/flipperlab/backend/internal/table"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTooManySessions  = errors.New("too many active sessions")
	ErrNoFlippers       = errors.New("session needs at least one flipper")
	ErrBadStep          = errors.New("invalid step length")
	ErrRealtime         = errors.New("session is advanced by the realtime clock")
	ErrUnknownCoil      = errors.New("unknown coil")
	ErrBallOutsideTable = errors.New("ball outside table bounds")
)

// Coil names accepted by SetCoil.
const (
	CoilSolenoid = "solenoid"
	CoilHold     = "hold"
)

// BallSpec places a ball when a session is created or later.
type BallSpec struct {
	Position flipper.Vec3 `json:"position"`
	Velocity flipper.Vec3 `json:"velocity"`
}

// CreateRequest describes a new session.
type CreateRequest struct {
	Presets  []string   `json:"presets"`
	Balls    []BallSpec `json:"balls"`
	Seed     uint64     `json:"seed"`
	Realtime bool       `json:"realtime"`
}

// Manager owns every live session
type Manager struct {
	sessions map[string]*Session
	presets  *presets.Store
	rdb      *redis.Client // nil disables fan-out and state caching
	db       *sqlx.DB      // nil disables run persistence
	config   *config.Config
	sinks    []func(Message)
	mu       sync.RWMutex
}

// NewManager creates a session manager. db and rdb may be nil.
func NewManager(db *sqlx.DB, rdb *redis.Client, store *presets.Store, cfg *config.Config) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		presets:  store,
		rdb:      rdb,
		db:       db,
		config:   cfg,
	}
}

// OnMessage registers a local receiver used when redis is not configured.
func (m *Manager) OnMessage(fn func(Message)) {
	m.mu.Lock()
	m.sinks = append(m.sinks, fn)
	m.mu.Unlock()
}

func generateToken(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func generateSessionID() string {
	return "sess_" + generateToken(8)
}

// Create loads the named presets, builds a table and registers the session.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	if len(req.Presets) == 0 {
		return nil, ErrNoFlippers
	}

	m.mu.RLock()
	active := len(m.sessions)
	m.mu.RUnlock()
	if m.config.MaxSessions > 0 && active >= m.config.MaxSessions {
		return nil, ErrTooManySessions
	}

	cfg := table.Config{
		SlopeDegrees: m.config.TableSlopeDegrees,
		Seed:         req.Seed,
		BallRadius:   m.config.DefaultBallRadius,
		BallMass:     m.config.DefaultBallMass,
		Bounds:       table.DefaultBounds,
	}
	for _, name := range req.Presets {
		p, err := m.presets.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		cfg.Flippers = append(cfg.Flippers, p.Config)
	}

	now := time.Now()
	s := &Session{
		ID:           generateSessionID(),
		Presets:      append([]string(nil), req.Presets...),
		Realtime:     req.Realtime,
		CreatedAt:    now,
		LastActivity: now,
		table:        table.New(cfg),
		done:         make(chan struct{}),
	}
	for i, b := range req.Balls {
		if err := s.checkBall(b); err != nil {
			return nil, fmt.Errorf("ball %d: %w", i, err)
		}
		s.table.AddBall(b.Position, b.Velocity)
	}

	m.mu.Lock()
	if m.config.MaxSessions > 0 && len(m.sessions) >= m.config.MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	log.Printf("[SESSION] Created %s flippers=%v balls=%d realtime=%v", s.ID, s.Presets, len(req.Balls), s.Realtime)

	if s.Realtime {
		s.loop.Add(1)
		go m.runRealtime(s)
	}
	m.cacheState(s.ID, s.Snapshot())
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return s, nil
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SetCoil switches a coil of one flipper.
func (m *Manager) SetCoil(id string, flipperIdx int, coil string, on bool) (table.Snapshot, error) {
	s, err := m.Get(id)
	if err != nil {
		return table.Snapshot{}, err
	}

	s.mu.Lock()
	switch coil {
	case CoilSolenoid, "":
		err = s.table.SetSolenoid(flipperIdx, on)
	case CoilHold:
		err = s.table.SetHoldCoil(flipperIdx, on)
	default:
		err = fmt.Errorf("%q: %w", coil, ErrUnknownCoil)
	}
	s.touch()
	snap := s.table.Snapshot()
	s.mu.Unlock()
	if err != nil {
		return table.Snapshot{}, err
	}

	m.publish(Message{Type: MessageCoil, SessionID: id, TimeMs: snap.TimeMs, Snapshot: &snap})
	return snap, nil
}

// AddBall places a ball at the current session time.
func (m *Manager) AddBall(id string, b BallSpec) (flipper.Ball, error) {
	s, err := m.Get(id)
	if err != nil {
		return flipper.Ball{}, err
	}
	if err := s.checkBall(b); err != nil {
		return flipper.Ball{}, err
	}

	s.mu.Lock()
	ball := *s.table.AddBall(b.Position, b.Velocity)
	s.touch()
	s.mu.Unlock()
	return ball, nil
}

// Step advances a manually clocked session by ms physics steps.
func (m *Manager) Step(id string, ms int) (table.Snapshot, []flipper.Event, error) {
	if ms <= 0 || (m.config.MaxStepMs > 0 && ms > m.config.MaxStepMs) {
		return table.Snapshot{}, nil, fmt.Errorf("%d ms: %w", ms, ErrBadStep)
	}
	s, err := m.Get(id)
	if err != nil {
		return table.Snapshot{}, nil, err
	}
	if s.Realtime {
		return table.Snapshot{}, nil, ErrRealtime
	}

	snap, events := s.advance(ms)
	m.publish(Message{Type: MessageStep, SessionID: id, TimeMs: snap.TimeMs, Events: events, Snapshot: &snap})
	m.cacheState(id, snap)
	return snap, events, nil
}

// Snapshot returns the live state, falling back to the cached state of a closed session.
func (m *Manager) Snapshot(ctx context.Context, id string) (table.Snapshot, error) {
	if s, err := m.Get(id); err == nil {
		return s.Snapshot(), nil
	}
	return m.loadState(ctx, id)
}

// Close stops the session and stores its replay. The returned run ID is 0 when no database is configured.
func (m *Manager) Close(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}

	s.stop()
	runID, err := m.saveRun(ctx, s)
	if err != nil {
		log.Printf("[SESSION] Failed to save run for %s: %v", id, err)
	}

	snap := s.Snapshot()
	m.cacheState(id, snap)
	m.publish(Message{Type: MessageClosed, SessionID: id, TimeMs: snap.TimeMs, RunID: runID})
	log.Printf("[SESSION] Closed %s at %d ms (run=%d)", id, snap.TimeMs, runID)
	return runID, err
}

// CloseAll closes every session, used on shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Close(ctx, id)
	}
}

// runRealtime advances the session on the wall clock until it is closed.
func (m *Manager) runRealtime(s *Session) {
	tickMs := m.config.RealtimeTickMs
	if tickMs <= 0 {
		tickMs = 16
	}
	ticker := time.NewTicker(time.Duration(tickMs) * time.Millisecond)
	defer ticker.Stop()
	defer s.loop.Done()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			snap, events := s.advance(tickMs)
			m.publish(Message{Type: MessageTick, SessionID: s.ID, TimeMs: snap.TimeMs, Events: events, Snapshot: &snap})
		}
	}
}
