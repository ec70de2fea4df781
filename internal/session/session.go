package session

import (
	"sync"
	"time"

	"github.com/flipperlab/backend/internal/flipper"
	"github.com/flipperlab/backend/internal/table"
)

// Session is one live table. The table is guarded by mu.
type Session struct {
	ID           string
	Presets      []string
	Realtime     bool
	CreatedAt    time.Time
	LastActivity time.Time

	table      *table.Table
	eventCount int
	done       chan struct{}
	stopOnce   sync.Once
	loop       sync.WaitGroup
	mu         sync.Mutex
}

// Info is a consistent copy of the session metadata.
type Info struct {
	ID           string    `json:"id"`
	Presets      []string  `json:"presets"`
	Realtime     bool      `json:"realtime"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	TimeMs       int64     `json:"time_ms"`
	ActiveBalls  int       `json:"active_balls"`
	EventCount   int       `json:"event_count"`
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:           s.ID,
		Presets:      s.Presets,
		Realtime:     s.Realtime,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		TimeMs:       s.table.TimeMs,
		ActiveBalls:  s.table.ActiveBalls(),
		EventCount:   s.eventCount,
	}
}

// FlipperIndex resolves a flipper by name.
func (s *Session) FlipperIndex(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.FlipperIndex(name)
}

// Snapshot copies the current table state.
func (s *Session) Snapshot() table.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Snapshot()
}

// Idle reports how long the session has gone without client activity.
func (s *Session) Idle(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.LastActivity)
}

func (s *Session) touch() {
	s.LastActivity = time.Now()
}

func (s *Session) advance(ms int) (table.Snapshot, []flipper.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table.Run(ms)
	events := s.table.DrainEvents()
	s.eventCount += len(events)
	if !s.Realtime {
		s.touch()
	}
	return s.table.Snapshot(), events
}

func (s *Session) checkBall(b BallSpec) error {
	bd := s.table.Config.Bounds
	x, y := b.Position.X(), b.Position.Y()
	if x < bd.MinX || x > bd.MaxX || y < bd.MinY || y > bd.MaxY {
		return ErrBallOutsideTable
	}
	return nil
}

// stop ends the realtime loop and waits for it to exit.
func (s *Session) stop() {
	s.stopOnce.Do(func() { close(s.done) })
	s.loop.Wait()
}
