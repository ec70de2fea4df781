package session

import (
	"context"
	"errors"
	"log"
	"time"
)

// StartExpiryChecker closes sessions idle for longer than the configured expiry until ctx is done.
func (m *Manager) StartExpiryChecker(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[SESSION] Expiry checker stopping")
			return
		case <-ticker.C:
			if n := m.CloseExpired(ctx, time.Now()); n > 0 {
				log.Printf("[SESSION] Closed %d expired sessions", n)
			}
		}
	}
}

// CloseExpired closes every session idle past the expiry at now and returns how many were closed.
func (m *Manager) CloseExpired(ctx context.Context, now time.Time) int {
	maxIdle := time.Duration(m.config.SessionExpiryMinutes) * time.Minute
	if maxIdle <= 0 {
		return 0
	}

	// collect under read lock, close outside it
	m.mu.RLock()
	var candidates []*Session
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.RUnlock()

	closed := 0
	for _, s := range candidates {
		if s.Idle(now) < maxIdle {
			continue
		}
		if _, err := m.Close(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
			closed++
		}
	}
	return closed
}
