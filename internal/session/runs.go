package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/flipperlab/backend/internal/database"
	"github.com/flipperlab/backend/internal/models"
	"github.com/flipperlab/backend/internal/replay"
	"github.com/jmoiron/sqlx"
)

var ErrRunNotFound = errors.New("run not found")

// saveRun stores the session input log as a replay recording.
func (m *Manager) saveRun(ctx context.Context, s *Session) (int, error) {
	if m.db == nil {
		return 0, nil
	}

	s.mu.Lock()
	rec, err := replay.FromTable(s.table)
	balls := len(s.table.Balls)
	events := s.eventCount
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	data, err := replay.Encode(rec)
	if err != nil {
		return 0, err
	}

	var id int
	err = database.WithTx(ctx, m.db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &id, `
			INSERT INTO simulation_runs (session_id, recording, digest, duration_ms, ball_count, event_count, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			RETURNING id
		`, s.ID, data, rec.Digest, rec.DurationMs, balls, events)
	})
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// GetRun loads a stored run including its recording.
func GetRun(ctx context.Context, db *sqlx.DB, id int) (*models.SimulationRun, error) {
	var run models.SimulationRun
	err := db.GetContext(ctx, &run, `
		SELECT id, session_id, recording, digest, duration_ms, ball_count, event_count, created_at
		FROM simulation_runs WHERE id=$1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %d: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs without their recordings.
func ListRuns(ctx context.Context, db *sqlx.DB, limit, offset int) ([]models.SimulationRun, error) {
	var runs []models.SimulationRun
	err := db.SelectContext(ctx, &runs, `
		SELECT id, session_id, ''::bytea AS recording, digest, duration_ms, ball_count, event_count, created_at
		FROM simulation_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return runs, err
}

// VerifyRun replays a stored run and checks the replayed digest against the stored one.
func VerifyRun(run *models.SimulationRun) (string, error) {
	rec, err := replay.Decode(run.Recording)
	if err != nil {
		return "", err
	}
	if rec.Digest != run.Digest {
		return "", fmt.Errorf("run %d digest column %s, recording %s: %w", run.ID, run.Digest, rec.Digest, replay.ErrDigestMismatch)
	}
	return replay.Verify(rec)
}
