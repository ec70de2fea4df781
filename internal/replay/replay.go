// Package replay records table inputs and re-simulates them bit for bit.
package replay

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/flipperlab/backend/internal/table"
)

// FormatVersion is bumped whenever the recording layout changes.
const FormatVersion = 1

var (
	ErrDigestMismatch = errors.New("replay digest mismatch")
	ErrBadVersion     = errors.New("unsupported recording version")
)

// Recording is everything needed to reproduce a table run.
type Recording struct {
	Version    int           `msgpack:"version"`
	Config     table.Config  `msgpack:"config"`
	Inputs     []table.Input `msgpack:"inputs"`
	DurationMs int64         `msgpack:"duration_ms"`
	Digest     string        `msgpack:"digest"`
}

// FromTable captures the run so far, including the digest of the current state.
func FromTable(t *table.Table) (*Recording, error) {
	digest, err := t.Snapshot().Digest()
	if err != nil {
		return nil, err
	}
	return &Recording{
		Version:    FormatVersion,
		Config:     t.Config,
		Inputs:     t.Inputs(),
		DurationMs: t.TimeMs,
		Digest:     digest,
	}, nil
}

func Encode(r *Recording) ([]byte, error) {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode recording: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (*Recording, error) {
	var r Recording
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	if r.Version != FormatVersion {
		return nil, fmt.Errorf("version %d: %w", r.Version, ErrBadVersion)
	}
	return &r, nil
}

// Play rebuilds the table and feeds it the recorded inputs at their recorded times.
func Play(r *Recording) (*table.Table, error) {
	t := table.New(r.Config)
	next := 0
	apply := func() error {
		for next < len(r.Inputs) && r.Inputs[next].TimeMs <= t.TimeMs {
			if err := t.Apply(r.Inputs[next]); err != nil {
				return fmt.Errorf("input %d at %d ms: %w", next, r.Inputs[next].TimeMs, err)
			}
			next++
		}
		return nil
	}

	for t.TimeMs < r.DurationMs {
		if err := apply(); err != nil {
			return nil, err
		}
		t.Step()
	}
	if err := apply(); err != nil {
		return nil, err
	}
	return t, nil
}

// Verify replays the recording and returns the digest, failing if it differs from the recorded one.
func Verify(r *Recording) (string, error) {
	t, err := Play(r)
	if err != nil {
		return "", err
	}
	digest, err := t.Snapshot().Digest()
	if err != nil {
		return "", err
	}
	if digest != r.Digest {
		return digest, fmt.Errorf("recorded %s, replayed %s: %w", r.Digest, digest, ErrDigestMismatch)
	}
	return digest, nil
}
