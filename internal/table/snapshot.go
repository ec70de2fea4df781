package table

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/flipperlab/backend/internal/flipper"
)

// FlipperState is the externally visible state of one flipper.
type FlipperState struct {
	ID          int     `json:"id" msgpack:"id"`
	Name        string  `json:"name" msgpack:"name"`
	Angle       float64 `json:"angle" msgpack:"angle"`
	AngleSpeed  float64 `json:"angle_speed" msgpack:"angle_speed"`
	Torque      float64 `json:"torque" msgpack:"torque"`
	Solenoid    bool    `json:"solenoid" msgpack:"solenoid"`
	HoldCoil    bool    `json:"hold_coil" msgpack:"hold_coil"`
	IsInContact bool    `json:"is_in_contact" msgpack:"is_in_contact"`
}

// Snapshot is a value copy of the table state at a point in time.
type Snapshot struct {
	TimeMs   int64          `json:"time_ms" msgpack:"time_ms"`
	Flippers []FlipperState `json:"flippers" msgpack:"flippers"`
	Balls    []flipper.Ball `json:"balls" msgpack:"balls"`
}

// Snapshot copies the current state.
func (t *Table) Snapshot() Snapshot {
	s := Snapshot{
		TimeMs:   t.TimeMs,
		Flippers: make([]FlipperState, 0, len(t.Flippers)),
		Balls:    make([]flipper.Ball, 0, len(t.Balls)),
	}
	for _, f := range t.Flippers {
		s.Flippers = append(s.Flippers, FlipperState{
			ID:          f.ID,
			Name:        f.Name,
			Angle:       f.Movement.Angle,
			AngleSpeed:  f.Movement.AngleSpeed,
			Torque:      f.Actuation.CurTorque,
			Solenoid:    f.Actuation.Solenoid,
			HoldCoil:    f.Actuation.HoldCoil,
			IsInContact: f.Actuation.IsInContact,
		})
	}
	for _, b := range t.Balls {
		s.Balls = append(s.Balls, *b)
	}
	return s
}

// Digest hashes the msgpack encoding of the snapshot. Equal digests mean bit-identical state.
func (s Snapshot) Digest() (string, error) {
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
