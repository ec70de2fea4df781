package table

import (
	"errors"
	"fmt"

	"github.com/flipperlab/backend/internal/flipper"
)

var (
	ErrNoSuchFlipper = errors.New("no such flipper")
	ErrUnknownInput  = errors.New("unknown input kind")
)

// InputKind names a table input.
type InputKind string

const (
	InputSolenoid InputKind = "solenoid"
	InputHold     InputKind = "hold"
	InputBall     InputKind = "ball"
)

// Input is one external stimulus applied at TimeMs, before that step runs.
type Input struct {
	TimeMs   int64        `json:"time_ms" msgpack:"time_ms"`
	Kind     InputKind    `json:"kind" msgpack:"kind"`
	Flipper  int          `json:"flipper,omitempty" msgpack:"flipper"`
	On       bool         `json:"on,omitempty" msgpack:"on"`
	Position flipper.Vec3 `json:"position,omitempty" msgpack:"position"`
	Velocity flipper.Vec3 `json:"velocity,omitempty" msgpack:"velocity"`
}

// Apply applies an input at the current table time and logs it.
func (t *Table) Apply(in Input) error {
	in.TimeMs = t.TimeMs

	switch in.Kind {
	case InputSolenoid, InputHold:
		f, err := t.flipperAt(in.Flipper)
		if err != nil {
			return err
		}
		if in.Kind == InputSolenoid {
			f.SetSolenoid(in.On, t.TimeMs)
		} else {
			f.SetHoldCoil(in.On, t.TimeMs)
		}
	case InputBall:
		b := flipper.NewBall(t.nextBallID, in.Position, t.Config.BallRadius, t.Config.BallMass)
		b.Velocity = in.Velocity
		t.nextBallID++
		t.Balls = append(t.Balls, b)
	default:
		return fmt.Errorf("%q: %w", in.Kind, ErrUnknownInput)
	}

	t.inputs = append(t.inputs, in)
	return nil
}
