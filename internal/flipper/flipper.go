// Package flipper simulates a pinball flipper: continuous ball contact detection, impulse and
// resting contact resolution, and the torque driven rotation of the flipper itself.
package flipper

import "math/rand/v2"

// Flipper owns all per-flipper state. It is not safe for concurrent use.
type Flipper struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Config Config `json:"config"`

	Static     Static      `json:"-"`
	Movement   Movement    `json:"movement"`
	Actuation  Actuation   `json:"actuation"`
	Tricks     *Tricks     `json:"tricks,omitempty"`
	Correction *Correction `json:"-"`

	hit    HitCache
	params Params
	events []Event
	rng    *rand.Rand
}

// New builds a flipper resting at its start angle. seed drives the scatter angle.
func New(id int, cfg Config, seed uint64) *Flipper {
	f := &Flipper{
		ID:     id,
		Name:   cfg.Name,
		Config: cfg,
		Static: NewStatic(cfg),
	}
	f.hit = NewHitCache(&f.Static)
	f.Movement = newMovement(&f.Static)
	f.params = f.Static.NominalParams()
	if cfg.Tricks != nil {
		f.Tricks = NewTricks(*cfg.Tricks)
	}
	if cfg.Correction != nil {
		f.Correction = NewCorrection(*cfg.Correction)
	}
	if f.Static.Material.Scatter > 0 {
		f.rng = rand.New(rand.NewPCG(seed, uint64(id)))
	}
	return f
}

// SetSolenoid drives the main coil. For dual-wound flippers this is the power winding.
func (f *Flipper) SetSolenoid(on bool, nowMs int64) {
	was := f.Energized()
	f.Actuation.Solenoid = on
	f.coilChanged(was, nowMs)
}

// SetHoldCoil drives the hold winding. Single-wound flippers ignore it.
func (f *Flipper) SetHoldCoil(on bool, nowMs int64) {
	if f.Static.Coil != DualWound {
		return
	}
	was := f.Energized()
	f.Actuation.HoldCoil = on
	f.coilChanged(was, nowMs)
}

func (f *Flipper) coilChanged(was bool, nowMs int64) {
	now := f.Energized()
	if now == was {
		return
	}
	if now {
		f.Movement.EnableRotateEvent = 1
		if f.Correction != nil {
			f.Correction.fire(&f.Static, f.Movement.Angle, nowMs)
		}
		return
	}
	f.Movement.EnableRotateEvent = -1
}

// Params returns the actuation parameters used in the last velocity update.
func (f *Flipper) Params() Params { return f.params }

// LastHitFace reports which face was hit last; true is the face on the negative normal side.
func (f *Flipper) LastHitFace() bool { return f.hit.LastHitFace }
