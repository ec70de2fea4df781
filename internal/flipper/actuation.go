package flipper

import "math"

// Actuation is the coil and torque state of a flipper.
type Actuation struct {
	CurTorque     float64 `json:"cur_torque" msgpack:"cur_torque"`
	ContactTorque float64 `json:"contact_torque" msgpack:"contact_torque"`
	IsInContact   bool    `json:"is_in_contact" msgpack:"is_in_contact"`
	Solenoid      bool    `json:"solenoid" msgpack:"solenoid"`
	HoldCoil      bool    `json:"hold_coil" msgpack:"hold_coil"`
}

// Params are the actuation parameters that tricks may override per tick.
type Params struct {
	RampUp             float64
	TorqueDamping      float64
	TorqueDampingAngle float64 // radians
	ElasticityMul      float64
}

// NominalParams returns the parameters taken straight from the static configuration.
func (s *Static) NominalParams() Params {
	return Params{
		RampUp:             s.RampUp,
		TorqueDamping:      s.TorqueDamping,
		TorqueDampingAngle: s.TorqueDampingAngle,
		ElasticityMul:      1,
	}
}

// Energized reports whether any winding is currently driving the flipper up.
func (f *Flipper) Energized() bool {
	if f.Static.Coil == DualWound {
		return f.Actuation.Solenoid || f.Actuation.HoldCoil
	}
	return f.Actuation.Solenoid
}

// desiredTorque is the unsigned-direction target torque for the coil model.
func desiredTorque(s *Static, a *Actuation, angle float64, p Params) float64 {
	if s.Coil == DualWound {
		switch {
		case a.Solenoid:
			return s.Strength
		case a.HoldCoil:
			return s.Strength * p.TorqueDamping
		default:
			return -s.Strength * s.ReturnRatio
		}
	}

	desired := s.Strength
	if !a.Solenoid {
		desired *= -s.ReturnRatio
	}

	// EOS coil weakening
	eos := math.Abs(angle - s.AngleEnd)
	if p.TorqueDampingAngle > 0 && eos < p.TorqueDampingAngle {
		lerp := eos / p.TorqueDampingAngle
		lerp *= lerp
		lerp *= lerp
		desired *= lerp + p.TorqueDamping*(1-lerp)
	}
	return desired
}

// UpdateVelocity ramps the coil torque and integrates it into angular momentum for one step.
func (f *Flipper) UpdateVelocity(nowMs int64) {
	s := &f.Static
	m := &f.Movement
	a := &f.Actuation

	p := s.NominalParams()
	if f.Tricks != nil {
		p = f.Tricks.Apply(s, m, f.Energized(), nowMs, p)
	}
	f.params = p

	desired := desiredTorque(s, a, m.Angle, p)
	if !s.Direction {
		desired = -desired
	}

	ramp := InstantRampUp
	if p.RampUp > 0 {
		ramp = math.Min(s.Strength/p.RampUp, InstantRampUp)
	}
	if a.CurTorque > desired {
		a.CurTorque = math.Max(a.CurTorque-ramp*PhysFactor, desired)
	} else if a.CurTorque < desired {
		a.CurTorque = math.Min(a.CurTorque+ramp*PhysFactor, desired)
	}

	// resting on a stopper
	torque := a.CurTorque
	a.IsInContact = false
	if math.Abs(m.AngleSpeed) <= StopperSpeed {
		if m.Angle >= s.AngleMax-StopperAngle && torque > 0 {
			m.Angle = s.AngleMax
			a.IsInContact = true
			a.ContactTorque = torque
			m.AngularMomentum = 0
			torque = 0
		} else if m.Angle <= s.AngleMin+StopperAngle && torque < 0 {
			m.Angle = s.AngleMin
			a.IsInContact = true
			a.ContactTorque = torque
			m.AngularMomentum = 0
			torque = 0
		}
	}

	m.AngularMomentum += PhysFactor * torque
	m.AngleSpeed = m.AngularMomentum / s.Inertia
	m.AngularAcceleration = torque / s.Inertia
}
