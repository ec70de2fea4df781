package flipper

import "math"

// UpdateDisplacement advances the angle by dtime and handles arrival at either limit.
func (f *Flipper) UpdateDisplacement(dtime float64, nowMs int64) {
	s := &f.Static
	m := &f.Movement

	m.Angle += m.AngleSpeed * dtime

	if m.Angle > s.AngleMax {
		m.Angle = s.AngleMax
		if m.AngleSpeed > 0 {
			f.limitReached(math.Abs(degrees(m.AngleSpeed)), nowMs)
			m.AngularMomentum *= s.LimitBounce
			m.AngleSpeed = m.AngularMomentum / s.Inertia
		}
	}
	if m.Angle < s.AngleMin {
		m.Angle = s.AngleMin
		if m.AngleSpeed < 0 {
			f.limitReached(math.Abs(degrees(m.AngleSpeed)), nowMs)
			m.AngularMomentum *= s.LimitBounce
			m.AngleSpeed = m.AngularMomentum / s.Inertia
		}
	}
}

// limitReached fires the pending EOS or BOS event once per arrival.
func (f *Flipper) limitReached(speed float64, nowMs int64) {
	s := &f.Static
	m := &f.Movement
	switch {
	case m.EnableRotateEvent > 0 && m.Angle == s.AngleEnd:
		f.emit(Event{Type: EventLimitEOS, Speed: speed, TimeMs: nowMs})
		m.EnableRotateEvent = 0
	case m.EnableRotateEvent < 0 && m.Angle == s.AngleStart:
		f.emit(Event{Type: EventLimitBOS, Speed: speed, TimeMs: nowMs})
		m.EnableRotateEvent = 0
	}
}
