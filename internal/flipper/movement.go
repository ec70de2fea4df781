package flipper

import "math"

// Movement is the mutable rotational state of a flipper.
type Movement struct {
	Angle               float64 `json:"angle" msgpack:"angle"`
	AngleSpeed          float64 `json:"angle_speed" msgpack:"angle_speed"`
	AngularMomentum     float64 `json:"angular_momentum" msgpack:"angular_momentum"`
	AngularAcceleration float64 `json:"angular_acceleration" msgpack:"angular_acceleration"`
	LastHitTimeMs       int64   `json:"last_hit_time_ms" msgpack:"last_hit_time_ms"`
	EnableRotateEvent   int8    `json:"enable_rotate_event" msgpack:"enable_rotate_event"`
}

func newMovement(s *Static) Movement {
	return Movement{
		Angle: s.AngleStart,
		// lets the very first collision raise an event
		LastHitTimeMs: -HitEventIntervalMs - 1,
	}
}

// applyImpulse changes the angular momentum by the z component of an angular impulse.
func (f *Flipper) applyImpulse(rotI Vec3) {
	f.Movement.AngularMomentum += rotI.Z()
	f.Movement.AngleSpeed = f.Movement.AngularMomentum / f.Static.Inertia
}

// surfaceVelocity is the velocity of the flipper point at offset r from the pivot.
func (f *Flipper) surfaceVelocity(r Vec3) Vec3 {
	return crossZ(f.Movement.AngleSpeed, r)
}

// surfaceAcceleration is the tangential plus centripetal acceleration at offset r.
func (f *Flipper) surfaceAcceleration(r Vec3) Vec3 {
	m := &f.Movement
	a := crossZ(m.AngularAcceleration, r)
	w2 := m.AngleSpeed * m.AngleSpeed
	return Vec3{a.X() - w2*r.X(), a.Y() - w2*r.Y(), 0}
}

// clampAngle keeps the angle inside the configured range.
func (s *Static) clampAngle(a float64) float64 {
	return math.Min(math.Max(a, s.AngleMin), s.AngleMax)
}
