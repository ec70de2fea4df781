package flipper

// Ball is the externally owned ball state read and mutated during flipper contact.
type Ball struct {
	ID              int     `json:"id" msgpack:"id"`
	Position        Vec3    `json:"position" msgpack:"position"`
	Velocity        Vec3    `json:"velocity" msgpack:"velocity"`
	AngularMomentum Vec3    `json:"angular_momentum" msgpack:"angular_momentum"`
	Radius          float64 `json:"radius" msgpack:"radius"`
	Mass            float64 `json:"mass" msgpack:"mass"`
	Active          bool    `json:"active" msgpack:"active"`
}

// NewBall creates an active ball at rest.
func NewBall(id int, pos Vec3, radius, mass float64) *Ball {
	if radius < MinRadius {
		radius = MinRadius
	}
	if mass < MinMass {
		mass = MinMass
	}
	return &Ball{ID: id, Position: pos, Radius: radius, Mass: mass, Active: true}
}

func (b *Ball) InvMass() float64 { return 1 / b.Mass }

// Inertia is the moment of inertia of a solid sphere.
func (b *Ball) Inertia() float64 { return 0.4 * b.Mass * b.Radius * b.Radius }

func (b *Ball) AngularVelocity() Vec3 { return b.AngularMomentum.Mul(1 / b.Inertia()) }

// SurfaceVelocity returns the velocity of the ball surface point at offset r from its center.
func (b *Ball) SurfaceVelocity(r Vec3) Vec3 {
	return b.Velocity.Add(b.AngularVelocity().Cross(r))
}

// SurfaceAcceleration returns gravity plus the centripetal acceleration at offset r.
func (b *Ball) SurfaceAcceleration(r, gravity Vec3) Vec3 {
	w := b.AngularVelocity()
	return gravity.Add(w.Cross(w.Cross(r)))
}

// ApplySurfaceImpulse applies an angular impulse and a linear impulse.
func (b *Ball) ApplySurfaceImpulse(rotI, impulse Vec3) {
	b.Velocity = b.Velocity.Add(impulse.Mul(b.InvMass()))
	b.AngularMomentum = b.AngularMomentum.Add(rotI)
}
