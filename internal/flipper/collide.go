package flipper

import "math"

// ElasticityWithFalloff lowers the coefficient of restitution as impact speed grows.
// A falloff of 1 halves it at 1 m/s.
func ElasticityWithFalloff(elasticity, falloff, vel float64) float64 {
	if falloff > 0 {
		return elasticity / (1 + falloff*math.Abs(vel)/FalloffSpeedUnit)
	}
	return elasticity
}

// contactArms returns the ball and flipper lever arms and the relative surface velocity at the contact.
func (f *Flipper) contactArms(ball *Ball, n Vec3) (rB, rF, vrel Vec3) {
	rB = n.Mul(-ball.Radius)
	hitPos := ball.Position.Add(rB)
	// flipper pivot in the ball plane
	cF := Vec3{f.Static.Position.X(), f.Static.Position.Y(), ball.Position.Z()}
	rF = hitPos.Sub(cF)
	vrel = ball.SurfaceVelocity(rB).Sub(f.surfaceVelocity(rF))
	return rB, rF, vrel
}

// Collide resolves a discrete impact found by HitTest.
func (f *Flipper) Collide(ball *Ball, coll *CollisionEvent, nowMs int64) {
	s := &f.Static
	a := &f.Actuation
	n := coll.HitNormal

	rB, rF, vrel := f.contactArms(ball, n)
	bnv := n.Dot(vrel)

	if bnv >= -LowNormVel {
		if bnv > LowNormVel {
			return
		}
		// kick an embedded ball out
		if coll.HitDistance < -Embedded {
			bnv = -EmbedShot
		} else {
			return
		}
	}

	if hdist := -DispGain * coll.HitDistance; hdist > 1e-4 {
		hdist = math.Min(hdist, DispLimit)
		ball.Position = ball.Position.Add(n.Mul(hdist))
	}

	angResp := rF.Cross(n)

	// pushed into the stopper: keep the energy in the ball
	scaling := 1.0
	if a.IsInContact && a.ContactTorque*(-angResp.Z()) >= 0 {
		angResp = Vec3{}
		scaling = StopperScaling
	}

	e := ElasticityWithFalloff(s.Material.Elasticity*f.params.ElasticityMul, s.Material.ElasticityFalloff, bnv)

	impulse := -(1 + e) * bnv / (ball.InvMass() + n.Dot(angResp.Mul(1/s.Inertia).Cross(rF)))
	flipperImp := n.Mul(-impulse * scaling)
	rotI := rF.Cross(flipperImp)

	if a.IsInContact && rotI.Z()*a.ContactTorque < 0 {
		// time in 10ms the solenoid needs to cancel the recoil
		recoilTime := -rotI.Z() / a.ContactTorque
		bnvAfter := bnv + impulse*ball.InvMass()
		if recoilTime <= RecoilTimeStatic || bnvAfter > 0 {
			impulse = -(1 + e) * bnv * ball.Mass
			rotI = Vec3{}
		}
	}

	ball.Velocity = ball.Velocity.Add(n.Mul(impulse * ball.InvMass()))
	f.applyImpulse(rotI)

	f.applyFriction(ball, n, rB, rF, vrel, impulse)

	if s.Material.Scatter > 0 && f.rng != nil {
		f.scatter(ball)
	}

	if bnv < HitEventMinNormVel && nowMs-f.Movement.LastHitTimeMs > HitEventIntervalMs {
		if coll.MomentBit {
			f.emit(Event{Type: EventHit, BallID: ball.ID, TimeMs: nowMs})
		} else {
			f.emit(Event{Type: EventCollide, BallID: ball.ID, Speed: -bnv, TimeMs: nowMs})
		}
	}
	// keeps resetting until the flipper has been idle for the full interval
	f.Movement.LastHitTimeMs = nowMs

	if f.Tricks != nil {
		f.Tricks.liveCatch(s, ball, -bnv, nowMs)
	}
	f.track(ball)
}

// applyFriction applies a Coulomb-capped tangential impulse.
func (f *Flipper) applyFriction(ball *Ball, n, rB, rF, vrel Vec3, impulse float64) {
	tangent := tangential(vrel, n)
	if tangent.LenSqr() <= 1e-6 {
		return
	}
	tangent = tangent.Normalize()
	vt := vrel.Dot(tangent)

	cross := rB.Cross(tangent)
	kt := ball.InvMass() + tangent.Dot(cross.Mul(1/ball.Inertia()).Cross(rB))

	// the flipper only responds angularly
	cross2 := rF.Cross(tangent)
	kt += tangent.Dot(cross2.Mul(1 / f.Static.Inertia).Cross(rF))

	maxFric := f.Static.Material.Friction * impulse
	jt := clamp(-vt/kt, -maxFric, maxFric)

	ball.ApplySurfaceImpulse(cross.Mul(jt), tangent.Mul(jt))
	f.applyImpulse(cross2.Mul(-jt))
}

// scatter rotates the ball velocity by a random angle with a bell-shaped distribution.
func (f *Flipper) scatter(ball *Ball) {
	u := f.rng.Float64()*2 - 1
	angle := u * (1 - u*u) * 2.59808 * f.Static.Material.Scatter
	x, y := rotate2D(ball.Velocity.X(), ball.Velocity.Y(), math.Sin(angle), math.Cos(angle))
	ball.Velocity = Vec3{x, y, ball.Velocity.Z()}
}
