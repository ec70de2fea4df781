package flipper

// Contact applies the resting contact force for a ball lying or rolling on the flipper over dtime.
func (f *Flipper) Contact(ball *Ball, coll *CollisionEvent, dtime float64, gravity Vec3) {
	s := &f.Static
	n := coll.HitNormal
	f.track(ball)

	rB, rF, vrel := f.contactArms(ball, n)
	normVel := vrel.Dot(n)
	// a collision this step may already have separated them
	if normVel > ContactVel {
		return
	}

	aB := ball.SurfaceAcceleration(rB, gravity)
	aF := f.surfaceAcceleration(rF)
	arel := aB.Sub(aF)

	normalDeriv := crossZ(f.Movement.AngleSpeed, n)
	normAcc := arel.Dot(n) + 2*normalDeriv.Dot(vrel)
	if normAcc >= 0 {
		return
	}

	// response to a unit force along the normal
	aBc := n.Mul(ball.InvMass())
	cross := rF.Cross(n.Mul(-1))
	aFc := crossZ(cross.Z()/s.Inertia, rF)
	contactForceAcc := n.Dot(aBc.Sub(aFc))
	if contactForceAcc <= 0 {
		return
	}

	j := -normAcc / contactForceAcc

	// also cancels the normal velocity left over at detection
	ball.Velocity = ball.Velocity.Add(n.Mul(j*dtime*ball.InvMass() - coll.OrgNormalVelocity))
	f.applyImpulse(cross.Mul(j * dtime))

	slip := vrel.Sub(n.Mul(normVel))
	maxFric := j * s.Material.Friction
	slipSpeed := slip.Len()

	var dir Vec3
	var numer float64
	if slipSpeed < Precision {
		// static friction
		slipAcc := tangential(arel, n)
		if slipAcc.LenSqr() < 1e-6 {
			return
		}
		dir = slipAcc.Normalize()
		numer = -dir.Dot(arel)
	} else {
		dir = slip.Mul(1 / slipSpeed)
		numer = -dir.Dot(vrel)
	}

	crossB := rB.Cross(dir)
	crossF := rF.Cross(dir)
	denom := ball.InvMass() + dir.Dot(crossB.Mul(1/ball.Inertia()).Cross(rB)) +
		dir.Dot(crossF.Mul(1/s.Inertia).Cross(rF))
	fric := clamp(numer/denom, -maxFric, maxFric)
	if !isFinite(fric) {
		return
	}

	ball.ApplySurfaceImpulse(crossB.Mul(dtime*fric), dir.Mul(dtime*fric))
	f.applyImpulse(crossF.Mul(-dtime * fric))
}
