package flipper

import "math"

// CollisionEvent describes a contact found by HitTest and consumed by Collide or Contact in the same step.
type CollisionEvent struct {
	BallID      int
	HitTime     float64
	HitNormal   Vec3
	HitDistance float64 // negative when penetrating
	HitVel      Vec3    // unit tangent of the contact point motion
	MomentBit   bool    // contact point sits on the pivot
	IsContact   bool
	// OrgNormalVelocity is the normal velocity at detection, only set for resting contacts.
	OrgNormalVelocity float64
}

// HitTest returns the earliest time in [0, dtime] at which the ball touches the flipper.
func (f *Flipper) HitTest(ball *Ball, dtime float64, coll *CollisionEvent) (float64, bool) {
	if !ball.Active {
		return -1, false
	}
	lastFace := f.hit.LastHitFace

	// a ball can only touch one face, and never a face and a circle together
	if t, ok := f.hitTestFace(ball, dtime, coll, lastFace); ok {
		return f.accept(ball, coll, t)
	}
	if t, ok := f.hitTestFace(ball, dtime, coll, !lastFace); ok {
		f.hit.LastHitFace = !lastFace
		return f.accept(ball, coll, t)
	}
	if t, ok := f.hitTestEnd(ball, dtime, coll); ok {
		return f.accept(ball, coll, t)
	}
	if t, ok := f.hitTestBase(ball, dtime, coll); ok {
		coll.HitVel = Vec3{}
		coll.MomentBit = true
		return f.accept(ball, coll, t)
	}
	return -1, false
}

func (f *Flipper) accept(ball *Ball, coll *CollisionEvent, t float64) (float64, bool) {
	coll.BallID = ball.ID
	coll.HitTime = t
	return t, true
}

// contactAngle is the flipper angle at time t, stopped at the limits.
func (f *Flipper) contactAngle(t float64) float64 {
	return f.Static.clampAngle(f.Movement.Angle + f.Movement.AngleSpeed*t)
}

// rootSearch is the modified false position state shared by the face and end cap tests.
type rootSearch struct {
	t, t0, t1 float64
	d0, d1    float64
	dp        float64
	k         int
}

// step feeds the distance at the current estimate and reports whether the search is done.
// The second result is false when no solution exists.
func (r *rootSearch) step(d, dtime, deepLimit float64) (done, ok bool) {
	if math.Abs(d) <= Precision {
		return true, true
	}
	switch {
	case r.k == 1:
		if d < deepLimit {
			return true, false
		}
		// already inside the touch band
		if d <= PhysTouch {
			return true, true
		}
		r.t0, r.t1 = dtime, dtime
		r.d0, r.d1 = 0, d
	case r.k == 2:
		if r.dp*d > 0 {
			return true, false
		}
		r.t0, r.t1 = 0, dtime
		r.d0, r.d1 = r.dp, d
	default:
		// keep the root bracketed, halving the stale end on repeats
		if d*r.d0 <= 0 {
			r.t1, r.d1 = r.t, d
			if r.dp*d > 0 {
				r.d0 *= 0.5
			}
		} else {
			r.t0, r.d0 = r.t, d
			if r.dp*d > 0 {
				r.d1 *= 0.5
			}
		}
	}
	r.t = r.t0 - r.d0*(r.t1-r.t0)/(r.d1-r.d0)
	r.dp = d
	return false, true
}

// converged rejects roots outside the step or unconverged ones that are not near enough.
func (r *rootSearch) converged(d, dtime, ballRadius float64) bool {
	if !isFinite(r.t) || r.t < 0 || r.t > dtime {
		return false
	}
	return r.k <= MaxIter || math.Abs(d) <= ballRadius*NearSolution
}

// zOverlap checks the ball height against the flipper at time t.
func (f *Flipper) zOverlap(ball *Ball, t float64) bool {
	hitz := ball.Position.Z() - ball.Radius + ball.Velocity.Z()*t
	return hitz+ball.Radius*1.5 >= f.Static.ZLow() && hitz+ball.Radius*0.5 <= f.Static.ZHigh()
}

// hitTestFace searches one of the two straight faces. face1 is the face on the negative normal x side.
func (f *Flipper) hitTestFace(ball *Ball, dtime float64, coll *CollisionEvent, face1 bool) (float64, bool) {
	s := &f.Static
	base := s.Position
	r := ball.Radius
	vx, vy := ball.Velocity.X(), ball.Velocity.Y()

	// face normal and segment start at zero rotation
	ffnx := f.hit.ZeroAngNormX
	if face1 {
		ffnx = -ffnx
	}
	ffny := f.hit.ZeroAngNormY
	vpx, vpy := s.BaseRadius*ffnx, s.BaseRadius*ffny

	var (
		fx, fy     float64
		bx, by     float64
		d          float64
		contactAng float64
	)
	rs := rootSearch{}
	for rs.k = 1; rs.k <= MaxIter; rs.k++ {
		contactAng = f.contactAngle(rs.t)
		sin, cos := math.Sin(contactAng), math.Cos(contactAng)

		fx, fy = rotate2D(ffnx, ffny, sin, cos)
		tx, ty := rotate2D(vpx, vpy, sin, cos)

		bx = ball.Position.X() + vx*rs.t - (tx + base.X())
		by = ball.Position.Y() + vy*rs.t - (ty + base.Y())
		d = bx*fx + by*fy - r

		if done, ok := rs.step(d, dtime, -(r + s.EndRadius)); done {
			if !ok {
				return -1, false
			}
			break
		}
	}
	if !rs.converged(d, dtime, r) {
		return -1, false
	}
	t := rs.t

	// tangent runs from the base towards the tip
	tanx, tany := fy, -fx
	if face1 {
		tanx, tany = -fy, fx
	}
	along := bx*tanx + by*tany
	if along < -TolEndpoints || along > f.hit.FaceLength+TolEndpoints {
		return -1, false
	}
	if !f.zOverlap(ball, t) {
		return -1, false
	}

	*coll = CollisionEvent{HitNormal: Vec3{fx, fy, 0}}
	bnv := f.fillContactMotion(ball, coll, t, contactAng)

	if math.Abs(bnv) <= ContactVel && d <= PhysTouch {
		coll.IsContact = true
		coll.OrgNormalVelocity = bnv
	} else if bnv > LowNormVel {
		// flipper is receding from the ball
		return -1, false
	}
	coll.HitDistance = d
	return t, true
}

// hitTestEnd searches the end cap circle.
func (f *Flipper) hitTestEnd(ball *Ball, dtime float64, coll *CollisionEvent) (float64, bool) {
	if f.Movement.AngleSpeed == 0 {
		return f.hitTestEndResting(ball, dtime, coll)
	}
	s := &f.Static
	base := s.Position
	r := ball.Radius
	vx, vy := ball.Velocity.X(), ball.Velocity.Y()
	reach := s.EndRadius + r

	var (
		bx, by     float64
		d          float64
		contactAng float64
	)
	rs := rootSearch{}
	for rs.k = 1; rs.k <= MaxIter; rs.k++ {
		contactAng = f.contactAngle(rs.t)
		ex, ey := rotate2D(0, -s.Length, math.Sin(contactAng), math.Cos(contactAng))

		bx = ball.Position.X() + vx*rs.t - (ex + base.X())
		by = ball.Position.Y() + vy*rs.t - (ey + base.Y())
		d = math.Sqrt(bx*bx+by*by) - reach

		if done, ok := rs.step(d, dtime, -(r + s.EndRadius)); done {
			if !ok {
				return -1, false
			}
			break
		}
	}
	if !rs.converged(d, dtime, r) {
		return -1, false
	}
	t := rs.t

	if !f.zOverlap(ball, t) {
		return -1, false
	}
	l := math.Sqrt(bx*bx + by*by)
	if l == 0 {
		return -1, false
	}

	*coll = CollisionEvent{HitNormal: Vec3{bx / l, by / l, 0}}
	bnv := f.fillContactMotion(ball, coll, t, contactAng)
	if bnv >= 0 {
		return -1, false
	}
	if math.Abs(bnv) <= ContactVel && d <= PhysTouch {
		coll.IsContact = true
		coll.OrgNormalVelocity = bnv
	}
	coll.HitDistance = d
	return t, true
}

// fillContactMotion sets the contact tangent and moment bit and returns the relative normal velocity.
func (f *Flipper) fillContactMotion(ball *Ball, coll *CollisionEvent, t, contactAng float64) float64 {
	s := &f.Static
	n := coll.HitNormal
	r := ball.Radius

	dx := ball.Position.X() + ball.Velocity.X()*t - r*n.X() - s.Position.X()
	dy := ball.Position.Y() + ball.Velocity.Y()*t - r*n.Y() - s.Position.Y()
	distance := math.Sqrt(dx*dx + dy*dy)

	speed := f.Movement.AngleSpeed
	if (contactAng >= s.AngleMax && speed > 0) || (contactAng <= s.AngleMin && speed < 0) {
		// stopped at a limit
		speed = 0
	}

	coll.MomentBit = distance == 0
	if distance > 0 {
		coll.HitVel = Vec3{-dy / distance, dx / distance, 0}
	}

	dvx := ball.Velocity.X() - coll.HitVel.X()*speed*distance
	dvy := ball.Velocity.Y() - coll.HitVel.Y()*speed*distance
	return dvx*n.X() + dvy*n.Y()
}

// circleHit is the analytic impact of a ball with a circle that does not move during the step.
type circleHit struct {
	t         float64
	normal    Vec3
	distance  float64 // gap at the start of the step, negative when penetrating
	normalVel float64
	contact   bool
}

func fixedCircleHit(ball *Ball, cx, cy, radius, dtime float64) (circleHit, bool) {
	dx := ball.Position.X() - cx
	dy := ball.Position.Y() - cy
	vx, vy := ball.Velocity.X(), ball.Velocity.Y()
	target := radius + ball.Radius

	bcddsq := dx*dx + dy*dy
	bcdd := math.Sqrt(bcddsq)
	if bcdd <= 1e-6 {
		return circleHit{}, false
	}

	b := dx*vx + dy*vy
	bnv := b / bcdd
	if bnv > LowNormVel {
		return circleHit{}, false
	}
	bnd := bcdd - target

	hittime := 0.0
	isContact := false
	if bnd < PhysTouch {
		if bnd < -ball.Radius {
			return circleHit{}, false
		}
		if math.Abs(bnv) <= ContactVel {
			isContact = true
		} else {
			hittime = math.Max(0, -bnd/bnv)
		}
	} else {
		a := vx*vx + vy*vy
		if a < 1e-8 {
			return circleHit{}, false
		}
		t1, t2, ok := solveQuadratic(a, 2*b, bcddsq-target*target)
		if !ok {
			return circleHit{}, false
		}
		if t1*t2 < 0 {
			hittime = math.Max(t1, t2)
		} else {
			hittime = math.Min(t1, t2)
		}
	}
	if !isFinite(hittime) || hittime < 0 || hittime > dtime {
		return circleHit{}, false
	}

	hx := dx + vx*hittime
	hy := dy + vy*hittime
	l := math.Sqrt(hx*hx + hy*hy)
	if l == 0 {
		return circleHit{}, false
	}
	return circleHit{
		t:         hittime,
		normal:    Vec3{hx / l, hy / l, 0},
		distance:  bnd,
		normalVel: bnv,
		contact:   isContact,
	}, true
}

// hitTestBase tests the pivot circle analytically.
func (f *Flipper) hitTestBase(ball *Ball, dtime float64, coll *CollisionEvent) (float64, bool) {
	s := &f.Static
	h, ok := fixedCircleHit(ball, s.Position.X(), s.Position.Y(), s.BaseRadius, dtime)
	if !ok || !f.zOverlap(ball, h.t) {
		return -1, false
	}

	*coll = CollisionEvent{
		HitNormal:   h.normal,
		HitDistance: h.distance,
		IsContact:   h.contact,
	}
	if h.contact {
		coll.OrgNormalVelocity = h.normalVel
	}
	return h.t, true
}

// hitTestEndResting tests the end cap of a flipper that is not rotating as a fixed circle.
func (f *Flipper) hitTestEndResting(ball *Ball, dtime float64, coll *CollisionEvent) (float64, bool) {
	s := &f.Static
	angle := f.Movement.Angle
	ex, ey := rotate2D(0, -s.Length, math.Sin(angle), math.Cos(angle))

	h, ok := fixedCircleHit(ball, s.Position.X()+ex, s.Position.Y()+ey, s.EndRadius, dtime)
	if !ok || !f.zOverlap(ball, h.t) {
		return -1, false
	}

	*coll = CollisionEvent{HitNormal: h.normal}
	bnv := f.fillContactMotion(ball, coll, h.t, angle)
	if bnv >= 0 {
		return -1, false
	}
	coll.IsContact = h.contact
	if h.contact {
		coll.OrgNormalVelocity = bnv
	}
	coll.HitDistance = h.distance
	return h.t, true
}

func solveQuadratic(a, b, c float64) (float64, float64, bool) {
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, 0, false
	}
	sq := math.Sqrt(disc)
	inv := 1 / (2 * a)
	return (-b + sq) * inv, (-b - sq) * inv, true
}
