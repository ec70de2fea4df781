package flipper

import (
	"math"
	"testing"
)

func TestTricksStateMachine(t *testing.T) {
	cfg := leftConfig()
	tc := DefaultTricks()
	cfg.Tricks = &tc
	f := New(1, cfg, 1)
	s := &f.Static
	nominal := s.NominalParams()

	// resting at start
	f.UpdateVelocity(0)
	p := f.Params()
	if f.Tricks.State != TricksAtStart {
		t.Fatalf("state = %v, want at start", f.Tricks.State)
	}
	if p.RampUp != tc.SOSRampUp || p.ElasticityMul != tc.SOSElasticityMul {
		t.Errorf("start params = %+v", p)
	}

	// moving while energized
	f.SetSolenoid(true, 1)
	f.Movement.Angle = radians(60)
	p = f.Tricks.Apply(s, &f.Movement, true, 10, nominal)
	if f.Tricks.State != TricksMoving || p != nominal {
		t.Errorf("moving: state=%v params=%+v", f.Tricks.State, p)
	}

	// arrived at EOS
	f.Movement.Angle = s.AngleEnd
	p = f.Tricks.Apply(s, &f.Movement, true, 40, nominal)
	if f.Tricks.State != TricksAtEnd {
		t.Fatalf("state = %v, want at end", f.Tricks.State)
	}
	if p.TorqueDamping != tc.EOSTorque || p.RampUp != tc.EOSRampUp {
		t.Errorf("end params = %+v", p)
	}
	if math.Abs(p.TorqueDampingAngle-radians(tc.EOSTorqueAngle)) > 1e-12 {
		t.Errorf("end damping angle = %v", p.TorqueDampingAngle)
	}
	if f.Tricks.EOSReachedMs != 40 {
		t.Errorf("EOS reached at %d, want 40", f.Tricks.EOSReachedMs)
	}

	// still held: the catch time is kept
	f.Tricks.Apply(s, &f.Movement, true, 90, nominal)
	if f.Tricks.EOSReachedMs != 40 {
		t.Errorf("EOS time moved to %d", f.Tricks.EOSReachedMs)
	}

	// back at rest
	f.Movement.Angle = s.AngleStart
	f.Tricks.Apply(s, &f.Movement, false, 200, nominal)
	if f.Tricks.State != TricksAtStart || f.Tricks.EOSReachedMs != -1 {
		t.Errorf("rest: state=%v eos=%d", f.Tricks.State, f.Tricks.EOSReachedMs)
	}
}

func TestTricksLeaveNominalPathUntouched(t *testing.T) {
	plain := restingFlipper(leftConfig())
	plain.SetSolenoid(true, 1)
	stepFlipper(plain, 20, 1)

	if p := plain.Params(); p != plain.Static.NominalParams() {
		t.Errorf("flipper without tricks used %+v", p)
	}
}

func TestLiveCatch(t *testing.T) {
	s := NewStatic(leftConfig())
	tr := NewTricks(DefaultTricks())
	tr.EOSReachedMs = 100

	// early in the window the ball is killed
	ball := NewBall(1, Vec3{60, -40, 25}, 25, 1)
	ball.Velocity = Vec3{3, -9, 0}
	ball.AngularMomentum = Vec3{0, 0, 4}
	if !tr.liveCatch(&s, ball, 10, 104) {
		t.Fatalf("expected a perfect catch")
	}
	if ball.Velocity.X() != 0 || ball.Velocity.Y() != 0 {
		t.Errorf("perfect catch velocity = %v, want zero", ball.Velocity)
	}
	if ball.AngularMomentum.Len() != 0 {
		t.Errorf("spin not cleared: %v", ball.AngularMomentum)
	}

	// late in the window it bounces a little
	ball.Velocity = Vec3{3, -9, 0}
	if !tr.liveCatch(&s, ball, 10, 112) {
		t.Fatalf("expected a partial catch")
	}
	if want := 4 * 32 / 16.0; math.Abs(ball.Velocity.Y()-want) > 1e-9 {
		t.Errorf("partial catch vy = %v, want %v", ball.Velocity.Y(), want)
	}

	// outside the window nothing happens
	ball.Velocity = Vec3{3, -9, 0}
	if tr.liveCatch(&s, ball, 10, 130) {
		t.Errorf("catch accepted after the window")
	}
	// too slow
	if tr.liveCatch(&s, ball, 3, 104) {
		t.Errorf("catch accepted for a slow hit")
	}
	// too close to the pivot
	ball.Position = Vec3{10, -40, 25}
	if tr.liveCatch(&s, ball, 10, 104) {
		t.Errorf("catch accepted near the pivot")
	}
}

func TestCurveLookup(t *testing.T) {
	c := NewCurve([]Point{{1, 10}, {0, 0}, {2, 10}, {3, 4}})

	tests := []struct {
		x, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.5, 5},
		{1, 10},
		{1.5, 10},
		{2.5, 7},
		{3, 4},
		{9, 4},
	}
	for _, tt := range tests {
		if got := c.At(tt.x); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("At(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}

	if got := Curve(nil).At(0.5); got != 0 {
		t.Errorf("empty curve = %v, want 0", got)
	}
}

func correctedFlipper() (*Flipper, *Ball) {
	cfg := leftConfig()
	cc := DefaultCorrection()
	cfg.Correction = &cc
	f := restingFlipper(cfg)
	f.SetSolenoid(true, 0)

	ball := NewBall(3, Vec3{65, -40, 25}, 25, 1)
	f.track(ball)
	return f, ball
}

func TestCorrectionOnRelease(t *testing.T) {
	f, ball := correctedFlipper()
	if f.Correction.PartialFlip != 1 {
		t.Fatalf("partial flip from rest = %v, want 1", f.Correction.PartialFlip)
	}

	// still touching: nothing yet
	ball.Velocity = Vec3{0, -20, 0}
	f.ReleaseBalls([]*Ball{ball}, 10)
	if ball.Velocity.X() != 0 || ball.Velocity.Y() != -20 {
		t.Fatalf("ball corrected while near the flipper: %v", ball.Velocity)
	}

	ball.Position = Vec3{65, -300, 25}
	f.ReleaseBalls([]*Ball{ball}, 30)

	// ratio 0.5: velocity 1.0125, polarity -5.25
	if math.Abs(ball.Velocity.Y()+20.25) > 1e-9 {
		t.Errorf("vy = %v, want -20.25", ball.Velocity.Y())
	}
	if math.Abs(ball.Velocity.X()+5.25) > 1e-9 {
		t.Errorf("vx = %v, want -5.25", ball.Velocity.X())
	}
	if len(f.Correction.tracked) != 0 {
		t.Errorf("released ball still tracked")
	}
}

func TestCorrectionWithSingleCurve(t *testing.T) {
	tests := []struct {
		name     string
		velocity bool
		polarity bool
		want     Vec3
	}{
		{"polarity only", false, true, Vec3{-5.25, -40, 0}},
		{"velocity only", true, false, Vec3{0, -40.5, 0}},
		{"no curves", false, false, Vec3{0, -40, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ball := correctedFlipper()
			if !tt.velocity {
				f.Correction.Velocity = nil
			}
			if !tt.polarity {
				f.Correction.Polarity = nil
			}
			ball.Position = Vec3{65, -300, 25}
			ball.Velocity = Vec3{0, -40, 0}
			f.ReleaseBalls([]*Ball{ball}, 30)

			if math.Abs(ball.Velocity.X()-tt.want.X()) > 1e-9 || math.Abs(ball.Velocity.Y()-tt.want.Y()) > 1e-9 {
				t.Errorf("velocity = %v, want %v", ball.Velocity, tt.want)
			}
		})
	}
}

func TestCorrectionSkipped(t *testing.T) {
	tests := []struct {
		name string
		vel  Vec3
		now  int64
	}{
		{"window expired", Vec3{0, -20, 0}, 200},
		{"falling ball", Vec3{0, 5, 0}, 30},
		{"slow ascent", Vec3{0, -3, 0}, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ball := correctedFlipper()
			ball.Position = Vec3{65, -300, 25}
			ball.Velocity = tt.vel
			f.ReleaseBalls([]*Ball{ball}, tt.now)
			if ball.Velocity != tt.vel {
				t.Errorf("velocity changed to %v", ball.Velocity)
			}
		})
	}
}

func TestPartialFlipMidStroke(t *testing.T) {
	cfg := leftConfig()
	cc := DefaultCorrection()
	cfg.Correction = &cc
	f := New(1, cfg, 1)
	f.Movement.Angle = radians(60)
	f.SetSolenoid(true, 0)

	if math.Abs(f.Correction.PartialFlip-0.5) > 1e-9 {
		t.Errorf("partial flip = %v, want 0.5", f.Correction.PartialFlip)
	}
}
