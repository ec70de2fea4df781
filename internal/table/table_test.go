package table

import (
	"errors"
	"math"
	"testing"

	"github.com/flipperlab/backend/internal/flipper"
)

func leftFlipper() flipper.Config {
	return flipper.Config{
		Name:               "left",
		Height:             50,
		BaseRadius:         21.5,
		EndRadius:          13,
		Length:             130,
		StartAngle:         90,
		EndAngle:           30,
		Mass:               1,
		Strength:           2200,
		ReturnRatio:        0.058,
		RampUp:             3,
		TorqueDamping:      0.75,
		TorqueDampingAngle: 6,
		Elasticity:         0.8,
		ElasticityFalloff:  0.43,
		Friction:           0.6,
	}
}

func rightFlipper() flipper.Config {
	cfg := leftFlipper()
	cfg.Name = "right"
	cfg.StartAngle = -cfg.StartAngle
	cfg.EndAngle = -cfg.EndAngle
	return cfg
}

// Helper to build a gravity-free table around a flipper pivoting at the origin.
func newTestTable(slope float64, flippers ...flipper.Config) *Table {
	return New(Config{
		SlopeDegrees: slope,
		Seed:         42,
		Bounds:       Bounds{MinX: -1000, MinY: -1000, MaxX: 1000, MaxY: 1000},
		Flippers:     flippers,
	})
}

func countEvents(events []flipper.Event, types ...flipper.EventType) int {
	n := 0
	for _, ev := range events {
		for _, typ := range types {
			if ev.Type == typ {
				n++
			}
		}
	}
	return n
}

// signedDistance is the distance from p to the flipper outline, negative inside.
func signedDistance(f *flipper.Flipper, p flipper.Vec3) float64 {
	s := f.Static
	tip := s.EndCenter(f.Movement.Angle)
	ux := (tip.X() - s.Position.X()) / s.Length
	uy := (tip.Y() - s.Position.Y()) / s.Length
	dx := p.X() - s.Position.X()
	dy := p.Y() - s.Position.Y()

	// local frame with the arm along +y
	y := dx*ux + dy*uy
	x := math.Abs(dx*uy - dy*ux)

	b := (s.BaseRadius - s.EndRadius) / s.Length
	a := math.Sqrt(1 - b*b)
	k := -b*x + a*y
	switch {
	case k < 0:
		return math.Hypot(x, y) - s.BaseRadius
	case k > a*s.Length:
		return math.Hypot(x, y-s.Length) - s.EndRadius
	default:
		return a*x + b*y - s.BaseRadius
	}
}

func TestDeadFlipperFallingBall(t *testing.T) {
	tbl := newTestTable(0, leftFlipper())
	ball := tbl.AddBall(flipper.Vec3{65, -60, 25}, flipper.Vec3{0, 5, 0})

	tbl.Run(200)
	events := tbl.DrainEvents()

	if n := countEvents(events, flipper.EventHit, flipper.EventCollide); n != 1 {
		t.Fatalf("got %d hit/collide events, want 1: %+v", n, events)
	}
	var speed float64
	for _, ev := range events {
		if ev.Type == flipper.EventCollide {
			speed = ev.Speed
		}
	}

	// upper face normal at rest
	fa := math.Asin(8.5 / 130)
	n := flipper.Vec3{math.Sin(fa), -math.Cos(fa), 0}
	want := flipper.ElasticityWithFalloff(0.8, 0.43, speed) * speed
	if got := ball.Velocity.Dot(n); math.Abs(got-want) > 0.02 {
		t.Errorf("rebound normal speed = %v, want %v", got, want)
	}
	if ball.Velocity.Y() >= 0 {
		t.Errorf("ball still falling: %v", ball.Velocity)
	}

	f := tbl.Flippers[0]
	if f.Movement.Angle != f.Static.AngleStart {
		t.Errorf("flipper angle = %v, want %v", f.Movement.Angle, f.Static.AngleStart)
	}
}

func TestFiredFlipperLaunchesBall(t *testing.T) {
	launch := func(strength float64) (reachedMs int64, speed float64) {
		cfg := leftFlipper()
		cfg.Strength = strength
		tbl := newTestTable(0, cfg)
		ball := tbl.AddBall(flipper.Vec3{101.6, -43, 25}, flipper.Vec3{})
		if err := tbl.SetSolenoid(0, true); err != nil {
			t.Fatalf("SetSolenoid: %v", err)
		}

		f := tbl.Flippers[0]
		reachedMs = -1
		for i := 0; i < 150; i++ {
			tbl.Step()
			if reachedMs < 0 && f.Movement.Angle == f.Static.AngleEnd {
				reachedMs = tbl.TimeMs
			}
		}
		if ball.Velocity.Y() >= 0 {
			t.Errorf("strength %v: ball not launched upwards: %v", strength, ball.Velocity)
		}
		return reachedMs, ball.Velocity.Len()
	}

	weakMs, weak := launch(2200)
	strongMs, strong := launch(3300)

	if weakMs < 0 || weakMs > 100 {
		t.Errorf("flipper reached end after %d ms", weakMs)
	}
	if strongMs < 0 || strongMs > weakMs {
		t.Errorf("stronger flipper reached end after %d ms, weaker after %d ms", strongMs, weakMs)
	}
	if weak < 10 {
		t.Errorf("launch speed %v is too low", weak)
	}
	if strong <= weak {
		t.Errorf("launch speed with strength 3300 = %v, not above %v", strong, weak)
	}
}

func TestEndOfStrokeDamping(t *testing.T) {
	tbl := newTestTable(0, leftFlipper())
	f := tbl.Flippers[0]
	end := f.Static.AngleEnd

	if err := tbl.SetSolenoid(0, true); err != nil {
		t.Fatal(err)
	}

	arrivals := 0
	atEnd := false
	excursion, prevExcursion := 0.0, math.Inf(1)
	for i := 0; i < 300; i++ {
		tbl.Step()
		a := f.Movement.Angle
		if a == end {
			if !atEnd && arrivals > 0 {
				if excursion > prevExcursion {
					t.Errorf("rebound %d went %v rad past the previous %v", arrivals, excursion, prevExcursion)
				}
				prevExcursion = excursion
			}
			if !atEnd {
				arrivals++
				excursion = 0
			}
			atEnd = true
			continue
		}
		atEnd = false
		if arrivals > 0 {
			excursion = math.Max(excursion, math.Abs(a-end))
		}
	}

	if arrivals == 0 || arrivals > 8 {
		t.Errorf("flipper arrived at its end %d times", arrivals)
	}
	if f.Movement.Angle != end || f.Movement.AngleSpeed != 0 {
		t.Errorf("held flipper not at rest: angle=%v speed=%v", f.Movement.Angle, f.Movement.AngleSpeed)
	}
	if n := countEvents(tbl.DrainEvents(), flipper.EventLimitEOS); n != 1 {
		t.Errorf("got %d EOS events, want 1", n)
	}
}

func TestMirroredTablesStayMirrored(t *testing.T) {
	left := newTestTable(6.5, leftFlipper())
	right := newTestTable(6.5, rightFlipper())
	lb := left.AddBall(flipper.Vec3{80, -120, 25}, flipper.Vec3{-1, 3, 0})
	rb := right.AddBall(flipper.Vec3{-80, -120, 25}, flipper.Vec3{1, 3, 0})

	for i := 0; i < 400; i++ {
		if i == 25 {
			_ = left.SetSolenoid(0, true)
			_ = right.SetSolenoid(0, true)
		}
		if i == 250 {
			_ = left.SetSolenoid(0, false)
			_ = right.SetSolenoid(0, false)
		}
		left.Step()
		right.Step()

		if math.Abs(lb.Position.X()+rb.Position.X()) > 1e-6 || math.Abs(lb.Position.Y()-rb.Position.Y()) > 1e-6 {
			t.Fatalf("step %d: positions not mirrored: %v vs %v", i, lb.Position, rb.Position)
		}
	}

	if math.Abs(lb.Velocity.X()+rb.Velocity.X()) > 1e-6 || math.Abs(lb.Velocity.Y()-rb.Velocity.Y()) > 1e-6 {
		t.Errorf("velocities not mirrored: %v vs %v", lb.Velocity, rb.Velocity)
	}
	if math.Abs(left.Flippers[0].Movement.Angle+right.Flippers[0].Movement.Angle) > 1e-9 {
		t.Errorf("flipper angles not mirrored")
	}
	if countEvents(left.DrainEvents(), flipper.EventHit, flipper.EventCollide) !=
		countEvents(right.DrainEvents(), flipper.EventHit, flipper.EventCollide) {
		t.Errorf("event counts differ")
	}
}

func TestNoDeepPenetration(t *testing.T) {
	for _, x := range []float64{40, 70, 100, 125} {
		for _, fireAt := range []int{0, 15, 30, 60} {
			tbl := newTestTable(6.5, leftFlipper())
			ball := tbl.AddBall(flipper.Vec3{x, -150, 25}, flipper.Vec3{0, 8, 0})
			f := tbl.Flippers[0]
			limit := -(ball.Radius + f.Static.EndRadius)

			for i := 0; i < 400; i++ {
				if i == fireAt {
					_ = tbl.SetSolenoid(0, true)
				}
				if i == 250 {
					_ = tbl.SetSolenoid(0, false)
				}
				tbl.Step()
				if !ball.Active {
					break
				}
				if d := signedDistance(f, ball.Position) - ball.Radius; d < limit {
					t.Fatalf("x=%v fire=%d step %d: penetration %v beyond %v", x, fireAt, i, d, limit)
				}
			}
		}
	}
}

func TestAngleStaysInRange(t *testing.T) {
	tbl := newTestTable(6.5, leftFlipper(), rightFlipper())
	on := false
	for i := 0; i < 2000; i++ {
		if i%53 == 0 {
			on = !on
			_ = tbl.SetSolenoid(0, on)
			_ = tbl.SetSolenoid(1, !on)
		}
		tbl.Step()
		for _, f := range tbl.Flippers {
			if a := f.Movement.Angle; a < f.Static.AngleMin || a > f.Static.AngleMax {
				t.Fatalf("step %d: %s angle %v out of range", i, f.Name, a)
			}
		}
	}
}

func TestStepIsDeterministic(t *testing.T) {
	run := func() string {
		l, r := leftFlipper(), rightFlipper()
		l.Position = flipper.Vec3{-150, 0, 0}
		r.Position = flipper.Vec3{150, 0, 0}
		l.Scatter, r.Scatter = 2, 2
		tbl := newTestTable(6.5, l, r)
		tbl.AddBall(flipper.Vec3{-80, -200, 25}, flipper.Vec3{0.5, 2, 0})
		tbl.AddBall(flipper.Vec3{70, -260, 25}, flipper.Vec3{-0.3, 1, 0})
		tbl.AddBall(flipper.Vec3{0, -300, 25}, flipper.Vec3{0, 0, 0})

		for i := 0; i < 800; i++ {
			switch i {
			case 120, 400:
				_ = tbl.SetSolenoid(0, true)
				_ = tbl.SetSolenoid(1, true)
			case 220, 520:
				_ = tbl.SetSolenoid(0, false)
				_ = tbl.SetSolenoid(1, false)
			}
			tbl.Step()
		}
		digest, err := tbl.Snapshot().Digest()
		if err != nil {
			t.Fatalf("Digest: %v", err)
		}
		return digest
	}

	first, second := run(), run()
	if first != second {
		t.Errorf("digests differ: %s vs %s", first, second)
	}
}

func TestDrainDeactivatesBall(t *testing.T) {
	tbl := newTestTable(0)
	ball := tbl.AddBall(flipper.Vec3{0, 990, 25}, flipper.Vec3{0, 50, 0})

	tbl.Run(10)

	if ball.Active {
		t.Fatalf("ball at %v should have drained", ball.Position)
	}
	events := tbl.DrainEvents()
	if len(events) != 1 || events[0].Type != EventDrain || events[0].BallID != ball.ID {
		t.Errorf("events = %+v, want one drain event", events)
	}
	if tbl.ActiveBalls() != 0 {
		t.Errorf("active balls = %d", tbl.ActiveBalls())
	}
}

func TestApplyValidatesInput(t *testing.T) {
	tbl := newTestTable(0, leftFlipper())

	if err := tbl.SetSolenoid(3, true); !errors.Is(err, ErrNoSuchFlipper) {
		t.Errorf("err = %v, want ErrNoSuchFlipper", err)
	}
	if err := tbl.Apply(Input{Kind: "nudge"}); !errors.Is(err, ErrUnknownInput) {
		t.Errorf("err = %v, want ErrUnknownInput", err)
	}

	tbl.Run(5)
	if err := tbl.SetSolenoid(0, true); err != nil {
		t.Fatal(err)
	}
	inputs := tbl.Inputs()
	if len(inputs) != 1 || inputs[0].TimeMs != 5 || inputs[0].Kind != InputSolenoid {
		t.Errorf("inputs = %+v", inputs)
	}
	if tbl.FlipperIndex("left") != 0 || tbl.FlipperIndex("nope") != -1 {
		t.Errorf("FlipperIndex lookup broken")
	}
}
