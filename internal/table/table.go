// Package table runs the fixed-step physics loop that drives flippers and balls together.
package table

import (
	"fmt"
	"math"

	"github.com/flipperlab/backend/internal/flipper"
)

const (
	// GravityConst is the full gravity pull in VP units per (10ms)^2.
	GravityConst = 1.81751

	// StaticTime is the minimum sub-step once the loop stalls on tiny hit times.
	StaticTime = 0.005
	staticCnts = 10

	DefaultBallRadius = 25.0
	DefaultBallMass   = 1.0
)

// EventDrain is raised when a ball leaves the table bounds. FlipperID is -1.
const EventDrain flipper.EventType = "drain"

// Bounds is the playfield rectangle; balls leaving it are drained.
type Bounds struct {
	MinX float64 `json:"min_x" msgpack:"min_x"`
	MinY float64 `json:"min_y" msgpack:"min_y"`
	MaxX float64 `json:"max_x" msgpack:"max_x"`
	MaxY float64 `json:"max_y" msgpack:"max_y"`
}

var DefaultBounds = Bounds{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 2000}

// Config describes a table. It is everything needed to rebuild an identical simulation.
type Config struct {
	SlopeDegrees float64          `json:"slope_degrees" msgpack:"slope_degrees"`
	Seed         uint64           `json:"seed" msgpack:"seed"`
	BallRadius   float64          `json:"ball_radius" msgpack:"ball_radius"`
	BallMass     float64          `json:"ball_mass" msgpack:"ball_mass"`
	Bounds       Bounds           `json:"bounds" msgpack:"bounds"`
	Flippers     []flipper.Config `json:"flippers" msgpack:"flippers"`
}

type hitCandidate struct {
	ok      bool
	flipper *flipper.Flipper
	coll    flipper.CollisionEvent
}

type contact struct {
	flipper *flipper.Flipper
	ball    *flipper.Ball
	coll    flipper.CollisionEvent
}

// Table owns flippers and balls for one simulation. It is not safe for concurrent use.
type Table struct {
	Config   Config
	TimeMs   int64
	Gravity  flipper.Vec3
	Flippers []*flipper.Flipper
	Balls    []*flipper.Ball

	inputs     []Input
	events     []flipper.Event
	nextBallID int

	// scratch reused across steps
	best     []hitCandidate
	contacts []contact
}

// New builds a table at time zero with all flippers at rest.
func New(cfg Config) *Table {
	if cfg.BallRadius <= 0 {
		cfg.BallRadius = DefaultBallRadius
	}
	if cfg.BallMass <= 0 {
		cfg.BallMass = DefaultBallMass
	}
	if cfg.Bounds == (Bounds{}) {
		cfg.Bounds = DefaultBounds
	}

	t := &Table{
		Config:  cfg,
		Gravity: flipper.Vec3{0, GravityConst * math.Sin(cfg.SlopeDegrees*math.Pi/180), 0},
	}
	for i, fc := range cfg.Flippers {
		t.Flippers = append(t.Flippers, flipper.New(i, fc, cfg.Seed))
	}
	return t
}

// FlipperIndex returns the index of the named flipper or -1.
func (t *Table) FlipperIndex(name string) int {
	for i, f := range t.Flippers {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// SetSolenoid switches the main coil of flipper idx at the current time.
func (t *Table) SetSolenoid(idx int, on bool) error {
	return t.Apply(Input{Kind: InputSolenoid, Flipper: idx, On: on})
}

// SetHoldCoil switches the hold winding of flipper idx at the current time.
func (t *Table) SetHoldCoil(idx int, on bool) error {
	return t.Apply(Input{Kind: InputHold, Flipper: idx, On: on})
}

// AddBall places a new ball and returns it.
func (t *Table) AddBall(pos, vel flipper.Vec3) *flipper.Ball {
	id := t.nextBallID
	_ = t.Apply(Input{Kind: InputBall, Position: pos, Velocity: vel})
	return t.ball(id)
}

func (t *Table) ball(id int) *flipper.Ball {
	for _, b := range t.Balls {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// ActiveBalls counts balls still on the table.
func (t *Table) ActiveBalls() int {
	n := 0
	for _, b := range t.Balls {
		if b.Active {
			n++
		}
	}
	return n
}

// Run advances the table by ms physics steps.
func (t *Table) Run(ms int) {
	for i := 0; i < ms; i++ {
		t.Step()
	}
}

// Step advances the simulation by one fixed physics step.
func (t *Table) Step() {
	now := t.TimeMs

	for _, f := range t.Flippers {
		f.UpdateVelocity(now)
	}
	for _, b := range t.Balls {
		if b.Active {
			b.Velocity = b.Velocity.Add(t.Gravity.Mul(flipper.PhysFactor))
		}
	}

	if cap(t.best) < len(t.Balls) {
		t.best = make([]hitCandidate, len(t.Balls))
	}
	best := t.best[:len(t.Balls)]

	dtime := float64(flipper.PhysFactor)
	static := staticCnts
	for dtime > 0 {
		hittime := dtime
		t.contacts = t.contacts[:0]

		for i, b := range t.Balls {
			best[i] = hitCandidate{}
			if !b.Active {
				continue
			}
			limit := hittime
			for _, f := range t.Flippers {
				var coll flipper.CollisionEvent
				ht, ok := f.HitTest(b, limit, &coll)
				if !ok {
					continue
				}
				if coll.IsContact {
					t.contacts = append(t.contacts, contact{flipper: f, ball: b, coll: coll})
					continue
				}
				if ht <= limit {
					limit = ht
					best[i] = hitCandidate{ok: true, flipper: f, coll: coll}
				}
			}
			if best[i].ok && best[i].coll.HitTime < hittime {
				hittime = best[i].coll.HitTime
			}
		}

		// don't let the loop crawl forward on zero-length steps
		if hittime < StaticTime {
			static--
			if static < 0 {
				static = 0
				hittime = StaticTime
			}
		}

		for _, f := range t.Flippers {
			f.UpdateDisplacement(hittime, now)
		}
		for _, b := range t.Balls {
			if b.Active {
				b.Position = b.Position.Add(b.Velocity.Mul(hittime))
			}
		}

		for i, b := range t.Balls {
			if best[i].ok && best[i].coll.HitTime <= hittime {
				best[i].flipper.Collide(b, &best[i].coll, now)
			}
		}
		for i := range t.contacts {
			c := &t.contacts[i]
			c.flipper.Contact(c.ball, &c.coll, hittime, t.Gravity)
		}

		dtime -= hittime
	}

	for _, f := range t.Flippers {
		f.ReleaseBalls(t.Balls, now)
		t.events = append(t.events, f.DrainEvents()...)
	}
	t.drain(now)

	t.TimeMs++
}

func (t *Table) drain(now int64) {
	bd := t.Config.Bounds
	for _, b := range t.Balls {
		if !b.Active {
			continue
		}
		x, y := b.Position.X(), b.Position.Y()
		if x < bd.MinX-b.Radius || x > bd.MaxX+b.Radius || y < bd.MinY-b.Radius || y > bd.MaxY+b.Radius {
			b.Active = false
			t.events = append(t.events, flipper.Event{Type: EventDrain, FlipperID: -1, BallID: b.ID, TimeMs: now})
		}
	}
}

// DrainEvents returns the events raised since the last call.
func (t *Table) DrainEvents() []flipper.Event {
	out := t.events
	t.events = nil
	return out
}

// Inputs returns every input applied so far, in order.
func (t *Table) Inputs() []Input {
	out := make([]Input, len(t.inputs))
	copy(out, t.inputs)
	return out
}

func (t *Table) flipperAt(idx int) (*flipper.Flipper, error) {
	if idx < 0 || idx >= len(t.Flippers) {
		return nil, fmt.Errorf("flipper %d: %w", idx, ErrNoSuchFlipper)
	}
	return t.Flippers[idx], nil
}
