package presets

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/flipperlab/backend/internal/flipper"
	"github.com/flipperlab/backend/internal/table"
)

func TestDefaultsAreMirrored(t *testing.T) {
	l, r := DefaultLeft(), DefaultRight()
	if l.Config.StartAngle != -r.Config.StartAngle || l.Config.EndAngle != -r.Config.EndAngle {
		t.Errorf("angles not mirrored: left %v/%v right %v/%v",
			l.Config.StartAngle, l.Config.EndAngle, r.Config.StartAngle, r.Config.EndAngle)
	}

	ls, rs := flipper.NewStatic(l.Config), flipper.NewStatic(r.Config)
	if ls.Handedness != 1 || rs.Handedness != -1 {
		t.Errorf("handedness left=%v right=%v", ls.Handedness, rs.Handedness)
	}
	// tips point towards the table center line
	lt, rt := ls.EndCenter(ls.AngleStart), rs.EndCenter(rs.AngleStart)
	if lt.X() <= ls.Position.X() || rt.X() >= rs.Position.X() {
		t.Errorf("tips point outwards: left %v right %v", lt, rt)
	}
}

func TestDefaultsValidate(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Defaults() {
		p := p
		if err := p.Validate(); err != nil {
			t.Errorf("%s: %v", p.Name, err)
		}
		if seen[p.Name] {
			t.Errorf("duplicate built-in %s", p.Name)
		}
		seen[p.Name] = true
		if p.Config.Name != p.Name {
			t.Errorf("%s: config name %q", p.Name, p.Config.Name)
		}
	}
	if _, ok := Builtin("left-tricks"); !ok {
		t.Errorf("left-tricks missing")
	}
}

func TestValidateRejects(t *testing.T) {
	base := DefaultLeft()
	cases := []struct {
		name   string
		mutate func(p *Preset)
		want   error
	}{
		{"bad name", func(p *Preset) { p.Name = "Left Flipper" }, ErrInvalidName},
		{"reserved name", func(p *Preset) { p.Name = "_all" }, ErrInvalidName},
		{"bad side", func(p *Preset) { p.Side = "middle" }, ErrInvalid},
		{"zero length", func(p *Preset) { p.Config.Length = 0 }, ErrInvalid},
		{"no stroke", func(p *Preset) { p.Config.EndAngle = p.Config.StartAngle }, ErrInvalid},
	}
	for _, c := range cases {
		p := base
		c.mutate(&p)
		if err := p.Validate(); !errors.Is(err, c.want) {
			t.Errorf("%s: got %v, want %v", c.name, err, c.want)
		}
	}
}

func TestStoreFallsBackToBuiltins(t *testing.T) {
	s := NewStore(nil, nil, 60)
	ctx := context.Background()

	p, err := s.Get(ctx, "right")
	if err != nil {
		t.Fatalf("Get(right): %v", err)
	}
	if p.Side != SideRight {
		t.Errorf("side = %s", p.Side)
	}

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(nope) = %v, want ErrNotFound", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != len(Defaults()) {
		t.Errorf("list has %d presets, want %d", len(list), len(Defaults()))
	}

	if err := s.Upsert(ctx, &Preset{Name: "x", Side: SideLeft, Config: DefaultLeft().Config}); err == nil {
		t.Errorf("upsert without a database succeeded")
	}
}

func TestStockPairFlipsSymmetrically(t *testing.T) {
	tb := table.New(table.Config{
		SlopeDegrees: 6.5,
		Flippers:     []flipper.Config{DefaultLeft().Config, DefaultRight().Config},
	})
	if err := tb.SetSolenoid(0, true); err != nil {
		t.Fatal(err)
	}
	if err := tb.SetSolenoid(1, true); err != nil {
		t.Fatal(err)
	}
	tb.Run(200)

	l, r := tb.Flippers[0], tb.Flippers[1]
	if math.Abs(l.Movement.Angle+r.Movement.Angle) > 1e-9 {
		t.Errorf("angles not mirrored: %v vs %v", l.Movement.Angle, r.Movement.Angle)
	}
	if math.Abs(l.Movement.Angle-l.Static.AngleEnd) > 0.02 {
		t.Errorf("left flipper at %v rad after 200ms, end is %v", l.Movement.Angle, l.Static.AngleEnd)
	}
}
