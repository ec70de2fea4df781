package presets

import "github.com/flipperlab/backend/internal/flipper"

// Stock playfield flipper pair, positioned for a 1000x2000 table.
const (
	stockLeftX  = 279.5
	stockRightX = 595.5
	stockY      = 1655
)

func stockConfig(name string, x, start, end float64) flipper.Config {
	return flipper.Config{
		Name:               name,
		Position:           flipper.Vec3{x, stockY, 0},
		Height:             50,
		BaseRadius:         21.5,
		EndRadius:          13,
		Length:             130,
		StartAngle:         start,
		EndAngle:           end,
		Mass:               1,
		Strength:           2200,
		ReturnRatio:        0.055,
		RampUp:             3,
		TorqueDamping:      0.75,
		TorqueDampingAngle: 6,
		Elasticity:         0.8,
		ElasticityFalloff:  0.43,
		Friction:           0.6,
	}
}

// DefaultLeft is the stock single-wound left flipper.
func DefaultLeft() Preset {
	return Preset{
		Name:        "left",
		Side:        SideLeft,
		Description: "Stock left flipper",
		Config:      stockConfig("left", stockLeftX, 121, 70),
	}
}

// DefaultRight is the mirror image of DefaultLeft.
func DefaultRight() Preset {
	return Preset{
		Name:        "right",
		Side:        SideRight,
		Description: "Stock right flipper",
		Config:      stockConfig("right", stockRightX, -121, -70),
	}
}

func withTricks(p Preset) Preset {
	tricks := flipper.DefaultTricks()
	corr := flipper.DefaultCorrection()
	p.Name += "-tricks"
	p.Config.Name = p.Name
	p.Description += " with live catch and release correction"
	p.Config.Tricks = &tricks
	p.Config.Correction = &corr
	return p
}

func withDualWound(p Preset) Preset {
	p.Name += "-dual"
	p.Config.Name = p.Name
	p.Description += ", dual-wound coil"
	p.Config.DualWound = true
	p.Config.TorqueDamping = 0.35
	return p
}

// Defaults returns the built-in presets ordered by name.
func Defaults() []Preset {
	left, right := DefaultLeft(), DefaultRight()
	return []Preset{
		left,
		withDualWound(left),
		withTricks(left),
		right,
		withDualWound(right),
		withTricks(right),
	}
}

// Builtin looks up a built-in preset by name.
func Builtin(name string) (Preset, bool) {
	for _, p := range Defaults() {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
