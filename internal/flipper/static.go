package flipper

import "math"

// CoilModel selects how coil signals map to torque.
type CoilModel uint8

const (
	// SingleWound drives the flipper from one coil signal with simulated EOS weakening.
	SingleWound CoilModel = iota
	// DualWound has a power winding and a weaker hold winding with separate signals.
	DualWound
)

// Config is the authoring-side flipper description. Angles are in degrees.
type Config struct {
	Name               string            `json:"name" msgpack:"name"`
	Position           Vec3              `json:"position" msgpack:"position"` // base center, Z is the surface height
	Height             float64           `json:"height" msgpack:"height"`
	BaseRadius         float64           `json:"base_radius" msgpack:"base_radius"`
	EndRadius          float64           `json:"end_radius" msgpack:"end_radius"`
	Length             float64           `json:"length" msgpack:"length"`
	StartAngle         float64           `json:"start_angle" msgpack:"start_angle"`
	EndAngle           float64           `json:"end_angle" msgpack:"end_angle"`
	Mass               float64           `json:"mass" msgpack:"mass"`
	Strength           float64           `json:"strength" msgpack:"strength"`
	ReturnRatio        float64           `json:"return_ratio" msgpack:"return_ratio"`
	RampUp             float64           `json:"ramp_up" msgpack:"ramp_up"`
	TorqueDamping      float64           `json:"torque_damping" msgpack:"torque_damping"`
	TorqueDampingAngle float64           `json:"torque_damping_angle" msgpack:"torque_damping_angle"`
	Elasticity         float64           `json:"elasticity" msgpack:"elasticity"`
	ElasticityFalloff  float64           `json:"elasticity_falloff" msgpack:"elasticity_falloff"`
	Friction           float64           `json:"friction" msgpack:"friction"`
	Scatter            float64           `json:"scatter" msgpack:"scatter"`
	LimitBounce        *float64          `json:"limit_bounce,omitempty" msgpack:"limit_bounce,omitempty"` // nil means DefaultLimitBounce
	DualWound          bool              `json:"dual_wound" msgpack:"dual_wound"`
	Tricks             *TricksConfig     `json:"tricks,omitempty" msgpack:"tricks"`
	Correction         *CorrectionConfig `json:"correction,omitempty" msgpack:"correction"`
}

// Material holds the surface response parameters of the flipper rubber.
type Material struct {
	Elasticity        float64
	ElasticityFalloff float64
	Friction          float64
	Scatter           float64 // radians
}

// Static is the immutable flipper geometry and drive description derived from a Config.
type Static struct {
	Position   Vec3
	Height     float64
	BaseRadius float64
	EndRadius  float64
	Length     float64

	AngleStart float64
	AngleEnd   float64
	AngleMin   float64
	AngleMax   float64
	Direction  bool // true when the flipper rotates towards increasing angle when energized

	Inertia            float64
	Strength           float64
	ReturnRatio        float64
	RampUp             float64
	TorqueDamping      float64
	TorqueDampingAngle float64 // radians
	LimitBounce        float64
	Coil               CoilModel

	// Handedness is +1 for a left flipper (tip right of the base at rest) and -1 for a right one.
	Handedness float64

	Material Material
}

// NewStatic derives the static description, clamping invalid input instead of rejecting it.
func NewStatic(cfg Config) Static {
	s := Static{
		Position:   cfg.Position,
		Height:     math.Max(cfg.Height, 0),
		BaseRadius: math.Max(cfg.BaseRadius, MinRadius),
		EndRadius:  math.Max(cfg.EndRadius, MinRadius),
		Length:     math.Max(cfg.Length, MinLength),

		AngleStart: radians(cfg.StartAngle),
		AngleEnd:   radians(cfg.EndAngle),

		Strength:           math.Max(cfg.Strength, 0),
		ReturnRatio:        math.Max(cfg.ReturnRatio, 0),
		RampUp:             cfg.RampUp,
		TorqueDamping:      clamp(cfg.TorqueDamping, 0, 1),
		TorqueDampingAngle: radians(math.Max(cfg.TorqueDampingAngle, 0)),
		LimitBounce:        DefaultLimitBounce,

		Material: Material{
			Elasticity:        math.Max(cfg.Elasticity, 0),
			ElasticityFalloff: math.Max(cfg.ElasticityFalloff, 0),
			Friction:          math.Max(cfg.Friction, 0),
			Scatter:           radians(math.Max(cfg.Scatter, 0)),
		},
	}

	// a zero range never settles
	if s.AngleEnd == s.AngleStart {
		s.AngleEnd += DegenerateAngleEps
	}
	s.Direction = s.AngleEnd >= s.AngleStart
	s.AngleMin = math.Min(s.AngleStart, s.AngleEnd)
	s.AngleMax = math.Max(s.AngleStart, s.AngleEnd)

	if cfg.LimitBounce != nil {
		s.LimitBounce = *cfg.LimitBounce
	}
	if cfg.DualWound {
		s.Coil = DualWound
	}

	// rod of length L rotating about its end
	mass := math.Max(cfg.Mass, MinMass)
	s.Inertia = mass * s.Length * s.Length / 3

	s.Handedness = 1
	if math.Sin(s.AngleStart) < 0 {
		s.Handedness = -1
	}
	return s
}

// EndCenter returns the end circle center at the given angle.
func (s *Static) EndCenter(angle float64) Vec3 {
	x, y := rotate2D(0, -s.Length, math.Sin(angle), math.Cos(angle))
	return Vec3{s.Position.X() + x, s.Position.Y() + y, s.Position.Z()}
}

// ZLow and ZHigh bound the flipper vertically.
func (s *Static) ZLow() float64  { return s.Position.Z() }
func (s *Static) ZHigh() float64 { return s.Position.Z() + s.Height }

// HitCache caches the face geometry at zero rotation and the last face hit.
type HitCache struct {
	ZeroAngNormX float64
	ZeroAngNormY float64
	FaceLength   float64
	LastHitFace  bool
}

// NewHitCache computes the zero-angle face normal for the tangent faces joining the two circles.
func NewHitCache(s *Static) HitCache {
	// angle between face and center line
	fa := math.Asin(clamp((s.BaseRadius-s.EndRadius)/s.Length, -1, 1))
	faceNormOffset := math.Pi/2 - fa
	h := HitCache{
		ZeroAngNormX: math.Sin(faceNormOffset),
		ZeroAngNormY: -math.Cos(faceNormOffset),
	}
	h.FaceLength = s.Length * h.ZeroAngNormX
	return h
}
