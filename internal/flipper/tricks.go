package flipper

import "math"

// TricksConfig tunes the "soft launch, hard catch" overrides. Angles are in degrees, times in ms.
type TricksConfig struct {
	SOSRampUp        float64 `json:"sos_ramp_up" msgpack:"sos_ramp_up"`
	SOSElasticityMul float64 `json:"sos_elasticity_mul" msgpack:"sos_elasticity_mul"`
	EOSTorque        float64 `json:"eos_torque" msgpack:"eos_torque"`
	EOSTorqueAngle   float64 `json:"eos_torque_angle" msgpack:"eos_torque_angle"`
	EOSRampUp        float64 `json:"eos_ramp_up" msgpack:"eos_ramp_up"`

	LiveCatchMs       float64 `json:"live_catch_ms" msgpack:"live_catch_ms"`
	LiveCatchMinDist  float64 `json:"live_catch_min_dist" msgpack:"live_catch_min_dist"`
	LiveCatchMaxDist  float64 `json:"live_catch_max_dist" msgpack:"live_catch_max_dist"`
	LiveCatchMinSpeed float64 `json:"live_catch_min_speed" msgpack:"live_catch_min_speed"`
}

// DefaultTricks mirrors the widely used community tuning.
func DefaultTricks() TricksConfig {
	return TricksConfig{
		SOSRampUp:         2.5,
		SOSElasticityMul:  0.85,
		EOSTorque:         0.275,
		EOSTorqueAngle:    6,
		EOSRampUp:         1.5,
		LiveCatchMs:       16,
		LiveCatchMinDist:  23,
		LiveCatchMaxDist:  114,
		LiveCatchMinSpeed: 6,
	}
}

// TricksState is where the flipper was last seen by the tricks state machine.
type TricksState int8

const (
	TricksUnknown TricksState = iota
	TricksAtStart
	TricksAtEnd
	TricksMoving
)

// Tricks decorates the nominal actuation parameters depending on which limit the flipper rests at.
type Tricks struct {
	Config TricksConfig `json:"config" msgpack:"config"`
	State  TricksState  `json:"state" msgpack:"state"`

	// EOSReachedMs is when the flipper arrived at EOS while energized, -1 when unset.
	EOSReachedMs int64 `json:"eos_reached_ms" msgpack:"eos_reached_ms"`

	current Params
}

func NewTricks(cfg TricksConfig) *Tricks {
	if cfg.LiveCatchMinSpeed <= 0 {
		cfg.LiveCatchMinSpeed = 6
	}
	return &Tricks{Config: cfg, EOSReachedMs: -1}
}

// Apply returns the parameters to use this tick.
func (t *Tricks) Apply(s *Static, m *Movement, energized bool, nowMs int64, nominal Params) Params {
	if t.State == TricksUnknown {
		t.current = nominal
	}

	switch {
	case math.Abs(m.Angle-s.AngleStart) < TricksAngleTol:
		if t.State != TricksAtStart {
			t.current = nominal
			t.current.RampUp = t.Config.SOSRampUp
			t.current.ElasticityMul = t.Config.SOSElasticityMul
			t.EOSReachedMs = -1
			t.State = TricksAtStart
		}
	case math.Abs(m.Angle-s.AngleEnd) < TricksAngleTol && energized:
		if t.EOSReachedMs < 0 {
			t.EOSReachedMs = nowMs
		}
		if t.State != TricksAtEnd {
			t.current = nominal
			t.current.TorqueDamping = t.Config.EOSTorque
			t.current.TorqueDampingAngle = radians(t.Config.EOSTorqueAngle)
			t.current.RampUp = t.Config.EOSRampUp
			t.State = TricksAtEnd
		}
	case energized:
		if t.State != TricksMoving {
			t.current = nominal
			t.State = TricksMoving
		}
	}
	return t.current
}

// liveCatch deadens a ball caught on the raised flipper shortly after it reached EOS.
func (t *Tricks) liveCatch(s *Static, ball *Ball, hitSpeed float64, nowMs int64) bool {
	if t.EOSReachedMs < 0 || t.Config.LiveCatchMs <= 0 {
		return false
	}
	catchTime := float64(nowMs - t.EOSReachedMs)
	dist := math.Abs(s.Position.X() - ball.Position.X())
	if catchTime > t.Config.LiveCatchMs || hitSpeed <= t.Config.LiveCatchMinSpeed ||
		dist <= t.Config.LiveCatchMinDist || dist >= t.Config.LiveCatchMaxDist {
		return false
	}

	bounce := 0.0
	if catchTime > t.Config.LiveCatchMs*0.5 {
		bounce = math.Abs(t.Config.LiveCatchMs*0.5 - catchTime)
	}
	vx := ball.Velocity.X()
	if bounce == 0 && vx*s.Handedness > 0 {
		vx = 0
	}
	ball.Velocity = Vec3{vx, bounce * (32 / t.Config.LiveCatchMs), ball.Velocity.Z()}
	ball.AngularMomentum = Vec3{}
	return true
}
