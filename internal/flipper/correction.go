package flipper

import "math"

// CorrectionConfig holds the response curves applied to balls leaving a freshly fired flipper.
type CorrectionConfig struct {
	TimeDelayMs     float64 `json:"time_delay_ms" msgpack:"time_delay_ms"`
	AscentThreshold float64 `json:"ascent_threshold" msgpack:"ascent_threshold"`
	Velocity        []Point `json:"velocity" msgpack:"velocity"`
	Polarity        []Point `json:"polarity" msgpack:"polarity"`
}

// DefaultCorrection returns the stock polarity and velocity curves.
func DefaultCorrection() CorrectionConfig {
	return CorrectionConfig{
		TimeDelayMs:     80,
		AscentThreshold: DefaultAscentThresh,
		Polarity: []Point{
			{0, 0}, {0.05, -5.5}, {0.4, -5.5}, {0.6, -5.0}, {0.65, -4.5}, {0.7, -4.0},
			{0.75, -3.5}, {0.8, -3.0}, {0.85, -2.5}, {0.9, -2.0}, {0.95, -1.5}, {1, -1.0},
			{1.05, -0.5}, {1.1, 0}, {1.3, 0},
		},
		Velocity: []Point{
			{0, 1}, {0.16, 1.06}, {0.41, 1.05}, {0.53, 1.0}, {0.702, 0.98}, {0.95, 0.968}, {1.03, 0.945},
		},
	}
}

type trackedBall struct {
	ID    int
	Ratio float64
}

// Correction is the per-flipper correction state.
type Correction struct {
	TimeDelayMs     float64
	AscentThreshold float64
	Velocity        Curve
	Polarity        Curve

	Fired       bool
	FireAngle   float64
	FireTimeMs  int64
	PartialFlip float64

	tracked []trackedBall
}

func NewCorrection(cfg CorrectionConfig) *Correction {
	c := &Correction{
		TimeDelayMs:     cfg.TimeDelayMs,
		AscentThreshold: cfg.AscentThreshold,
		Velocity:        NewCurve(cfg.Velocity),
		Polarity:        NewCurve(cfg.Polarity),
	}
	if c.AscentThreshold <= 0 {
		c.AscentThreshold = DefaultAscentThresh
	}
	return c
}

// fire snapshots the flipper as it starts energizing.
func (c *Correction) fire(s *Static, angle float64, nowMs int64) {
	c.Fired = true
	c.FireAngle = angle
	c.FireTimeMs = nowMs
	c.PartialFlip = math.Abs(1 - (s.AngleStart-angle)/(s.AngleStart-s.AngleEnd))
}

// armRatio is the ball position projected on the arm, 0 at the pivot and 1 at the tip.
func (f *Flipper) armRatio(ball *Ball) float64 {
	s := &f.Static
	ax, ay := rotate2D(0, -1, math.Sin(f.Movement.Angle), math.Cos(f.Movement.Angle))
	dx := ball.Position.X() - s.Position.X()
	dy := ball.Position.Y() - s.Position.Y()
	return (dx*ax + dy*ay) / s.Length
}

// inProximity reports whether the ball is still near enough to the flipper to be touching it.
func (f *Flipper) inProximity(ball *Ball) bool {
	s := &f.Static
	reach := s.Length + s.EndRadius + ball.Radius + ReleaseMargin
	dx := ball.Position.X() - s.Position.X()
	dy := ball.Position.Y() - s.Position.Y()
	return dx*dx+dy*dy <= reach*reach
}

// track remembers a ball touching the flipper so its release can be corrected.
func (f *Flipper) track(ball *Ball) {
	c := f.Correction
	if c == nil {
		return
	}
	ratio := f.armRatio(ball)
	for i := range c.tracked {
		if c.tracked[i].ID == ball.ID {
			c.tracked[i].Ratio = ratio
			return
		}
	}
	c.tracked = append(c.tracked, trackedBall{ID: ball.ID, Ratio: ratio})
}

// ReleaseBalls corrects tracked balls that have left the flipper and stops tracking them.
func (f *Flipper) ReleaseBalls(balls []*Ball, nowMs int64) {
	c := f.Correction
	if c == nil || len(c.tracked) == 0 {
		return
	}
	kept := c.tracked[:0]
	for _, tb := range c.tracked {
		ball := findBall(balls, tb.ID)
		if ball == nil || !ball.Active {
			continue
		}
		if f.inProximity(ball) {
			kept = append(kept, tb)
			continue
		}
		f.correct(ball, tb.Ratio, nowMs)
	}
	c.tracked = kept
}

func (f *Flipper) correct(ball *Ball, ratio float64, nowMs int64) {
	c := f.Correction
	if !c.Fired || float64(nowMs-c.FireTimeMs) > c.TimeDelayMs {
		return
	}
	if ball.Velocity.Y() >= -c.AscentThreshold {
		return
	}

	vx, vy := ball.Velocity.X(), ball.Velocity.Y()
	// a curve without samples leaves its component alone
	if len(c.Velocity) > 0 {
		velCoef := 1 + (c.Velocity.At(ratio)-1)*c.PartialFlip
		vx *= velCoef
		vy *= velCoef
	}
	if len(c.Polarity) > 0 {
		vx += c.Polarity.At(ratio) * f.Static.Handedness * c.PartialFlip
	}
	ball.Velocity = Vec3{vx, vy, ball.Velocity.Z()}
}

func findBall(balls []*Ball, id int) *Ball {
	for _, b := range balls {
		if b.ID == id {
			return b
		}
	}
	return nil
}
