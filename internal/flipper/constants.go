package flipper

// Physics constants for the flipper subsystem.
// Lengths are VP units, time is in 10ms units and velocities are VP units per 10ms.

const (
	PhysicsStepMs = 1   // fixed physics step in milliseconds
	PhysFactor    = 0.1 // one physics step expressed in 10ms time units

	PhysTouch    = 0.05   // distance treated as touching
	Precision    = 0.01   // root search precision
	LowNormVel   = 0.0001 // normal velocity treated as zero
	ContactVel   = 0.099  // normal velocity below which a touch is a resting contact
	Embedded     = 0.0    // penetration depth considered embedded
	EmbedShot    = 0.05   // normal velocity used to kick an embedded ball out
	DispGain     = 0.9875 // displacement correction gain
	DispLimit    = 5.0    // max displacement correction per collision
	MaxIter      = 20     // root search iteration cap
	TolEndpoints = 0.0    // face endpoint tolerance band
	NearSolution = 0.25   // accepted residual as a fraction of ball radius when iterations run out

	StopperSpeed     = 1e-2 // angular speed below which the flipper may rest on a stopper
	StopperAngle     = 1e-2 // angular distance from a limit treated as resting on it
	StopperScaling   = 0.5  // flipper response scaling while pushed into its stopper
	RecoilTimeStatic = 0.5  // recoil time (10ms units) below which the flipper is treated as static

	DefaultLimitBounce = -0.3 // momentum factor applied when a limit is reached

	HitEventIntervalMs = 250   // min simulated time between hit/collide events per flipper
	HitEventMinNormVel = -0.25 // normal velocity required to raise a hit event
	FalloffSpeedUnit   = 18.53 // 1 m/s in VP units per 10ms
	InstantRampUp      = 1e6   // torque ramp used when ramp-up is zero
	DegenerateAngleEps = 1e-4  // nudge applied to a zero angle range

	MinRadius = 0.01
	MinLength = 0.01
	MinMass   = 0.001

	ReleaseMargin       = 5.0    // proximity margin before a tracked ball counts as released
	DefaultAscentThresh = 8.0    // ball must move up faster than this for corrections to apply
	TricksAngleTol      = 8.7e-4 // ~0.05 degrees
)
