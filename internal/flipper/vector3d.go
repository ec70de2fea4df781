package flipper

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is the vector type used throughout the flipper physics.
type Vec3 = mgl64.Vec3

// crossZ returns (0, 0, z) x v.
func crossZ(z float64, v Vec3) Vec3 {
	return Vec3{-z * v.Y(), z * v.X(), 0}
}

// rotate2D rotates (x, y) by the angle given as its sine and cosine.
func rotate2D(x, y, sin, cos float64) (float64, float64) {
	return x*cos - y*sin, y*cos + x*sin
}

// tangential strips the component of v along the unit normal n.
func tangential(v, n Vec3) Vec3 {
	return v.Sub(n.Mul(v.Dot(n)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
