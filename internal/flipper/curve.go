package flipper

import "sort"

// Point is one tabulated sample of a response curve.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Curve is a piecewise-linear response curve. Lookups outside the samples hold the end values.
type Curve []Point

// NewCurve copies the samples and sorts them by X.
func NewCurve(points []Point) Curve {
	c := make(Curve, len(points))
	copy(c, points)
	sort.SliceStable(c, func(i, j int) bool { return c[i].X < c[j].X })
	return c
}

// At interpolates the curve at x.
func (c Curve) At(x float64) float64 {
	switch {
	case len(c) == 0:
		return 0
	case x <= c[0].X:
		return c[0].Y
	case x >= c[len(c)-1].X:
		return c[len(c)-1].Y
	}
	i := sort.Search(len(c), func(i int) bool { return c[i].X >= x })
	lo, hi := c[i-1], c[i]
	if hi.X == lo.X {
		return hi.Y
	}
	return lo.Y + (hi.Y-lo.Y)*(x-lo.X)/(hi.X-lo.X)
}
