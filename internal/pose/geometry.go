package pose

import (
	"math"
)

// Angle returns the included angle at vertex b, in degrees within [0,180].
// A zero-length segment reads as fully extended (180) rather than an error:
// a collapsed joint vector means the limb offers no bend to measure.
func Angle(a, b, c Point) float64 {
	abx, aby := a.X-b.X, a.Y-b.Y
	cbx, cby := c.X-b.X, c.Y-b.Y

	magAB := math.Hypot(abx, aby)
	magCB := math.Hypot(cbx, cby)
	if magAB == 0 || magCB == 0 {
		return 180
	}

	cos := (abx*cbx + aby*cby) / (magAB * magCB)
	// Guard float overshoot before acos.
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
