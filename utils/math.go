package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Square returns n*n.
func Square(n float64) float64 {
	return n * n
}

// ClampUint8 rounds v half away from zero and clamps it into [0, 255].
func ClampUint8(v float64) uint8 {
	r := math.Round(v)
	switch {
	case math.IsNaN(r), r < 0:
		return 0
	case r > 255:
		return 255
	default:
		return uint8(r)
	}
}

// IsFinite returns whether every value is neither NaN nor infinite.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
