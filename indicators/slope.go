package indicators

import (
	"fmt"
	"math"
)

const rad2deg = 180 / math.Pi

// SlopeDegrees converts the percentage change from prev to cur into an
// angle: atan(pct * scaling) in degrees.
//
// It returns NaN when either input is NaN or prev is zero. The result is
// kept strictly inside (-90, 90) even when float rounding of atan would
// land exactly on the bound.
func SlopeDegrees(prev, cur, scaling float64) float64 {
	if isNaN(prev) || isNaN(cur) || prev == 0 {
		return math.NaN()
	}
	pct := (cur - prev) / prev
	deg := math.Atan(pct*scaling) * rad2deg

	switch {
	case isNaN(deg):
		return math.NaN()
	case deg >= 90:
		return math.Nextafter(90, 0)
	case deg <= -90:
		return math.Nextafter(-90, 0)
	}
	return deg
}

// PctChange returns (cur-prev)/prev, or NaN when undefined.
func PctChange(prev, cur float64) float64 {
	if isNaN(prev) || isNaN(cur) || prev == 0 {
		return math.NaN()
	}
	return (cur - prev) / prev
}

// CalibrateScaling returns the scaling factor that maps a percentage change
// of pct to an angle of degrees. The factor is always positive.
func CalibrateScaling(pct, degrees float64) (float64, error) {
	if isNaN(pct) || pct == 0 {
		return 0, fmt.Errorf("calibrate: percentage change must be non-zero, got %v", pct)
	}
	if degrees <= 0 || degrees >= 90 {
		return 0, fmt.Errorf("calibrate: target angle must be in (0, 90), got %v", degrees)
	}
	return math.Tan(degrees/rad2deg) / math.Abs(pct), nil
}
