package hydraulics

import (
	"errors"
	"math"
)

var (
	ErrZeroPerimeter  = errors.New("wetted perimeter is zero")
	ErrNegativeRadius = errors.New("hydraulic radius is negative")
	ErrNonFinite      = errors.New("non-finite hydraulic quantity")
)

// ManningSpeed returns the mean speed (m/s) of steady uniform flow in SI units:
// R^(2/3) * S^(1/2) / n.
func ManningSpeed(radius, slope, roughness float64) (float64, error) {
	if radius < 0 {
		return 0, ErrNegativeRadius
	}
	speed := math.Pow(radius, 2.0/3.0) * math.Sqrt(slope) / roughness
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return 0, ErrNonFinite
	}
	return speed, nil
}

// Speed derives the Manning speed for a depth in this channel.
func (c Channel) Speed(depth, slope, roughness float64) (float64, error) {
	radius, err := c.HydraulicRadius(depth)
	if err != nil {
		return 0, err
	}
	return ManningSpeed(radius, slope, roughness)
}
