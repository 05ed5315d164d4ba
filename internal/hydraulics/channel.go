// Package hydraulics models the trapezoidal cross-section of an open channel
// and the steady uniform-flow relations used to derive flow speed from depth.
package hydraulics

import "math"

// Channel is a trapezoidal cross-section with a flat bed and two banks of equal
// inclination. Bank trigonometry is evaluated once, against the angle measured
// from vertical, and reused for every depth.
type Channel struct {
	bedWidth  float64
	bankAngle float64
	tanBank   float64
	cosBank   float64
	area      AreaFunc
}

// NewChannel builds a cross-section from the bed width (m), the bank angle
// measured from horizontal (degrees) and an area formula. A nil area uses the
// default cubic formula.
func NewChannel(bedWidth, bankAngleFromHorizontal float64, area AreaFunc) Channel {
	if area == nil {
		area = CubicArea
	}
	fromVertical := (90 - bankAngleFromHorizontal) * math.Pi / 180
	return Channel{
		bedWidth:  bedWidth,
		bankAngle: bankAngleFromHorizontal,
		tanBank:   math.Tan(fromVertical),
		cosBank:   math.Cos(fromVertical),
		area:      area,
	}
}

func (c Channel) BedWidth() float64 {
	return c.bedWidth
}

// BankAngleFromHorizontal returns the bank angle as supplied, in degrees.
func (c Channel) BankAngleFromHorizontal() float64 {
	return c.bankAngle
}

// BankAngleFromVertical returns the complement of the supplied bank angle, in degrees.
func (c Channel) BankAngleFromVertical() float64 {
	return 90 - c.bankAngle
}

// SurfaceWidth is the free-surface width at the given depth.
func (c Channel) SurfaceWidth(depth float64) float64 {
	return c.bedWidth + 2*depth*c.tanBank
}

func (c Channel) CrossSectionalArea(depth float64) float64 {
	return c.area(depth, c.bedWidth, c.tanBank)
}

// WettedPerimeter is the length of the bed plus both submerged bank faces.
func (c Channel) WettedPerimeter(depth float64) float64 {
	return c.bedWidth + 2*depth/c.cosBank
}

// HydraulicRadius is the flow area divided by the wetted perimeter. A zero
// perimeter is reported as ErrZeroPerimeter rather than producing Inf or NaN.
func (c Channel) HydraulicRadius(depth float64) (float64, error) {
	perimeter := c.WettedPerimeter(depth)
	if perimeter == 0 {
		return 0, ErrZeroPerimeter
	}
	radius := c.CrossSectionalArea(depth) / perimeter
	if math.IsNaN(radius) || math.IsInf(radius, 0) {
		return 0, ErrNonFinite
	}
	return radius, nil
}
