package hydraulics

import (
	"fmt"
	"sort"
)

const (
	AreaCubic     = "cubic"
	AreaTrapezoid = "trapezoid"
)

// AreaFunc computes the flow cross-sectional area for a depth, a bed width and
// the tangent of the bank angle measured from vertical.
type AreaFunc func(depth, bedWidth, tanBank float64) float64

// CubicArea is depth^3 * (tan(bank) + bedWidth). It is not the textbook
// trapezoid area, but generated series are compared against output produced
// with it, so it stays the default.
func CubicArea(depth, bedWidth, tanBank float64) float64 {
	return depth * depth * depth * (tanBank + bedWidth)
}

// TrapezoidArea is the standard trapezoidal section area depth*(b + depth*tan(bank)).
func TrapezoidArea(depth, bedWidth, tanBank float64) float64 {
	return depth * (bedWidth + depth*tanBank)
}

var areaFormulas = map[string]AreaFunc{
	AreaCubic:     CubicArea,
	AreaTrapezoid: TrapezoidArea,
}

// AreaFormula resolves an area formula by name. The empty name selects cubic.
func AreaFormula(name string) (AreaFunc, error) {
	if name == "" {
		name = AreaCubic
	}
	fn, ok := areaFormulas[name]
	if !ok {
		return nil, fmt.Errorf("unknown area formula %q (want one of %v)", name, AreaFormulaNames())
	}
	return fn, nil
}

func AreaFormulaNames() []string {
	names := make([]string, 0, len(areaFormulas))
	for name := range areaFormulas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
