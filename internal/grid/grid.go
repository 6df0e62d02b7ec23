// Package grid holds the unit arithmetic shared by the layout engine and the
// persistence boundary. Plans are measured in grid units; every unit is split
// into Subdiv ticks, and ticks are both the snapping step on screen and the
// integer coordinate stored by the server.
package grid

import "math"

const (
	// Subdiv is the number of ticks per grid unit.
	Subdiv = 32
	// Tick is one tick expressed in units.
	Tick = 1.0 / Subdiv
	// Eps absorbs float noise in geometric comparisons.
	Eps = 1e-6
	// CMPerUnit is the physical size of one unit.
	CMPerUnit = 25.0
	// MinPxPerUnit keeps tiny viewports usable.
	MinPxPerUnit = 4.0
)

// Snap rounds v (in units) to the nearest tick.
func Snap(v float64) float64 {
	return math.Round(v*Subdiv) / Subdiv
}

// ToTicks converts a unit value to its integer tick count.
func ToTicks(u float64) int {
	return int(math.Round(u * Subdiv))
}

// FromTicks converts a tick count back to units.
func FromTicks(t int) float64 {
	return float64(t) / Subdiv
}

// CeilTick rounds v up to the next tick, never below one tick.
func CeilTick(v float64) float64 {
	t := math.Ceil(v*Subdiv - Eps)
	if t < 1 {
		t = 1
	}
	return t / Subdiv
}

// OnTick reports whether v already sits on a tick boundary.
func OnTick(v float64) bool {
	t := v * Subdiv
	return math.Abs(t-math.Round(t)) < Eps*Subdiv
}

// CMToUnits converts a physical length to grid units.
func CMToUnits(cm float64) float64 {
	return cm / CMPerUnit
}

// Scale maps grid units to pixels for one render pass.
type Scale struct {
	PxPerUnit float64
}

// Fit derives the scale that fits a plan of planW x planH units into a
// viewport of viewW x viewH pixels.
func Fit(planW, planH, viewW, viewH float64) Scale {
	if planW <= 0 || planH <= 0 {
		return Scale{PxPerUnit: MinPxPerUnit}
	}
	px := math.Min(viewW/planW, viewH/planH)
	return Scale{PxPerUnit: math.Max(MinPxPerUnit, px)}
}

// ToPixels converts units to pixels.
func (s Scale) ToPixels(u float64) float64 {
	return u * s.PxPerUnit
}

// ToUnits converts pixels to units. A zero scale yields zero.
func (s Scale) ToUnits(px float64) float64 {
	if s.PxPerUnit == 0 {
		return 0
	}
	return px / s.PxPerUnit
}

// SnapPixels converts a pixel offset to units and snaps it to the grid.
func (s Scale) SnapPixels(px float64) float64 {
	return Snap(s.ToUnits(px))
}
