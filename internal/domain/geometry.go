package domain

import (
	"math"

	"seatplan/internal/grid"
)

// Rect is an axis-aligned footprint in grid units.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Within reports whether r lies inside [0,w] x [0,h].
func (r Rect) Within(w, h float64) bool {
	return r.X >= -grid.Eps && r.Y >= -grid.Eps &&
		r.Right() <= w+grid.Eps && r.Bottom() <= h+grid.Eps
}

// NormDeg folds an angle into [0, 360).
func NormDeg(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// QuarterTurn reports whether deg is closest to 90 or 270 degrees, in which
// case width and height trade places for collision purposes.
func QuarterTurn(deg float64) bool {
	q := int(math.Round(NormDeg(deg)/90)) % 4
	return q%2 == 1
}

// EffectiveSize returns (w, h) after the quarter-turn swap.
func EffectiveSize(w, h, rot float64) (float64, float64) {
	if QuarterTurn(rot) {
		return h, w
	}
	return w, h
}

// Footprint is the collision rectangle of a box whose footprint corner is
// (x, y), unrotated size (w, h) and absolute rotation rot.
func Footprint(x, y, w, h, rot float64) Rect {
	ew, eh := EffectiveSize(w, h, rot)
	return Rect{X: x, Y: y, W: ew, H: eh}
}

// Pivot moves the footprint corner so the box keeps its centre when its
// rotation changes from one angle to another. The shift is half the tick
// difference between width and height, rounded up; turning back applies the
// same shift negated, so two quarter turns return to the starting corner.
func Pivot(x, y, w, h, from, to float64) (float64, float64) {
	if QuarterTurn(from) == QuarterTurn(to) {
		return x, y
	}
	k := int(math.Ceil(float64(grid.ToTicks(w)-grid.ToTicks(h)) / 2))
	dx, dy := k, -k
	if QuarterTurn(from) {
		dx, dy = -k, k
	}
	return grid.FromTicks(grid.ToTicks(x) + dx), grid.FromTicks(grid.ToTicks(y) + dy)
}
