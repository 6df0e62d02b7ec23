// Package layout implements collision detection and placement on a bounded
// plan: the overlap test, the expanding-ring free spot search and the
// edge-contact collapse applied after a drop.
package layout

import (
	"math"

	"seatplan/internal/domain"
	"seatplan/internal/grid"
)

const (
	// MinSearchRings is the smallest ring radius, in ticks, the free spot
	// search explores. Large plans raise the bound to half their perimeter.
	MinSearchRings = 80

	collapseMargin    = grid.Tick + 1e-9
	collapseTolerance = grid.Tick * 0.5
)

// Overlaps reports whether the interiors of a and b intersect. Shared edges
// and corners do not count.
func Overlaps(a, b domain.Rect) bool {
	return !(a.Right() <= b.X+grid.Eps || b.Right() <= a.X+grid.Eps ||
		a.Bottom() <= b.Y+grid.Eps || b.Bottom() <= a.Y+grid.Eps)
}

// IsFree reports whether r overlaps none of others.
func IsFree(r domain.Rect, others []domain.Rect) bool {
	for _, o := range others {
		if Overlaps(r, o) {
			return false
		}
	}
	return true
}

// Engine runs placement against a plan of fixed size.
type Engine struct {
	width, height float64
	maxRings      int
}

// NewEngine creates an engine for a width x height plan (in units).
func NewEngine(width, height float64) *Engine {
	rings := int(math.Ceil((width + height) * grid.Subdiv / 2))
	if rings < MinSearchRings {
		rings = MinSearchRings
	}
	return &Engine{width: width, height: height, maxRings: rings}
}

func (e *Engine) Width() float64  { return e.width }
func (e *Engine) Height() float64 { return e.height }

// SearchBound is the largest ring radius, in ticks, FindNearestFreeSpot tries.
func (e *Engine) SearchBound() int { return e.maxRings }

// Clamp pulls the corner of a w x h box into the plan.
func (e *Engine) Clamp(x, y, w, h float64) (float64, float64) {
	return math.Max(0, math.Min(x, e.width-w)), math.Max(0, math.Min(y, e.height-h))
}

// Contains reports whether r lies fully inside the plan.
func (e *Engine) Contains(r domain.Rect) bool {
	return r.Within(e.width, e.height)
}

func (e *Engine) tryPlace(x, y, w, h float64, others []domain.Rect) (domain.Rect, bool) {
	cx, cy := e.Clamp(x, y, w, h)
	r := domain.Rect{X: cx, Y: cy, W: w, H: h}
	if !e.Contains(r) || !IsFree(r, others) {
		return domain.Rect{}, false
	}
	return r, true
}

// FindNearestFreeSpot returns the first collision-free, in-bounds footprint
// of size w x h near (x, y). The clamped start point wins if it is free;
// otherwise square rings of growing tick radius are scanned, columns left to
// right and rows top to bottom within each ring. ok is false when the bound
// is exhausted.
func (e *Engine) FindNearestFreeSpot(x, y, w, h float64, others []domain.Rect) (domain.Rect, bool) {
	if r, ok := e.tryPlace(x, y, w, h, others); ok {
		return r, true
	}
	for d := 1; d <= e.maxRings; d++ {
		for dx := -d; dx <= d; dx++ {
			for dy := -d; dy <= d; dy++ {
				if abs(dx) != d && abs(dy) != d {
					continue
				}
				cx := grid.Snap(x + float64(dx)*grid.Tick)
				cy := grid.Snap(y + float64(dy)*grid.Tick)
				if r, ok := e.tryPlace(cx, cy, w, h, others); ok {
					return r, true
				}
			}
		}
	}
	return domain.Rect{}, false
}

// SnapCollapse slides r into exact contact with a neighbour edge (or a plan
// border) when the gap is within one tick. Of all such candidates the one
// with the smallest displacement that stays free and in bounds is applied;
// r is returned unchanged when there is none.
func (e *Engine) SnapCollapse(r domain.Rect, others []domain.Rect) domain.Rect {
	best := r
	bestD := math.Inf(1)
	consider := func(nx, ny float64) {
		cx, cy := e.Clamp(grid.Snap(nx), grid.Snap(ny), r.W, r.H)
		cand := domain.Rect{X: cx, Y: cy, W: r.W, H: r.H}
		if !IsFree(cand, others) {
			return
		}
		if d := math.Abs(cand.X-r.X) + math.Abs(cand.Y-r.Y); d < bestD {
			best, bestD = cand, d
		}
	}

	for _, o := range others {
		if overlap1D(r.Y, r.Bottom(), o.Y, o.Bottom()) {
			if math.Abs(o.X-r.Right()) <= collapseMargin {
				consider(o.X-r.W, r.Y)
			}
			if math.Abs(o.Right()-r.X) <= collapseMargin {
				consider(o.Right(), r.Y)
			}
		}
		if overlap1D(r.X, r.Right(), o.X, o.Right()) {
			if math.Abs(o.Y-r.Bottom()) <= collapseMargin {
				consider(r.X, o.Y-r.H)
			}
			if math.Abs(o.Bottom()-r.Y) <= collapseMargin {
				consider(r.X, o.Bottom())
			}
		}
	}

	if math.Abs(r.X) <= collapseMargin {
		consider(0, r.Y)
	}
	if math.Abs(e.width-r.Right()) <= collapseMargin {
		consider(e.width-r.W, r.Y)
	}
	if math.Abs(r.Y) <= collapseMargin {
		consider(r.X, 0)
	}
	if math.Abs(e.height-r.Bottom()) <= collapseMargin {
		consider(r.X, e.height-r.H)
	}
	return best
}

// Place runs the full drop pipeline: nearest free spot, then collapse.
func (e *Engine) Place(x, y, w, h float64, others []domain.Rect) (domain.Rect, bool) {
	r, ok := e.FindNearestFreeSpot(x, y, w, h, others)
	if !ok {
		return domain.Rect{}, false
	}
	return e.SnapCollapse(r, others), true
}

func overlap1D(a0, a1, b0, b1 float64) bool {
	return !(a1 <= b0+collapseTolerance || b1 <= a0+collapseTolerance)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
