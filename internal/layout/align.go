package layout

import (
	"fmt"
	"math"

	"seatplan/internal/domain"
)

// Edge names the side a selection is aligned on.
type Edge string

const (
	EdgeLeft   Edge = "left"
	EdgeRight  Edge = "right"
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
)

func ParseEdge(s string) (Edge, error) {
	switch e := Edge(s); e {
	case EdgeLeft, EdgeRight, EdgeTop, EdgeBottom:
		return e, nil
	}
	return "", fmt.Errorf("%w: align edge %q", domain.ErrInvalidInput, s)
}

// Align moves every rect of the selection so they share the outermost
// coordinate on edge. The result is all-or-nothing: it fails if any moved
// rect leaves the plan, overlaps another member, or overlaps others.
func (e *Engine) Align(sel []domain.Rect, edge Edge, others []domain.Rect) ([]domain.Rect, bool) {
	if len(sel) < 2 {
		return nil, false
	}
	var target float64
	switch edge {
	case EdgeLeft, EdgeTop:
		target = math.Inf(1)
	default:
		target = math.Inf(-1)
	}
	for _, r := range sel {
		switch edge {
		case EdgeLeft:
			target = math.Min(target, r.X)
		case EdgeRight:
			target = math.Max(target, r.Right())
		case EdgeTop:
			target = math.Min(target, r.Y)
		case EdgeBottom:
			target = math.Max(target, r.Bottom())
		}
	}

	out := make([]domain.Rect, len(sel))
	for i, r := range sel {
		switch edge {
		case EdgeLeft:
			r.X = target
		case EdgeRight:
			r.X = target - r.W
		case EdgeTop:
			r.Y = target
		case EdgeBottom:
			r.Y = target - r.H
		}
		if !e.Contains(r) || !IsFree(r, others) {
			return nil, false
		}
		for _, prev := range out[:i] {
			if Overlaps(r, prev) {
				return nil, false
			}
		}
		out[i] = r
	}
	return out, true
}
