// Package export renders a plan as SVG.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	svg "github.com/ajstarks/svgo"

	"seatplan/internal/catalog"
	"seatplan/internal/domain"
)

const DefaultPxPerUnit = 32

type Options struct {
	// PxPerUnit is the drawing scale; DefaultPxPerUnit when zero.
	PxPerUnit int
	// Margin is the blank border around the plan, in pixels.
	Margin int
}

// SVG renders the shown plan of a bundle.
func SVG(b *domain.PlanBundle, cat *catalog.Catalog, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, b, cat, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render draws grid lines per unit, then furniture by z order, then the
// student cards with their names. Entities are rotated about their centre.
func Render(w io.Writer, b *domain.PlanBundle, cat *catalog.Catalog, opts Options) error {
	if b == nil || b.ActivePlan == nil {
		return fmt.Errorf("render plan: %w", domain.ErrNoActivePlan)
	}
	if opts.PxPerUnit <= 0 {
		opts.PxPerUnit = DefaultPxPerUnit
	}
	if cat == nil {
		return errors.New("render plan: nil catalog")
	}
	r := &renderer{
		canvas: svg.New(w),
		scale:  float64(opts.PxPerUnit),
		margin: opts.Margin,
		cat:    cat,
	}
	plan := b.ActivePlan

	width, height := r.px(float64(plan.Width)), r.px(float64(plan.Height))
	sw, sh := Size(*plan, opts)
	r.canvas.Start(sw, sh)
	r.canvas.Title(plan.Name)
	r.canvas.Rect(r.margin, r.margin, width, height, "fill:#ffffff;stroke:#94a3b8;stroke-width:1")
	r.grid(plan.Width, plan.Height)

	furniture := make([]domain.Furniture, 0, len(b.Furniture))
	for _, rec := range b.Furniture {
		furniture = append(furniture, domain.FurnitureFromRecord(rec))
	}
	sort.SliceStable(furniture, func(i, j int) bool { return furniture[i].Z < furniture[j].Z })
	for _, f := range furniture {
		r.furniture(f)
	}

	names := make(map[int64]string, len(b.Students))
	for _, s := range b.Students {
		names[s.ID] = s.DisplayName()
	}
	for _, rec := range b.Positions {
		r.student(domain.PlacementFromRecord(rec), names[rec.StudentID])
	}

	r.canvas.End()
	return nil
}

type renderer struct {
	canvas *svg.SVG
	scale  float64
	margin int
	cat    *catalog.Catalog
}

func (r *renderer) px(u float64) int {
	return int(math.Round(u * r.scale))
}

func (r *renderer) grid(w, h int) {
	r.canvas.Gstyle("stroke:#e2e8f0;stroke-width:1")
	for x := 1; x < w; x++ {
		px := r.margin + r.px(float64(x))
		r.canvas.Line(px, r.margin, px, r.margin+r.px(float64(h)))
	}
	for y := 1; y < h; y++ {
		py := r.margin + r.px(float64(y))
		r.canvas.Line(r.margin, py, r.margin+r.px(float64(w)), py)
	}
	r.canvas.Gend()
}

// box opens a group rotated about the centre of footprint and returns the
// unrotated rectangle to draw inside it.
func (r *renderer) box(footprint domain.Rect, w, h, rot float64) (x, y, bw, bh int) {
	cx := footprint.X + footprint.W/2
	cy := footprint.Y + footprint.H/2
	pcx, pcy := r.margin+r.px(cx), r.margin+r.px(cy)
	r.canvas.Gtransform(fmt.Sprintf("rotate(%g %d %d)", domain.NormDeg(rot), pcx, pcy))
	bw, bh = r.px(w), r.px(h)
	return pcx - bw/2, pcy - bh/2, bw, bh
}

func (r *renderer) furniture(f domain.Furniture) {
	x, y, w, h := r.box(f.Bounds(), f.W, f.H, f.Rotation)
	style := fmt.Sprintf("fill:%s;stroke:#334155;stroke-width:1", r.cat.ColorFor(f))
	if f.Rounded {
		radius := min(w, h) / 4
		r.canvas.Roundrect(x, y, w, h, radius, radius, style)
	} else {
		r.canvas.Rect(x, y, w, h, style)
	}
	label := f.Label
	if label == "" {
		if it, ok := r.cat.Lookup(f.Type); ok {
			label = it.Label
		}
	}
	if label != "" {
		r.canvas.Text(x+w/2, y+h/2, label, "text-anchor:middle;dominant-baseline:middle;font-size:10px;fill:#0f172a")
	}
	r.canvas.Gend()
}

func (r *renderer) student(p domain.Placement, name string) {
	w, h := domain.StudentSize()
	x, y, bw, bh := r.box(p.Bounds(), w, h, p.Rotation)
	r.canvas.Roundrect(x, y, bw, bh, 4, 4, "fill:#fef9c3;stroke:#a16207;stroke-width:1")
	if name == "" {
		name = fmt.Sprintf("#%d", p.StudentID)
	}
	r.canvas.Text(x+bw/2, y+bh/2, name, "text-anchor:middle;dominant-baseline:middle;font-size:11px;fill:#1c1917")
	r.canvas.Gend()
}

// Size reports the canvas size in pixels for a plan.
func Size(plan domain.Plan, opts Options) (w, h int) {
	if opts.PxPerUnit <= 0 {
		opts.PxPerUnit = DefaultPxPerUnit
	}
	s := float64(opts.PxPerUnit)
	return int(math.Round(float64(plan.Width)*s)) + 2*opts.Margin,
		int(math.Round(float64(plan.Height)*s)) + 2*opts.Margin
}
