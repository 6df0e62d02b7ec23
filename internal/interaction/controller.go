// Package interaction turns pointer gestures on the stage into layout edits.
//
// A gesture goes idle → pressed → dragging → released. A press released
// before the pointer travelled past the drag threshold is a click and edits
// nothing. While dragging the controller keeps a proxy rectangle that follows
// the pointer; on release the proxy is handed to the Editor, which runs it
// through collision and placement.
package interaction

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"seatplan/internal/domain"
	"seatplan/internal/grid"
	"seatplan/internal/service"
)

// DragThreshold is the pointer travel in pixels that turns a press into a drag.
const DragThreshold = 2.0

var ErrBusy = errors.New("gesture in progress")

// Editor is the subset of service.LayoutService the controller drives.
type Editor interface {
	PlanSize() (float64, float64)
	Bounds(ref domain.EntityRef) (domain.Rect, bool)
	FurnitureSize(typ string) (float64, float64, bool)

	PlaceStudent(studentID int64, x, y float64) (domain.Placement, error)
	MoveStudent(studentID int64, x, y float64) (domain.Placement, error)
	RotateStudent(studentID int64, delta float64) (domain.Placement, error)

	AddFurniture(typ string, x, y float64) (domain.Furniture, error)
	MoveFurniture(key domain.FurnitureKey, x, y float64) (domain.Furniture, error)
	ResizeFurniture(key domain.FurnitureKey, w, h float64) (domain.Furniture, error)
	RotateFurniture(key domain.FurnitureKey, delta float64) (domain.Furniture, error)
}

type Phase int

const (
	Idle Phase = iota
	Pressed
	Dragging
)

func (p Phase) String() string {
	switch p {
	case Pressed:
		return "pressed"
	case Dragging:
		return "dragging"
	default:
		return "idle"
	}
}

type GestureKind int

const (
	GestureMove GestureKind = iota
	GestureCreateStudent
	GestureCreateFurniture
	GestureResize
)

type Outcome int

const (
	// OutcomeNone: nothing was in progress.
	OutcomeNone Outcome = iota
	OutcomeClick
	OutcomeDropped
	// OutcomeDiscarded: released outside the plan, nothing changed.
	OutcomeDiscarded
	// OutcomeRejected: the editor found no free spot, nothing changed.
	OutcomeRejected
)

func (o Outcome) String() string {
	return [...]string{"none", "click", "dropped", "discarded", "rejected"}[o]
}

// Point is a pointer position in pixels.
type Point struct{ X, Y float64 }

// Viewport maps pointer pixels onto plan units.
type Viewport struct {
	Origin Point // top-left of the stage
	Scale  grid.Scale
}

// ToUnits converts a pointer position to plan units relative to the stage.
func (v Viewport) ToUnits(p Point) (float64, float64) {
	return v.Scale.ToUnits(p.X - v.Origin.X), v.Scale.ToUnits(p.Y - v.Origin.Y)
}

type Result struct {
	Outcome Outcome
	Ref     domain.EntityRef
	Err     error
}

type gesture struct {
	kind      GestureKind
	ref       domain.EntityRef
	furniture string
	w, h      float64     // footprint for creation
	origin    domain.Rect // entity bounds at press time
}

type Controller struct {
	mu        sync.Mutex
	editor    Editor
	view      Viewport
	threshold float64

	phase Phase
	g     gesture
	start Point
	proxy domain.Rect
}

func New(editor Editor, view Viewport) *Controller {
	return &Controller{editor: editor, view: view, threshold: DragThreshold}
}

// SetViewport updates the mapping after a re-render fitted a new scale.
func (c *Controller) SetViewport(v Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Busy reports whether a gesture is in progress.
func (c *Controller) Busy() bool { return c.Phase() != Idle }

// Proxy returns the drag proxy in plan units while dragging.
func (c *Controller) Proxy() (domain.Rect, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proxy, c.phase == Dragging
}

// ─── press ───────────────────────────────────────────────────

// PressEntity starts moving a placed student or a furniture item.
func (c *Controller) PressEntity(ref domain.EntityRef, p Point) error {
	r, ok := c.editor.Bounds(ref)
	if !ok {
		return fmt.Errorf("press %s: %w", ref, domain.ErrNotFound)
	}
	return c.press(gesture{kind: GestureMove, ref: ref, origin: r, w: r.W, h: r.H}, p)
}

// PressRoster starts dragging a student from the roster onto the stage.
func (c *Controller) PressRoster(studentID int64, p Point) error {
	w, h := domain.StudentSize()
	return c.press(gesture{kind: GestureCreateStudent, ref: domain.StudentRef(studentID), w: w, h: h}, p)
}

// PressPalette starts dragging a new furniture item from the palette.
func (c *Controller) PressPalette(typ string, p Point) error {
	w, h, ok := c.editor.FurnitureSize(typ)
	if !ok {
		return fmt.Errorf("press palette %q: %w", typ, domain.ErrUnknownFurniture)
	}
	return c.press(gesture{kind: GestureCreateFurniture, furniture: typ, w: w, h: h}, p)
}

// PressResize starts a corner resize of a furniture item.
func (c *Controller) PressResize(key domain.FurnitureKey, p Point) error {
	ref := domain.FurnitureRef(key)
	r, ok := c.editor.Bounds(ref)
	if !ok {
		return fmt.Errorf("press resize %s: %w", ref, domain.ErrNotFound)
	}
	return c.press(gesture{kind: GestureResize, ref: ref, origin: r, w: r.W, h: r.H}, p)
}

func (c *Controller) press(g gesture, p Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Idle {
		return ErrBusy
	}
	c.phase = Pressed
	c.g = g
	c.start = p
	c.proxy = g.origin
	return nil
}

// ─── drag ────────────────────────────────────────────────────

// Move tracks the pointer. Past the threshold the gesture becomes a drag
// and the proxy follows.
func (c *Controller) Move(p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case Idle:
		return
	case Pressed:
		if math.Hypot(p.X-c.start.X, p.Y-c.start.Y) <= c.threshold {
			return
		}
		c.phase = Dragging
	}
	c.proxy = c.proxyAt(p)
}

// proxyAt computes the candidate rectangle for pointer p, snapped to ticks
// and clamped so the footprint stays on the plan.
func (c *Controller) proxyAt(p Point) domain.Rect {
	planW, planH := c.editor.PlanSize()
	g := c.g
	switch g.kind {
	case GestureResize:
		dx := c.view.Scale.ToUnits(p.X - c.start.X)
		dy := c.view.Scale.ToUnits(p.Y - c.start.Y)
		w := grid.CeilTick(math.Min(g.origin.W+dx, planW-g.origin.X))
		h := grid.CeilTick(math.Min(g.origin.H+dy, planH-g.origin.Y))
		return domain.Rect{X: g.origin.X, Y: g.origin.Y, W: w, H: h}
	case GestureMove:
		dx := c.view.Scale.ToUnits(p.X - c.start.X)
		dy := c.view.Scale.ToUnits(p.Y - c.start.Y)
		x := clamp(grid.Snap(g.origin.X+dx), 0, planW-g.w)
		y := clamp(grid.Snap(g.origin.Y+dy), 0, planH-g.h)
		return domain.Rect{X: x, Y: y, W: g.w, H: g.h}
	default:
		ux, uy := c.view.ToUnits(p)
		x := clamp(grid.Snap(ux-g.w/2), 0, planW-g.w)
		y := clamp(grid.Snap(uy-g.h/2), 0, planH-g.h)
		return domain.Rect{X: x, Y: y, W: g.w, H: g.h}
	}
}

// ─── release ─────────────────────────────────────────────────

// Release ends the gesture and commits the drop through the Editor.
func (c *Controller) Release(p Point) Result {
	c.mu.Lock()
	phase, g := c.phase, c.g
	var proxy domain.Rect
	var outside bool
	if phase == Dragging {
		proxy = c.proxyAt(p)
		outside = g.kind != GestureResize && !c.onStage(p)
	}
	c.phase = Idle
	c.g = gesture{}
	c.proxy = domain.Rect{}
	c.mu.Unlock()

	switch {
	case phase == Idle:
		return Result{Outcome: OutcomeNone}
	case phase == Pressed:
		return Result{Outcome: OutcomeClick, Ref: g.ref}
	case outside:
		return Result{Outcome: OutcomeDiscarded, Ref: g.ref}
	}
	return c.commit(g, proxy)
}

// Cancel abandons the gesture without editing.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = Idle
	c.g = gesture{}
	c.proxy = domain.Rect{}
}

func (c *Controller) onStage(p Point) bool {
	planW, planH := c.editor.PlanSize()
	ux, uy := c.view.ToUnits(p)
	return ux >= 0 && uy >= 0 && ux <= planW && uy <= planH
}

func (c *Controller) commit(g gesture, r domain.Rect) Result {
	ref := g.ref
	var err error
	switch g.kind {
	case GestureMove:
		if ref.Kind == domain.KindStudent {
			_, err = c.editor.MoveStudent(ref.StudentID, r.X, r.Y)
		} else {
			_, err = c.editor.MoveFurniture(ref.Furniture, r.X, r.Y)
		}
	case GestureCreateStudent:
		_, err = c.editor.PlaceStudent(ref.StudentID, r.X, r.Y)
	case GestureCreateFurniture:
		var f domain.Furniture
		f, err = c.editor.AddFurniture(g.furniture, r.X, r.Y)
		if err == nil {
			ref = f.Ref()
		}
	case GestureResize:
		_, err = c.editor.ResizeFurniture(ref.Furniture, r.W, r.H)
	}
	if err != nil {
		return Result{Outcome: OutcomeRejected, Ref: ref, Err: err}
	}
	return Result{Outcome: OutcomeDropped, Ref: ref}
}

// ─── rotation ────────────────────────────────────────────────

// Wheel applies a fine rotation step. Scrolling down turns counter-clockwise.
func (c *Controller) Wheel(ref domain.EntityRef, deltaY float64) error {
	if deltaY == 0 {
		return nil
	}
	step := service.StudentFineStep
	if ref.Kind == domain.KindFurniture {
		step = service.FurnitureFineStep
	}
	if deltaY > 0 {
		step = -step
	}
	return c.rotate(ref, step)
}

// Rotate applies the coarse quarter-turn step.
func (c *Controller) Rotate(ref domain.EntityRef, clockwise bool) error {
	step := service.StudentCoarseStep
	if ref.Kind == domain.KindFurniture {
		step = service.FurnitureCoarseStep
	}
	if !clockwise {
		step = -step
	}
	return c.rotate(ref, step)
}

func (c *Controller) rotate(ref domain.EntityRef, delta float64) error {
	if c.Busy() {
		return ErrBusy
	}
	var err error
	if ref.Kind == domain.KindStudent {
		_, err = c.editor.RotateStudent(ref.StudentID, delta)
	} else {
		_, err = c.editor.RotateFurniture(ref.Furniture, delta)
	}
	return err
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}
