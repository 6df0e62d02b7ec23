package mcpserver

import (
	"seatplan/internal/domain"
	"seatplan/internal/grid"
	"seatplan/internal/layout"
)

// Padding is the gap, in units, the row scan keeps around existing shapes.
const Padding = 0.25

// rowSeater finds spots for cards the agent did not position, scanning rows
// top to bottom and left to right so a class fills the room in reading order.
type rowSeater struct {
	step    float64
	padding float64
}

func newRowSeater() *rowSeater {
	return &rowSeater{step: 0.5, padding: Padding}
}

// Next returns the first padded free corner for a w x h box on a planW x
// planH plan, or false when the plan is full.
func (rs *rowSeater) Next(occupied []domain.Rect, w, h, planW, planH float64) (float64, float64, bool) {
	padded := make([]domain.Rect, len(occupied))
	for i, occ := range occupied {
		padded[i] = domain.Rect{
			X: occ.X - rs.padding,
			Y: occ.Y - rs.padding,
			W: occ.W + rs.padding*2,
			H: occ.H + rs.padding*2,
		}
	}
	for y := 0.0; y+h <= planH+grid.Eps; y += rs.step {
		for x := 0.0; x+w <= planW+grid.Eps; x += rs.step {
			candidate := domain.Rect{X: grid.Snap(x), Y: grid.Snap(y), W: w, H: h}
			if layout.IsFree(candidate, padded) {
				return candidate.X, candidate.Y, true
			}
		}
	}
	return 0, 0, false
}

// SeatAll places every unplaced student with Next. It stops at the first
// student that finds no spot and returns those it placed.
func (rs *rowSeater) SeatAll(l interface {
	Unplaced() []domain.Student
	Occupied(exclude *domain.EntityRef) []domain.Rect
	PlanSize() (float64, float64)
	PlaceStudent(studentID int64, x, y float64) (domain.Placement, error)
}) ([]domain.Placement, error) {
	w, h := domain.StudentSize()
	planW, planH := l.PlanSize()
	var placed []domain.Placement
	for _, st := range l.Unplaced() {
		x, y, ok := rs.Next(l.Occupied(nil), w, h, planW, planH)
		if !ok {
			return placed, domain.ErrPlacementRejected
		}
		p, err := l.PlaceStudent(st.ID, x, y)
		if err != nil {
			return placed, err
		}
		placed = append(placed, p)
	}
	return placed, nil
}
