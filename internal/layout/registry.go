package layout

import "seatplan/internal/domain"

// Occupied lists the footprints of shapes, skipping the entity named by
// exclude (if any). It never mutates its input.
func Occupied(shapes []domain.Shape, exclude *domain.EntityRef) []domain.Rect {
	rects := make([]domain.Rect, 0, len(shapes))
	for _, s := range shapes {
		if exclude != nil && s.Ref() == *exclude {
			continue
		}
		rects = append(rects, s.Bounds())
	}
	return rects
}

// OccupiedExcept is Occupied with a set of excluded entities, used when a
// group of shapes moves together.
func OccupiedExcept(shapes []domain.Shape, exclude map[domain.EntityRef]bool) []domain.Rect {
	rects := make([]domain.Rect, 0, len(shapes))
	for _, s := range shapes {
		if exclude[s.Ref()] {
			continue
		}
		rects = append(rects, s.Bounds())
	}
	return rects
}
