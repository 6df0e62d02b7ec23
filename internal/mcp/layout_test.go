package mcpserver

import (
	"testing"

	"seatplan/internal/domain"
	"seatplan/internal/layout"
)

func TestNext_EmptyPlan(t *testing.T) {
	rs := newRowSeater()
	x, y, ok := rs.Next(nil, 2, 1, 10, 8)
	if !ok || x != 0 || y != 0 {
		t.Errorf("expected (0, 0) on an empty plan, got (%.2f, %.2f, %v)", x, y, ok)
	}
}

func TestNext_KeepsPadding(t *testing.T) {
	rs := newRowSeater()
	existing := []domain.Rect{{X: 0, Y: 0, W: 2.8125, H: 2}}
	x, y, ok := rs.Next(existing, 2.8125, 2, 10, 8)
	if !ok {
		t.Fatal("expected a spot")
	}
	if x != 3.5 || y != 0 {
		t.Errorf("expected (3.5, 0) beside the first card, got (%.2f, %.2f)", x, y)
	}
}

func TestNext_WrapsToNextRow(t *testing.T) {
	rs := newRowSeater()
	existing := []domain.Rect{
		{X: 0, Y: 0, W: 2.8125, H: 2},
		{X: 3.5, Y: 0, W: 2.8125, H: 2},
		{X: 7, Y: 0, W: 2.8125, H: 2},
	}
	x, y, ok := rs.Next(existing, 2.8125, 2, 10, 8)
	if !ok {
		t.Fatal("expected a spot")
	}
	if x != 0 || y != 2.5 {
		t.Errorf("expected (0, 2.5) on the second row, got (%.2f, %.2f)", x, y)
	}
	r := domain.Rect{X: x, Y: y, W: 2.8125, H: 2}
	for _, b := range existing {
		if layout.Overlaps(r, b) {
			t.Errorf("spot (%.2f, %.2f) overlaps card at (%.2f, %.2f)", x, y, b.X, b.Y)
		}
	}
}

func TestNext_FullPlan(t *testing.T) {
	rs := newRowSeater()
	existing := []domain.Rect{{X: 0, Y: 0, W: 4, H: 3}}
	if _, _, ok := rs.Next(existing, 2, 2, 4, 3); ok {
		t.Error("expected no spot on a full plan")
	}
}

func TestNext_TooLarge(t *testing.T) {
	rs := newRowSeater()
	if _, _, ok := rs.Next(nil, 5, 1, 4, 3); ok {
		t.Error("a box wider than the plan cannot fit")
	}
}
