package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"seatplan/internal/domain"
	"seatplan/internal/service"
)

func (s *Server) registerStudentTools() {
	// ── list_students ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_students",
		mcp.WithDescription("List the roster with each student's card position, if placed"),
		mcp.WithBoolean("unplacedOnly", mcp.Description("Only students without a card on the plan")),
	), s.handleListStudents)

	// ── place_student ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("place_student",
		mcp.WithDescription("Put a student's card on the plan near (x, y) in grid units. The nearest free spot is used; without x and y the next free spot in reading order is used."),
		mcp.WithNumber("studentId", mcp.Description("Student ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("X position (optional)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional)")),
	), s.handlePlaceStudent)

	// ── seat_remaining ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("seat_remaining",
		mcp.WithDescription("Place every unplaced student in rows, top to bottom"),
	), s.handleSeatRemaining)

	// ── move_student ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_student",
		mcp.WithDescription("Move a placed card to (x, y), or the nearest free spot"),
		mcp.WithNumber("studentId", mcp.Description("Student ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New Y position"), mcp.Required()),
	), s.handleMoveStudent)

	// ── rotate_student ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("rotate_student",
		mcp.WithDescription("Rotate a card about its centre. Default is a quarter turn."),
		mcp.WithNumber("studentId", mcp.Description("Student ID"), mcp.Required()),
		mcp.WithNumber("degrees", mcp.Description("Signed angle in degrees (default 90)")),
	), s.handleRotateStudent)

	// ── remove_student ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_student",
		mcp.WithDescription("Take a student's card off the plan"),
		mcp.WithNumber("studentId", mcp.Description("Student ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveStudent)
}

type studentView struct {
	domain.Student
	Name      string            `json:"name"`
	Placement *domain.Placement `json:"placement,omitempty"`
}

func (s *Server) handleListStudents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.requirePlan()
	if err != nil {
		return nil, err
	}
	placed := map[int64]domain.Placement{}
	for _, p := range l.Placements() {
		placed[p.StudentID] = p
	}
	unplacedOnly := req.GetBool("unplacedOnly", false)

	views := []studentView{}
	for _, st := range l.Students() {
		v := studentView{Student: st, Name: st.DisplayName()}
		if p, ok := placed[st.ID]; ok {
			if unplacedOnly {
				continue
			}
			v.Placement = &p
		}
		views = append(views, v)
	}
	return jsonResult(views)
}

func (s *Server) handlePlaceStudent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.requirePlan()
	if err != nil {
		return nil, err
	}
	args := req.GetArguments()
	id, err := requireInt64(args, "studentId")
	if err != nil {
		return nil, err
	}

	x, hasX := args["x"].(float64)
	y, hasY := args["y"].(float64)
	if !hasX || !hasY {
		w, h := domain.StudentSize()
		planW, planH := l.PlanSize()
		exclude := domain.StudentRef(id)
		var ok bool
		if x, y, ok = s.seater.Next(l.Occupied(&exclude), w, h, planW, planH); !ok {
			return nil, domain.ErrPlacementRejected
		}
	}

	p, err := l.PlaceStudent(id, x, y)
	if err != nil {
		return nil, err
	}
	return jsonResult(p)
}

func (s *Server) handleSeatRemaining(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.requirePlan()
	if err != nil {
		return nil, err
	}
	placed, err := s.seater.SeatAll(l)
	if err != nil && len(placed) == 0 {
		return nil, err
	}
	msg := fmt.Sprintf("Placed %d students", len(placed))
	if left := len(l.Unplaced()); left > 0 {
		msg += fmt.Sprintf("; %d did not fit", left)
	}
	return textResult(msg), nil
}

func (s *Server) handleMoveStudent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.requirePlan()
	if err != nil {
		return nil, err
	}
	args := req.GetArguments()
	id, err := requireInt64(args, "studentId")
	if err != nil {
		return nil, err
	}
	p, err := l.MoveStudent(id, getFloat(args, "x", 0), getFloat(args, "y", 0))
	if err != nil {
		return nil, err
	}
	return jsonResult(p)
}

func (s *Server) handleRotateStudent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.requirePlan()
	if err != nil {
		return nil, err
	}
	args := req.GetArguments()
	id, err := requireInt64(args, "studentId")
	if err != nil {
		return nil, err
	}
	p, err := l.RotateStudent(id, getFloat(args, "degrees", service.StudentCoarseStep))
	if err != nil {
		return nil, err
	}
	return jsonResult(p)
}

func (s *Server) handleRemoveStudent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.requirePlan()
	if err != nil {
		return nil, err
	}
	id, err := requireInt64(req.GetArguments(), "studentId")
	if err != nil {
		return nil, err
	}
	if err := l.RemoveStudent(ctx, id); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Student %d removed from the plan", id)), nil
}
