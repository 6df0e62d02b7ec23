package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"seatplan/internal/layout"
)

func (s *Server) registerPlanTools() {
	// ── list_plans ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_plans",
		mcp.WithDescription("List the classroom's seating plans; the active one is marked"),
	), s.handleListPlans)

	// ── open_plan ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_plan",
		mcp.WithDescription("Open a plan for editing. Without planId the classroom's active plan is opened. Unsaved edits are saved first."),
		mcp.WithNumber("planId", mcp.Description("Plan ID (optional)")),
	), s.handleOpenPlan)

	// ── create_plan ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_plan",
		mcp.WithDescription("Create a plan in grid units (1 unit = 25 cm), make it active and open it"),
		mcp.WithString("name", mcp.Description("Plan name"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("Room width in units"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("Room height in units"), mcp.Required()),
	), s.handleCreatePlan)

	// ── duplicate_plan ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_plan",
		mcp.WithDescription("Copy the open plan with its layout and open the copy"),
	), s.handleDuplicatePlan)

	// ── reset_plan ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("reset_plan",
		mcp.WithDescription("Remove every student card and furniture item from the open plan"),
		mcp.WithBoolean("full", mcp.Description("Also remove seat templates")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleResetPlan)

	// ── align ──────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("align",
		mcp.WithDescription("Align two or more entities on a shared edge. Nothing moves if any of them would collide."),
		mcp.WithString("edge", mcp.Description("left, right, top or bottom"), mcp.Required()),
		mcp.WithArray("studentIds", mcp.Description("Student IDs"), mcp.Items(map[string]any{"type": "number"})),
		mcp.WithArray("furnitureKeys", mcp.Description("Furniture keys"), mcp.Items(map[string]any{"type": "string"})),
	), s.handleAlign)

	// ── flush ──────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("flush",
		mcp.WithDescription("Save pending edits now instead of waiting for autosave"),
	), s.handleFlush)
}

func (s *Server) handleListPlans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.session.Plans())
}

func (s *Server) handleOpenPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var planID *int64
	if id, ok := getInt64(req.GetArguments(), "planId"); ok {
		planID = &id
	}
	if err := s.session.Open(ctx, planID); err != nil {
		return nil, err
	}
	return s.activeSummary()
}

func (s *Server) handleCreatePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name := req.GetString("name", "")
	w, errW := requireInt64(args, "width")
	h, errH := requireInt64(args, "height")
	if name == "" || errW != nil || errH != nil {
		return nil, fmt.Errorf("name, width and height are required")
	}
	id, err := s.session.CreatePlan(ctx, name, int(w), int(h))
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Plan %d created and opened", id)), nil
}

func (s *Server) handleDuplicatePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.session.DuplicatePlan(ctx)
	if err != nil {
		return nil, fmt.Errorf("duplicate plan: %w", err)
	}
	return textResult(fmt.Sprintf("Plan copied to %d and opened", id)), nil
}

func (s *Server) handleResetPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.session.ResetPlan(ctx, req.GetBool("full", false))
	if err != nil {
		return nil, fmt.Errorf("reset plan: %w", err)
	}
	return jsonResult(res)
}

func (s *Server) handleAlign(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.requirePlan()
	if err != nil {
		return nil, err
	}
	edge, err := layout.ParseEdge(req.GetString("edge", ""))
	if err != nil {
		return nil, err
	}
	refs, err := refsFromArgs(req.GetArguments())
	if err != nil {
		return nil, err
	}
	if err := l.Align(refs, edge); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Aligned %d entities on the %s edge", len(refs), edge)), nil
}

func (s *Server) handleFlush(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.session.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	return textResult("Saved"), nil
}
