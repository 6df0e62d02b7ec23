package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"seatplan/internal/domain"
	"seatplan/internal/service"
)

func (s *Server) registerFurnitureTools() {
	// ── list_catalog ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_catalog",
		mcp.WithDescription("List the furniture types that can be added, with their default size in grid units"),
	), s.handleListCatalog)

	// ── list_furniture ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_furniture",
		mcp.WithDescription("List furniture on the open plan with the key other tools expect"),
	), s.handleListFurniture)

	// ── add_furniture ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_furniture",
		mcp.WithDescription("Add a catalog item near (x, y) in grid units. Without x and y the next free spot in reading order is used."),
		mcp.WithString("type", mcp.Description("Catalog type (see list_catalog)"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("X position (optional)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional)")),
	), s.handleAddFurniture)

	// ── move_furniture ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_furniture",
		mcp.WithDescription("Move an item to (x, y), or the nearest free spot"),
		mcp.WithString("key", mcp.Description("Furniture key"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New Y position"), mcp.Required()),
	), s.handleMoveFurniture)

	// ── resize_furniture ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_furniture",
		mcp.WithDescription("Resize an item to w x h units as drawn"),
		mcp.WithString("key", mcp.Description("Furniture key"), mcp.Required()),
		mcp.WithNumber("w", mcp.Description("New width"), mcp.Required()),
		mcp.WithNumber("h", mcp.Description("New height"), mcp.Required()),
	), s.handleResizeFurniture)

	// ── rotate_furniture ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("rotate_furniture",
		mcp.WithDescription("Rotate an item about its centre. Default is a quarter turn."),
		mcp.WithString("key", mcp.Description("Furniture key"), mcp.Required()),
		mcp.WithNumber("degrees", mcp.Description("Signed angle in degrees (default 90)")),
	), s.handleRotateFurniture)

	// ── recolor_furniture ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("recolor_furniture",
		mcp.WithDescription("Change an item's label, color or corner style. Omitted fields are kept; an empty color restores the type default."),
		mcp.WithString("key", mcp.Description("Furniture key"), mcp.Required()),
		mcp.WithString("label", mcp.Description("Label drawn on the item")),
		mcp.WithString("color", mcp.Description("CSS color, e.g. #f1e7db")),
		mcp.WithBoolean("rounded", mcp.Description("Rounded corners")),
	), s.handleRecolorFurniture)

	// ── delete_furniture ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_furniture",
		mcp.WithDescription("Delete an item from the plan"),
		mcp.WithString("key", mcp.Description("Furniture key"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteFurniture)

	// ── duplicate_furniture ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_furniture",
		mcp.WithDescription("Paste copies of items one unit down and right of each source"),
		mcp.WithArray("keys", mcp.Description("Furniture keys"), mcp.Required(), mcp.Items(map[string]any{"type": "string"})),
	), s.handleDuplicateFurniture)
}

func (s *Server) handleListCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.catalog.Items())
}

func (s *Server) handleListFurniture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.requirePlan()
	if err != nil {
		return nil, err
	}
	return jsonResult(viewFurnitureList(l.Furniture()))
}

func (s *Server) handleAddFurniture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.requirePlan()
	if err != nil {
		return nil, err
	}
	args := req.GetArguments()
	typ := req.GetString("type", "")
	w, h, ok := l.FurnitureSize(typ)
	if !ok {
		return nil, fmt.Errorf("%q: %w", typ, domain.ErrUnknownFurniture)
	}

	x, hasX := args["x"].(float64)
	y, hasY := args["y"].(float64)
	if !hasX || !hasY {
		planW, planH := l.PlanSize()
		if x, y, ok = s.seater.Next(l.Occupied(nil), w, h, planW, planH); !ok {
			return nil, domain.ErrPlacementRejected
		}
	}

	f, err := l.AddFurniture(typ, x, y)
	if err != nil {
		return nil, err
	}
	return jsonResult(viewFurniture(f))
}

// furnitureArgs resolves the open plan and the key argument.
func (s *Server) furnitureArgs(req mcp.CallToolRequest) (*service.LayoutService, domain.FurnitureKey, error) {
	l, err := s.requirePlan()
	if err != nil {
		return nil, domain.FurnitureKey{}, err
	}
	key, err := parseKey(req.GetString("key", ""))
	if err != nil {
		return nil, domain.FurnitureKey{}, err
	}
	return l, key, nil
}

func (s *Server) handleMoveFurniture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, key, err := s.furnitureArgs(req)
	if err != nil {
		return nil, err
	}
	args := req.GetArguments()
	f, err := l.MoveFurniture(key, getFloat(args, "x", 0), getFloat(args, "y", 0))
	if err != nil {
		return nil, err
	}
	return jsonResult(viewFurniture(f))
}

func (s *Server) handleResizeFurniture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, key, err := s.furnitureArgs(req)
	if err != nil {
		return nil, err
	}
	args := req.GetArguments()
	w, h := getFloat(args, "w", 0), getFloat(args, "h", 0)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: size must be positive", domain.ErrInvalidInput)
	}
	f, err := l.ResizeFurniture(key, w, h)
	if err != nil {
		return nil, err
	}
	return jsonResult(viewFurniture(f))
}

func (s *Server) handleRotateFurniture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, key, err := s.furnitureArgs(req)
	if err != nil {
		return nil, err
	}
	f, err := l.RotateFurniture(key, getFloat(req.GetArguments(), "degrees", service.FurnitureCoarseStep))
	if err != nil {
		return nil, err
	}
	return jsonResult(viewFurniture(f))
}

func (s *Server) handleRecolorFurniture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, key, err := s.furnitureArgs(req)
	if err != nil {
		return nil, err
	}
	args := req.GetArguments()
	var rounded *bool
	if v, ok := args["rounded"].(bool); ok {
		rounded = &v
	}
	f, err := l.UpdateFurnitureStyle(key, getStringPtr(args, "label"), getStringPtr(args, "color"), rounded)
	if err != nil {
		return nil, err
	}
	return jsonResult(viewFurniture(f))
}

func (s *Server) handleDeleteFurniture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, key, err := s.furnitureArgs(req)
	if err != nil {
		return nil, err
	}
	if err := l.DeleteFurniture(ctx, key); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Furniture %s deleted", key)), nil
}

func (s *Server) handleDuplicateFurniture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.requirePlan()
	if err != nil {
		return nil, err
	}
	raw, _ := req.GetArguments()["keys"].([]any)
	keys := make([]domain.FurnitureKey, 0, len(raw))
	for _, v := range raw {
		str, _ := v.(string)
		key, err := parseKey(str)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	copies, err := l.DuplicateFurniture(keys)
	if err != nil {
		return nil, err
	}
	return jsonResult(viewFurnitureList(copies))
}
