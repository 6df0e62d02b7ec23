package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("arrange_classroom",
		mcp.WithPromptDescription("Lay out furniture and seat the whole class in a given arrangement"),
		mcp.WithArgument("style",
			mcp.ArgumentDescription("Arrangement, e.g. rows, U-shape, islands of four"),
			mcp.RequiredArgument(),
		),
	), s.handleArrangePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("exam_layout",
		mcp.WithPromptDescription("Copy the open plan and spread students out for a test"),
		mcp.WithArgument("gap",
			mcp.ArgumentDescription("Minimum free space between cards, in grid units"),
		),
	), s.handleExamPrompt)
}

func (s *Server) handleArrangePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	style := req.Params.Arguments["style"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Arrange the classroom: %s", style),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Arrange the open classroom plan as "%s". Follow these steps:

1. Read seatplan://plan/active to see the room size, the furniture and who is unplaced
2. Keep the board and the door clear; use list_catalog for item sizes (1 unit = 25 cm)
3. Add or move desks and tables with add_furniture and move_furniture to form the arrangement
4. Seat students with place_student next to the furniture, or seat_remaining for a quick fill
5. Tidy edges with align, then call flush

Placement never overlaps: if a spot is taken the nearest free one is used, so check the returned positions.`, style),
				},
			},
		},
	}, nil
}

func (s *Server) handleExamPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	gap := req.Params.Arguments["gap"]
	if gap == "" {
		gap = "1"
	}
	return &mcp.GetPromptResult{
		Description: "Prepare an exam layout",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Prepare an exam seating from the open plan:

1. Call duplicate_plan so the everyday layout is kept
2. Read seatplan://plan/active on the copy
3. Move student cards with move_student so at least %s unit(s) separate any two cards
4. Rotate every card to face the board with rotate_student if needed
5. Call flush when done`, gap),
				},
			},
		},
	}, nil
}
