package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"seatplan/internal/domain"
)

const (
	activePlanURI = "seatplan://plan/active"
	catalogURI    = "seatplan://catalog"
)

func (s *Server) registerResources() {
	// ── seatplan://plan/active ─────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		activePlanURI,
		"Open Seating Plan",
		mcp.WithResourceDescription("The open plan with its placements, furniture and unplaced students"),
		mcp.WithMIMEType("application/json"),
	), s.handleActivePlanResource)

	// ── seatplan://catalog ─────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		catalogURI,
		"Furniture Catalog",
		mcp.WithMIMEType("application/json"),
	), s.handleCatalogResource)
}

// planState is the snapshot agents read to see the room.
type planState struct {
	Plan       domain.Plan        `json:"plan"`
	Placements []domain.Placement `json:"placements"`
	Furniture  []furnitureView    `json:"furniture"`
	Seats      []domain.Seat      `json:"seats"`
	Unplaced   []domain.Student   `json:"unplaced"`
}

func (s *Server) snapshot() (planState, error) {
	l, err := s.requirePlan()
	if err != nil {
		return planState{}, err
	}
	plan, _ := l.Plan()
	return planState{
		Plan:       plan,
		Placements: l.Placements(),
		Furniture:  viewFurnitureList(l.Furniture()),
		Seats:      l.Seats(),
		Unplaced:   l.Unplaced(),
	}, nil
}

// activeSummary is the tool-result form of the snapshot.
func (s *Server) activeSummary() (*mcp.CallToolResult, error) {
	st, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return jsonResult(st)
}

func (s *Server) handleActivePlanResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	data, _ := json.MarshalIndent(st, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      activePlanURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleCatalogResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, _ := json.MarshalIndent(s.catalog.Items(), "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      catalogURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
