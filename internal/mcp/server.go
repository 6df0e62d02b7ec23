package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"seatplan/internal/catalog"
	"seatplan/internal/domain"
	"seatplan/internal/service"
)

// Session is the editing session the tools act on. *app.Session implements it.
type Session interface {
	ClassroomID() int64
	Plans() []domain.Plan
	Open(ctx context.Context, planID *int64) error
	Layout() *service.LayoutService
	Flush(ctx context.Context) error
	CreatePlan(ctx context.Context, name string, width, height int) (int64, error)
	DuplicatePlan(ctx context.Context) (int64, error)
	ResetPlan(ctx context.Context, full bool) (domain.ResetResult, error)
}

// Server is the MCP server for a seating-plan session.
// It exposes tools, resources, and prompts so AI agents can arrange a classroom.
type Server struct {
	mcp     *server.MCPServer
	session Session
	catalog *catalog.Catalog
	seater  *rowSeater
	logger  *log.Logger
}

// Deps holds everything passed from the app layer to the MCP server.
type Deps struct {
	Session Session
	Catalog *catalog.Catalog
	Logger  *log.Logger
	Version string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	s := &Server{
		session: deps.Session,
		catalog: deps.Catalog,
		seater:  newRowSeater(),
		logger:  deps.Logger,
	}

	s.mcp = server.NewMCPServer(
		"seatplan-mcp",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPlanTools()
	s.registerStudentTools()
	s.registerFurnitureTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting stdio server", "classroom", s.session.ClassroomID())
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// requirePlan fails tools that need an open plan.
func (s *Server) requirePlan() (*service.LayoutService, error) {
	l := s.session.Layout()
	if l.PlanID() == 0 {
		return nil, fmt.Errorf("%w (use open_plan first)", domain.ErrNoActivePlan)
	}
	return l, nil
}
