package mcpserver

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatplan/internal/catalog"
	"seatplan/internal/domain"
	"seatplan/internal/grid"
	"seatplan/internal/service"
)

type fakeRemote struct {
	mu               sync.Mutex
	furnitureDeletes []int64
}

func (f *fakeRemote) DeletePosition(context.Context, int64, int64) error { return nil }

func (f *fakeRemote) DeleteFurniture(_ context.Context, _, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.furnitureDeletes = append(f.furnitureDeletes, itemID)
	return nil
}

type fakeSession struct {
	layout  *service.LayoutService
	bundle  *domain.PlanBundle
	opened  []*int64
	flushes int
}

func (f *fakeSession) ClassroomID() int64             { return 3 }
func (f *fakeSession) Plans() []domain.Plan           { return f.bundle.Plans }
func (f *fakeSession) Layout() *service.LayoutService { return f.layout }

func (f *fakeSession) Open(_ context.Context, planID *int64) error {
	f.opened = append(f.opened, planID)
	return f.layout.Load(f.bundle)
}

func (f *fakeSession) Flush(context.Context) error {
	f.flushes++
	return nil
}

func (f *fakeSession) CreatePlan(context.Context, string, int, int) (int64, error) { return 2, nil }
func (f *fakeSession) DuplicatePlan(context.Context) (int64, error)                { return 2, nil }

func (f *fakeSession) ResetPlan(context.Context, bool) (domain.ResetResult, error) {
	return domain.ResetResult{Positions: 1}, nil
}

func newTestServer(t *testing.T, open bool) (*Server, *fakeSession, *fakeRemote) {
	t.Helper()
	plan := domain.Plan{ID: 1, ClassroomID: 3, Name: "Room 12", Width: 10, Height: 8, GridSize: grid.Subdiv, IsActive: true}
	deskID := int64(7)
	remote := &fakeRemote{}
	sess := &fakeSession{
		layout: service.NewLayoutService(catalog.Default(), remote, nil),
		bundle: &domain.PlanBundle{
			Plans:      []domain.Plan{plan},
			ActivePlan: &plan,
			Students: []domain.Student{
				{ID: 1, ClassroomID: 3, FirstName: "Ada", LastName: "Lovelace"},
				{ID: 2, ClassroomID: 3, FirstName: "Alan"},
				{ID: 3, ClassroomID: 3, FirstName: "Grace"},
			},
			Furniture: []domain.FurnitureRecord{
				{ID: &deskID, ClientUID: "desk-1", Type: "desk", X: 0, Y: 224, W: 64, H: 32, Z: 1},
			},
		},
	}
	if open {
		require.NoError(t, sess.layout.Load(sess.bundle))
	}
	return New(Deps{Session: sess}), sess, remote
}

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, h handler, args map[string]any) (string, error) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		return "", err
	}
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, nil
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestTools_RequireOpenPlan(t *testing.T) {
	s, _, _ := newTestServer(t, false)
	_, err := call(t, s.handleListStudents, nil)
	assert.ErrorIs(t, err, domain.ErrNoActivePlan)
	_, err = call(t, s.handleAddFurniture, map[string]any{"type": "desk"})
	assert.ErrorIs(t, err, domain.ErrNoActivePlan)
}

func TestTools_OpenPlan(t *testing.T) {
	s, sess, _ := newTestServer(t, false)

	out, err := call(t, s.handleOpenPlan, map[string]any{"planId": float64(1)})
	require.NoError(t, err)
	require.Len(t, sess.opened, 1)
	require.NotNil(t, sess.opened[0])
	assert.Equal(t, int64(1), *sess.opened[0])

	st := decode[planState](t, out)
	assert.Equal(t, "Room 12", st.Plan.Name)
	assert.Len(t, st.Unplaced, 3)
	require.Len(t, st.Furniture, 1)
	assert.Equal(t, "7", st.Furniture[0].Key)

	_, err = call(t, s.handleOpenPlan, nil)
	require.NoError(t, err)
	assert.Nil(t, sess.opened[1], "no id opens the active plan")
}

func TestTools_PlaceStudents(t *testing.T) {
	s, sess, _ := newTestServer(t, true)

	out, err := call(t, s.handlePlaceStudent, map[string]any{"studentId": float64(1)})
	require.NoError(t, err)
	p := decode[domain.Placement](t, out)
	assert.Equal(t, 0.0, p.X)
	assert.Equal(t, 0.0, p.Y)

	out, err = call(t, s.handlePlaceStudent, map[string]any{"studentId": float64(2), "x": 5.0, "y": 3.0})
	require.NoError(t, err)
	p = decode[domain.Placement](t, out)
	assert.Equal(t, 5.0, p.X)
	assert.Equal(t, 3.0, p.Y)

	_, err = call(t, s.handlePlaceStudent, map[string]any{"studentId": float64(99)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, err = call(t, s.handleListStudents, map[string]any{"unplacedOnly": true})
	require.NoError(t, err)
	views := decode[[]studentView](t, out)
	require.Len(t, views, 1)
	assert.Equal(t, "Grace", views[0].Name)

	out, err = call(t, s.handleSeatRemaining, nil)
	require.NoError(t, err)
	assert.Equal(t, "Placed 1 students", out)
	assert.Empty(t, sess.layout.Unplaced())
}

func TestTools_MoveRotateRemoveStudent(t *testing.T) {
	s, sess, _ := newTestServer(t, true)
	_, err := sess.layout.PlaceStudent(1, 0, 0)
	require.NoError(t, err)

	out, err := call(t, s.handleMoveStudent, map[string]any{"studentId": float64(1), "x": 4.0, "y": 2.0})
	require.NoError(t, err)
	assert.Equal(t, 4.0, decode[domain.Placement](t, out).X)

	out, err = call(t, s.handleRotateStudent, map[string]any{"studentId": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, 90.0, decode[domain.Placement](t, out).Rotation)

	_, err = call(t, s.handleRemoveStudent, map[string]any{"studentId": float64(1)})
	require.NoError(t, err)
	assert.Empty(t, sess.layout.Placements())

	_, err = call(t, s.handleMoveStudent, map[string]any{"studentId": "one", "x": 1.0, "y": 1.0})
	assert.Error(t, err)
}

func TestTools_Furniture(t *testing.T) {
	s, sess, remote := newTestServer(t, true)

	_, err := call(t, s.handleAddFurniture, map[string]any{"type": "piano"})
	assert.ErrorIs(t, err, domain.ErrUnknownFurniture)

	out, err := call(t, s.handleAddFurniture, map[string]any{"type": "board", "x": 3.0, "y": 0.0})
	require.NoError(t, err)
	board := decode[furnitureView](t, out)
	assert.Equal(t, board.DedupID, board.Key, "unsynced items are keyed by their local key")
	assert.Equal(t, 3.0, board.X)

	out, err = call(t, s.handleMoveFurniture, map[string]any{"key": board.Key, "x": 4.0, "y": 1.0})
	require.NoError(t, err)
	moved := decode[furnitureView](t, out)
	assert.Equal(t, 4.0, moved.X)
	assert.Equal(t, 1.0, moved.Y)

	out, err = call(t, s.handleResizeFurniture, map[string]any{"key": board.Key, "w": 5.0, "h": 1.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, decode[furnitureView](t, out).W)

	_, err = call(t, s.handleResizeFurniture, map[string]any{"key": board.Key, "w": 0.0, "h": 1.0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	out, err = call(t, s.handleRecolorFurniture, map[string]any{"key": "7", "color": "#ff0000", "rounded": true})
	require.NoError(t, err)
	desk := decode[furnitureView](t, out)
	assert.Equal(t, "#ff0000", desk.Color)
	assert.True(t, desk.Rounded)
	assert.Equal(t, "desk", desk.Type)

	out, err = call(t, s.handleDuplicateFurniture, map[string]any{"keys": []any{"7"}})
	require.NoError(t, err)
	copies := decode[[]furnitureView](t, out)
	require.Len(t, copies, 1)
	assert.NotEqual(t, "7", copies[0].Key)

	_, err = call(t, s.handleDeleteFurniture, map[string]any{"key": "7"})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, remote.furnitureDeletes)

	_, err = call(t, s.handleDeleteFurniture, map[string]any{"key": board.Key})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, remote.furnitureDeletes, "unsynced items are dropped locally")
	assert.Len(t, sess.layout.Furniture(), 1)
}

func TestTools_Align(t *testing.T) {
	s, sess, _ := newTestServer(t, true)
	_, err := sess.layout.PlaceStudent(1, 0, 0)
	require.NoError(t, err)
	_, err = sess.layout.PlaceStudent(2, 4, 3)
	require.NoError(t, err)

	_, err = call(t, s.handleAlign, map[string]any{"edge": "top", "studentIds": []any{1.0, 2.0}})
	require.NoError(t, err)
	for _, p := range sess.layout.Placements() {
		assert.Equal(t, 0.0, p.Y)
	}

	_, err = call(t, s.handleAlign, map[string]any{"edge": "middle", "studentIds": []any{1.0, 2.0}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTools_PlansAndFlush(t *testing.T) {
	s, sess, _ := newTestServer(t, true)

	out, err := call(t, s.handleListPlans, nil)
	require.NoError(t, err)
	plans := decode[[]domain.Plan](t, out)
	require.Len(t, plans, 1)
	assert.True(t, plans[0].IsActive)

	out, err = call(t, s.handleResetPlan, map[string]any{"full": true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), decode[domain.ResetResult](t, out).Positions)

	_, err = call(t, s.handleFlush, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.flushes)

	_, err = call(t, s.handleCreatePlan, map[string]any{"name": "Lab"})
	assert.Error(t, err)
}

func TestResources_ActivePlan(t *testing.T) {
	s, _, _ := newTestServer(t, true)

	contents, err := s.handleActivePlanResource(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, activePlanURI, text.URI)
	assert.Contains(t, text.Text, `"unplaced"`)
	assert.Contains(t, text.Text, `"key": "7"`)
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in     string
		synced bool
	}{
		{"7", true},
		{"#7", true},
		{"0", false},
		{"-3", false},
		{"4f0c8e0a-1b7e-4a36-9d0e-1f1a0b7c2d3e", false},
		{"local:abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k, err := parseKey(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.synced, k.IsSynced())
		})
	}
	k, _ := parseKey("local:abc")
	assert.Equal(t, "abc", k.LocalKey())

	_, err := parseKey("  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
