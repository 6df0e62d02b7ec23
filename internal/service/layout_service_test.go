package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatplan/internal/catalog"
	"seatplan/internal/domain"
	"seatplan/internal/grid"
	"seatplan/internal/layout"
	"seatplan/internal/service"
)

type fakeRemote struct {
	mu               sync.Mutex
	positionDeletes  []int64
	furnitureDeletes []int64
	err              error
}

func (f *fakeRemote) DeletePosition(_ context.Context, _, studentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.positionDeletes = append(f.positionDeletes, studentID)
	return nil
}

func (f *fakeRemote) DeleteFurniture(_ context.Context, _, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.furnitureDeletes = append(f.furnitureDeletes, itemID)
	return nil
}

type fakeNotifier struct {
	placements, furniture int
	forgotten             []string
}

func (n *fakeNotifier) PlacementsChanged()  { n.placements++ }
func (n *fakeNotifier) FurnitureChanged()   { n.furniture++ }
func (n *fakeNotifier) Forget(dedup string) { n.forgotten = append(n.forgotten, dedup) }

func bundle(w, h int, furniture ...domain.FurnitureRecord) *domain.PlanBundle {
	plan := domain.Plan{ID: 1, ClassroomID: 3, Name: "Room 12", Width: w, Height: h, GridSize: grid.Subdiv, IsActive: true}
	return &domain.PlanBundle{
		Plans:      []domain.Plan{plan},
		ActivePlan: &plan,
		Students: []domain.Student{
			{ID: 1, FirstName: "Ada", LastName: "Lovelace"},
			{ID: 2, FirstName: "Alan", LastName: "Turing"},
			{ID: 3, FirstName: "Grace", LastName: "Hopper"},
		},
		Furniture: furniture,
	}
}

func newService(t *testing.T, b *domain.PlanBundle) (*service.LayoutService, *fakeRemote, *fakeNotifier, *service.MockEmitter) {
	t.Helper()
	remote := &fakeRemote{}
	notifier := &fakeNotifier{}
	emitter := &service.MockEmitter{}
	svc := service.NewLayoutService(catalog.Default(), remote, emitter)
	svc.SetNotifier(notifier)
	require.NoError(t, svc.Load(b))
	return svc, remote, notifier, emitter
}

func assertNoOverlap(t *testing.T, svc *service.LayoutService) {
	t.Helper()
	rects := svc.Occupied(nil)
	w, h := svc.PlanSize()
	for i, a := range rects {
		assert.True(t, a.Within(w, h), "%v is outside the plan", a)
		for _, b := range rects[i+1:] {
			assert.False(t, layout.Overlaps(a, b), "%v overlaps %v", a, b)
		}
	}
}

func TestLayoutService_LoadRequiresActivePlan(t *testing.T) {
	svc := service.NewLayoutService(catalog.Default(), &fakeRemote{}, nil)
	err := svc.Load(&domain.PlanBundle{})
	assert.ErrorIs(t, err, domain.ErrNoActivePlan)

	_, err = svc.AddFurniture("desk", 0, 0)
	assert.ErrorIs(t, err, domain.ErrNoActivePlan)
}

func TestLayoutService_PlaceStudent(t *testing.T) {
	svc, _, notifier, _ := newService(t, bundle(30, 20))

	p, err := svc.PlaceStudent(1, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, p.X)
	assert.Equal(t, 5.0, p.Y)

	q, err := svc.PlaceStudent(2, 5, 5)
	require.NoError(t, err)
	assert.False(t, q.X == 5 && q.Y == 5, "second card must not land on the first")
	assertNoOverlap(t, svc)
	assert.Equal(t, 2, notifier.placements)

	// placing again moves the existing card
	_, err = svc.PlaceStudent(1, 20, 10)
	require.NoError(t, err)
	assert.Len(t, svc.Placements(), 2)
	assert.Len(t, svc.Unplaced(), 1)

	_, err = svc.PlaceStudent(99, 1, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLayoutService_MoveStudentIgnoresItself(t *testing.T) {
	svc, _, _, _ := newService(t, bundle(30, 20))
	_, err := svc.PlaceStudent(1, 5, 5)
	require.NoError(t, err)

	// a small nudge overlaps only the card's own old footprint
	p, err := svc.MoveStudent(1, 5.5, 5)
	require.NoError(t, err)
	assert.Equal(t, 5.5, p.X)

	_, err = svc.MoveStudent(2, 1, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLayoutService_RotateStudentFourQuarterTurns(t *testing.T) {
	svc, _, _, _ := newService(t, bundle(30, 20))
	start, err := svc.PlaceStudent(1, 10, 8)
	require.NoError(t, err)
	startBounds := start.Bounds()

	var p domain.Placement
	for i := 0; i < 4; i++ {
		p, err = svc.RotateStudent(1, service.StudentCoarseStep)
		require.NoError(t, err)
		if i == 0 {
			b := p.Bounds()
			assert.Equal(t, startBounds.W, b.H, "first quarter turn swaps the footprint")
		}
	}
	assert.Equal(t, 360.0, p.Rotation)
	assert.False(t, domain.QuarterTurn(p.Rotation))
	assert.Equal(t, startBounds, p.Bounds())
}

func TestLayoutService_RotateStaysInsidePlan(t *testing.T) {
	svc, _, _, _ := newService(t, bundle(30, 20))
	_, err := svc.PlaceStudent(1, 0, 0)
	require.NoError(t, err)
	p, err := svc.RotateStudent(1, -90)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.X, 0.0)
	assert.GreaterOrEqual(t, p.Y, 0.0)
	assert.GreaterOrEqual(t, p.Record().X, 0)
}

func TestLayoutService_AddFurniture(t *testing.T) {
	svc, _, notifier, _ := newService(t, bundle(30, 20))

	_, err := svc.AddFurniture("piano", 1, 1)
	assert.ErrorIs(t, err, domain.ErrUnknownFurniture)

	first, err := svc.AddFurniture("door", 5, 5)
	require.NoError(t, err)
	assert.False(t, first.Key.IsSynced())
	assert.Equal(t, first.DedupID, first.Key.LocalKey())
	rec := first.Record()
	assert.Equal(t, 160, rec.X)
	assert.Equal(t, 160, rec.Y)

	second, err := svc.AddFurniture("door", 5, 5)
	require.NoError(t, err)
	assert.NotEqual(t, first.DedupID, second.DedupID)
	assert.Equal(t, 4.0, second.X)
	assert.Equal(t, 4.0, second.Y)
	assert.Greater(t, second.Z, first.Z)
	assertNoOverlap(t, svc)
	assert.Equal(t, 2, notifier.furniture)
}

func TestLayoutService_MoveFurnitureCollapses(t *testing.T) {
	svc, _, _, _ := newService(t, bundle(30, 20))
	_, err := svc.AddFurniture("desk", 5, 5)
	require.NoError(t, err)
	b, err := svc.AddFurniture("desk", 12, 5)
	require.NoError(t, err)

	moved, err := svc.MoveFurniture(b.Key, 7+grid.Tick, 5)
	require.NoError(t, err)
	assert.Equal(t, 7.0, moved.X, "one-tick gap closes to contact")
}

func TestLayoutService_PlacementRejectedLeavesState(t *testing.T) {
	svc, _, notifier, emitter := newService(t, bundle(4, 4))
	board, err := svc.AddFurniture("board", 0, 0)
	require.NoError(t, err)
	before := svc.Furniture()

	_, err = svc.ResizeFurniture(board.Key, 6, 1)
	assert.ErrorIs(t, err, domain.ErrPlacementRejected)
	assert.Equal(t, before, svc.Furniture())
	assert.Equal(t, 1, notifier.furniture)
	assert.Equal(t, 1, emitter.Count(service.EventRejected))
}

func TestLayoutService_ResizeRoundsUpToTick(t *testing.T) {
	svc, _, _, _ := newService(t, bundle(30, 20))
	desk, err := svc.AddFurniture("desk", 2, 2)
	require.NoError(t, err)

	got, err := svc.ResizeFurniture(desk.Key, 2.01, 0)
	require.NoError(t, err)
	assert.Equal(t, 2+grid.Tick, got.W)
	assert.Equal(t, grid.Tick, got.H, "minimum one tick")

	// resizing a turned item stores the unrotated size
	turned, err := svc.RotateFurniture(desk.Key, 90)
	require.NoError(t, err)
	got, err = svc.ResizeFurniture(turned.Key, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.W)
	assert.Equal(t, 1.0, got.H)
	assert.Equal(t, domain.Rect{X: got.X, Y: got.Y, W: 1, H: 3}, got.Bounds())
}

func TestLayoutService_QuarterTurnsDoNotCreep(t *testing.T) {
	svc, _, _, _ := newService(t, bundle(30, 20))
	desk, err := svc.AddFurniture("desk", 10, 10)
	require.NoError(t, err)
	desk, err = svc.ResizeFurniture(desk.Key, 2+grid.Tick, 2)
	require.NoError(t, err)
	require.Equal(t, 10.0, desk.X)
	require.Equal(t, 10.0, desk.Y)

	got := desk
	for i := 0; i < 4; i++ {
		got, err = svc.RotateFurniture(desk.Key, service.FurnitureCoarseStep)
		require.NoError(t, err)
	}
	assert.Equal(t, 360.0, got.Rotation)
	assert.Equal(t, 10.0, got.X)
	assert.Equal(t, 10.0, got.Y)
}

func TestLayoutService_RotateFurnitureFineSteps(t *testing.T) {
	svc, _, _, _ := newService(t, bundle(30, 20))
	desk, err := svc.AddFurniture("desk", 2, 2)
	require.NoError(t, err)
	var got domain.Furniture
	for i := 0; i < 3; i++ {
		got, err = svc.RotateFurniture(desk.Key, service.FurnitureFineStep)
		require.NoError(t, err)
	}
	assert.Equal(t, 0.3, got.Rotation)
	assert.Equal(t, desk.X, got.X, "fine rotation never moves the item")
}

func TestLayoutService_DeleteUnsyncedFurnitureIsLocal(t *testing.T) {
	svc, remote, notifier, _ := newService(t, bundle(30, 20))
	f, err := svc.AddFurniture("plant", 1, 1)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFurniture(context.Background(), f.Key))
	assert.Empty(t, svc.Furniture())
	assert.Empty(t, remote.furnitureDeletes, "no remote delete for a never-acknowledged item")
	assert.Equal(t, []string{f.DedupID}, notifier.forgotten)
}

func TestLayoutService_DeleteSyncedFurniture(t *testing.T) {
	id := int64(41)
	svc, remote, _, _ := newService(t, bundle(30, 20, domain.FurnitureRecord{
		ID: &id, ClientUID: "u-41", Type: "desk", Label: "Desk", X: 0, Y: 0, W: 64, H: 32,
	}))
	key := domain.Synced(41)

	remote.err = errors.New("service unavailable")
	err := svc.DeleteFurniture(context.Background(), key)
	var delErr *domain.DeleteError
	require.ErrorAs(t, err, &delErr)
	assert.Len(t, svc.Furniture(), 1, "failed delete keeps the item")

	remote.err = nil
	require.NoError(t, svc.DeleteFurniture(context.Background(), key))
	assert.Empty(t, svc.Furniture())
	assert.Equal(t, []int64{41}, remote.furnitureDeletes)
}

func TestLayoutService_RemoveStudent(t *testing.T) {
	svc, remote, _, emitter := newService(t, bundle(30, 20))
	_, err := svc.PlaceStudent(3, 1, 1)
	require.NoError(t, err)

	remote.err = errors.New("boom")
	require.Error(t, svc.RemoveStudent(context.Background(), 3))
	assert.Len(t, svc.Placements(), 1)

	remote.err = nil
	require.NoError(t, svc.RemoveStudent(context.Background(), 3))
	assert.Empty(t, svc.Placements())
	assert.Equal(t, []int64{3}, remote.positionDeletes)
	assert.Equal(t, 1, emitter.Count(service.EventRemoved))

	assert.ErrorIs(t, svc.RemoveStudent(context.Background(), 3), domain.ErrNotFound)
}

func TestLayoutService_UpdateStyleAndDuplicate(t *testing.T) {
	svc, _, _, _ := newService(t, bundle(30, 20))
	desk, err := svc.AddFurniture("desk", 3, 3)
	require.NoError(t, err)

	color := "#123456"
	rounded := true
	styled, err := svc.UpdateFurnitureStyle(desk.Key, nil, &color, &rounded)
	require.NoError(t, err)
	assert.Equal(t, "#123456", styled.Color)
	assert.True(t, styled.Rounded)

	copies, err := svc.DuplicateFurniture([]domain.FurnitureKey{desk.Key})
	require.NoError(t, err)
	require.Len(t, copies, 1)
	c := copies[0]
	assert.NotEqual(t, desk.DedupID, c.DedupID)
	assert.Equal(t, "#123456", c.Color)
	assert.Equal(t, 4.0, c.X)
	assert.Equal(t, 4.0, c.Y)
	assertNoOverlap(t, svc)
}

func TestLayoutService_Align(t *testing.T) {
	svc, _, notifier, _ := newService(t, bundle(30, 20))
	a, err := svc.AddFurniture("desk", 3, 1)
	require.NoError(t, err)
	b, err := svc.AddFurniture("desk", 6, 4)
	require.NoError(t, err)
	_, err = svc.PlaceStudent(1, 8, 10)
	require.NoError(t, err)

	refs := []domain.EntityRef{a.Ref(), b.Ref(), domain.StudentRef(1)}
	require.NoError(t, svc.Align(refs, layout.EdgeLeft))
	for _, ref := range refs {
		r, ok := svc.Bounds(ref)
		require.True(t, ok)
		assert.Equal(t, 3.0, r.X)
	}
	assert.Equal(t, 2, notifier.placements, "the place plus one notification for the whole align")

	err = svc.Align(refs[:1], layout.EdgeLeft)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLayoutService_ReloadMergesUnsynced(t *testing.T) {
	svc, _, _, _ := newService(t, bundle(30, 20))
	sent, err := svc.AddFurniture("desk", 1, 1)
	require.NoError(t, err)
	unsent, err := svc.AddFurniture("door", 10, 10)
	require.NoError(t, err)

	// the server stored "sent" at its original spot; locally it moved since
	stored := sent.Record()
	id := int64(7)
	stored.ID = &id
	_, err = svc.MoveFurniture(sent.Key, 5, 5)
	require.NoError(t, err)

	res, err := svc.Reload(bundle(30, 20, stored), 0)
	require.NoError(t, err)
	assert.True(t, res.Furniture)

	items := svc.Furniture()
	require.Len(t, items, 2)
	byDedup := map[string]domain.Furniture{}
	for _, f := range items {
		byDedup[f.DedupID] = f
	}
	got := byDedup[sent.DedupID]
	assert.Equal(t, domain.Synced(7), got.Key)
	assert.Equal(t, 5.0, got.X, "local geometry wins until it is saved")
	assert.False(t, byDedup[unsent.DedupID].Key.IsSynced())
}

func TestLayoutService_ReloadKeepsLaterEdits(t *testing.T) {
	id := int64(9)
	rec := domain.FurnitureRecord{ID: &id, ClientUID: "u-9", Type: "desk", Label: "Desk", X: 32, Y: 32, W: 64, H: 32}
	stale := bundle(30, 20, rec)
	stale.Positions = []domain.PositionRecord{{StudentID: 1, X: 0, Y: 320}}
	svc, _, _, _ := newService(t, stale)

	// edited before the flush: the server copy is current
	_, err := svc.MoveStudent(1, 0, 12)
	require.NoError(t, err)
	since := svc.Revision()

	// edited while the bundle was being fetched
	_, err = svc.MoveFurniture(domain.Synced(9), 5, 5)
	require.NoError(t, err)
	_, err = svc.PlaceStudent(2, 20, 1)
	require.NoError(t, err)

	res, err := svc.Reload(stale, since)
	require.NoError(t, err)
	assert.Equal(t, service.ReloadResult{Positions: true, Furniture: true}, res)

	desk, ok := svc.FindFurniture(domain.Synced(9))
	require.True(t, ok)
	assert.Equal(t, 5.0, desk.X)
	assert.Equal(t, 5.0, desk.Y)

	byStudent := map[int64]domain.Placement{}
	for _, p := range svc.Placements() {
		byStudent[p.StudentID] = p
	}
	require.Len(t, byStudent, 2)
	assert.Equal(t, 10.0, byStudent[1].Y, "older edits take the server copy")
	assert.Equal(t, 20.0, byStudent[2].X)

	// a later reload with nothing new adopts the server copy again
	res, err = svc.Reload(stale, svc.Revision())
	require.NoError(t, err)
	assert.Equal(t, service.ReloadResult{}, res)
	desk, _ = svc.FindFurniture(domain.Synced(9))
	assert.Equal(t, 1.0, desk.X)
}

func TestLayoutService_ReloadClean(t *testing.T) {
	id := int64(9)
	rec := domain.FurnitureRecord{ID: &id, ClientUID: "u-9", Type: "desk", Label: "Desk", X: 32, Y: 32, W: 64, H: 32, Z: 4}
	svc, _, _, _ := newService(t, bundle(30, 20, rec))
	res, err := svc.Reload(bundle(30, 20, rec), svc.Revision())
	require.NoError(t, err)
	assert.Equal(t, service.ReloadResult{}, res)

	f, err := svc.AddFurniture("desk", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, f.Z, "z continues above loaded items")
}
