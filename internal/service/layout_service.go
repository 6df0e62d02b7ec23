package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"seatplan/internal/catalog"
	"seatplan/internal/domain"
	"seatplan/internal/grid"
	"seatplan/internal/layout"
)

// Rotation steps in degrees.
const (
	StudentCoarseStep   = 90.0
	StudentFineStep     = 1.0
	FurnitureCoarseStep = 90.0
	FurnitureFineStep   = 0.1
	// PasteOffset is how far a duplicated item lands from its source, in units.
	PasteOffset = 1.0
)

// ChangeNotifier is told about every committed mutation so it can persist
// it later. The autosave Syncer implements it.
type ChangeNotifier interface {
	PlacementsChanged()
	FurnitureChanged()
	// Forget drops any pending-creation marker for a furniture dedup id.
	Forget(dedupID string)
}

// RemoteDeleter issues deletes against the persistence service.
type RemoteDeleter interface {
	DeletePosition(ctx context.Context, planID, studentID int64) error
	DeleteFurniture(ctx context.Context, planID, itemID int64) error
}

type nopNotifier struct{}

func (nopNotifier) PlacementsChanged() {}
func (nopNotifier) FurnitureChanged()  {}
func (nopNotifier) Forget(string)      {}

// ─────────────────────────────────────────────────────────────
// Layout Service — the single owner of the editing state
// ─────────────────────────────────────────────────────────────

// LayoutService holds the active plan's placements and furniture. Every
// mutation goes through its methods, which validate against the placement
// engine before committing. It is safe for concurrent use.
type LayoutService struct {
	mu        sync.Mutex
	plan      *domain.Plan
	engine    *layout.Engine
	students  map[int64]domain.Student
	roster    []int64
	seats     []domain.Seat
	positions []domain.Placement
	furniture []domain.Furniture
	nextZ     int

	// rev counts mutations; edits holds the rev of each entity's last one.
	rev   uint64
	edits map[domain.EntityRef]uint64

	catalog  *catalog.Catalog
	remote   RemoteDeleter
	notifier ChangeNotifier
	emitter  EventEmitter
}

// NewLayoutService creates an empty LayoutService. Call Load before editing.
func NewLayoutService(cat *catalog.Catalog, remote RemoteDeleter, emitter EventEmitter) *LayoutService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &LayoutService{
		catalog:  cat,
		remote:   remote,
		notifier: nopNotifier{},
		emitter:  emitter,
		students: map[int64]domain.Student{},
	}
}

// SetNotifier wires the autosave layer in. The Syncer needs the service as
// its source, so the two are connected after construction.
func (s *LayoutService) SetNotifier(n ChangeNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

// ── Loading ────────────────────────────────────────────────

// Load replaces the whole state with the bundle's active plan.
func (s *LayoutService) Load(b *domain.PlanBundle) error {
	if b == nil || b.ActivePlan == nil {
		return domain.ErrNoActivePlan
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(b)
	s.positions = placementsFromRecords(b.Positions)
	s.furniture = furnitureFromRecords(b.Furniture)
	s.edits = nil
	s.recomputeZLocked()
	s.emitter.Emit(context.Background(), EventLoaded, s.plan.ID)
	return nil
}

// ReloadResult tells which channels hold local state the server copy
// lacks and must be flushed again.
type ReloadResult struct {
	Positions bool
	Furniture bool
}

// Revision returns the mutation counter. Pass it to Reload to protect edits
// made after it was read.
func (s *LayoutService) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// Reload applies a fresh bundle after an acknowledged save. Entities
// edited after revision since keep their local state, so an edit that lands
// while the bundle is being fetched is not lost. Local items the server has
// not stored yet are kept; local items the server now knows by dedup id take
// the server id but keep local geometry.
func (s *LayoutService) Reload(b *domain.PlanBundle, since uint64) (ReloadResult, error) {
	var res ReloadResult
	if b == nil || b.ActivePlan == nil {
		return res, domain.ErrNoActivePlan
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plan == nil || s.plan.ID != b.ActivePlan.ID {
		s.loadLocked(b)
		s.positions = placementsFromRecords(b.Positions)
		s.furniture = furnitureFromRecords(b.Furniture)
		s.edits = nil
		s.recomputeZLocked()
		s.emitter.Emit(context.Background(), EventLoaded, s.plan.ID)
		return res, nil
	}

	recent := func(ref domain.EntityRef) bool { return s.edits[ref] > since }
	prev := s.positions
	localPos := make(map[int64]domain.Placement, len(prev))
	for _, p := range prev {
		localPos[p.StudentID] = p
	}
	prevFurniture := s.furniture
	localSynced := map[int64]domain.Furniture{}
	unsynced := map[string]domain.Furniture{}
	for _, f := range prevFurniture {
		if f.Key.IsSynced() {
			localSynced[f.Key.ServerID()] = f
		} else {
			unsynced[f.DedupID] = f
		}
	}
	s.loadLocked(b)

	onServer := make(map[int64]bool, len(b.Positions))
	positions := make([]domain.Placement, 0, len(b.Positions))
	for _, r := range b.Positions {
		onServer[r.StudentID] = true
		if !recent(domain.StudentRef(r.StudentID)) {
			positions = append(positions, domain.PlacementFromRecord(r))
			continue
		}
		if p, ok := localPos[r.StudentID]; ok {
			positions = append(positions, p)
			res.Positions = true
		}
	}
	for _, p := range prev {
		if !onServer[p.StudentID] && recent(p.Ref()) {
			positions = append(positions, p)
			res.Positions = true
		}
	}
	s.positions = positions

	merged := make([]domain.Furniture, 0, len(b.Furniture)+len(unsynced))
	for _, rec := range b.Furniture {
		f := domain.FurnitureFromRecord(rec)
		if l, ok := unsynced[rec.ClientUID]; ok && rec.ClientUID != "" {
			delete(unsynced, rec.ClientUID)
			if at, ok := s.edits[l.Ref()]; ok {
				delete(s.edits, l.Ref())
				s.edits[f.Ref()] = at
			}
			l.Key = f.Key
			if l != f {
				res.Furniture = true
			}
			merged = append(merged, l)
			continue
		}
		if recent(f.Ref()) {
			l, ok := localSynced[f.Key.ServerID()]
			if !ok {
				continue
			}
			f = l
			res.Furniture = true
		}
		merged = append(merged, f)
	}
	for _, f := range prevFurniture {
		if _, ok := unsynced[f.DedupID]; ok && !f.Key.IsSynced() {
			merged = append(merged, f)
			res.Furniture = true
		}
	}
	s.furniture = merged

	for ref, at := range s.edits {
		if at <= since {
			delete(s.edits, ref)
		}
	}
	s.recomputeZLocked()
	s.emitter.Emit(context.Background(), EventLoaded, s.plan.ID)
	return res, nil
}

func (s *LayoutService) loadLocked(b *domain.PlanBundle) {
	plan := *b.ActivePlan
	s.plan = &plan
	s.engine = layout.NewEngine(float64(plan.Width), float64(plan.Height))
	s.students = make(map[int64]domain.Student, len(b.Students))
	s.roster = s.roster[:0]
	for _, st := range b.Students {
		s.students[st.ID] = st
		s.roster = append(s.roster, st.ID)
	}
	s.seats = append([]domain.Seat(nil), b.Seats...)
}

func placementsFromRecords(recs []domain.PositionRecord) []domain.Placement {
	out := make([]domain.Placement, 0, len(recs))
	for _, r := range recs {
		out = append(out, domain.PlacementFromRecord(r))
	}
	return out
}

// ── Snapshots ──────────────────────────────────────────────

// PlanID returns the loaded plan's id, or 0.
func (s *LayoutService) PlanID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return 0
	}
	return s.plan.ID
}

// Plan returns a copy of the loaded plan.
func (s *LayoutService) Plan() (domain.Plan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return domain.Plan{}, false
	}
	return *s.plan, true
}

// PlanSize returns the plan's size in units.
func (s *LayoutService) PlanSize() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return 0, 0
	}
	return float64(s.plan.Width), float64(s.plan.Height)
}

func (s *LayoutService) Placements() []domain.Placement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Placement(nil), s.positions...)
}

func (s *LayoutService) Furniture() []domain.Furniture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Furniture(nil), s.furniture...)
}

func (s *LayoutService) Seats() []domain.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Seat(nil), s.seats...)
}

// Students returns the roster in server order.
func (s *LayoutService) Students() []domain.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Student, 0, len(s.roster))
	for _, id := range s.roster {
		out = append(out, s.students[id])
	}
	return out
}

// Unplaced lists roster students without a placement.
func (s *LayoutService) Unplaced() []domain.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Student
	for _, id := range s.roster {
		if s.placementIndexLocked(id) < 0 {
			out = append(out, s.students[id])
		}
	}
	return out
}

// Occupied returns every footprint on the plan, minus exclude.
func (s *LayoutService) Occupied(exclude *domain.EntityRef) []domain.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layout.Occupied(s.shapesLocked(), exclude)
}

// Bounds returns the footprint of one entity.
func (s *LayoutService) Bounds(ref domain.EntityRef) (domain.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundsLocked(ref)
}

// FurnitureSize returns the catalog footprint of a furniture type.
func (s *LayoutService) FurnitureSize(typ string) (float64, float64, bool) {
	it, ok := s.catalog.Lookup(typ)
	if !ok {
		return 0, 0, false
	}
	return grid.CeilTick(it.W), grid.CeilTick(it.H), true
}

// FindFurniture looks an item up by key.
func (s *LayoutService) FindFurniture(key domain.FurnitureKey) (domain.Furniture, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.furnitureIndexLocked(key); i >= 0 {
		return s.furniture[i], true
	}
	return domain.Furniture{}, false
}

func (s *LayoutService) shapesLocked() []domain.Shape {
	shapes := make([]domain.Shape, 0, len(s.positions)+len(s.furniture))
	for _, p := range s.positions {
		shapes = append(shapes, p)
	}
	for _, f := range s.furniture {
		shapes = append(shapes, f)
	}
	return shapes
}

func (s *LayoutService) placementIndexLocked(studentID int64) int {
	for i, p := range s.positions {
		if p.StudentID == studentID {
			return i
		}
	}
	return -1
}

func (s *LayoutService) furnitureIndexLocked(key domain.FurnitureKey) int {
	for i, f := range s.furniture {
		if f.Key == key {
			return i
		}
	}
	return -1
}

// place validates a footprint of size w x h dropped with its corner at
// (x, y), ignoring exclude. It emits a rejection on failure.
func (s *LayoutService) placeLocked(ref domain.EntityRef, x, y, w, h float64, exclude *domain.EntityRef) (domain.Rect, error) {
	if s.plan == nil {
		return domain.Rect{}, domain.ErrNoActivePlan
	}
	others := layout.Occupied(s.shapesLocked(), exclude)
	r, ok := s.engine.Place(grid.Snap(x), grid.Snap(y), w, h, others)
	if !ok {
		s.emitter.Emit(context.Background(), EventRejected, ref)
		return domain.Rect{}, fmt.Errorf("%s: %w", ref, domain.ErrPlacementRejected)
	}
	return r, nil
}

func (s *LayoutService) changed(ref domain.EntityRef) {
	s.touchLocked(ref)
	s.emitter.Emit(context.Background(), EventChanged, ref)
}

func (s *LayoutService) touchLocked(ref domain.EntityRef) {
	s.rev++
	if s.edits == nil {
		s.edits = make(map[domain.EntityRef]uint64)
	}
	s.edits[ref] = s.rev
}

// ── Students ───────────────────────────────────────────────

// PlaceStudent drops a student card with its footprint corner near (x, y).
// A student that is already placed is moved instead, so each student has at
// most one placement.
func (s *LayoutService) PlaceStudent(studentID int64, x, y float64) (domain.Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[studentID]; !ok {
		return domain.Placement{}, fmt.Errorf("student %d: %w", studentID, domain.ErrNotFound)
	}
	if s.placementIndexLocked(studentID) >= 0 {
		return s.moveStudentLocked(studentID, x, y)
	}
	ref := domain.StudentRef(studentID)
	w, h := domain.StudentSize()
	r, err := s.placeLocked(ref, x, y, w, h, nil)
	if err != nil {
		return domain.Placement{}, err
	}
	p := domain.Placement{StudentID: studentID, X: r.X, Y: r.Y}
	s.positions = append(s.positions, p)
	s.changed(ref)
	s.notifier.PlacementsChanged()
	return p, nil
}

// MoveStudent moves a placed card, testing against everything but itself.
func (s *LayoutService) MoveStudent(studentID int64, x, y float64) (domain.Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveStudentLocked(studentID, x, y)
}

func (s *LayoutService) moveStudentLocked(studentID int64, x, y float64) (domain.Placement, error) {
	i := s.placementIndexLocked(studentID)
	if i < 0 {
		return domain.Placement{}, fmt.Errorf("placement of student %d: %w", studentID, domain.ErrNotFound)
	}
	p := s.positions[i]
	ref := p.Ref()
	b := p.Bounds()
	r, err := s.placeLocked(ref, x, y, b.W, b.H, &ref)
	if err != nil {
		return domain.Placement{}, err
	}
	p.X, p.Y = r.X, r.Y
	s.positions[i] = p
	s.changed(ref)
	s.notifier.PlacementsChanged()
	return p, nil
}

// RotateStudent adds delta degrees to the card's absolute angle. The card
// turns about its centre and is only pulled back inside the plan; rotation
// never reflows neighbours.
func (s *LayoutService) RotateStudent(studentID int64, delta float64) (domain.Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.placementIndexLocked(studentID)
	if i < 0 {
		return domain.Placement{}, fmt.Errorf("placement of student %d: %w", studentID, domain.ErrNotFound)
	}
	p := s.positions[i]
	w, h := domain.StudentSize()
	to := p.Rotation + delta
	p.X, p.Y = s.pivotLocked(p.X, p.Y, w, h, p.Rotation, to)
	p.Rotation = to
	s.positions[i] = p
	s.changed(p.Ref())
	s.notifier.PlacementsChanged()
	return p, nil
}

func (s *LayoutService) pivotLocked(x, y, w, h, from, to float64) (float64, float64) {
	nx, ny := domain.Pivot(x, y, w, h, from, to)
	ew, eh := domain.EffectiveSize(w, h, to)
	return s.engine.Clamp(nx, ny, ew, eh)
}

// AssignSeat records the seat a placement belongs to (nil clears it).
func (s *LayoutService) AssignSeat(studentID int64, seatID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.placementIndexLocked(studentID)
	if i < 0 {
		return fmt.Errorf("placement of student %d: %w", studentID, domain.ErrNotFound)
	}
	s.positions[i].SeatID = seatID
	s.touchLocked(domain.StudentRef(studentID))
	s.notifier.PlacementsChanged()
	return nil
}

// RemoveStudent deletes a placement remotely, then locally. On a failed
// remote delete the card stays where it is.
func (s *LayoutService) RemoveStudent(ctx context.Context, studentID int64) error {
	s.mu.Lock()
	if s.placementIndexLocked(studentID) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("placement of student %d: %w", studentID, domain.ErrNotFound)
	}
	planID := s.plan.ID
	s.mu.Unlock()

	ref := domain.StudentRef(studentID)
	if err := s.remote.DeletePosition(ctx, planID, studentID); err != nil {
		return &domain.DeleteError{Entity: ref, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.placementIndexLocked(studentID); i >= 0 {
		s.positions = append(s.positions[:i], s.positions[i+1:]...)
	}
	s.touchLocked(ref)
	s.emitter.Emit(ctx, EventRemoved, ref)
	return nil
}

// ── Furniture ──────────────────────────────────────────────

// AddFurniture creates an unsynced item of catalog type typ near (x, y).
func (s *LayoutService) AddFurniture(typ string, x, y float64) (domain.Furniture, error) {
	it, ok := s.catalog.Lookup(typ)
	if !ok {
		return domain.Furniture{}, fmt.Errorf("%q: %w", typ, domain.ErrUnknownFurniture)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createFurnitureLocked(domain.Furniture{
		Type:  it.Type,
		Label: it.Label,
		W:     grid.CeilTick(it.W),
		H:     grid.CeilTick(it.H),
	}, x, y)
}

// createFurnitureLocked keys proto as a new unsynced item and places it.
func (s *LayoutService) createFurnitureLocked(proto domain.Furniture, x, y float64) (domain.Furniture, error) {
	dedup := uuid.NewString()
	f := proto
	f.DedupID = dedup
	f.Key = domain.Unsynced(dedup)
	ref := f.Ref()
	b := f.Bounds()
	r, err := s.placeLocked(ref, x, y, b.W, b.H, nil)
	if err != nil {
		return domain.Furniture{}, err
	}
	f.X, f.Y = r.X, r.Y
	f.Z = s.nextZ
	s.nextZ++
	s.furniture = append(s.furniture, f)
	s.changed(ref)
	s.notifier.FurnitureChanged()
	return f, nil
}

// MoveFurniture moves an item, testing against everything but itself.
func (s *LayoutService) MoveFurniture(key domain.FurnitureKey, x, y float64) (domain.Furniture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.furnitureIndexLocked(key)
	if i < 0 {
		return domain.Furniture{}, fmt.Errorf("furniture %s: %w", key, domain.ErrNotFound)
	}
	f := s.furniture[i]
	ref := f.Ref()
	b := f.Bounds()
	r, err := s.placeLocked(ref, x, y, b.W, b.H, &ref)
	if err != nil {
		return domain.Furniture{}, err
	}
	f.X, f.Y = r.X, r.Y
	s.furniture[i] = f
	s.changed(ref)
	s.notifier.FurnitureChanged()
	return f, nil
}

// ResizeFurniture sets the footprint to w x h units as seen on screen (that
// is, after any quarter turn). Sizes round up to a tick, minimum one tick.
// The item keeps its corner if it fits there, else the nearest free spot.
func (s *LayoutService) ResizeFurniture(key domain.FurnitureKey, w, h float64) (domain.Furniture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.furnitureIndexLocked(key)
	if i < 0 {
		return domain.Furniture{}, fmt.Errorf("furniture %s: %w", key, domain.ErrNotFound)
	}
	f := s.furniture[i]
	ew, eh := grid.CeilTick(w), grid.CeilTick(h)
	ref := f.Ref()
	r, err := s.placeLocked(ref, f.X, f.Y, ew, eh, &ref)
	if err != nil {
		return domain.Furniture{}, err
	}
	f.W, f.H = domain.EffectiveSize(ew, eh, f.Rotation)
	f.X, f.Y = r.X, r.Y
	s.furniture[i] = f
	s.changed(ref)
	s.notifier.FurnitureChanged()
	return f, nil
}

// RotateFurniture adds delta degrees to the item's absolute angle, rounded
// to a tenth of a degree. Like students, items turn about their centre.
func (s *LayoutService) RotateFurniture(key domain.FurnitureKey, delta float64) (domain.Furniture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.furnitureIndexLocked(key)
	if i < 0 {
		return domain.Furniture{}, fmt.Errorf("furniture %s: %w", key, domain.ErrNotFound)
	}
	f := s.furniture[i]
	to := domain.Round1(f.Rotation + delta)
	f.X, f.Y = s.pivotLocked(f.X, f.Y, f.W, f.H, f.Rotation, to)
	f.Rotation = to
	s.furniture[i] = f
	s.changed(f.Ref())
	s.notifier.FurnitureChanged()
	return f, nil
}

// UpdateFurnitureStyle changes presentation-only fields. Nil fields are
// left alone; an empty color restores the type default.
func (s *LayoutService) UpdateFurnitureStyle(key domain.FurnitureKey, label, color *string, rounded *bool) (domain.Furniture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.furnitureIndexLocked(key)
	if i < 0 {
		return domain.Furniture{}, fmt.Errorf("furniture %s: %w", key, domain.ErrNotFound)
	}
	f := s.furniture[i]
	if label != nil {
		f.Label = *label
	}
	if color != nil {
		f.Color = *color
	}
	if rounded != nil {
		f.Rounded = *rounded
	}
	s.furniture[i] = f
	s.changed(f.Ref())
	s.notifier.FurnitureChanged()
	return f, nil
}

// DuplicateFurniture pastes copies of keys one unit down and right. Each
// copy is a new unsynced item placed like a fresh drop; copies that find no
// spot are skipped. It fails only if nothing could be pasted.
func (s *LayoutService) DuplicateFurniture(keys []domain.FurnitureKey) ([]domain.Furniture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Furniture
	for _, key := range keys {
		i := s.furnitureIndexLocked(key)
		if i < 0 {
			return out, fmt.Errorf("furniture %s: %w", key, domain.ErrNotFound)
		}
		src := s.furniture[i]
		f, err := s.createFurnitureLocked(src, src.X+PasteOffset, src.Y+PasteOffset)
		if errors.Is(err, domain.ErrPlacementRejected) {
			continue
		}
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
	if len(out) == 0 && len(keys) > 0 {
		return nil, domain.ErrPlacementRejected
	}
	return out, nil
}

// DeleteFurniture removes an item. An item the server never acknowledged
// is dropped locally with no remote call and its dedup marker is cleared.
// A synced item is deleted remotely first and kept if that fails.
func (s *LayoutService) DeleteFurniture(ctx context.Context, key domain.FurnitureKey) error {
	s.mu.Lock()
	i := s.furnitureIndexLocked(key)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("furniture %s: %w", key, domain.ErrNotFound)
	}
	f := s.furniture[i]
	if !key.IsSynced() {
		s.furniture = append(s.furniture[:i], s.furniture[i+1:]...)
		s.notifier.Forget(f.DedupID)
		s.touchLocked(f.Ref())
		s.emitter.Emit(ctx, EventRemoved, f.Ref())
		s.mu.Unlock()
		return nil
	}
	planID := s.plan.ID
	s.mu.Unlock()

	if err := s.remote.DeleteFurniture(ctx, planID, key.ServerID()); err != nil {
		return &domain.DeleteError{Entity: f.Ref(), Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.furnitureIndexLocked(key); i >= 0 {
		s.furniture = append(s.furniture[:i], s.furniture[i+1:]...)
	}
	s.touchLocked(f.Ref())
	s.emitter.Emit(ctx, EventRemoved, f.Ref())
	return nil
}

// ── Selection ──────────────────────────────────────────────

// Align lines refs up on edge. Either every entity moves or none does.
func (s *LayoutService) Align(refs []domain.EntityRef, edge layout.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return domain.ErrNoActivePlan
	}
	if len(refs) < 2 {
		return fmt.Errorf("%w: align needs at least two entities", domain.ErrInvalidInput)
	}
	sel := make([]domain.Rect, len(refs))
	exclude := make(map[domain.EntityRef]bool, len(refs))
	for i, ref := range refs {
		r, ok := s.boundsLocked(ref)
		if !ok {
			return fmt.Errorf("%s: %w", ref, domain.ErrNotFound)
		}
		sel[i] = r
		exclude[ref] = true
	}
	others := layout.OccupiedExcept(s.shapesLocked(), exclude)
	aligned, ok := s.engine.Align(sel, edge, others)
	if !ok {
		s.emitter.Emit(context.Background(), EventRejected, refs)
		return fmt.Errorf("align %s: %w", edge, domain.ErrPlacementRejected)
	}

	var students, furniture bool
	for i, ref := range refs {
		switch ref.Kind {
		case domain.KindStudent:
			j := s.placementIndexLocked(ref.StudentID)
			s.positions[j].X, s.positions[j].Y = aligned[i].X, aligned[i].Y
			students = true
		case domain.KindFurniture:
			j := s.furnitureIndexLocked(ref.Furniture)
			s.furniture[j].X, s.furniture[j].Y = aligned[i].X, aligned[i].Y
			furniture = true
		}
		s.changed(ref)
	}
	if students {
		s.notifier.PlacementsChanged()
	}
	if furniture {
		s.notifier.FurnitureChanged()
	}
	return nil
}

func (s *LayoutService) boundsLocked(ref domain.EntityRef) (domain.Rect, bool) {
	switch ref.Kind {
	case domain.KindStudent:
		if i := s.placementIndexLocked(ref.StudentID); i >= 0 {
			return s.positions[i].Bounds(), true
		}
	case domain.KindFurniture:
		if i := s.furnitureIndexLocked(ref.Furniture); i >= 0 {
			return s.furniture[i].Bounds(), true
		}
	}
	return domain.Rect{}, false
}
