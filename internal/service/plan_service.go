package service

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"seatplan/internal/domain"
	"seatplan/internal/grid"
)

const (
	DefaultPlanName   = "Untitled plan"
	DefaultPlanWidth  = 30
	DefaultPlanHeight = 20
)

// ─────────────────────────────────────────────────────────────
// Plan Service — plan-level rules on top of the store
// ─────────────────────────────────────────────────────────────

// PlanService is what the persistence API serves from.
type PlanService struct {
	store  domain.Store
	logger *log.Logger
}

func NewPlanService(store domain.Store, logger *log.Logger) *PlanService {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PlanService{store: store, logger: logger}
}

// ── Reading ────────────────────────────────────────────────

// Bundle loads a classroom's plans and roster plus the layout of one plan:
// planID when given (it must belong to the classroom), else the active plan,
// else the newest. Showing a plan does not activate it.
func (s *PlanService) Bundle(ctx context.Context, classroomID int64, planID *int64) (*domain.PlanBundle, error) {
	plans, err := s.store.ListPlans(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	students, err := s.store.ListStudents(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	b := &domain.PlanBundle{
		Plans:     nonNil(plans),
		Students:  nonNil(students),
		Seats:     []domain.Seat{},
		Furniture: []domain.FurnitureRecord{},
		Positions: []domain.PositionRecord{},
	}

	var shown *domain.Plan
	if planID != nil {
		p, err := s.store.GetPlan(ctx, *planID)
		if err != nil {
			return nil, err
		}
		if p.ClassroomID != classroomID {
			return nil, fmt.Errorf("plan %d in classroom %d: %w", *planID, classroomID, domain.ErrNotFound)
		}
		shown = p
	} else {
		for i := range plans {
			if plans[i].IsActive {
				shown = &plans[i]
				break
			}
		}
		if shown == nil && len(plans) > 0 {
			shown = &plans[0]
		}
	}
	if shown == nil {
		return b, nil
	}
	b.ActivePlan = shown

	seats, err := s.store.ListSeats(ctx, shown.ID)
	if err != nil {
		return nil, err
	}
	furniture, err := s.store.ListFurniture(ctx, shown.ID)
	if err != nil {
		return nil, err
	}
	positions, err := s.store.ListPositions(ctx, shown.ID)
	if err != nil {
		return nil, err
	}
	b.Seats, b.Furniture, b.Positions = nonNil(seats), nonNil(furniture), nonNil(positions)
	return b, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ── Plans ──────────────────────────────────────────────────

type CreatePlanInput struct {
	ClassroomID int64  `json:"classroom_id"`
	Name        string `json:"name"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	GridSize    int    `json:"grid_size"`
}

// CreatePlan creates an inactive plan, filling unset fields with defaults.
func (s *PlanService) CreatePlan(ctx context.Context, in CreatePlanInput) (*domain.Plan, error) {
	if in.ClassroomID <= 0 {
		return nil, fmt.Errorf("create plan: classroom_id required: %w", domain.ErrInvalidInput)
	}
	if in.Width < 0 || in.Height < 0 {
		return nil, fmt.Errorf("create plan: negative size: %w", domain.ErrInvalidInput)
	}
	p := &domain.Plan{
		ClassroomID: in.ClassroomID,
		Name:        in.Name,
		Width:       in.Width,
		Height:      in.Height,
		GridSize:    in.GridSize,
	}
	if p.Name == "" {
		p.Name = DefaultPlanName
	}
	if p.Width == 0 {
		p.Width = DefaultPlanWidth
	}
	if p.Height == 0 {
		p.Height = DefaultPlanHeight
	}
	if p.GridSize == 0 {
		p.GridSize = grid.Subdiv
	}
	if err := s.store.CreatePlan(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("plan created", "plan", p.ID, "classroom", p.ClassroomID, "name", p.Name)
	return p, nil
}

// ActivatePlan makes id the classroom's only active plan.
func (s *PlanService) ActivatePlan(ctx context.Context, id int64) error {
	p, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return err
	}
	return s.store.SetActivePlan(ctx, p.ClassroomID, id)
}

// DuplicatePlan copies a plan with its seats, furniture and positions into a
// new inactive plan. Copied positions lose their seat reference and copied
// furniture gets fresh client ids.
func (s *PlanService) DuplicatePlan(ctx context.Context, id int64) (*domain.Plan, error) {
	src, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	seats, err := s.store.ListSeats(ctx, id)
	if err != nil {
		return nil, err
	}
	furniture, err := s.store.ListFurniture(ctx, id)
	if err != nil {
		return nil, err
	}
	positions, err := s.store.ListPositions(ctx, id)
	if err != nil {
		return nil, err
	}

	dup := &domain.Plan{
		ClassroomID: src.ClassroomID,
		Name:        src.Name + " (copy)",
		Width:       src.Width,
		Height:      src.Height,
		GridSize:    src.GridSize,
	}
	if err := s.store.CreatePlan(ctx, dup); err != nil {
		return nil, err
	}
	for _, st := range seats {
		st.ID, st.PlanID = 0, dup.ID
		if err := s.store.CreateSeat(ctx, &st); err != nil {
			return nil, fmt.Errorf("duplicate plan %d: %w", id, err)
		}
	}
	for i := range furniture {
		furniture[i].ID = nil
		furniture[i].ClientUID = uuid.NewString()
	}
	if err := s.store.UpsertFurniture(ctx, dup.ID, furniture); err != nil {
		return nil, fmt.Errorf("duplicate plan %d: %w", id, err)
	}
	for i := range positions {
		positions[i].SeatID = nil
	}
	if err := s.store.UpsertPositions(ctx, dup.ID, positions); err != nil {
		return nil, fmt.Errorf("duplicate plan %d: %w", id, err)
	}
	s.logger.Info("plan duplicated", "from", id, "plan", dup.ID)
	return dup, nil
}

// ResetPlan clears positions and furniture; full also removes the seats.
func (s *PlanService) ResetPlan(ctx context.Context, id int64, full bool) (domain.ResetResult, error) {
	var res domain.ResetResult
	if _, err := s.store.GetPlan(ctx, id); err != nil {
		return res, err
	}
	var err error
	if res.Positions, err = s.store.DeletePositions(ctx, id); err != nil {
		return res, err
	}
	if res.Furniture, err = s.store.DeleteFurniture(ctx, id); err != nil {
		return res, err
	}
	if full {
		if res.Seats, err = s.store.DeleteSeats(ctx, id); err != nil {
			return res, err
		}
	}
	s.logger.Info("plan reset", "plan", id, "full", full, "positions", res.Positions, "furniture", res.Furniture)
	return res, nil
}

// DeletePlan removes a plan and everything on it.
func (s *PlanService) DeletePlan(ctx context.Context, id int64) error {
	if _, err := s.ResetPlan(ctx, id, true); err != nil {
		return err
	}
	if err := s.store.DeletePlan(ctx, id); err != nil {
		return err
	}
	s.logger.Info("plan deleted", "plan", id)
	return nil
}

// ── Layout records ─────────────────────────────────────────

func (s *PlanService) UpsertPositions(ctx context.Context, planID int64, recs []domain.PositionRecord) error {
	if _, err := s.store.GetPlan(ctx, planID); err != nil {
		return err
	}
	for _, r := range recs {
		if r.StudentID <= 0 || r.X < 0 || r.Y < 0 || r.Rotation < 0 || r.Rotation > 359 {
			return fmt.Errorf("position of student %d: %w", r.StudentID, domain.ErrInvalidInput)
		}
	}
	return s.store.UpsertPositions(ctx, planID, recs)
}

func (s *PlanService) DeletePosition(ctx context.Context, planID, studentID int64) error {
	return s.store.DeletePosition(ctx, planID, studentID)
}

func (s *PlanService) UpsertFurniture(ctx context.Context, planID int64, recs []domain.FurnitureRecord) error {
	if _, err := s.store.GetPlan(ctx, planID); err != nil {
		return err
	}
	for _, r := range recs {
		if r.Type == "" || r.X < 0 || r.Y < 0 || r.W <= 0 || r.H <= 0 {
			return fmt.Errorf("furniture %q: %w", r.ClientUID, domain.ErrInvalidInput)
		}
	}
	return s.store.UpsertFurniture(ctx, planID, recs)
}

func (s *PlanService) DeleteFurniture(ctx context.Context, planID, itemID int64) error {
	return s.store.DeleteFurnitureItem(ctx, planID, itemID)
}

// Plan returns one plan with its layout, for export.
func (s *PlanService) Plan(ctx context.Context, id int64) (*domain.PlanBundle, error) {
	p, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Bundle(ctx, p.ClassroomID, &id)
}

// ── Roster ─────────────────────────────────────────────────

func (s *PlanService) Students(ctx context.Context, classroomID int64) ([]domain.Student, error) {
	students, err := s.store.ListStudents(ctx, classroomID)
	return nonNil(students), err
}

func (s *PlanService) UpsertStudents(ctx context.Context, classroomID int64, students []domain.Student) error {
	for _, st := range students {
		if st.FirstName == "" && st.LastName == "" {
			return fmt.Errorf("student %d has no name: %w", st.ID, domain.ErrInvalidInput)
		}
	}
	if err := s.store.UpsertStudents(ctx, classroomID, students); err != nil {
		return err
	}
	s.logger.Info("roster updated", "classroom", classroomID, "students", len(students))
	return nil
}
