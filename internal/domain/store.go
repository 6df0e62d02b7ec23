package domain

import "context"

// Persistence primitives. Plan-level rules (activation, duplication, reset)
// live in service.PlanService on top of these.

type PlanStore interface {
	// ListPlans returns the classroom's plans, newest first.
	ListPlans(ctx context.Context, classroomID int64) ([]Plan, error)
	GetPlan(ctx context.Context, id int64) (*Plan, error)
	CreatePlan(ctx context.Context, p *Plan) error
	// SetActivePlan marks planID active and every other plan of the classroom inactive.
	SetActivePlan(ctx context.Context, classroomID, planID int64) error
	DeletePlan(ctx context.Context, id int64) error
}

type SeatStore interface {
	ListSeats(ctx context.Context, planID int64) ([]Seat, error)
	CreateSeat(ctx context.Context, s *Seat) error
	DeleteSeats(ctx context.Context, planID int64) (int64, error)
}

type PositionStore interface {
	ListPositions(ctx context.Context, planID int64) ([]PositionRecord, error)
	// UpsertPositions replaces positions keyed by (plan, student).
	UpsertPositions(ctx context.Context, planID int64, recs []PositionRecord) error
	DeletePosition(ctx context.Context, planID, studentID int64) error
	DeletePositions(ctx context.Context, planID int64) (int64, error)
}

type FurnitureStore interface {
	ListFurniture(ctx context.Context, planID int64) ([]FurnitureRecord, error)
	// UpsertFurniture updates rows that carry an id and inserts the rest.
	// A row without id whose client_uid already exists updates that row.
	UpsertFurniture(ctx context.Context, planID int64, recs []FurnitureRecord) error
	DeleteFurnitureItem(ctx context.Context, planID, itemID int64) error
	DeleteFurniture(ctx context.Context, planID int64) (int64, error)
}

type RosterStore interface {
	ListStudents(ctx context.Context, classroomID int64) ([]Student, error)
	// UpsertStudents inserts students without an id and updates the others.
	UpsertStudents(ctx context.Context, classroomID int64, students []Student) error
}

// Store is the full persistence surface the API serves from.
type Store interface {
	PlanStore
	SeatStore
	PositionStore
	FurnitureStore
	RosterStore
	Close() error
}
