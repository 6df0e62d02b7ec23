package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"seatplan/internal/domain"
)

// PlanStore implements domain.PlanStore.
type PlanStore struct {
	db *DB
}

func NewPlanStore(db *DB) *PlanStore {
	return &PlanStore{db: db}
}

const planColumns = `id, classroom_id, name, width, height, grid_size, is_active, created_at`

func scanPlan(row interface{ Scan(...any) error }) (domain.Plan, error) {
	var p domain.Plan
	err := row.Scan(&p.ID, &p.ClassroomID, &p.Name, &p.Width, &p.Height, &p.GridSize, &p.IsActive, &p.CreatedAt)
	return p, err
}

func (s *PlanStore) ListPlans(ctx context.Context, classroomID int64) ([]domain.Plan, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT `+planColumns+` FROM plans WHERE classroom_id = ? ORDER BY created_at DESC, id DESC`), classroomID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *PlanStore) GetPlan(ctx context.Context, id int64) (*domain.Plan, error) {
	p, err := scanPlan(s.db.conn.QueryRowContext(ctx, s.db.rebind(
		`SELECT `+planColumns+` FROM plans WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get plan %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &p, nil
}

func (s *PlanStore) CreatePlan(ctx context.Context, p *domain.Plan) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	id, err := s.db.insert(ctx, s.db.conn,
		`INSERT INTO plans (classroom_id, name, width, height, grid_size, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ClassroomID, p.Name, p.Width, p.Height, p.GridSize, p.IsActive, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	p.ID = id
	return nil
}

func (s *PlanStore) SetActivePlan(ctx context.Context, classroomID, planID int64) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.db.rebind(
			`UPDATE plans SET is_active = ? WHERE classroom_id = ?`), false, classroomID); err != nil {
			return fmt.Errorf("deactivate plans: %w", err)
		}
		n, err := rowsAffected(tx.ExecContext(ctx, s.db.rebind(
			`UPDATE plans SET is_active = ? WHERE id = ? AND classroom_id = ?`), true, planID, classroomID))
		if err != nil {
			return fmt.Errorf("activate plan: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("activate plan %d: %w", planID, domain.ErrNotFound)
		}
		return nil
	})
}

func (s *PlanStore) DeletePlan(ctx context.Context, id int64) error {
	n, err := rowsAffected(s.db.conn.ExecContext(ctx, s.db.rebind(`DELETE FROM plans WHERE id = ?`), id))
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete plan %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
