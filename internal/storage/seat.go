package storage

import (
	"context"
	"fmt"

	"seatplan/internal/domain"
)

// SeatStore implements domain.SeatStore.
type SeatStore struct {
	db *DB
}

func NewSeatStore(db *DB) *SeatStore {
	return &SeatStore{db: db}
}

func (s *SeatStore) ListSeats(ctx context.Context, planID int64) ([]domain.Seat, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT id, plan_id, label, x, y FROM seats WHERE plan_id = ? ORDER BY id`), planID)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	defer rows.Close()

	var seats []domain.Seat
	for rows.Next() {
		var st domain.Seat
		if err := rows.Scan(&st.ID, &st.PlanID, &st.Label, &st.X, &st.Y); err != nil {
			return nil, err
		}
		seats = append(seats, st)
	}
	return seats, rows.Err()
}

func (s *SeatStore) CreateSeat(ctx context.Context, st *domain.Seat) error {
	id, err := s.db.insert(ctx, s.db.conn,
		`INSERT INTO seats (plan_id, label, x, y) VALUES (?, ?, ?, ?)`,
		st.PlanID, st.Label, st.X, st.Y,
	)
	if err != nil {
		return fmt.Errorf("create seat: %w", err)
	}
	st.ID = id
	return nil
}

func (s *SeatStore) DeleteSeats(ctx context.Context, planID int64) (int64, error) {
	n, err := rowsAffected(s.db.conn.ExecContext(ctx, s.db.rebind(`DELETE FROM seats WHERE plan_id = ?`), planID))
	if err != nil {
		return 0, fmt.Errorf("delete seats: %w", err)
	}
	return n, nil
}
