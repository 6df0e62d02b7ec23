package storage

import (
	"context"
	"database/sql"
	"fmt"

	"seatplan/internal/domain"
)

// PositionStore implements domain.PositionStore.
type PositionStore struct {
	db *DB
}

func NewPositionStore(db *DB) *PositionStore {
	return &PositionStore{db: db}
}

func (s *PositionStore) ListPositions(ctx context.Context, planID int64) ([]domain.PositionRecord, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT student_id, x, y, seat_id, rotation FROM positions WHERE plan_id = ? ORDER BY student_id`), planID)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var recs []domain.PositionRecord
	for rows.Next() {
		var r domain.PositionRecord
		var seat sql.NullInt64
		if err := rows.Scan(&r.StudentID, &r.X, &r.Y, &seat, &r.Rotation); err != nil {
			return nil, err
		}
		if seat.Valid {
			r.SeatID = &seat.Int64
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

var positionColumns = []string{"plan_id", "student_id", "x", "y", "seat_id", "rotation"}

func (s *PositionStore) UpsertPositions(ctx context.Context, planID int64, recs []domain.PositionRecord) error {
	q := s.db.upsertSQL("positions", positionColumns, []string{"plan_id", "student_id"})
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range recs {
			if _, err := tx.ExecContext(ctx, q, planID, r.StudentID, r.X, r.Y, r.SeatID, r.Rotation); err != nil {
				return fmt.Errorf("upsert position of student %d: %w", r.StudentID, err)
			}
		}
		return nil
	})
}

// DeletePosition removes a student's placement. Deleting a placement the
// plan never stored is not an error: the client may remove a card before
// its debounced save went out.
func (s *PositionStore) DeletePosition(ctx context.Context, planID, studentID int64) error {
	_, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`DELETE FROM positions WHERE plan_id = ? AND student_id = ?`), planID, studentID)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return nil
}

func (s *PositionStore) DeletePositions(ctx context.Context, planID int64) (int64, error) {
	n, err := rowsAffected(s.db.conn.ExecContext(ctx, s.db.rebind(`DELETE FROM positions WHERE plan_id = ?`), planID))
	if err != nil {
		return 0, fmt.Errorf("delete positions: %w", err)
	}
	return n, nil
}
