package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"seatplan/internal/domain"
)

// FurnitureStore implements domain.FurnitureStore.
type FurnitureStore struct {
	db *DB
}

func NewFurnitureStore(db *DB) *FurnitureStore {
	return &FurnitureStore{db: db}
}

func (s *FurnitureStore) ListFurniture(ctx context.Context, planID int64) ([]domain.FurnitureRecord, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT id, client_uid, type, label, color, x, y, w, h, rotation, z, rounded
		FROM furniture WHERE plan_id = ? ORDER BY z, id`), planID)
	if err != nil {
		return nil, fmt.Errorf("list furniture: %w", err)
	}
	defer rows.Close()

	var recs []domain.FurnitureRecord
	for rows.Next() {
		var r domain.FurnitureRecord
		var id int64
		var color sql.NullString
		if err := rows.Scan(&id, &r.ClientUID, &r.Type, &r.Label, &color,
			&r.X, &r.Y, &r.W, &r.H, &r.Rotation, &r.Z, &r.Rounded); err != nil {
			return nil, err
		}
		r.ID = &id
		if color.Valid {
			r.Color = &color.String
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

var furnitureColumns = []string{"plan_id", "client_uid", "type", "label", "color", "x", "y", "w", "h", "rotation", "z", "rounded"}

// UpsertFurniture writes the batch in one transaction. Rows with an id are
// updated in place; rows without one are keyed by (plan, client_uid), so a
// creation replayed by a client that never saw the first answer updates the
// row it created instead of inserting a twin.
func (s *FurnitureStore) UpsertFurniture(ctx context.Context, planID int64, recs []domain.FurnitureRecord) error {
	insert := s.db.upsertSQL("furniture", furnitureColumns, []string{"plan_id", "client_uid"})
	update := s.db.rebind(`UPDATE furniture SET type = ?, label = ?, color = ?, x = ?, y = ?, w = ?, h = ?,
		rotation = ?, z = ?, rounded = ? WHERE id = ? AND plan_id = ?`)

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range recs {
			if r.ID != nil && *r.ID > 0 {
				if _, err := tx.ExecContext(ctx, update, r.Type, r.Label, r.Color, r.X, r.Y, r.W, r.H,
					r.Rotation, r.Z, r.Rounded, *r.ID, planID); err != nil {
					return fmt.Errorf("update furniture %d: %w", *r.ID, err)
				}
				continue
			}
			uid := r.ClientUID
			if uid == "" {
				uid = uuid.NewString()
			}
			if _, err := tx.ExecContext(ctx, insert, planID, uid, r.Type, r.Label, r.Color,
				r.X, r.Y, r.W, r.H, r.Rotation, r.Z, r.Rounded); err != nil {
				return fmt.Errorf("insert furniture %s: %w", uid, err)
			}
		}
		return nil
	})
}

func (s *FurnitureStore) DeleteFurnitureItem(ctx context.Context, planID, itemID int64) error {
	n, err := rowsAffected(s.db.conn.ExecContext(ctx, s.db.rebind(
		`DELETE FROM furniture WHERE plan_id = ? AND id = ?`), planID, itemID))
	if err != nil {
		return fmt.Errorf("delete furniture: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("furniture %d: %w", itemID, domain.ErrNotFound)
	}
	return nil
}

func (s *FurnitureStore) DeleteFurniture(ctx context.Context, planID int64) (int64, error) {
	n, err := rowsAffected(s.db.conn.ExecContext(ctx, s.db.rebind(`DELETE FROM furniture WHERE plan_id = ?`), planID))
	if err != nil {
		return 0, fmt.Errorf("delete furniture: %w", err)
	}
	return n, nil
}
