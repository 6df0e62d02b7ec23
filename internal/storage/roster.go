package storage

import (
	"context"
	"database/sql"
	"fmt"

	"seatplan/internal/domain"
)

// RosterStore implements domain.RosterStore.
type RosterStore struct {
	db *DB
}

func NewRosterStore(db *DB) *RosterStore {
	return &RosterStore{db: db}
}

func (s *RosterStore) ListStudents(ctx context.Context, classroomID int64) ([]domain.Student, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT id, classroom_id, first_name, last_name, sex, level, photo
		FROM students WHERE classroom_id = ? ORDER BY last_name, first_name, id`), classroomID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []domain.Student
	for rows.Next() {
		var st domain.Student
		if err := rows.Scan(&st.ID, &st.ClassroomID, &st.FirstName, &st.LastName, &st.Sex, &st.Level, &st.Photo); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

var studentColumns = []string{"id", "classroom_id", "first_name", "last_name", "sex", "level", "photo"}

func (s *RosterStore) UpsertStudents(ctx context.Context, classroomID int64, students []domain.Student) error {
	upsert := s.db.upsertSQL("students", studentColumns, []string{"id"})
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		for i := range students {
			st := &students[i]
			st.ClassroomID = classroomID
			if st.ID == 0 {
				id, err := s.db.insert(ctx, tx,
					`INSERT INTO students (classroom_id, first_name, last_name, sex, level, photo) VALUES (?, ?, ?, ?, ?, ?)`,
					classroomID, st.FirstName, st.LastName, st.Sex, st.Level, st.Photo)
				if err != nil {
					return fmt.Errorf("insert student %q: %w", st.DisplayName(), err)
				}
				st.ID = id
				continue
			}
			if _, err := tx.ExecContext(ctx, upsert, st.ID, classroomID, st.FirstName, st.LastName, st.Sex, st.Level, st.Photo); err != nil {
				return fmt.Errorf("upsert student %d: %w", st.ID, err)
			}
		}
		return nil
	})
}
