package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatplan/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "seatplan.db"))
	require.NoError(t, err)
	s := NewStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	lite := &DB{dialect: DialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestUpsertSQL(t *testing.T) {
	cols := []string{"plan_id", "student_id", "x"}
	keys := []string{"plan_id", "student_id"}

	lite := &DB{dialect: DialectSQLite}
	assert.Equal(t,
		"INSERT INTO positions (plan_id, student_id, x) VALUES (?, ?, ?) ON CONFLICT (plan_id, student_id) DO UPDATE SET x = excluded.x",
		lite.upsertSQL("positions", cols, keys))

	my := &DB{dialect: DialectMySQL}
	assert.Equal(t,
		"INSERT INTO positions (plan_id, student_id, x) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE x = VALUES(x)",
		my.upsertSQL("positions", cols, keys))

	pg := &DB{dialect: DialectPostgres}
	assert.Contains(t, pg.upsertSQL("positions", cols, keys), "VALUES ($1, $2, $3)")
}

func TestBuildDSN(t *testing.T) {
	dsn, err := BuildDSN(DialectPostgres, ConnParams{Host: "db", User: "u", Password: "p", Database: "seats"})
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=seats sslmode=disable", dsn)

	dsn, err = BuildDSN(DialectMySQL, ConnParams{Host: "db", User: "u", Password: "p", Database: "seats", SSLMode: "require"})
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(db:3306)/seats?parseTime=true&charset=utf8mb4&tls=true", dsn)

	_, err = BuildDSN(DialectSQLite, ConnParams{})
	assert.Error(t, err)
}

func TestMigrateTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seatplan.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err, "migrations are re-runnable")
	db.Close()
}

func TestPlanStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	older := &domain.Plan{ClassroomID: 3, Name: "September", Width: 30, Height: 20, GridSize: 32, CreatedAt: base}
	newer := &domain.Plan{ClassroomID: 3, Name: "October", Width: 30, Height: 20, GridSize: 32, CreatedAt: base.Add(24 * time.Hour)}
	other := &domain.Plan{ClassroomID: 4, Name: "Lab", Width: 10, Height: 10, GridSize: 32}
	for _, p := range []*domain.Plan{older, newer, other} {
		require.NoError(t, s.CreatePlan(ctx, p))
		assert.NotZero(t, p.ID)
	}

	plans, err := s.ListPlans(ctx, 3)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "October", plans[0].Name, "newest first")
	assert.False(t, plans[0].IsActive)

	require.NoError(t, s.SetActivePlan(ctx, 3, older.ID))
	require.NoError(t, s.SetActivePlan(ctx, 3, newer.ID))
	got, err := s.GetPlan(ctx, older.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	got, err = s.GetPlan(ctx, newer.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.True(t, got.CreatedAt.Equal(newer.CreatedAt))

	assert.ErrorIs(t, s.SetActivePlan(ctx, 3, other.ID), domain.ErrNotFound, "plan of another classroom")

	require.NoError(t, s.DeletePlan(ctx, older.ID))
	_, err = s.GetPlan(ctx, older.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.DeletePlan(ctx, older.ID), domain.ErrNotFound)
}

func TestPositionStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seat := int64(4)

	require.NoError(t, s.UpsertPositions(ctx, 1, []domain.PositionRecord{
		{StudentID: 1, X: 32, Y: 64, Rotation: 90},
		{StudentID: 2, X: 128, Y: 0, SeatID: &seat},
	}))
	require.NoError(t, s.UpsertPositions(ctx, 1, []domain.PositionRecord{
		{StudentID: 1, X: 33, Y: 64, Rotation: 180},
	}))

	recs, err := s.ListPositions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, domain.PositionRecord{StudentID: 1, X: 33, Y: 64, Rotation: 180}, recs[0])
	require.NotNil(t, recs[1].SeatID)
	assert.Equal(t, int64(4), *recs[1].SeatID)

	require.NoError(t, s.DeletePosition(ctx, 1, 2))
	// A placement that was never stored deletes cleanly.
	require.NoError(t, s.DeletePosition(ctx, 1, 2))

	n, err := s.DeletePositions(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFurnitureStore_DedupOnClientUID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	red := "#ff0000"

	desk := domain.FurnitureRecord{ClientUID: "uid-1", Type: "desk", Label: "Desk", X: 0, Y: 0, W: 64, H: 32}
	require.NoError(t, s.UpsertFurniture(ctx, 1, []domain.FurnitureRecord{desk}))

	// the same creation replayed with a new position
	desk.X = 32
	desk.Color = &red
	require.NoError(t, s.UpsertFurniture(ctx, 1, []domain.FurnitureRecord{desk}))

	recs, err := s.ListFurniture(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 32, recs[0].X)
	require.NotNil(t, recs[0].Color)
	assert.Equal(t, red, *recs[0].Color)
	require.NotNil(t, recs[0].ID)

	// update by id, keeping client_uid
	byID := recs[0]
	byID.Rotation = 90.5
	byID.Rounded = true
	byID.Color = nil
	require.NoError(t, s.UpsertFurniture(ctx, 1, []domain.FurnitureRecord{byID}))

	recs, err = s.ListFurniture(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 90.5, recs[0].Rotation)
	assert.True(t, recs[0].Rounded)
	assert.Nil(t, recs[0].Color)
	assert.Equal(t, "uid-1", recs[0].ClientUID)

	// same uid on another plan is a different item
	require.NoError(t, s.UpsertFurniture(ctx, 2, []domain.FurnitureRecord{desk}))
	other, err := s.ListFurniture(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, other, 1)

	assert.ErrorIs(t, s.DeleteFurnitureItem(ctx, 2, *recs[0].ID), domain.ErrNotFound, "item belongs to plan 1")
	require.NoError(t, s.DeleteFurnitureItem(ctx, 1, *recs[0].ID))
	n, err := s.DeleteFurniture(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSeatAndRosterStores(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	st := &domain.Seat{PlanID: 1, Label: "A1", X: 32, Y: 32}
	require.NoError(t, s.CreateSeat(ctx, st))
	assert.NotZero(t, st.ID)
	seats, err := s.ListSeats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.Seat{*st}, seats)
	n, err := s.DeleteSeats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	students := []domain.Student{
		{ID: 10, FirstName: "Ada", LastName: "Lovelace"},
		{FirstName: "Alan", LastName: "Turing"},
	}
	require.NoError(t, s.UpsertStudents(ctx, 3, students))
	assert.NotZero(t, students[1].ID)

	students[0].Level = "CM2"
	require.NoError(t, s.UpsertStudents(ctx, 3, students[:1]))

	got, err := s.ListStudents(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Lovelace", got[0].LastName)
	assert.Equal(t, "CM2", got[0].Level)
	assert.Equal(t, int64(3), got[1].ClassroomID)
}
