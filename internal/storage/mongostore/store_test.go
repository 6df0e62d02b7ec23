package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatplan/internal/domain"
)

func TestDatabaseFromURI(t *testing.T) {
	assert.Equal(t, "seatplan", databaseFromURI("mongodb://localhost:27017/seatplan"))
	assert.Equal(t, "seatplan", databaseFromURI("mongodb+srv://u:p@cluster.example.net/seatplan?retryWrites=true"))
	assert.Equal(t, "", databaseFromURI("mongodb://localhost:27017"))
}

func TestFurnitureDocRecord(t *testing.T) {
	color := "#fff"
	d := furnitureDoc{ID: 4, PlanID: 1, ClientUID: "u", Type: "desk", Color: &color, X: 32, W: 64, H: 32, Rotation: 90}
	r := d.record()
	require.NotNil(t, r.ID)
	assert.Equal(t, int64(4), *r.ID)
	assert.Equal(t, "#fff", *r.Color)
	assert.Equal(t, 64, r.W)
	assert.Equal(t, r.Color, furnitureFields(r)["color"])
}

// openTestStore connects to SEATPLAN_TEST_MONGO_URI, skipping without it.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("SEATPLAN_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SEATPLAN_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, uri, "seatplan_test_"+time.Now().Format("150405.000000"))
	require.NoError(t, err)
	t.Cleanup(func() {
		s.db.Drop(context.Background())
		s.Close()
	})
	return s
}

func TestStore_FurnitureDedup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	desk := domain.FurnitureRecord{ClientUID: "uid-1", Type: "desk", W: 64, H: 32}
	require.NoError(t, s.UpsertFurniture(ctx, 1, []domain.FurnitureRecord{desk}))
	desk.X = 32
	require.NoError(t, s.UpsertFurniture(ctx, 1, []domain.FurnitureRecord{desk}))

	recs, err := s.ListFurniture(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 32, recs[0].X)
	require.NoError(t, s.DeleteFurnitureItem(ctx, 1, *recs[0].ID))
}

func TestStore_Plans(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := &domain.Plan{ClassroomID: 3, Name: "A", Width: 30, Height: 20, GridSize: 32}
	b := &domain.Plan{ClassroomID: 3, Name: "B", Width: 30, Height: 20, GridSize: 32, CreatedAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.CreatePlan(ctx, a))
	require.NoError(t, s.CreatePlan(ctx, b))
	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, s.SetActivePlan(ctx, 3, a.ID))
	plans, err := s.ListPlans(ctx, 3)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "B", plans[0].Name)
	assert.True(t, plans[1].IsActive)

	students := []domain.Student{{ID: 50, FirstName: "Ada"}, {FirstName: "Alan"}}
	require.NoError(t, s.UpsertStudents(ctx, 3, students))
	assert.Greater(t, students[1].ID, int64(50), "explicit ids reserve the counter")
}
