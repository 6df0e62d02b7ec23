package service_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatplan/internal/domain"
	"seatplan/internal/service"
	"seatplan/internal/storage"
)

func newPlanService(t *testing.T) *service.PlanService {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	store := storage.NewStore(db)
	t.Cleanup(func() { store.Close() })
	return service.NewPlanService(store, nil)
}

func TestPlanService_CreateDefaults(t *testing.T) {
	svc := newPlanService(t)
	ctx := context.Background()

	p, err := svc.CreatePlan(ctx, service.CreatePlanInput{ClassroomID: 3})
	require.NoError(t, err)
	assert.Equal(t, service.DefaultPlanName, p.Name)
	assert.Equal(t, 30, p.Width)
	assert.Equal(t, 20, p.Height)
	assert.Equal(t, 32, p.GridSize)
	assert.False(t, p.IsActive)

	_, err = svc.CreatePlan(ctx, service.CreatePlanInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPlanService_BundleChoosesPlan(t *testing.T) {
	svc := newPlanService(t)
	ctx := context.Background()

	b, err := svc.Bundle(ctx, 3, nil)
	require.NoError(t, err)
	assert.Nil(t, b.ActivePlan)
	assert.NotNil(t, b.Furniture, "empty lists, never null")

	first, err := svc.CreatePlan(ctx, service.CreatePlanInput{ClassroomID: 3, Name: "first"})
	require.NoError(t, err)
	second, err := svc.CreatePlan(ctx, service.CreatePlanInput{ClassroomID: 3, Name: "second"})
	require.NoError(t, err)

	b, err = svc.Bundle(ctx, 3, nil)
	require.NoError(t, err)
	require.NotNil(t, b.ActivePlan)
	assert.Equal(t, second.ID, b.ActivePlan.ID, "no active plan: newest")

	require.NoError(t, svc.ActivatePlan(ctx, first.ID))
	b, err = svc.Bundle(ctx, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, b.ActivePlan.ID)

	b, err = svc.Bundle(ctx, 3, &second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, b.ActivePlan.ID)
	assert.False(t, b.ActivePlan.IsActive, "showing does not activate")

	_, err = svc.Bundle(ctx, 4, &second.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlanService_DuplicateResetDelete(t *testing.T) {
	svc := newPlanService(t)
	ctx := context.Background()

	p, err := svc.CreatePlan(ctx, service.CreatePlanInput{ClassroomID: 3, Name: "Room 12"})
	require.NoError(t, err)
	seat := int64(9)
	require.NoError(t, svc.UpsertPositions(ctx, p.ID, []domain.PositionRecord{{StudentID: 1, X: 32, Y: 32, SeatID: &seat}}))
	require.NoError(t, svc.UpsertFurniture(ctx, p.ID, []domain.FurnitureRecord{{ClientUID: "a", Type: "desk", W: 64, H: 32}}))

	dup, err := svc.DuplicatePlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Room 12 (copy)", dup.Name)
	assert.False(t, dup.IsActive)

	b, err := svc.Plan(ctx, dup.ID)
	require.NoError(t, err)
	require.Len(t, b.Positions, 1)
	assert.Nil(t, b.Positions[0].SeatID, "seat refs are cleared")
	require.Len(t, b.Furniture, 1)
	assert.NotEqual(t, "a", b.Furniture[0].ClientUID)

	res, err := svc.ResetPlan(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.ResetResult{Positions: 1, Furniture: 1}, res)

	require.NoError(t, svc.DeletePlan(ctx, dup.ID))
	_, err = svc.Plan(ctx, dup.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.DeletePlan(ctx, dup.ID), domain.ErrNotFound)
}

func TestPlanService_RejectsBadRecords(t *testing.T) {
	svc := newPlanService(t)
	ctx := context.Background()
	p, err := svc.CreatePlan(ctx, service.CreatePlanInput{ClassroomID: 3})
	require.NoError(t, err)

	err = svc.UpsertPositions(ctx, p.ID, []domain.PositionRecord{{StudentID: 1, X: -1}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	err = svc.UpsertFurniture(ctx, p.ID, []domain.FurnitureRecord{{Type: "desk", W: 0, H: 32}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	err = svc.UpsertPositions(ctx, p.ID+100, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.UpsertStudents(ctx, 3, []domain.Student{{}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
