package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"warehouse-service/internal/fulfillment"
	"warehouse-service/internal/models"
)

type fakeTransferRepo struct {
	pending map[string]bool
}

func (f *fakeTransferRepo) Approve(_ context.Context, transferID, _ string) (bool, error) {
	if !f.pending[transferID] {
		return false, nil
	}
	f.pending[transferID] = false
	return true, nil
}

func TestTransferService_Approve(t *testing.T) {
	ctx := context.Background()
	svc := NewTransferService(&fakeTransferRepo{pending: map[string]bool{"tr-1": true}}, zap.NewNop())

	require.NoError(t, svc.Approve(ctx, "tr-1", "mgr-1"))
	assert.ErrorIs(t, svc.Approve(ctx, "tr-1", "mgr-1"), fulfillment.ErrInvalidTransition)
}

func TestBatchItemService_Adjust(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	db.addItem("bi-1", "B1", "prod-1", 3)
	svc := NewBatchItemService(batchItemRepo{db}, zap.NewNop())

	item, err := svc.Adjust(ctx, "bi-1", 4)
	require.NoError(t, err)
	assert.Equal(t, 7, item.Quantity)

	item, err = svc.Adjust(ctx, "bi-1", -7)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)

	_, err = svc.Adjust(ctx, "bi-1", -1)
	assert.ErrorIs(t, err, fulfillment.ErrInsufficientQuantity)

	_, err = svc.Adjust(ctx, "missing", 1)
	assert.ErrorIs(t, err, fulfillment.ErrNotFound)
}

type fakeUserRepo struct {
	users map[string]*models.UserProfile
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.UserProfile, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) UpdateRole(_ context.Context, id, role string) (*models.UserProfile, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	user.Role = role
	user.UpdatedAt = time.Now()
	return user, nil
}

func TestUserService_UpdateRole(t *testing.T) {
	ctx := context.Background()
	repo := &fakeUserRepo{users: map[string]*models.UserProfile{
		"u-1": {ID: "u-1", Email: "ana@example.com", Role: models.RoleViewer},
	}}
	svc := NewUserService(repo, zap.NewNop())

	user, err := svc.UpdateRole(ctx, "admin-1", "u-1", models.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, user.Role)

	_, err = svc.UpdateRole(ctx, "admin-1", "u-1", "superuser")
	assert.ErrorIs(t, err, fulfillment.ErrInvalidInput)

	_, err = svc.UpdateRole(ctx, "admin-1", "u-404", models.RoleViewer)
	assert.ErrorIs(t, err, fulfillment.ErrNotFound)
}

func TestRunPeriodic_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 10)

	done := make(chan struct{})
	go func() {
		RunPeriodic(ctx, "test", 5*time.Millisecond, zap.NewNop(), func(context.Context) error {
			calls <- struct{}{}
			return nil
		})
		close(done)
	}()

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("periodic task never ran")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("periodic loop did not stop")
	}
}
