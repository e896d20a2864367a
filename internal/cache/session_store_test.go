package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-service/internal/fulfillment"
	"warehouse-service/internal/models"
)

func newSession() *fulfillment.Session {
	req := &models.StockOutRequest{ID: "so-1", ProductID: "P1", Quantity: 5, RemainingQuantity: 5, Status: models.StockOutApproved}
	return fulfillment.NewSession("s-1", req, "op-1", time.Now().UTC())
}

func TestSessionStore_SaveGetFinish(t *testing.T) {
	mr, client := newRedis(t)
	store := NewSessionStore(client, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession()))
	assert.Equal(t, 30*time.Minute, mr.TTL("scan_session:s-1"))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "so-1", got.StockOutID)
	assert.Equal(t, 5, got.Remaining())

	require.NoError(t, store.Claim(ctx, "s-1"))
	require.NoError(t, store.Finish(ctx, "s-1"))
	_, err = store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, fulfillment.ErrSessionNotFound)
}

func TestSessionStore_UpdatePersistsScan(t *testing.T) {
	_, client := newRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newSession()))

	item := &models.BatchItem{ID: "bi-1", ProductID: "P1", Barcode: "B1", Quantity: 3}
	live := &models.StockOutRequest{ID: "so-1", ProductID: "P1", RemainingQuantity: 5, Status: models.StockOutApproved}

	updated, err := store.Update(ctx, "s-1", func(s *fulfillment.Session) error {
		_, err := s.Scan(item, live, 3)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Remaining())

	reloaded, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, reloaded.Batches, 1)
	assert.Equal(t, "B1", reloaded.Batches[0].Barcode)
}

func TestSessionStore_FailedUpdateKeepsSession(t *testing.T) {
	_, client := newRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newSession()))

	boom := errors.New("rejected")
	_, err := store.Update(ctx, "s-1", func(s *fulfillment.Session) error {
		s.Batches = append(s.Batches, models.DeductedBatch{Barcode: "X"})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	reloaded, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, reloaded.Batches)
}

func TestSessionStore_UpdateMissingSession(t *testing.T) {
	_, client := newRedis(t)
	store := NewSessionStore(client, time.Hour)

	_, err := store.Update(context.Background(), "ghost", func(*fulfillment.Session) error { return nil })
	assert.ErrorIs(t, err, fulfillment.ErrSessionNotFound)
}

func TestSessionStore_ClaimIsExclusive(t *testing.T) {
	mr, client := newRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newSession()))

	require.NoError(t, store.Claim(ctx, "s-1"))
	assert.ErrorIs(t, store.Claim(ctx, "s-1"), fulfillment.ErrSessionClaimed)
	assert.Equal(t, time.Hour, mr.TTL("scan_session:s-1:claim"))

	// reclamada, la sesión no acepta más escaneos
	item := &models.BatchItem{ID: "bi-1", ProductID: "P1", Barcode: "B1", Quantity: 3}
	live := &models.StockOutRequest{ID: "so-1", ProductID: "P1", RemainingQuantity: 5, Status: models.StockOutApproved}
	scan := func(s *fulfillment.Session) error {
		_, err := s.Scan(item, live, 1)
		return err
	}
	_, err := store.Update(ctx, "s-1", scan)
	assert.ErrorIs(t, err, fulfillment.ErrSessionClaimed)

	require.NoError(t, store.Release(ctx, "s-1"))
	updated, err := store.Update(ctx, "s-1", scan)
	require.NoError(t, err)
	assert.Len(t, updated.Batches, 1)
}

func TestSessionStore_FinishKeepsClaimAgainstStaleCopy(t *testing.T) {
	mr, client := newRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	stale := newSession()
	require.NoError(t, store.Save(ctx, stale))
	require.NoError(t, store.Claim(ctx, "s-1"))
	require.NoError(t, store.Finish(ctx, "s-1"))

	got, err := mr.Get("scan_session:s-1:claim")
	require.NoError(t, err)
	assert.Equal(t, claimCompleted, got)

	// una copia vieja vuelve a Redis: la marca sigue bloqueando otra confirmación
	require.NoError(t, store.Save(ctx, stale))
	assert.ErrorIs(t, store.Claim(ctx, "s-1"), fulfillment.ErrSessionClaimed)
}
