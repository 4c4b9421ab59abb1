package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/offpos/internal/model"
)

func TestSessionGeneration_StartsAtZero(t *testing.T) {
	s := createTestStore(t)
	gen, err := s.SessionGeneration(context.Background(), testRestaurant)
	require.NoError(t, err)
	assert.Zero(t, gen)

	_, err = s.SessionGeneration(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrNotAuthenticated)
}

func TestEndSession_BumpsGenerationAndClearsData(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertNotification(ctx, createTestNotification("n1", 0)))
	require.NoError(t, s.UpsertOrder(ctx, createTestOrder("o1", "10", baseTime)))
	other := createTestNotification("n1", 0)
	other.RestaurantID = "rest-2"
	require.NoError(t, s.UpsertNotification(ctx, other))

	gen, err := s.EndSession(ctx, testRestaurant)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	gen, err = s.EndSession(ctx, testRestaurant)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)

	list, err := s.ListNotifications(ctx, testRestaurant, NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	orders, err := s.ListOrders(ctx, testRestaurant, OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)

	otherGen, err := s.SessionGeneration(ctx, "rest-2")
	require.NoError(t, err)
	assert.Zero(t, otherGen)
	kept, err := s.ListNotifications(ctx, "rest-2", NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestClearRestaurantData_KeepsGeneration(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.EndSession(ctx, testRestaurant)
	require.NoError(t, err)
	require.NoError(t, s.ClearRestaurantData(ctx, testRestaurant))

	gen, err := s.SessionGeneration(ctx, testRestaurant)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestApplyNotification_WritesAndClaimsOnce(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	n := createTestNotification("n1", 0)

	claimed, err := s.ApplyNotification(ctx, n, 0, true, baseTime)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.ApplyNotification(ctx, n, 0, true, baseTime)
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := s.GetNotification(ctx, testRestaurant, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Title n1", got.Title)
	count, err := s.DeliveryCount(ctx, testRestaurant)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestApplyNotification_WithoutClaim(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	claimed, err := s.ApplyNotification(ctx, createTestNotification("n1", 0), 0, false, baseTime)
	require.NoError(t, err)
	assert.False(t, claimed)

	count, err := s.DeliveryCount(ctx, testRestaurant)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestApplyNotification_StaleGeneration(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.EndSession(ctx, testRestaurant)
	require.NoError(t, err)

	_, err = s.ApplyNotification(ctx, createTestNotification("n1", 0), 0, true, baseTime)
	assert.ErrorIs(t, err, model.ErrSessionEnded)

	list, err := s.ListNotifications(ctx, testRestaurant, NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	count, err := s.DeliveryCount(ctx, testRestaurant)
	require.NoError(t, err)
	assert.Zero(t, count)

	claimed, err := s.ApplyNotification(ctx, createTestNotification("n1", 0), 1, true, baseTime)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestApplyNotification_FailedClaimRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx, `CREATE TRIGGER fail_claim BEFORE INSERT ON notification_deliveries
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)

	_, err = s.ApplyNotification(ctx, createTestNotification("n1", 0), 0, true, baseTime)
	assert.ErrorIs(t, err, model.ErrIOFailure)

	_, err = s.GetNotification(ctx, testRestaurant, "n1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestApplyNotification_Validation(t *testing.T) {
	s := createTestStore(t)
	n := createTestNotification("n1", 0)
	n.Type = "urgent"
	_, err := s.ApplyNotification(context.Background(), n, 0, true, baseTime)
	assert.ErrorIs(t, err, model.ErrInvalidRecord)
}
