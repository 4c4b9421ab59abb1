package notify

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/store"
	"github.com/roach88/offpos/internal/testutil"
)

const tenant = "r1"

type fixture struct {
	path      string
	store     *store.Store
	remote    *testutil.FakeRemote
	deliverer *testutil.RecordingDeliverer
	engine    *Engine
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f := &fixture{
		path:      path,
		store:     s,
		remote:    testutil.NewFakeRemote(),
		deliverer: &testutil.RecordingDeliverer{},
	}
	clock := testutil.NewClock(t0, time.Second)
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	f.engine = New(s, f.remote, f.deliverer, zaptest.NewLogger(t), opts...)
	return f
}

func unread(id string) model.RemoteNotification {
	return model.RemoteNotification{ID: id, Title: "Title " + id, Message: "Body", Type: model.NotificationInfo}
}

func TestSync_NewUnreadIsInsertedAndDeliveredOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Set(tenant, unread("n1"))

	result, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)
	require.NoError(t, result.RemoteErr)

	require.Len(t, result.Notifications, 1)
	assert.False(t, result.Notifications[0].IsRead)
	assert.Equal(t, 1, result.Unread)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, []string{"n1"}, f.deliverer.IDs())
}

func TestSync_IdempotentWithoutRemoteChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	read := unread("n2")
	read.IsRead = true
	f.remote.Set(tenant, unread("n1"), read)

	first, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)
	second, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)

	assert.Len(t, second.Notifications, 2)
	assert.Equal(t, first.Notifications, second.Notifications)
	assert.Zero(t, second.Inserted)
	assert.Zero(t, second.Updated)
	assert.Zero(t, second.Delivered)
	assert.Equal(t, 1, f.deliverer.Count(), "read notifications are never delivered")
}

func TestSync_RemoteWinsRevertsOfflineRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.UpsertNotification(ctx, model.Notification{
		ID: "n1", RestaurantID: tenant, Title: "Title n1", Message: "Body",
		Type: model.NotificationInfo, IsRead: true, CreatedAt: t0,
	}))
	f.remote.Set(tenant, unread("n1"))

	result, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)

	// The remote has not seen the local read yet; remote-wins copies its flag.
	got, err := f.store.GetNotification(ctx, tenant, "n1")
	require.NoError(t, err)
	assert.False(t, got.IsRead)
	assert.Equal(t, 1, result.Unread)
	assert.Zero(t, f.deliverer.Count(), "existing notifications are never delivered")
}

func TestSync_LocalWinsKeepsOfflineRead(t *testing.T) {
	f := newFixture(t, WithReadPolicy(LocalWins))
	ctx := context.Background()

	require.NoError(t, f.store.UpsertNotification(ctx, model.Notification{
		ID: "n1", RestaurantID: tenant, Title: "Title n1", Message: "Body",
		Type: model.NotificationInfo, IsRead: true, CreatedAt: t0,
	}))
	f.remote.Set(tenant, unread("n1"))

	result, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)
	assert.Zero(t, result.Unread)
	assert.Equal(t, LocalWins, f.engine.Policy())
}

func TestSync_RemoteUnavailableFallsBackToLocal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.UpsertNotification(ctx, model.Notification{
		ID: "local", RestaurantID: tenant, Type: model.NotificationInfo, CreatedAt: t0,
	}))
	f.remote.SetFetchErr(errors.New("connection refused"))

	result, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err, "remote failure must not abort the flow")
	assert.ErrorIs(t, result.RemoteErr, model.ErrRemoteUnavailable)
	require.Len(t, result.Notifications, 1)
	assert.Equal(t, 1, result.Unread)
}

func TestSync_RemoteTimeout(t *testing.T) {
	f := newFixture(t, WithRemoteTimeout(20*time.Millisecond))
	f.engine.remote = slowRemote{}

	result, err := f.engine.Sync(context.Background(), tenant)
	require.NoError(t, err)
	assert.ErrorIs(t, result.RemoteErr, model.ErrRemoteUnavailable)
	assert.ErrorIs(t, result.RemoteErr, context.DeadlineExceeded)
}

type slowRemote struct{}

func (slowRemote) FetchNotifications(ctx context.Context, _ string) ([]model.RemoteNotification, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowRemote) PushNotificationRead(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestSync_DeliveryPersistsAcrossEngines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Set(tenant, unread("n1"))

	_, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)

	// Simulate a restart that lost the row but not the delivery record.
	_, err = f.store.DB().Exec(`DELETE FROM notifications WHERE restaurant_id = ? AND id = ?`, tenant, "n1")
	require.NoError(t, err)
	restarted := New(f.store, f.remote, f.deliverer, zaptest.NewLogger(t))
	_, err = restarted.Sync(ctx, tenant)
	require.NoError(t, err)

	assert.Equal(t, 1, f.deliverer.Count())
}

func TestSync_SkipsRecordsWithoutID(t *testing.T) {
	f := newFixture(t)
	f.remote.Set(tenant, model.RemoteNotification{Title: "no id"}, unread("n1"))

	result, err := f.engine.Sync(context.Background(), tenant)
	require.NoError(t, err)
	assert.Len(t, result.Notifications, 1)
}

func TestSync_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Set(tenant, unread("n1"))
	f.remote.Set("r2", unread("n9"))

	_, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)

	other, err := f.store.ListNotifications(ctx, "r2", store.NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = f.engine.Sync(ctx, "")
	assert.ErrorIs(t, err, model.ErrNotAuthenticated)
}

func TestSync_SessionEndedDiscardsWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.remote = endingRemote{
		FakeRemote: f.remote,
		onFetch:    func() { require.NoError(t, f.engine.Logout(ctx, tenant)) },
	}
	f.remote.Set(tenant, unread("n1"))

	_, err := f.engine.Sync(ctx, tenant)
	assert.ErrorIs(t, err, model.ErrSessionEnded)

	list, err := f.store.ListNotifications(ctx, tenant, store.NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, f.deliverer.Count())
}

func TestSync_LogoutFromAnotherProcessDiscardsWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A second store on the same file stands in for the CLI process.
	other, err := store.Open(f.path)
	require.NoError(t, err)
	defer other.Close()
	otherEngine := New(other, testutil.NewFakeRemote(), nil, zaptest.NewLogger(t))

	f.engine.remote = endingRemote{
		FakeRemote: f.remote,
		onFetch:    func() { require.NoError(t, otherEngine.Logout(ctx, tenant)) },
	}
	f.remote.Set(tenant, unread("n1"), unread("n2"))

	_, err = f.engine.Sync(ctx, tenant)
	assert.ErrorIs(t, err, model.ErrSessionEnded)

	list, err := f.store.ListNotifications(ctx, tenant, store.NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, f.deliverer.Count())

	// A fresh sync after the logout starts a new session.
	f.engine.remote = f.remote
	result, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Delivered)
}

func TestSync_FailedClaimRollsBackInsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Set(tenant, unread("n1"))

	_, err := f.store.DB().ExecContext(ctx, `CREATE TRIGGER fail_claim BEFORE INSERT ON notification_deliveries
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)

	_, err = f.engine.Sync(ctx, tenant)
	assert.ErrorIs(t, err, model.ErrIOFailure)

	list, err := f.store.ListNotifications(ctx, tenant, store.NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "notification must not be stored without its delivery claim")
	assert.Zero(t, f.deliverer.Count())

	_, err = f.store.DB().ExecContext(ctx, `DROP TRIGGER fail_claim`)
	require.NoError(t, err)

	result, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, []string{"n1"}, f.deliverer.IDs())
}

func TestLogout_RequiresTenant(t *testing.T) {
	f := newFixture(t)
	err := f.engine.Logout(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrNotAuthenticated)
}

type endingRemote struct {
	*testutil.FakeRemote
	onFetch func()
}

func (r endingRemote) FetchNotifications(ctx context.Context, restaurantID string) ([]model.RemoteNotification, error) {
	list, err := r.FakeRemote.FetchNotifications(ctx, restaurantID)
	r.onFetch()
	return list, err
}

func TestSync_ConcurrentCallsDeliverOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Set(tenant, unread("n1"), unread("n2"), unread("n3"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Sync(ctx, tenant)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, f.deliverer.Count())
	list, err := f.store.ListNotifications(ctx, tenant, store.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestMarkRead_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Set(tenant, unread("n1"))
	_, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)

	changed, err := f.engine.MarkRead(ctx, tenant, "n1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.engine.MarkRead(ctx, tenant, "n1")
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, []string{"n1"}, f.remote.Pushed(), "second call must not push")
	assert.Equal(t, 1, f.deliverer.Count(), "mark-read never delivers")

	_, unreadCount, err := f.engine.Preview(ctx, tenant, 5)
	require.NoError(t, err)
	assert.Zero(t, unreadCount)
}

func TestMarkRead_PushFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.UpsertNotification(ctx, model.Notification{
		ID: "n1", RestaurantID: tenant, Type: model.NotificationInfo, CreatedAt: t0,
	}))
	f.remote.SetPushErr(errors.New("offline"))

	changed, err := f.engine.MarkRead(ctx, tenant, "n1")
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := f.store.GetNotification(ctx, tenant, "n1")
	require.NoError(t, err)
	assert.True(t, got.IsRead)
}

func TestMarkRead_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.MarkRead(context.Background(), tenant, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Empty(t, f.remote.Pushed())
}

func TestMarkRead_PushedReadSurvivesNextSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Set(tenant, unread("n1"))
	_, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)

	_, err = f.engine.MarkRead(ctx, tenant, "n1")
	require.NoError(t, err)

	result, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)
	assert.Zero(t, result.Unread)
}

func TestMarkAllRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Set(tenant, unread("n1"), unread("n2"))
	_, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)

	ids, err := f.engine.MarkAllRead(ctx, tenant)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"n1", "n2"}, ids)
	assert.ElementsMatch(t, []string{"n1", "n2"}, f.remote.Pushed())

	ids, err = f.engine.MarkAllRead(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var feed []model.RemoteNotification
	for i, id := range []string{"a", "b", "c", "d", "e", "f"} {
		at := t0.Add(time.Duration(i) * time.Minute)
		n := unread(id)
		n.CreatedAt = &at
		feed = append(feed, n)
	}
	f.remote.Set(tenant, feed...)
	_, err := f.engine.Sync(ctx, tenant)
	require.NoError(t, err)

	top, unreadCount, err := f.engine.Preview(ctx, tenant, 5)
	require.NoError(t, err)
	require.Len(t, top, 5)
	assert.Equal(t, "f", top[0].ID)
	assert.Equal(t, "b", top[4].ID)
	assert.Equal(t, 6, unreadCount)
}
