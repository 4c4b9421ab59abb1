package notify

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/keylock"
	"github.com/roach88/offpos/internal/logging"
	"github.com/roach88/offpos/internal/metrics"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/store"
)

// DefaultRemoteTimeout bounds every remote call.
const DefaultRemoteTimeout = 10 * time.Second

// Remote is the remote notification service.
type Remote interface {
	FetchNotifications(ctx context.Context, restaurantID string) ([]model.RemoteNotification, error)
	PushNotificationRead(ctx context.Context, notificationID string) error
}

// SyncResult is the refreshed local view after a sync.
type SyncResult struct {
	Notifications []model.Notification
	Unread        int

	Inserted  int
	Updated   int
	Delivered int

	// RemoteErr is set when the remote could not be reached. The list is
	// then the unchanged local data.
	RemoteErr error
}

// Engine reconciles local notifications against the remote feed.
//
// Thread-safety: all methods are safe for concurrent use. Sync, MarkRead
// and MarkAllRead for the same tenant are serialized.
type Engine struct {
	store     *store.Store
	remote    Remote
	deliverer Deliverer
	logger    *zap.Logger

	policy  ReadPolicy
	timeout time.Duration
	now     func() time.Time

	locks *keylock.Map
}

// Option configures an Engine.
type Option func(*Engine)

// WithReadPolicy sets the read merge policy. Default: RemoteWins.
func WithReadPolicy(p ReadPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithRemoteTimeout bounds each remote call. Default: DefaultRemoteTimeout.
func WithRemoteTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithClock replaces time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine.
func New(s *store.Store, remote Remote, deliverer Deliverer, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		store:       s,
		remote:      remote,
		deliverer:   deliverer,
		logger:      logger.Named("notify"),
		policy:      RemoteWins,
		timeout:     DefaultRemoteTimeout,
		now:         time.Now,
		locks:       keylock.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the configured read policy.
func (e *Engine) Policy() ReadPolicy {
	return e.policy
}

// Logout ends the tenant's session and deletes its local data.
//
// The session generation lives in the store, so a Sync already running for
// the tenant, in this process or another one sharing the database, fails
// its next write with SESSION_ENDED and writes nothing more.
func (e *Engine) Logout(ctx context.Context, restaurantID string) error {
	const op = "notify.logout"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return err
	}
	gen, err := e.store.EndSession(ctx, restaurantID)
	if err != nil {
		return err
	}
	e.logger.Info("session ended", logging.Tenant(restaurantID), zap.Int64("generation", gen))
	return nil
}

// Sync reconciles the tenant's local notifications with the remote feed.
//
// Remote failure is not an error: the result carries the local list and
// RemoteErr. Errors are returned for local storage failures, a missing
// tenant and a session that ended mid-sync.
func (e *Engine) Sync(ctx context.Context, restaurantID string) (SyncResult, error) {
	const op = "notify.sync"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return SyncResult{}, err
	}

	start := time.Now()
	defer func() { metrics.SyncDuration.Observe(time.Since(start).Seconds()) }()

	unlock := e.locks.Lock(restaurantID)
	defer unlock()

	gen, err := e.store.SessionGeneration(ctx, restaurantID)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return SyncResult{}, err
	}

	local, err := e.store.ListNotifications(ctx, restaurantID, store.NotificationFilter{})
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return SyncResult{}, err
	}
	byID := make(map[string]model.Notification, len(local))
	for _, n := range local {
		byID[n.ID] = n
	}

	remote, err := e.fetch(ctx, restaurantID)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("remote_unavailable").Inc()
		e.logger.Warn("remote fetch failed, using local notifications",
			logging.Tenant(restaurantID), zap.Error(err))
		return SyncResult{
			Notifications: local,
			Unread:        UnreadCount(local),
			RemoteErr:     err,
		}, nil
	}

	var result SyncResult
	for _, r := range remote {
		if r.ID == "" {
			e.logger.Warn("skipping remote notification without id", logging.Tenant(restaurantID))
			continue
		}

		var current *model.Notification
		if n, ok := byID[r.ID]; ok {
			current = &n
		}
		d := Reconcile(current, r, restaurantID, e.policy, e.now())
		metrics.NotificationsReconciled.WithLabelValues(d.Action.String()).Inc()
		if d.Action == ActionUnchanged {
			continue
		}

		claimed, err := e.store.ApplyNotification(ctx, d.Record, gen, d.Deliver, e.now())
		if err != nil {
			if errors.Is(err, model.ErrInvalidRecord) {
				e.logger.Warn("skipping invalid remote notification",
					logging.Tenant(restaurantID), zap.String("id", r.ID), zap.Error(err))
				continue
			}
			return SyncResult{}, e.syncFailed(restaurantID, err)
		}
		byID[r.ID] = d.Record

		switch d.Action {
		case ActionInsert:
			result.Inserted++
		case ActionUpdate:
			result.Updated++
		}

		if claimed {
			if e.deliverer != nil {
				e.deliverer.Deliver(ctx, d.Record)
			}
			metrics.Deliveries.Inc()
			result.Delivered++
		}
	}

	// A logout that raced an all-unchanged pass still ends the sync.
	current, err := e.store.SessionGeneration(ctx, restaurantID)
	if err != nil {
		return SyncResult{}, e.syncFailed(restaurantID, err)
	}
	if current != gen {
		return SyncResult{}, e.syncFailed(restaurantID, model.NewError(model.CodeSessionEnded, op,
			"session for restaurant %s ended during sync", restaurantID))
	}

	refreshed, err := e.store.ListNotifications(ctx, restaurantID, store.NotificationFilter{})
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return SyncResult{}, err
	}
	result.Notifications = refreshed
	result.Unread = UnreadCount(refreshed)

	metrics.SyncRuns.WithLabelValues("ok").Inc()
	e.logger.Debug("sync complete",
		logging.Tenant(restaurantID),
		zap.Int("remote", len(remote)),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("delivered", result.Delivered),
		zap.Int("unread", result.Unread),
	)
	return result, nil
}

// fetch calls the remote under the configured timeout.
func (e *Engine) fetch(ctx context.Context, restaurantID string) ([]model.RemoteNotification, error) {
	const op = "notify.fetch"
	if e.remote == nil {
		return nil, model.NewError(model.CodeRemoteUnavailable, op, "no remote configured")
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	list, err := e.remote.FetchNotifications(ctx, restaurantID)
	if err != nil {
		metrics.RemoteFailures.WithLabelValues("fetch").Inc()
		if model.CodeOf(err) == model.CodeRemoteUnavailable {
			return nil, err
		}
		return nil, model.WrapError(model.CodeRemoteUnavailable, op, err)
	}
	return list, nil
}

// syncFailed counts a failed sync and returns err.
func (e *Engine) syncFailed(restaurantID string, err error) error {
	if errors.Is(err, model.ErrSessionEnded) {
		metrics.SyncRuns.WithLabelValues("session_ended").Inc()
		e.logger.Info("sync discarded, session ended", logging.Tenant(restaurantID))
		return err
	}
	metrics.SyncRuns.WithLabelValues("error").Inc()
	return err
}

// MarkRead marks a notification read locally and pushes the read state to
// the remote on a best-effort basis.
//
// Returns changed=false for an already-read notification; nothing is
// pushed or delivered in that case.
func (e *Engine) MarkRead(ctx context.Context, restaurantID, id string) (changed bool, err error) {
	const op = "notify.mark_read"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return false, err
	}

	unlock := e.locks.Lock(restaurantID)
	changed, err = e.store.MarkNotificationRead(ctx, restaurantID, id)
	unlock()
	if err != nil || !changed {
		return false, err
	}

	e.push(ctx, restaurantID, id)
	return true, nil
}

// MarkAllRead marks every unread notification read and pushes each id.
// Returns the ids that transitioned.
func (e *Engine) MarkAllRead(ctx context.Context, restaurantID string) ([]string, error) {
	const op = "notify.mark_all_read"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(restaurantID)
	ids, err := e.store.MarkAllNotificationsRead(ctx, restaurantID)
	unlock()
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		e.push(ctx, restaurantID, id)
	}
	return ids, nil
}

// push sends the read state to the remote. Failures are logged, never retried.
func (e *Engine) push(ctx context.Context, restaurantID, id string) {
	if e.remote == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.remote.PushNotificationRead(ctx, id); err != nil {
		metrics.RemoteFailures.WithLabelValues("push_read").Inc()
		e.logger.Warn("push read state failed",
			logging.Tenant(restaurantID), zap.String("id", id), zap.Error(err))
	}
}

// Preview returns the newest n notifications and the unread count.
func (e *Engine) Preview(ctx context.Context, restaurantID string, n int) ([]model.Notification, int, error) {
	list, err := e.store.ListNotifications(ctx, restaurantID, store.NotificationFilter{})
	if err != nil {
		return nil, 0, err
	}
	return Top(list, n), UnreadCount(list), nil
}

// UnreadCount counts notifications with is_read = false.
func UnreadCount(list []model.Notification) int {
	count := 0
	for _, n := range list {
		if !n.IsRead {
			count++
		}
	}
	return count
}

// Top sorts by created_at descending (ties by id) and returns the first n.
// The input slice is not modified.
func Top(list []model.Notification, n int) []model.Notification {
	sorted := make([]model.Notification, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
