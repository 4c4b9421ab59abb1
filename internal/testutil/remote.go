package testutil

import (
	"context"
	"sync"

	"github.com/roach88/offpos/internal/model"
)

// FakeRemote is an in-memory notification feed.
//
// It satisfies notify.Remote. Set FetchErr or PushErr to simulate an
// unreachable service.
type FakeRemote struct {
	mu            sync.Mutex
	notifications map[string][]model.RemoteNotification
	pushed        []string
	fetches       int

	FetchErr error
	PushErr  error
}

// NewFakeRemote creates an empty feed.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{notifications: make(map[string][]model.RemoteNotification)}
}

// Set replaces the feed of a tenant.
func (r *FakeRemote) Set(restaurantID string, notifications ...model.RemoteNotification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[restaurantID] = append([]model.RemoteNotification(nil), notifications...)
}

// SetFetchErr sets the error returned by FetchNotifications.
func (r *FakeRemote) SetFetchErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FetchErr = err
}

// SetPushErr sets the error returned by PushNotificationRead.
func (r *FakeRemote) SetPushErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PushErr = err
}

// FetchNotifications returns a copy of the tenant's feed.
func (r *FakeRemote) FetchNotifications(ctx context.Context, restaurantID string) ([]model.RemoteNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
	if r.FetchErr != nil {
		return nil, r.FetchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]model.RemoteNotification(nil), r.notifications[restaurantID]...), nil
}

// PushNotificationRead records the pushed id.
// A successful push also marks the id read in every tenant's feed,
// the way the real service would.
func (r *FakeRemote) PushNotificationRead(ctx context.Context, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.PushErr != nil {
		return r.PushErr
	}
	r.pushed = append(r.pushed, notificationID)
	for tenant, list := range r.notifications {
		for i := range list {
			if list[i].ID == notificationID {
				r.notifications[tenant][i].IsRead = true
			}
		}
	}
	return nil
}

// Pushed returns the ids successfully pushed, in call order.
func (r *FakeRemote) Pushed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.pushed...)
}

// Fetches returns how many times FetchNotifications was called.
func (r *FakeRemote) Fetches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches
}

// RecordingDeliverer records every delivered notification.
// It satisfies notify.Deliverer.
type RecordingDeliverer struct {
	mu        sync.Mutex
	delivered []model.Notification
}

// Deliver records n.
func (d *RecordingDeliverer) Deliver(_ context.Context, n model.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, n)
}

// Count returns the number of deliveries.
func (d *RecordingDeliverer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}

// IDs returns the delivered notification ids in order.
func (d *RecordingDeliverer) IDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, len(d.delivered))
	for i, n := range d.delivered {
		ids[i] = n.ID
	}
	return ids
}
