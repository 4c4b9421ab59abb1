package remote

import (
	"context"

	"github.com/roach88/offpos/internal/model"
)

// Offline is the remote used when no service is configured. Every call
// fails with REMOTE_UNAVAILABLE, so syncs serve local data only.
type Offline struct{}

func (Offline) FetchNotifications(context.Context, string) ([]model.RemoteNotification, error) {
	return nil, model.NewError(model.CodeRemoteUnavailable, "remote.fetch_notifications", "no remote configured")
}

func (Offline) PushNotificationRead(context.Context, string) error {
	return model.NewError(model.CodeRemoteUnavailable, "remote.push_read", "no remote configured")
}
