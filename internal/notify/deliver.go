package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/logging"
	"github.com/roach88/offpos/internal/model"
)

// Deliverer is the device notification surface (banner, alert).
// Deliver is fire-and-forget.
type Deliverer interface {
	Deliver(ctx context.Context, n model.Notification)
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, n model.Notification)

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, n model.Notification) {
	f(ctx, n)
}

// LogDeliverer delivers by writing the notification to the log.
// Used by the CLI, which has no banner surface.
type LogDeliverer struct {
	Logger *zap.Logger
}

// Deliver logs n at info level.
func (d LogDeliverer) Deliver(_ context.Context, n model.Notification) {
	d.Logger.Info("notification",
		logging.Tenant(n.RestaurantID),
		zap.String("id", n.ID),
		zap.String("type", string(n.Type)),
		zap.String("title", n.Title),
		zap.String("message", n.Message),
	)
}
