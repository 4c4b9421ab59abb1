package notify

import (
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/offpos/internal/model"
)

// ReadPolicy decides how the remote read flag merges into a local record.
type ReadPolicy string

const (
	// RemoteWins sets is_read from the remote on every sync pass.
	RemoteWins ReadPolicy = "remote-wins"

	// LocalWins never resets a locally read record to unread.
	LocalWins ReadPolicy = "local-wins"
)

// ParseReadPolicy parses a policy name. Empty means RemoteWins.
func ParseReadPolicy(s string) (ReadPolicy, error) {
	switch ReadPolicy(s) {
	case "", RemoteWins:
		return RemoteWins, nil
	case LocalWins:
		return LocalWins, nil
	}
	return "", fmt.Errorf("unknown read policy %q", s)
}

// Action is the write a reconcile decision requires.
type Action int

const (
	// ActionUnchanged means the local record already matches.
	ActionUnchanged Action = iota

	// ActionInsert means the record is new locally.
	ActionInsert

	// ActionUpdate means the local record is replaced.
	ActionUpdate
)

// String returns the metric label for the action.
func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	default:
		return "unchanged"
	}
}

// Decision is the outcome of reconciling one remote record.
type Decision struct {
	Record  model.Notification
	Action  Action
	Deliver bool
}

// Reconcile merges remote into the optional local record.
//
// A nil local yields an insert carrying the remote read flag; it is
// delivered when unread. An existing record takes title, message and type
// from the remote and keeps its created_at; is_read follows policy.
// Unknown remote types are stored as info. Reconcile performs no I/O.
func Reconcile(local *model.Notification, remote model.RemoteNotification, restaurantID string, policy ReadPolicy, now time.Time) Decision {
	typ := remote.Type
	if !model.ValidNotificationTypes[typ] {
		typ = model.NotificationInfo
	}

	if local == nil {
		createdAt := now
		if remote.CreatedAt != nil {
			createdAt = *remote.CreatedAt
		}
		return Decision{
			Record: model.Notification{
				ID:           remote.ID,
				RestaurantID: restaurantID,
				Title:        norm.NFC.String(remote.Title),
				Message:      norm.NFC.String(remote.Message),
				Type:         typ,
				IsRead:       remote.IsRead,
				CreatedAt:    createdAt.UTC(),
			},
			Action:  ActionInsert,
			Deliver: !remote.IsRead,
		}
	}

	merged := *local
	merged.Title = norm.NFC.String(remote.Title)
	merged.Message = norm.NFC.String(remote.Message)
	merged.Type = typ
	switch policy {
	case LocalWins:
		merged.IsRead = local.IsRead || remote.IsRead
	default:
		merged.IsRead = remote.IsRead
	}

	if merged == *local {
		return Decision{Record: merged, Action: ActionUnchanged}
	}
	return Decision{Record: merged, Action: ActionUpdate}
}
