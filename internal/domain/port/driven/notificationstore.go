package driven

import (
	"context"

	"github.com/luoyuxi/campusfeed/internal/domain/model"
)

// NotificationStore defines the driven port for notification persistence.
// Upsert is keyed by Notification.ID, so refetching an unchanged item is a
// no-op overwrite rather than a duplicate row.
type NotificationStore interface {
	Upsert(ctx context.Context, n model.Notification) error
	// ListAll returns every stored notification, newest first by published
	// timestamp, ties broken by id for a stable order.
	ListAll(ctx context.Context) ([]model.Notification, error)
	Count(ctx context.Context) (int, error)
	// DeleteAll clears the table. A refresh run repopulates from scratch.
	DeleteAll(ctx context.Context) error
}
