package driven

import (
	"context"

	"github.com/luoyuxi/campusfeed/internal/domain/model"
)

// NotificationSource defines the driven port for one downstream provider:
// exchange the shared authenticated session for a service-scoped credential,
// then fetch and decode that provider's notifications. Collect returns
// ErrAuthorizationDenied (wrapped) when the provider's redirect handoff lands
// back on the identity provider; the fetch is never attempted in that case.
type NotificationSource interface {
	Name() string
	Collect(ctx context.Context) ([]model.Notification, error)
}
