package driven

import (
	"context"

	"github.com/luoyuxi/campusfeed/internal/domain/model"
)

// IdentityClient defines the driven port for the campus identity provider
// login sequence. A successful Login leaves the shared session authenticated;
// every failure is terminal for the attempt and no partial state is reused.
type IdentityClient interface {
	Login(ctx context.Context, creds model.Credentials) error
}

// MFAPrompter supplies the out-of-band one-time code when the identity
// provider demands a second factor. Code blocks until the user provides the
// code or ctx is done; the login sequence passes a deadline-bearing context so
// an abandoned login cannot hang forever.
type MFAPrompter interface {
	Code(ctx context.Context, channel model.MFAChannel) (string, error)
}
