package campus

import (
	"context"
	"fmt"
	"net/url"

	"github.com/luoyuxi/campusfeed/internal/domain/model"
	"github.com/luoyuxi/campusfeed/internal/domain/port/driven"
)

// The two authorization shapes the downstream providers use. Both walk the
// provider's login-redirect chain on the shared session; they differ only in
// whether an explicit token comes back.
//
// The one rule every adapter obeys: a chain that terminates back on the
// identity provider host is denial, never success. An expired or
// unauthenticated session produces exactly that silent loop back to login
// rather than an HTTP error.

// CookieAuthorize walks the provider's login-redirect chain so the provider
// sets its own session cookies on the shared jar. The returned token is an
// implicit marker; the cookies now in the Session are the usable credential.
func CookieAuthorize(ctx context.Context, sess *Session, source, loginURL, idpHost string) (model.ServiceToken, error) {
	final, status, err := walkRedirects(ctx, sess, source, loginURL, idpHost)
	if err != nil {
		return model.ServiceToken{}, err
	}
	if status >= 400 {
		return model.ServiceToken{}, fmt.Errorf("authorize %s: final status %d at %s", source, status, final.Host)
	}

	return model.ServiceToken{Source: source}, nil
}

// TokenAuthorize walks the provider's login-redirect chain and extracts a
// bearer token from the named query parameter of the final URL. The final
// host must be the provider's own host; anything else is denial.
func TokenAuthorize(ctx context.Context, sess *Session, source, loginURL, idpHost, serviceHost, param string) (model.ServiceToken, error) {
	final, status, err := walkRedirects(ctx, sess, source, loginURL, idpHost)
	if err != nil {
		return model.ServiceToken{}, err
	}
	if status >= 400 {
		return model.ServiceToken{}, fmt.Errorf("authorize %s: final status %d at %s", source, status, final.Host)
	}
	if final.Host != serviceHost {
		return model.ServiceToken{}, fmt.Errorf("%w: %s redirect landed on %s, want %s", driven.ErrAuthorizationDenied, source, final.Host, serviceHost)
	}

	token := final.Query().Get(param)
	if token == "" {
		return model.ServiceToken{}, fmt.Errorf("%w: %s redirect carried no %q parameter", driven.ErrAuthorizationDenied, source, param)
	}

	return model.ServiceToken{Source: source, Bearer: token}, nil
}

// walkRedirects enforces the preconditions shared by both adapters: the
// session must have completed a login, and the chain must leave the identity
// provider's host.
func walkRedirects(ctx context.Context, sess *Session, source, loginURL, idpHost string) (*url.URL, int, error) {
	if !sess.Authenticated() {
		return nil, 0, fmt.Errorf("%w: %s authorize before login completed", driven.ErrAuthorizationDenied, source)
	}

	u, status, err := sess.FollowRedirects(ctx, loginURL)
	if err != nil {
		return nil, 0, fmt.Errorf("authorize %s: %w", source, err)
	}
	if u.Host == idpHost {
		return nil, 0, fmt.Errorf("%w: %s redirect chain terminated on identity provider %s", driven.ErrAuthorizationDenied, source, idpHost)
	}

	return u, status, nil
}
