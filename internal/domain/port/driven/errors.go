// Package driven defines secondary port interfaces for external adapters.
package driven

import "errors"

// Sentinel errors for the login sequence and provider authorization.
// Adapters wrap these with fmt.Errorf("...: %w", ...) so callers can classify
// failures with errors.Is without parsing messages.
var (
	// ErrKeyFetchFailed indicates the identity provider's rotating public key
	// could not be obtained. Fatal for the login attempt.
	ErrKeyFetchFailed = errors.New("identity provider public key fetch failed")

	// ErrCredentialsRejected indicates the identity provider refused the
	// submitted username/password. Fatal for the attempt; the caller may
	// collect new credentials and start over.
	ErrCredentialsRejected = errors.New("credentials rejected")

	// ErrMFARejected indicates the one-time code was refused. Codes are
	// single-use, so there is no retry of the same code.
	ErrMFARejected = errors.New("mfa challenge rejected")

	// ErrAuthorizationDenied indicates a provider's redirect chain terminated
	// back on the identity provider instead of the provider's own host. The
	// session is not authenticated, or the provider was not accepted as a
	// relying party. Non-fatal to a refresh run.
	ErrAuthorizationDenied = errors.New("service authorization denied")

	// ErrFetchDecode indicates a single provider record did not match the
	// expected schema. The record is skipped; sibling records proceed.
	ErrFetchDecode = errors.New("provider record decode failed")
)
