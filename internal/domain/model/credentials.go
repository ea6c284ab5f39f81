package model

// Credentials is the immutable username/password pair consumed by the login
// sequence. The plaintext password is used exactly once to build a
// PreparedSecret and must never be logged or persisted.
type Credentials struct {
	Username string
	Password string
}

// PreparedSecret carries the RSA-encrypted password and the synthesized
// browser fingerprint submitted alongside it. It is derived per login attempt
// and has no life beyond that attempt; the identity provider rotates its
// public key, so a PreparedSecret cannot be reused.
type PreparedSecret struct {
	EncryptedPassword string
	Fingerprint       string
}

// ServiceToken is the credential an authorization adapter produces for its
// fetch client. Bearer is empty for providers whose authorization is implicit:
// the redirect walk leaves the provider's own cookies on the shared session
// and no explicit token exists.
type ServiceToken struct {
	Source string
	Bearer string
}

// Implicit reports whether the token is only a marker and the shared session
// cookies are the actual credential.
func (t ServiceToken) Implicit() bool {
	return t.Bearer == ""
}
