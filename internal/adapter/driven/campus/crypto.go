package campus

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/luoyuxi/campusfeed/internal/domain/model"
)

// rsaPrefix marks a password field as RSA-encrypted. The identity provider
// rejects submissions without it.
const rsaPrefix = "__RSA__"

// ParsePublicKey decodes the identity provider's base64 DER public key. Keys
// rotate, so the caller fetches a fresh one for every login attempt.
func ParsePublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode public key base64: %w", err)
	}

	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, want *rsa.PublicKey", key)
	}
	return rsaKey, nil
}

// PrepareSecret derives the single-use secret for one login attempt: the
// password encrypted against the server-supplied key, plus a synthesized
// browser fingerprint. Pure, no I/O; a malformed key is the only failure and
// aborts the login.
func PrepareSecret(creds model.Credentials, pub *rsa.PublicKey) (model.PreparedSecret, error) {
	encrypted, err := encryptPassword(creds.Password, pub)
	if err != nil {
		return model.PreparedSecret{}, err
	}

	return model.PreparedSecret{
		EncryptedPassword: encrypted,
		Fingerprint:       GenerateFingerprint(),
	}, nil
}

func encryptPassword(password string, pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("encrypt password: nil public key")
	}

	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(password))
	if err != nil {
		return "", fmt.Errorf("encrypt password: %w", err)
	}

	return rsaPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}
