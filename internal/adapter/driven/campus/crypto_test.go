package campus_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luoyuxi/campusfeed/internal/adapter/driven/campus"
	"github.com/luoyuxi/campusfeed/internal/domain/model"
)

// newTestKey generates an RSA key pair and the base64 DER encoding of its
// public half, the way the identity provider serves it.
func newTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	return key, base64.StdEncoding.EncodeToString(der)
}

func TestParsePublicKey(t *testing.T) {
	_, encoded := newTestKey(t)

	pub, err := campus.ParsePublicKey(encoded)

	require.NoError(t, err)
	assert.NotNil(t, pub)
}

func TestParsePublicKey_MalformedBase64(t *testing.T) {
	_, err := campus.ParsePublicKey("not/base64!!!")
	assert.Error(t, err)
}

func TestParsePublicKey_NotAKey(t *testing.T) {
	_, err := campus.ParsePublicKey(base64.StdEncoding.EncodeToString([]byte("garbage")))
	assert.Error(t, err)
}

func TestPrepareSecret_RoundTrip(t *testing.T) {
	key, encoded := newTestKey(t)
	pub, err := campus.ParsePublicKey(encoded)
	require.NoError(t, err)

	creds := model.Credentials{Username: "2021301234", Password: "s3cret!"}
	secret, err := campus.PrepareSecret(creds, pub)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(secret.EncryptedPassword, "__RSA__"))
	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret.EncryptedPassword, "__RSA__"))
	require.NoError(t, err)

	plaintext, err := rsa.DecryptPKCS1v15(nil, key, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "s3cret!", string(plaintext))

	assert.NotEmpty(t, secret.Fingerprint)
}

func TestPrepareSecret_NilKey(t *testing.T) {
	_, err := campus.PrepareSecret(model.Credentials{Password: "x"}, nil)
	assert.Error(t, err)
}

func TestPrepareSecret_FreshPerAttempt(t *testing.T) {
	_, encoded := newTestKey(t)
	pub, err := campus.ParsePublicKey(encoded)
	require.NoError(t, err)

	creds := model.Credentials{Username: "u", Password: "p"}
	first, err := campus.PrepareSecret(creds, pub)
	require.NoError(t, err)
	second, err := campus.PrepareSecret(creds, pub)
	require.NoError(t, err)

	// PKCS#1 v1.5 padding is randomized, so ciphertexts differ per attempt.
	assert.NotEqual(t, first.EncryptedPassword, second.EncryptedPassword)
}
