package campus_test

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luoyuxi/campusfeed/internal/adapter/driven/campus"
	"github.com/luoyuxi/campusfeed/internal/domain/model"
	"github.com/luoyuxi/campusfeed/internal/domain/port/driven"
)

const goodCode = "246810"

// fakeIdP simulates the identity provider's login endpoints with
// configurable accept/reject behavior at each step.
type fakeIdP struct {
	t   *testing.T
	key *rsa.PrivateKey
	pub string

	mfaRequired bool
	failKey     bool
	rejectCreds bool

	wantPassword string

	detectCalls   int
	sendCalls     int
	validCalls    int
	finalizeCalls int
}

func (f *fakeIdP) start(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /jwt/publicKey", func(w http.ResponseWriter, _ *http.Request) {
		if f.failKey {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"publicKey": f.pub})
	})

	mux.HandleFunc("POST /mfa/detect", func(w http.ResponseWriter, r *http.Request) {
		f.detectCalls++

		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))

		if f.wantPassword != "" {
			require.True(f.t, strings.HasPrefix(body.Password, "__RSA__"))
			ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(body.Password, "__RSA__"))
			require.NoError(f.t, err)
			plaintext, err := rsa.DecryptPKCS1v15(nil, f.key, ciphertext)
			require.NoError(f.t, err)
			require.Equal(f.t, f.wantPassword, string(plaintext))
		}

		if f.rejectCreds {
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 1})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{"need": f.mfaRequired, "state": "state-1"},
		})
	})

	mux.HandleFunc("POST /mfa/init", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]string{"gid": "gid-1"},
		})
	})

	mux.HandleFunc("POST /guard/securephone/send", func(w http.ResponseWriter, _ *http.Request) {
		f.sendCalls++
		_ = json.NewEncoder(w).Encode(map[string]int{"code": 0})
	})

	mux.HandleFunc("POST /guard/securephone/valid", func(w http.ResponseWriter, r *http.Request) {
		f.validCalls++

		var body struct {
			Gid  string `json:"gid"`
			Code string `json:"code"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(f.t, "gid-1", body.Gid)

		if body.Code == goodCode {
			_ = json.NewEncoder(w).Encode(map[string]int{"code": 0})
		} else {
			_ = json.NewEncoder(w).Encode(map[string]int{"code": 1})
		}
	})

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		f.finalizeCalls++
		require.NoError(f.t, r.ParseForm())
		require.NotEmpty(f.t, r.PostForm.Get("password"))
		require.NotEmpty(f.t, r.PostForm.Get("fingerprint"))
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// staticPrompter returns a fixed code immediately.
type staticPrompter struct {
	code string
}

func (p *staticPrompter) Code(_ context.Context, _ model.MFAChannel) (string, error) {
	return p.code, nil
}

// blockedPrompter never produces a code; it waits out the context like a user
// who walked away.
type blockedPrompter struct{}

func (blockedPrompter) Code(ctx context.Context, _ model.MFAChannel) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newLoginClient(t *testing.T, idp *fakeIdP, prompter driven.MFAPrompter) (*campus.Client, *campus.Session) {
	t.Helper()

	key, pub := newTestKey(t)
	idp.t = t
	idp.key = key
	idp.pub = pub
	srv := idp.start(t)

	sess, err := campus.NewSession()
	require.NoError(t, err)

	client := campus.NewClientWithBaseURL(sess, srv.URL, "https://ecampus.nwpu.edu.cn/portal/", prompter, slog.Default())
	return client, sess
}

func TestLogin_NoMFA(t *testing.T) {
	idp := &fakeIdP{wantPassword: "s3cret!"}
	client, sess := newLoginClient(t, idp, &staticPrompter{})

	err := client.Login(context.Background(), model.Credentials{Username: "2021301234", Password: "s3cret!"})

	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, 1, idp.detectCalls)
	assert.Equal(t, 0, idp.sendCalls, "no challenge without mfa_required")
	assert.Equal(t, 1, idp.finalizeCalls)
}

func TestLogin_MFACorrectCode(t *testing.T) {
	idp := &fakeIdP{mfaRequired: true}
	client, sess := newLoginClient(t, idp, &staticPrompter{code: goodCode})

	err := client.Login(context.Background(), model.Credentials{Username: "u", Password: "p"})

	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, 1, idp.sendCalls)
	assert.Equal(t, 1, idp.validCalls)
	assert.Equal(t, 1, idp.finalizeCalls, "authenticated via the mfa branch still finalizes")
}

func TestLogin_MFAWrongCode(t *testing.T) {
	idp := &fakeIdP{mfaRequired: true}
	client, sess := newLoginClient(t, idp, &staticPrompter{code: "000000"})

	err := client.Login(context.Background(), model.Credentials{Username: "u", Password: "p"})

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrMFARejected)
	assert.False(t, sess.Authenticated())
	assert.Equal(t, 1, idp.validCalls, "one-shot code, no retry")
	assert.Equal(t, 0, idp.finalizeCalls, "a rejected code must never reach finalize")
}

func TestLogin_CredentialsRejected(t *testing.T) {
	idp := &fakeIdP{rejectCreds: true}
	client, sess := newLoginClient(t, idp, &staticPrompter{})

	err := client.Login(context.Background(), model.Credentials{Username: "u", Password: "wrong"})

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrCredentialsRejected)
	assert.False(t, sess.Authenticated())
	assert.Equal(t, 0, idp.finalizeCalls)
}

func TestLogin_KeyFetchFailed(t *testing.T) {
	idp := &fakeIdP{failKey: true}
	client, sess := newLoginClient(t, idp, &staticPrompter{})

	err := client.Login(context.Background(), model.Credentials{Username: "u", Password: "p"})

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrKeyFetchFailed)
	assert.False(t, sess.Authenticated())
	assert.Equal(t, 0, idp.detectCalls, "credentials are never submitted without a key")
}

func TestLogin_MFAWaitAbandoned(t *testing.T) {
	idp := &fakeIdP{mfaRequired: true}
	client, sess := newLoginClient(t, idp, blockedPrompter{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Login(ctx, model.Credentials{Username: "u", Password: "p"})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, sess.Authenticated())
	assert.Equal(t, 0, idp.validCalls)
	assert.Equal(t, 0, idp.finalizeCalls)
}
