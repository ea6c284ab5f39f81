package campus_test

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luoyuxi/campusfeed/internal/adapter/driven/campus"
)

func TestDoJSON_DrainsBodyForConnectionReuse(t *testing.T) {
	var mu sync.Mutex
	newConns := 0

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Pad well past the decoder's read-ahead so an undrained body would
		// leave bytes on the wire and kill the connection.
		_, _ = w.Write([]byte(`{"ok":true}`))
		_, _ = w.Write(bytes.Repeat([]byte(" "), 8192))
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			mu.Lock()
			newConns++
			mu.Unlock()
		}
	}
	srv.Start()
	t.Cleanup(srv.Close)

	sess, err := campus.NewSession()
	require.NoError(t, err)

	for range 3 {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
		require.NoError(t, err)

		var out struct {
			OK bool `json:"ok"`
		}
		require.NoError(t, sess.DoJSON(req, &out))
		require.True(t, out.OK)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, newConns, "drained responses keep the connection reusable")
}

func TestDoJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	sess, err := campus.NewSession()
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	var out struct{}
	assert.Error(t, sess.DoJSON(req, &out))
}
