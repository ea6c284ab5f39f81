// Package campus implements the identity-provider login sequence and the
// shared authenticated session the per-provider adapters run against.
package campus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/publicsuffix"
)

// IdPHost is the campus identity provider host. Every authorization adapter
// treats a redirect chain that terminates here as denial.
const IdPHost = "uis.nwpu.edu.cn"

// Session is the single mutable credential container for one sign-in. It owns
// the cookie jar and default headers shared by the login sequence, every
// authorization adapter, and every fetch client. Exactly one live Session
// exists per logical sign-in.
type Session struct {
	client        *http.Client
	header        http.Header
	authenticated atomic.Bool
}

// NewSession creates a Session with an empty public-suffix-aware cookie jar
// and the browser-equivalent default headers the identity provider expects.
func NewSession() (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Session{
		client: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		header: http.Header{
			"User-Agent":      []string{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"},
			"Accept":          []string{"application/json, text/plain, */*"},
			"Accept-Language": []string{"zh-CN,zh;q=0.9,en;q=0.8"},
		},
	}, nil
}

// MarkAuthenticated records that the login sequence reached its terminal
// success state. Authorization adapters refuse to run before this.
func (s *Session) MarkAuthenticated() {
	s.authenticated.Store(true)
}

// Authenticated reports whether a login completed on this session.
func (s *Session) Authenticated() bool {
	return s.authenticated.Load()
}

// Do applies the session's default headers and executes the request through
// the shared client. Headers already set on the request are not overwritten.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	for k, vs := range s.header {
		if req.Header.Get(k) == "" {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}
	return s.client.Do(req)
}

// Get issues a GET through the session.
func (s *Session) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", rawURL, err)
	}
	return s.Do(req)
}

// GetJSON issues a GET and decodes the JSON response body into out.
func (s *Session) GetJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := s.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode GET %s: %w", rawURL, err)
	}
	return nil
}

// DoJSON executes a prepared request through the session and decodes the JSON
// response body into out. The body is always drained so the connection can be
// reused. For requests that need extra headers beyond the session defaults.
func (s *Session) DoJSON(req *http.Request, out any) error {
	resp, err := s.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL, err)
	}
	return nil
}

// PostJSON issues a POST with a JSON body and decodes the JSON response into out.
func (s *Session) PostJSON(ctx context.Context, rawURL string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal POST %s body: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request %s: %w", rawURL, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("POST %s: status %d", rawURL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode POST %s: %w", rawURL, err)
	}
	return nil
}

// PostForm issues a form-encoded POST and returns the response with its body
// drained and closed. Redirects are followed, so the final status reflects
// where the chain landed.
func (s *Session) PostForm(ctx context.Context, rawURL string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", rawURL, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.Do(req)
	if err != nil {
		return nil, err
	}
	drain(resp)
	return resp, nil
}

// FollowRedirects issues a GET with redirects followed and reports where the
// chain terminated. The cookie jar picks up every Set-Cookie along the walk,
// which is the entire point for the implicit-cookie providers.
func (s *Session) FollowRedirects(ctx context.Context, rawURL string) (*url.URL, int, error) {
	resp, err := s.Get(ctx, rawURL)
	if err != nil {
		return nil, 0, err
	}
	drain(resp)

	// resp.Request is the request of the final hop.
	return resp.Request.URL, resp.StatusCode, nil
}

// drain consumes and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
