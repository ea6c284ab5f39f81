package campus

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/luoyuxi/campusfeed/internal/domain/model"
	"github.com/luoyuxi/campusfeed/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.IdentityClient = (*Client)(nil)

// loginState is the position of one login attempt within the sequence. Every
// attempt moves strictly forward until it terminates in stateAuthenticated or
// stateFailed; no state is ever re-entered.
type loginState string

const (
	stateStart                loginState = "start"
	stateKeyFetched           loginState = "key_fetched"
	stateCredentialsSubmitted loginState = "credentials_submitted"
	stateMFARequired          loginState = "mfa_required"
	stateMFAChallengeSent     loginState = "mfa_challenge_sent"
	stateMFAVerified          loginState = "mfa_verified"
	stateAuthenticated        loginState = "authenticated"
	stateFailed               loginState = "failed"
)

// loginChallenge is the transient state threaded through one attempt: the
// server-issued state token, whether a second factor was demanded, and the
// challenge id once one was started. A fresh value is created per attempt;
// nothing survives a failure.
type loginChallenge struct {
	state       string
	mfaRequired bool
	channel     model.MFAChannel
	gid         string
}

// Client drives the identity provider's password plus conditional-MFA login
// sequence and leaves the shared Session authenticated on success.
type Client struct {
	sess       *Session
	baseURL    string
	serviceURL string
	prompter   driven.MFAPrompter
	channel    model.MFAChannel
	logger     *slog.Logger
}

// NewClient creates a login client against the production identity provider.
// serviceURL is the relying-party redirect presented at login; prompter
// supplies the out-of-band one-time code when the provider demands one.
func NewClient(sess *Session, serviceURL string, prompter driven.MFAPrompter, logger *slog.Logger) *Client {
	return &Client{
		sess:       sess,
		baseURL:    "https://" + IdPHost + "/cas",
		serviceURL: serviceURL,
		prompter:   prompter,
		channel:    model.MFAChannelSMS,
		logger:     logger,
	}
}

// NewClientWithBaseURL creates a Client against an arbitrary identity
// provider base URL. Intended for tests with an httptest server.
func NewClientWithBaseURL(sess *Session, baseURL, serviceURL string, prompter driven.MFAPrompter, logger *slog.Logger) *Client {
	c := NewClient(sess, serviceURL, prompter, logger)
	c.baseURL = baseURL
	return c
}

// Wire shapes for the identity provider endpoints. The provider wraps every
// JSON response in a {code, data} envelope where code 0 means accepted.

type publicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

type detectResponse struct {
	Code int `json:"code"`
	Data struct {
		Need  bool   `json:"need"`
		State string `json:"state"`
	} `json:"data"`
}

type mfaInitResponse struct {
	Code int `json:"code"`
	Data struct {
		Gid string `json:"gid"`
	} `json:"data"`
}

type codeResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Login runs one full login attempt. Any HTTP-level error or unexpected
// response shape at any step is terminal for the attempt; the caller owns
// whether to retry from the start. On success the shared Session holds the
// authenticated cookies and is marked accordingly.
func (c *Client) Login(ctx context.Context, creds model.Credentials) error {
	state := stateStart
	challenge := &loginChallenge{channel: c.channel}

	fail := func(err error) error {
		c.logger.Error("login failed", "state", string(state), "error", err)
		state = stateFailed
		return err
	}

	// Seed the session cookies by loading the login page for our service.
	if err := c.beginLogin(ctx); err != nil {
		return fail(err)
	}

	pub, err := c.fetchPublicKey(ctx)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", driven.ErrKeyFetchFailed, err))
	}
	state = stateKeyFetched

	secret, err := PrepareSecret(creds, pub)
	if err != nil {
		return fail(err)
	}

	if err := c.submitCredentials(ctx, creds.Username, secret, challenge); err != nil {
		return fail(err)
	}
	state = stateCredentialsSubmitted

	if challenge.mfaRequired {
		state = stateMFARequired
		c.logger.Info("second factor required", "channel", string(challenge.channel))

		if err := c.sendChallenge(ctx, challenge); err != nil {
			return fail(err)
		}
		state = stateMFAChallengeSent

		// Suspends until the caller supplies the code or ctx expires.
		code, err := c.prompter.Code(ctx, challenge.channel)
		if err != nil {
			return fail(fmt.Errorf("await mfa code: %w", err))
		}

		if err := c.verifyChallenge(ctx, challenge, code); err != nil {
			return fail(err)
		}
		state = stateMFAVerified
	}

	if err := c.finalizeLogin(ctx, creds.Username, secret, challenge); err != nil {
		return fail(err)
	}
	state = stateAuthenticated

	c.sess.MarkAuthenticated()
	c.logger.Info("login authenticated", "username", creds.Username, "mfa", challenge.mfaRequired)
	return nil
}

func (c *Client) beginLogin(ctx context.Context) error {
	loginURL := c.baseURL + "/login?service=" + url.QueryEscape(c.serviceURL)
	resp, err := c.sess.Get(ctx, loginURL)
	if err != nil {
		return fmt.Errorf("load login page: %w", err)
	}
	drain(resp)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("load login page: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) fetchPublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	var out publicKeyResponse
	if err := c.sess.GetJSON(ctx, c.baseURL+"/jwt/publicKey", &out); err != nil {
		return nil, err
	}
	if out.PublicKey == "" {
		return nil, fmt.Errorf("empty public key in response")
	}
	return ParsePublicKey(out.PublicKey)
}

// submitCredentials posts the username and encrypted password to the
// credential-check endpoint. On acceptance the server issues the state token
// for the rest of the sequence and says whether a second factor is needed.
func (c *Client) submitCredentials(ctx context.Context, username string, secret model.PreparedSecret, challenge *loginChallenge) error {
	var out detectResponse
	body := map[string]string{
		"username": username,
		"password": secret.EncryptedPassword,
	}
	if err := c.sess.PostJSON(ctx, c.baseURL+"/mfa/detect", body, &out); err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}
	if out.Code != 0 {
		return fmt.Errorf("%w: server code %d", driven.ErrCredentialsRejected, out.Code)
	}

	challenge.state = out.Data.State
	challenge.mfaRequired = out.Data.Need
	return nil
}

// sendChallenge starts the MFA exchange for the configured channel and asks
// the server to deliver a one-time code over it.
func (c *Client) sendChallenge(ctx context.Context, challenge *loginChallenge) error {
	var initOut mfaInitResponse
	initBody := map[string]string{
		"type":  string(challenge.channel),
		"state": challenge.state,
	}
	if err := c.sess.PostJSON(ctx, c.baseURL+"/mfa/init", initBody, &initOut); err != nil {
		return fmt.Errorf("begin mfa: %w", err)
	}
	if initOut.Code != 0 || initOut.Data.Gid == "" {
		return fmt.Errorf("begin mfa: server code %d", initOut.Code)
	}
	challenge.gid = initOut.Data.Gid

	var sendOut codeResponse
	sendBody := map[string]string{"gid": challenge.gid}
	sendURL := c.baseURL + "/guard/" + string(challenge.channel) + "/send"
	if err := c.sess.PostJSON(ctx, sendURL, sendBody, &sendOut); err != nil {
		return fmt.Errorf("send mfa challenge: %w", err)
	}
	if sendOut.Code != 0 {
		return fmt.Errorf("send mfa challenge: server code %d", sendOut.Code)
	}
	return nil
}

// verifyChallenge submits the one-shot code. A rejection is terminal; the same
// code is never retried.
func (c *Client) verifyChallenge(ctx context.Context, challenge *loginChallenge, code string) error {
	var out codeResponse
	body := map[string]string{
		"gid":  challenge.gid,
		"code": code,
	}
	validURL := c.baseURL + "/guard/" + string(challenge.channel) + "/valid"
	if err := c.sess.PostJSON(ctx, validURL, body, &out); err != nil {
		return fmt.Errorf("verify mfa code: %w", err)
	}
	if out.Code != 0 {
		return fmt.Errorf("%w: server code %d", driven.ErrMFARejected, out.Code)
	}
	return nil
}

// finalizeLogin posts the full login form. The server answers with the
// session cookies that make the Session authenticated.
func (c *Client) finalizeLogin(ctx context.Context, username string, secret model.PreparedSecret, challenge *loginChallenge) error {
	form := url.Values{
		"username":    {username},
		"password":    {secret.EncryptedPassword},
		"mfaState":    {challenge.state},
		"fingerprint": {secret.Fingerprint},
	}
	loginURL := c.baseURL + "/login?service=" + url.QueryEscape(c.serviceURL)

	resp, err := c.sess.PostForm(ctx, loginURL, form)
	if err != nil {
		return fmt.Errorf("finalize login: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: finalize status %d", driven.ErrCredentialsRejected, resp.StatusCode)
	}
	return nil
}
