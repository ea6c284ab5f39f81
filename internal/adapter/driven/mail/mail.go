// Package mail collects webmail notifications. Authorization is implicit: the
// redirect walk leaves the mail system's own cookies on the shared session.
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"

	"github.com/luoyuxi/campusfeed/internal/adapter/driven/campus"
	"github.com/luoyuxi/campusfeed/internal/domain/model"
	"github.com/luoyuxi/campusfeed/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationSource = (*Source)(nil)

const (
	loginURL = "https://" + campus.IdPHost + "/cas/login?service=https%3A%2F%2Fmail.nwpu.edu.cn%2Fcoremail%2Findex.jsp"
	listURL  = "https://mail.nwpu.edu.cn/coremail/s/json?func=mbox%3AlistMessages"

	// untitledSubject fills in for messages that arrive with an empty subject.
	untitledSubject = "无标题邮件"
)

// Source binds the mail authorization adapter and fetch client into one
// provider of the aggregated feed.
type Source struct {
	sess     *campus.Session
	loginURL string
	listURL  string
	idpHost  string
	logger   *slog.Logger
}

// NewSource creates the production mail source on the shared session.
func NewSource(sess *campus.Session, logger *slog.Logger) *Source {
	return &Source{
		sess:     sess,
		loginURL: loginURL,
		listURL:  listURL,
		idpHost:  campus.IdPHost,
		logger:   logger,
	}
}

// NewSourceWithURLs creates a Source against arbitrary endpoints. Intended
// for tests with httptest servers.
func NewSourceWithURLs(sess *campus.Session, loginURL, listURL, idpHost string, logger *slog.Logger) *Source {
	return &Source{
		sess:     sess,
		loginURL: loginURL,
		listURL:  listURL,
		idpHost:  idpHost,
		logger:   logger,
	}
}

// Name identifies this provider in outcomes and logs.
func (s *Source) Name() string { return "mail" }

// Collect authorizes against the mail system and fetches the message list.
func (s *Source) Collect(ctx context.Context) ([]model.Notification, error) {
	token, err := campus.CookieAuthorize(ctx, s.sess, s.Name(), s.loginURL, s.idpHost)
	if err != nil {
		return nil, err
	}

	return s.fetch(ctx, token)
}

// listResponse is the webmail list envelope. Messages are kept raw so one
// malformed entry cannot poison the batch.
type listResponse struct {
	Code string            `json:"code"`
	Var  []json.RawMessage `json:"var"`
}

type message struct {
	ID           string `json:"id"`
	Subject      string `json:"subject"`
	Summary      string `json:"summary"`
	ReceivedDate string `json:"receivedDate"`
	From         string `json:"from"`
}

func (s *Source) fetch(ctx context.Context, _ model.ServiceToken) ([]model.Notification, error) {
	var out listResponse
	body := map[string]int{"start": 0, "limit": 50}
	if err := s.sess.PostJSON(ctx, s.listURL, body, &out); err != nil {
		return nil, fmt.Errorf("fetch mail list: %w", err)
	}
	if out.Code != "S_OK" {
		return nil, fmt.Errorf("fetch mail list: server code %q", out.Code)
	}

	notifications := make([]model.Notification, 0, len(out.Var))
	for _, raw := range out.Var {
		var m message
		if err := json.Unmarshal(raw, &m); err != nil {
			s.logger.Warn("skipping undecodable mail record", "error", fmt.Errorf("%w: %w", driven.ErrFetchDecode, err))
			continue
		}

		subject := m.Subject
		if subject == "" {
			subject = untitledSubject
		}

		notifications = append(notifications, model.Notification{
			ID:          model.NewIdentity(m.ID, m.Subject, m.Summary),
			Title:       subject,
			Summary:     m.Summary,
			PublishedAt: m.ReceivedDate,
			// The webmail API exposes no stable deep link; the provider
			// message id stands in for one.
			URL:    m.ID,
			Source: senderName(m.From),
		})
	}

	return notifications, nil
}

// senderName extracts the display name from an RFC 5322 From value, falling
// back to the raw string when it does not parse.
func senderName(from string) string {
	addr, err := netmail.ParseAddress(from)
	if err != nil || addr.Name == "" {
		return strings.TrimSpace(from)
	}
	return addr.Name
}
