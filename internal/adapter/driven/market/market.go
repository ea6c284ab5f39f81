// Package market collects marketplace messages. This is the one provider
// whose authorization yields an explicit bearer token: the login redirect
// lands on the marketplace host carrying the token in a query parameter.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/luoyuxi/campusfeed/internal/adapter/driven/campus"
	"github.com/luoyuxi/campusfeed/internal/domain/model"
	"github.com/luoyuxi/campusfeed/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationSource = (*Source)(nil)

const (
	serviceHost = "secondhand-market.nwpu.edu.cn"
	loginURL    = "https://" + campus.IdPHost + "/cas/login?service=https%3A%2F%2Fsecondhand-market.nwpu.edu.cn%2Flogin%2Fcas%3Fredirect_uri%3Dhttps%3A%2F%2Fsecondhand-market.nwpu.edu.cn%2Fui%2F"
	messagesURL = "https://secondhand-market.nwpu.edu.cn/api/v1/message/list"

	// tokenParam is the query parameter the marketplace hands its bearer
	// token back in after a successful relying-party login.
	tokenParam = "token"

	sourceLabel = "二手市场"
)

// Source binds the marketplace token authorization adapter and fetch client.
type Source struct {
	sess        *campus.Session
	loginURL    string
	messagesURL string
	idpHost     string
	serviceHost string
	logger      *slog.Logger
}

// NewSource creates the production marketplace source.
func NewSource(sess *campus.Session, logger *slog.Logger) *Source {
	return &Source{
		sess:        sess,
		loginURL:    loginURL,
		messagesURL: messagesURL,
		idpHost:     campus.IdPHost,
		serviceHost: serviceHost,
		logger:      logger,
	}
}

// NewSourceWithURLs creates a Source against arbitrary endpoints for tests.
func NewSourceWithURLs(sess *campus.Session, loginURL, messagesURL, idpHost, serviceHost string, logger *slog.Logger) *Source {
	return &Source{
		sess:        sess,
		loginURL:    loginURL,
		messagesURL: messagesURL,
		idpHost:     idpHost,
		serviceHost: serviceHost,
		logger:      logger,
	}
}

// Name identifies this provider in outcomes and logs.
func (s *Source) Name() string { return "market" }

// Collect exchanges the shared session for a marketplace bearer token, then
// fetches the message list with it. When authorization is denied the fetch is
// never attempted.
func (s *Source) Collect(ctx context.Context) ([]model.Notification, error) {
	token, err := campus.TokenAuthorize(ctx, s.sess, s.Name(), s.loginURL, s.idpHost, s.serviceHost, tokenParam)
	if err != nil {
		return nil, err
	}

	return s.fetch(ctx, token)
}

type messagesResponse struct {
	Data []json.RawMessage `json:"data"`
}

type marketMessage struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	CreateTime string `json:"createTime"`
}

func (s *Source) fetch(ctx context.Context, token model.ServiceToken) ([]model.Notification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.messagesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build message list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Bearer)

	var out messagesResponse
	if err := s.sess.DoJSON(req, &out); err != nil {
		return nil, fmt.Errorf("fetch message list: %w", err)
	}

	notifications := make([]model.Notification, 0, len(out.Data))
	for _, raw := range out.Data {
		var m marketMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			s.logger.Warn("skipping undecodable marketplace record", "error", fmt.Errorf("%w: %w", driven.ErrFetchDecode, err))
			continue
		}

		notifications = append(notifications, model.Notification{
			ID:          model.NewIdentity(m.ID, m.Title, m.Content),
			Title:       m.Title,
			Summary:     m.Content,
			PublishedAt: m.CreateTime,
			URL:         "https://" + s.serviceHost + "/ui/message/" + m.ID,
			Source:      sourceLabel,
		})
	}

	return notifications, nil
}
