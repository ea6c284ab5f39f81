// Package edu collects academic-affairs system notifications. Authorization
// is implicit through the shared session cookies.
package edu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/luoyuxi/campusfeed/internal/adapter/driven/campus"
	"github.com/luoyuxi/campusfeed/internal/domain/model"
	"github.com/luoyuxi/campusfeed/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationSource = (*Source)(nil)

const (
	loginURL         = "https://" + campus.IdPHost + "/cas/login?service=https%3A%2F%2Fjwxt.nwpu.edu.cn%2F"
	notificationsURL = "https://jwxt.nwpu.edu.cn/student/my-notification/get-notifications"

	// sourceLabel is the fixed display name of the academic-affairs system.
	sourceLabel = "翱翔教务系统"

	pageSize = 20
	// maxPages bounds pagination against a provider that keeps reporting
	// full pages.
	maxPages = 10
)

// Source binds the academic-affairs authorization adapter and fetch client.
type Source struct {
	sess             *campus.Session
	loginURL         string
	notificationsURL string
	idpHost          string
	logger           *slog.Logger
}

// NewSource creates the production academic-affairs source.
func NewSource(sess *campus.Session, logger *slog.Logger) *Source {
	return &Source{
		sess:             sess,
		loginURL:         loginURL,
		notificationsURL: notificationsURL,
		idpHost:          campus.IdPHost,
		logger:           logger,
	}
}

// NewSourceWithURLs creates a Source against arbitrary endpoints for tests.
func NewSourceWithURLs(sess *campus.Session, loginURL, notificationsURL, idpHost string, logger *slog.Logger) *Source {
	return &Source{
		sess:             sess,
		loginURL:         loginURL,
		notificationsURL: notificationsURL,
		idpHost:          idpHost,
		logger:           logger,
	}
}

// Name identifies this provider in outcomes and logs.
func (s *Source) Name() string { return "edu" }

// Collect authorizes against the academic-affairs system and fetches every
// page of notifications.
func (s *Source) Collect(ctx context.Context) ([]model.Notification, error) {
	token, err := campus.CookieAuthorize(ctx, s.sess, s.Name(), s.loginURL, s.idpHost)
	if err != nil {
		return nil, err
	}

	return s.fetch(ctx, token)
}

type notificationsResponse struct {
	Data []json.RawMessage `json:"data"`
}

type notice struct {
	ID             int64  `json:"id"`
	Item           string `json:"item"`
	Content        string `json:"content"`
	CreateDateTime string `json:"createDateTime"`
	InfoURL        string `json:"infoUrl"`
}

func (s *Source) fetch(ctx context.Context, _ model.ServiceToken) ([]model.Notification, error) {
	var notifications []model.Notification

	for page := 1; page <= maxPages; page++ {
		pageURL := fmt.Sprintf("%s?pageNum=%d&pageSize=%d", s.notificationsURL, page, pageSize)

		var out notificationsResponse
		if err := s.sess.GetJSON(ctx, pageURL, &out); err != nil {
			return nil, fmt.Errorf("fetch notifications page %d: %w", page, err)
		}

		for _, raw := range out.Data {
			var n notice
			if err := json.Unmarshal(raw, &n); err != nil {
				s.logger.Warn("skipping undecodable notification record", "error", fmt.Errorf("%w: %w", driven.ErrFetchDecode, err))
				continue
			}

			notifications = append(notifications, model.Notification{
				ID:          model.NewIdentity(strconv.FormatInt(n.ID, 10), n.Item, n.Content),
				Title:       n.Item,
				Summary:     n.Content,
				PublishedAt: n.CreateDateTime,
				URL:         n.InfoURL,
				Source:      sourceLabel,
			})
		}

		// A short page means the provider ran out of records.
		if len(out.Data) < pageSize {
			break
		}
	}

	return notifications, nil
}
