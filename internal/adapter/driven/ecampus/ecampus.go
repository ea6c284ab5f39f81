// Package ecampus collects campus news-feed items from the e-campus portal.
// The portal publishes per-column content; each column is fetched with
// page-number plus page-size pagination. Authorization is implicit through
// the shared session cookies.
package ecampus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/luoyuxi/campusfeed/internal/adapter/driven/campus"
	"github.com/luoyuxi/campusfeed/internal/domain/model"
	"github.com/luoyuxi/campusfeed/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationSource = (*Source)(nil)

const (
	loginURL   = "https://" + campus.IdPHost + "/cas/login?service=https%3A%2F%2Fecampus.nwpu.edu.cn%2Fportal%2F"
	columnsURL = "https://ecampus.nwpu.edu.cn/portal-api/v1/cms/column/list"
	contentURL = "https://ecampus.nwpu.edu.cn/portal-api/v1/cms/content/list"

	pageSize = 10
)

// Source binds the news-feed authorization adapter and fetch client.
type Source struct {
	sess       *campus.Session
	loginURL   string
	columnsURL string
	contentURL string
	idpHost    string
	logger     *slog.Logger
}

// NewSource creates the production news-feed source.
func NewSource(sess *campus.Session, logger *slog.Logger) *Source {
	return &Source{
		sess:       sess,
		loginURL:   loginURL,
		columnsURL: columnsURL,
		contentURL: contentURL,
		idpHost:    campus.IdPHost,
		logger:     logger,
	}
}

// NewSourceWithURLs creates a Source against arbitrary endpoints for tests.
func NewSourceWithURLs(sess *campus.Session, loginURL, columnsURL, contentURL, idpHost string, logger *slog.Logger) *Source {
	return &Source{
		sess:       sess,
		loginURL:   loginURL,
		columnsURL: columnsURL,
		contentURL: contentURL,
		idpHost:    idpHost,
		logger:     logger,
	}
}

// Name identifies this provider in outcomes and logs.
func (s *Source) Name() string { return "ecampus" }

// Collect authorizes against the portal, then fetches the first page of every
// published column.
func (s *Source) Collect(ctx context.Context) ([]model.Notification, error) {
	token, err := campus.CookieAuthorize(ctx, s.sess, s.Name(), s.loginURL, s.idpHost)
	if err != nil {
		return nil, err
	}

	return s.fetch(ctx, token)
}

type columnsResponse struct {
	Data []column `json:"data"`
}

type column struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type contentRequest struct {
	ColumnID   string `json:"columnId"`
	PageNumber int    `json:"pageNumber"`
	PageSize   int    `json:"pageSize"`
}

type contentResponse struct {
	Data struct {
		AllContents []json.RawMessage `json:"allContents"`
	} `json:"data"`
}

type contentItem struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	CreateTime      string `json:"createTime"`
	URL             string `json:"url"`
	ReleaseDeptName string `json:"releaseDeptName"`
}

func (s *Source) fetch(ctx context.Context, _ model.ServiceToken) ([]model.Notification, error) {
	var cols columnsResponse
	if err := s.sess.GetJSON(ctx, s.columnsURL, &cols); err != nil {
		return nil, fmt.Errorf("fetch news-feed columns: %w", err)
	}

	var notifications []model.Notification
	for _, col := range cols.Data {
		req := contentRequest{ColumnID: col.ID, PageNumber: 1, PageSize: pageSize}

		var out contentResponse
		if err := s.sess.PostJSON(ctx, s.contentURL, req, &out); err != nil {
			return nil, fmt.Errorf("fetch news-feed column %s: %w", col.ID, err)
		}

		for _, raw := range out.Data.AllContents {
			var item contentItem
			if err := json.Unmarshal(raw, &item); err != nil {
				s.logger.Warn("skipping undecodable news-feed record", "column", col.ID, "error", fmt.Errorf("%w: %w", driven.ErrFetchDecode, err))
				continue
			}

			notifications = append(notifications, model.Notification{
				ID: model.NewIdentity(item.ID, item.Title),
				// The feed only surfaces headlines; title doubles as summary.
				Title:       item.Title,
				Summary:     item.Title,
				PublishedAt: item.CreateTime,
				URL:         item.URL,
				Source:      item.ReleaseDeptName,
			})
		}
	}

	return notifications, nil
}
