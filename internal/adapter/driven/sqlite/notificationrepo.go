package sqlite

import (
	"context"
	"fmt"

	"github.com/luoyuxi/campusfeed/internal/domain/model"
	"github.com/luoyuxi/campusfeed/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationStore = (*NotificationRepo)(nil)

// NotificationRepo is the SQLite implementation of the NotificationStore port.
type NotificationRepo struct {
	db *DB
}

// NewNotificationRepo creates a NotificationRepo backed by the given DB.
func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Upsert inserts or replaces a notification keyed by its content-derived id.
// Refetching an unchanged item hits the same id and overwrites in place.
func (r *NotificationRepo) Upsert(ctx context.Context, n model.Notification) error {
	const query = `
		INSERT INTO notifications (id, title, summary, published_at, url, source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			published_at = excluded.published_at,
			url = excluded.url,
			source = excluded.source
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		n.ID, n.Title, n.Summary, n.PublishedAt, n.URL, n.Source,
	)
	if err != nil {
		return fmt.Errorf("upsert notification %s: %w", n.ID, err)
	}

	return nil
}

// ListAll returns every stored notification, newest first by published
// timestamp with id as the tiebreaker.
func (r *NotificationRepo) ListAll(ctx context.Context) ([]model.Notification, error) {
	const query = `
		SELECT id, title, summary, published_at, url, source
		FROM notifications
		ORDER BY published_at DESC, id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Summary, &n.PublishedAt, &n.URL, &n.Source); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return notifications, nil
}

// Count returns the number of stored notifications.
func (r *NotificationRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

// DeleteAll clears the table before a refresh run repopulates it.
func (r *NotificationRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Writer.ExecContext(ctx, `DELETE FROM notifications`); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}
