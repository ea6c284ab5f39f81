// Package model contains the domain types shared across ports and adapters.
package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// Notification is one unified feed entry produced by a provider fetch client
// and persisted by the notification store. ID is the deduplication key: a
// deterministic hash over the provider's content-stable fields, so refetching
// an unchanged item always collides with the row already stored.
type Notification struct {
	ID      string
	Title   string
	Summary string
	// PublishedAt keeps the provider's own timestamp formatting; providers do
	// not agree on a format and the feed only displays it.
	PublishedAt string
	URL         string
	Source      string
}

// NewIdentity derives the deduplication key for a notification from its
// content-stable fields. Fields that change between fetches of the same item
// (fetch time, pagination position) must never be passed in.
func NewIdentity(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			// Field boundary, so ("ab","c") and ("a","bc") hash apart.
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
