package models

import (
	"time"
)

// timestampLayout is the stamp format used for created_at fields. Fixed-width
// microseconds keep lexicographic order equal to chronological order, which
// the comment listing relies on.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Now returns the current UTC time formatted as a created_at stamp.
func Now() string {
	return time.Now().UTC().Format(timestampLayout)
}

// Comment is a single top-level comment on a media post together with its
// reply thread. JSON field names match the on-disk partition format.
type Comment struct {
	ID        string  `json:"id"`
	PostID    string  `json:"post_id,omitempty"`
	Text      string  `json:"text"`
	Username  string  `json:"username"`
	Timestamp string  `json:"timestamp,omitempty"`
	LikeCount int     `json:"like_count"`
	CreatedAt string  `json:"created_at,omitempty"`
	Replies   []Reply `json:"replies"`
}

// Reply is a threaded response attached to a comment. Replies do not nest;
// threading is one level deep.
type Reply struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Account is a connected Instagram account. AccessToken is persisted with the
// record and must never leave the process through the API; use Sanitized for
// anything user-facing.
type Account struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id,omitempty"`
	Username    string `json:"username,omitempty"`
	CreatedAt   string `json:"created_at"`
	IsActive    bool   `json:"is_active"`
}

// Sanitized returns a copy of the account with the access token blanked.
func (a Account) Sanitized() Account {
	a.AccessToken = ""
	return a
}
