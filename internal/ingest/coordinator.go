// Package ingest drives the two comment ingestion paths: webhook push
// deliveries from Meta and on-demand polling against the Graph API. Both
// funnel through the same normalize-then-upsert step, so overlapping
// deliveries (a webhook racing the next poll) land on the store's
// first-writer-wins idempotency instead of creating duplicates.
package ingest

import (
	"github.com/gramstack/internal/instagram"
	"github.com/gramstack/internal/store"
	"github.com/gramstack/pkg/models"
)

// Coordinator normalizes remote comment payloads and hands them to the
// comment store.
type Coordinator struct {
	accounts *store.AccountStore
	comments *store.CommentStore
	factory  instagram.ClientFactory
}

// New creates an ingestion coordinator.
func New(accounts *store.AccountStore, comments *store.CommentStore, factory instagram.ClientFactory) *Coordinator {
	return &Coordinator{
		accounts: accounts,
		comments: comments,
		factory:  factory,
	}
}

func normalizeRaw(raw instagram.RawComment, mediaID string) models.Comment {
	username := raw.Username
	if username == "" {
		username = "unknown"
	}

	comment := models.Comment{
		ID:        raw.ID,
		PostID:    mediaID,
		Text:      raw.Text,
		Username:  username,
		Timestamp: raw.Timestamp,
		LikeCount: raw.LikeCount,
		Replies:   []models.Reply{},
	}
	if raw.Replies != nil {
		comment.Replies = repliesFromRaw(raw.Replies.Data)
	}
	return comment
}

func repliesFromRaw(data []instagram.RawComment) []models.Reply {
	replies := make([]models.Reply, 0, len(data))
	for _, r := range data {
		replies = append(replies, models.Reply{
			ID:        r.ID,
			Text:      r.Text,
			Username:  r.Username,
			Timestamp: r.Timestamp,
		})
	}
	return replies
}
