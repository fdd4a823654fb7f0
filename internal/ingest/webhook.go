package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gramstack/internal/store"
	"github.com/gramstack/pkg/models"
)

// ErrMalformedPayload is returned when a webhook body cannot be parsed. The
// delivery is rejected whole; there is no partial processing.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// WebhookPayload is the envelope Meta posts to the webhook endpoint.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry groups the changes for one subscribed object.
type WebhookEntry struct {
	ID      string          `json:"id"`
	Time    int64           `json:"time"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange is a single field change; only field "comments" carries
// comment events.
type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

// WebhookValue is the comment event body.
type WebhookValue struct {
	ID          string      `json:"id"`
	MediaID     string      `json:"media_id"`
	Text        string      `json:"text"`
	CreatedTime json.Number `json:"created_time"`
	From        struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
}

// ProcessWebhook ingests every comment event in a verified webhook delivery
// into the default account's partition and returns the number of events
// processed. Newly created comments get a best-effort detail enrichment
// (like count, reply thread); enrichment failures are logged, never
// propagated.
func (c *Coordinator) ProcessWebhook(ctx context.Context, body []byte) (int, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	processed := 0
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "comments" || change.Value.Text == "" {
				continue
			}

			postID := change.Value.MediaID
			if postID == "" {
				postID = entry.ID
			}
			username := change.Value.From.Username
			if username == "" {
				username = "unknown"
			}

			comment := models.Comment{
				ID:        change.Value.ID,
				PostID:    postID,
				Text:      change.Value.Text,
				Username:  username,
				Timestamp: change.Value.CreatedTime.String(),
				Replies:   []models.Reply{},
			}

			stored, created, err := c.comments.Upsert(comment, "")
			if err != nil {
				return processed, fmt.Errorf("failed to store webhook comment: %w", err)
			}
			processed++

			log.Debug().
				Str("comment_id", stored.ID).
				Str("post_id", stored.PostID).
				Bool("created", created).
				Msg("webhook comment ingested")

			if created && stored.ID != "" {
				c.enrich(ctx, stored.ID)
			}
		}
	}
	return processed, nil
}

// enrich fetches the comment detail from the Graph API and attaches the
// like count and reply thread to the freshly ingested record.
func (c *Coordinator) enrich(ctx context.Context, commentID string) {
	account, err := c.accounts.Get(store.DefaultAccountID)
	if err != nil || account.AccessToken == "" {
		log.Debug().Str("comment_id", commentID).Msg("no default credential, skipping enrichment")
		return
	}

	client := c.factory(account.AccessToken)
	detail, err := client.GetComment(ctx, commentID)
	if err != nil {
		log.Warn().Err(err).Str("comment_id", commentID).Msg("comment detail fetch failed")
		return
	}

	upd := store.CommentUpdate{LikeCount: &detail.LikeCount}
	if detail.Replies != nil {
		upd.Replies = repliesFromRaw(detail.Replies.Data)
	}
	if _, err := c.comments.Update(commentID, upd, ""); err != nil {
		log.Warn().Err(err).Str("comment_id", commentID).Msg("comment enrichment update failed")
	}
}
