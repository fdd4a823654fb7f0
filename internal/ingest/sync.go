package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gramstack/internal/instagram"
	"github.com/gramstack/internal/store"
)

// NoMediaMessage explains a zero-count sync: the Graph API only exposes
// posts created after the account was converted to a business/creator
// account.
const NoMediaMessage = "No media found. The Graph API can only access posts created after the account was converted to a business/creator account."

// SyncResult reports one sync invocation. SyncedCount counts comments
// processed, not comments newly created; re-running an identical sync
// reports the same count with zero net new records.
type SyncResult struct {
	SyncedCount int    `json:"synced_count"`
	Message     string `json:"message"`
}

// Sync pulls comments from the Graph API into the account's partition. With
// a mediaID only that media is scanned; otherwise the account's remote user
// is resolved and its `limit` most recent media items are synchronized.
func (c *Coordinator) Sync(ctx context.Context, accountID, mediaID string, limit int) (SyncResult, error) {
	lookupID := accountID
	if lookupID == "" {
		lookupID = store.DefaultAccountID
	}
	account, err := c.accounts.Get(lookupID)
	if err != nil {
		return SyncResult{}, err
	}

	client := c.factory(account.AccessToken)

	if mediaID != "" {
		count, err := c.syncMedia(ctx, client, mediaID, accountID)
		if err != nil {
			return SyncResult{}, err
		}
		return SyncResult{
			SyncedCount: count,
			Message:     fmt.Sprintf("Successfully synced %d comments", count),
		}, nil
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to resolve remote user: %w", err)
	}

	media, err := client.UserMedia(ctx, user.ID, limit)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to list recent media: %w", err)
	}
	if len(media) == 0 {
		log.Info().Str("user_id", user.ID).Msg("sync found no accessible media")
		return SyncResult{SyncedCount: 0, Message: NoMediaMessage}, nil
	}

	total := 0
	for _, m := range media {
		count, err := c.syncMedia(ctx, client, m.ID, accountID)
		if err != nil {
			return SyncResult{}, err
		}
		total += count
	}

	return SyncResult{
		SyncedCount: total,
		Message:     fmt.Sprintf("Successfully synced %d comments", total),
	}, nil
}

func (c *Coordinator) syncMedia(ctx context.Context, client instagram.API, mediaID, account string) (int, error) {
	raws, err := client.MediaComments(ctx, mediaID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch comments for media %s: %w", mediaID, err)
	}

	count := 0
	for _, raw := range raws {
		if _, _, err := c.comments.Upsert(normalizeRaw(raw, mediaID), account); err != nil {
			return count, err
		}
		count++
	}

	log.Debug().Str("media_id", mediaID).Int("comments", count).Msg("media synchronized")
	return count, nil
}
