// Package comments implements comment mutations and the operator query
// surface. Mutations go remote-first: nothing changes locally until
// Instagram has accepted the reply or delete, so a remote failure leaves
// local state untouched. Synthetic comments (ids with the test prefix) have
// no remote counterpart and are handled entirely locally.
package comments

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gramstack/internal/instagram"
	"github.com/gramstack/internal/store"
	"github.com/gramstack/pkg/models"
)

// SyntheticPrefix marks comments that exist only locally. It is the sole
// discriminator deciding whether a mutation calls the remote API.
const SyntheticPrefix = "test_"

// localActor is the username recorded on replies the operator posts.
const localActor = "me"

// Service coordinates comment mutations between local storage and the
// remote API.
type Service struct {
	accounts *store.AccountStore
	comments *store.CommentStore
	factory  instagram.ClientFactory
}

// NewService creates a comment service.
func NewService(accounts *store.AccountStore, comments *store.CommentStore, factory instagram.ClientFactory) *Service {
	return &Service{
		accounts: accounts,
		comments: comments,
		factory:  factory,
	}
}

// ReplyResult is a posted reply together with the remote id Instagram
// assigned it. RemoteID is empty for synthetic comments.
type ReplyResult struct {
	Reply    models.Reply
	RemoteID string
}

func (s *Service) lookupAccount(accountID string) (models.Account, error) {
	if accountID == "" {
		accountID = store.DefaultAccountID
	}
	return s.accounts.Get(accountID)
}

// Reply posts a reply under the comment. Real comments are replied to on
// Instagram first; the local thread only grows after the remote call
// succeeds.
func (s *Service) Reply(ctx context.Context, commentID, accountID, text string) (*ReplyResult, error) {
	if _, err := s.comments.Get(commentID, accountID); err != nil {
		return nil, err
	}
	account, err := s.lookupAccount(accountID)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(commentID, SyntheticPrefix) {
		reply := models.Reply{
			ID:        fmt.Sprintf("test_reply_%d", time.Now().UnixNano()),
			Text:      text,
			Username:  localActor,
			Timestamp: models.Now(),
		}
		saved, err := s.comments.AppendReply(commentID, reply, accountID)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("comment_id", commentID).Msg("reply to synthetic comment saved locally")
		return &ReplyResult{Reply: saved}, nil
	}

	client := s.factory(account.AccessToken)
	resp, err := client.Reply(ctx, commentID, text)
	if err != nil {
		return nil, fmt.Errorf("failed to post reply to instagram: %w", err)
	}

	reply := models.Reply{
		ID:        resp.ID,
		Text:      text,
		Username:  localActor,
		Timestamp: resp.Timestamp,
	}
	saved, err := s.comments.AppendReply(commentID, reply, accountID)
	if err != nil {
		return nil, err
	}
	return &ReplyResult{Reply: saved, RemoteID: resp.ID}, nil
}

// Delete removes the comment. Real comments are deleted on Instagram first;
// only a successful remote delete is followed by the local one, so a remote
// failure never leaves a half-deleted state.
func (s *Service) Delete(ctx context.Context, commentID, accountID string) error {
	if _, err := s.comments.Get(commentID, accountID); err != nil {
		return err
	}
	account, err := s.lookupAccount(accountID)
	if err != nil {
		return err
	}

	if !strings.HasPrefix(commentID, SyntheticPrefix) {
		client := s.factory(account.AccessToken)
		if err := client.DeleteComment(ctx, commentID); err != nil {
			return fmt.Errorf("failed to delete comment on instagram: %w", err)
		}
	}

	if _, err := s.comments.Delete(commentID, accountID); err != nil {
		return err
	}
	return nil
}

// List returns the account's comments sorted newest-first with optional
// post filtering and offset/limit paging. A non-empty accountID must name
// an existing account.
func (s *Service) List(accountID, postID string, limit, offset int) ([]models.Comment, error) {
	if accountID != "" {
		if _, err := s.accounts.Get(accountID); err != nil {
			return nil, err
		}
	}

	all := s.comments.List(accountID)

	filtered := all[:0:0]
	for _, c := range all {
		if postID != "" && c.PostID != postID {
			continue
		}
		filtered = append(filtered, c)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt > filtered[j].CreatedAt
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(filtered) {
		return []models.Comment{}, nil
	}
	filtered = filtered[offset:]
	if limit > 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// Get returns one comment from the account's partition.
func (s *Service) Get(commentID, accountID string) (models.Comment, error) {
	if accountID != "" {
		if _, err := s.accounts.Get(accountID); err != nil {
			return models.Comment{}, err
		}
	}
	return s.comments.Get(commentID, accountID)
}
