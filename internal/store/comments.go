package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gramstack/pkg/models"
)

type partitionFile struct {
	Comments []models.Comment `json:"comments"`
}

// CommentStore is the durable, per-account-partitioned comment registry.
// The default account writes to <dataDir>/<defaultFile>; every other account
// gets its own comments_<id>.json partition. An empty account id selects the
// default partition.
//
// Each partition has its own mutex, held across the full load-modify-save of
// every operation: upsert idempotency and reply append order only hold if
// writers to the same partition never interleave. Operations on different
// partitions never block each other.
type CommentStore struct {
	dataDir     string
	defaultFile string

	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex
}

// NewCommentStore opens the comment store rooted at dataDir. defaultFile is
// the file name of the default account's partition ("comments.json" when
// empty).
func NewCommentStore(dataDir, defaultFile string) (*CommentStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if defaultFile == "" {
		defaultFile = "comments.json"
	}
	return &CommentStore{
		dataDir:     dataDir,
		defaultFile: defaultFile,
		locks:       make(map[string]*sync.Mutex),
	}, nil
}

func (s *CommentStore) partitionKey(account string) string {
	if account == "" {
		return DefaultAccountID
	}
	return account
}

func (s *CommentStore) partitionPath(key string) string {
	if key == DefaultAccountID {
		return filepath.Join(s.dataDir, s.defaultFile)
	}
	return filepath.Join(s.dataDir, fmt.Sprintf("comments_%s.json", key))
}

func (s *CommentStore) partitionLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// load reads a partition. Missing or corrupt files read as empty; the next
// save rewrites them.
func (s *CommentStore) load(key string) []models.Comment {
	raw, err := os.ReadFile(s.partitionPath(key))
	if err != nil {
		return nil
	}

	var f partitionFile
	if err := json.Unmarshal(raw, &f); err != nil {
		log.Warn().Err(err).Str("partition", key).Msg("comment partition unreadable, treating as empty")
		return nil
	}
	return f.Comments
}

func (s *CommentStore) save(key string, comments []models.Comment) error {
	if comments == nil {
		comments = []models.Comment{}
	}
	data, err := json.MarshalIndent(partitionFile{Comments: comments}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode comment partition %s: %w", key, err)
	}
	if err := os.WriteFile(s.partitionPath(key), data, 0644); err != nil {
		return fmt.Errorf("failed to write comment partition %s: %w", key, err)
	}
	return nil
}

// List returns every comment in the account's partition. No ordering is
// guaranteed; callers sort as needed.
func (s *CommentStore) List(account string) []models.Comment {
	key := s.partitionKey(account)
	l := s.partitionLock(key)
	l.Lock()
	defer l.Unlock()
	return s.load(key)
}

// Get returns the comment with the given id from the account's partition.
func (s *CommentStore) Get(id, account string) (models.Comment, error) {
	key := s.partitionKey(account)
	l := s.partitionLock(key)
	l.Lock()
	defer l.Unlock()

	for _, c := range s.load(key) {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
}

// Upsert inserts the comment if its id is absent from the partition and
// reports created=true. If a comment with the same id already exists the
// stored record is returned unchanged and created=false: first writer wins,
// so the push and pull ingestion paths can race without clobbering
// created_at or accumulated replies.
func (s *CommentStore) Upsert(c models.Comment, account string) (models.Comment, bool, error) {
	key := s.partitionKey(account)
	l := s.partitionLock(key)
	l.Lock()
	defer l.Unlock()

	comments := s.load(key)
	for _, existing := range comments {
		if existing.ID == c.ID {
			return existing, false, nil
		}
	}

	if c.CreatedAt == "" {
		c.CreatedAt = models.Now()
	}
	if c.Replies == nil {
		c.Replies = []models.Reply{}
	}

	comments = append(comments, c)
	if err := s.save(key, comments); err != nil {
		return models.Comment{}, false, err
	}
	return c, true, nil
}

// CommentUpdate carries a partial set of fields to merge into a comment.
// Nil fields are left untouched. Replies replaces the whole thread and is
// meant for enrichment from a detail fetch, not for appending.
type CommentUpdate struct {
	PostID    *string
	Text      *string
	Username  *string
	Timestamp *string
	LikeCount *int
	Replies   []models.Reply
}

// Update merges the given fields into an existing comment and persists the
// partition. It is used for post-hoc enrichment only, never for the initial
// create.
func (s *CommentStore) Update(id string, upd CommentUpdate, account string) (models.Comment, error) {
	key := s.partitionKey(account)
	l := s.partitionLock(key)
	l.Lock()
	defer l.Unlock()

	comments := s.load(key)
	for i := range comments {
		if comments[i].ID != id {
			continue
		}
		if upd.PostID != nil {
			comments[i].PostID = *upd.PostID
		}
		if upd.Text != nil {
			comments[i].Text = *upd.Text
		}
		if upd.Username != nil {
			comments[i].Username = *upd.Username
		}
		if upd.Timestamp != nil {
			comments[i].Timestamp = *upd.Timestamp
		}
		if upd.LikeCount != nil {
			comments[i].LikeCount = *upd.LikeCount
		}
		if upd.Replies != nil {
			comments[i].Replies = upd.Replies
		}
		if err := s.save(key, comments); err != nil {
			return models.Comment{}, err
		}
		return comments[i], nil
	}
	return models.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
}

// AppendReply appends a reply to the comment's thread, stamping created_at
// when absent. Append order is arrival order.
func (s *CommentStore) AppendReply(id string, reply models.Reply, account string) (models.Reply, error) {
	key := s.partitionKey(account)
	l := s.partitionLock(key)
	l.Lock()
	defer l.Unlock()

	comments := s.load(key)
	for i := range comments {
		if comments[i].ID != id {
			continue
		}
		if reply.CreatedAt == "" {
			reply.CreatedAt = models.Now()
		}
		comments[i].Replies = append(comments[i].Replies, reply)
		if err := s.save(key, comments); err != nil {
			return models.Reply{}, err
		}
		return reply, nil
	}
	return models.Reply{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
}

// Delete removes the comment from the account's partition and reports
// whether a record was removed.
func (s *CommentStore) Delete(id, account string) (bool, error) {
	key := s.partitionKey(account)
	l := s.partitionLock(key)
	l.Lock()
	defer l.Unlock()

	comments := s.load(key)
	kept := comments[:0:0]
	for _, c := range comments {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(comments) {
		return false, nil
	}
	if err := s.save(key, kept); err != nil {
		return false, err
	}
	return true, nil
}
