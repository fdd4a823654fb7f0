package comments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramstack/internal/instagram"
	"github.com/gramstack/internal/store"
	"github.com/gramstack/pkg/models"
)

// fakeRemote records mutation calls so tests can assert whether the remote
// was contacted at all.
type fakeRemote struct {
	replyCalls  []string
	deleteCalls []string
	replyErr    error
	deleteErr   error
	replyID     string
}

func (f *fakeRemote) Reply(_ context.Context, commentID, _ string) (*instagram.ReplyResponse, error) {
	f.replyCalls = append(f.replyCalls, commentID)
	if f.replyErr != nil {
		return nil, f.replyErr
	}
	id := f.replyID
	if id == "" {
		id = "remote_reply_1"
	}
	return &instagram.ReplyResponse{ID: id, Timestamp: "2026-08-01T10:00:00+0000"}, nil
}

func (f *fakeRemote) DeleteComment(_ context.Context, commentID string) error {
	f.deleteCalls = append(f.deleteCalls, commentID)
	return f.deleteErr
}

func (f *fakeRemote) MediaComments(context.Context, string) ([]instagram.RawComment, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeRemote) GetComment(context.Context, string) (*instagram.RawComment, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeRemote) CurrentUser(context.Context) (*instagram.User, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeRemote) UserMedia(context.Context, string, int) ([]instagram.Media, error) {
	return nil, errors.New("not scripted")
}

func newTestService(t *testing.T, fake *fakeRemote) (*Service, *store.CommentStore) {
	t.Helper()
	dir := t.TempDir()
	accounts, err := store.NewAccountStore(dir, "seed-token")
	require.NoError(t, err)
	commentStore, err := store.NewCommentStore(dir, "")
	require.NoError(t, err)
	factory := func(string) instagram.API { return fake }
	return NewService(accounts, commentStore, factory), commentStore
}

func seedComment(t *testing.T, s *store.CommentStore, id, account string) {
	t.Helper()
	_, _, err := s.Upsert(models.Comment{ID: id, Text: "seeded", Username: "alice"}, account)
	require.NoError(t, err)
}

func TestReplySyntheticCommentNeverCallsRemote(t *testing.T) {
	fake := &fakeRemote{}
	svc, commentStore := newTestService(t, fake)
	seedComment(t, commentStore, "test_123", "")

	result, err := svc.Reply(context.Background(), "test_123", "", "hello from tests")
	require.NoError(t, err)
	assert.Empty(t, fake.replyCalls)
	assert.Empty(t, result.RemoteID)
	assert.Contains(t, result.Reply.ID, "test_reply_")
	assert.Equal(t, "me", result.Reply.Username)

	got, err := commentStore.Get("test_123", "")
	require.NoError(t, err)
	require.Len(t, got.Replies, 1)
	assert.Equal(t, "hello from tests", got.Replies[0].Text)
}

func TestReplyRealCommentGoesThroughRemote(t *testing.T) {
	fake := &fakeRemote{replyID: "17890"}
	svc, commentStore := newTestService(t, fake)
	seedComment(t, commentStore, "789", "")

	result, err := svc.Reply(context.Background(), "789", "", "thanks!")
	require.NoError(t, err)
	assert.Equal(t, []string{"789"}, fake.replyCalls)
	assert.Equal(t, "17890", result.RemoteID)
	assert.Equal(t, "17890", result.Reply.ID)

	got, err := commentStore.Get("789", "")
	require.NoError(t, err)
	require.Len(t, got.Replies, 1)
	assert.Equal(t, "17890", got.Replies[0].ID)
}

func TestReplyRemoteFailureLeavesThreadUntouched(t *testing.T) {
	fake := &fakeRemote{replyErr: &instagram.APIError{StatusCode: 500, Message: "boom"}}
	svc, commentStore := newTestService(t, fake)
	seedComment(t, commentStore, "789", "")

	_, err := svc.Reply(context.Background(), "789", "", "thanks!")
	require.Error(t, err)

	var apiErr *instagram.APIError
	assert.ErrorAs(t, err, &apiErr)

	got, err := commentStore.Get("789", "")
	require.NoError(t, err)
	assert.Empty(t, got.Replies)
}

func TestReplyMissingCommentOrAccount(t *testing.T) {
	svc, commentStore := newTestService(t, &fakeRemote{})

	_, err := svc.Reply(context.Background(), "nope", "", "hi")
	assert.ErrorIs(t, err, store.ErrNotFound)

	seedComment(t, commentStore, "789", "account_404")
	_, err = svc.Reply(context.Background(), "789", "account_404", "hi")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteSyntheticCommentIsLocalOnly(t *testing.T) {
	fake := &fakeRemote{}
	svc, commentStore := newTestService(t, fake)
	seedComment(t, commentStore, "test_123", "")

	require.NoError(t, svc.Delete(context.Background(), "test_123", ""))
	assert.Empty(t, fake.deleteCalls)

	_, err := commentStore.Get("test_123", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteRealCommentRemoteFirst(t *testing.T) {
	fake := &fakeRemote{}
	svc, commentStore := newTestService(t, fake)
	seedComment(t, commentStore, "789", "")

	require.NoError(t, svc.Delete(context.Background(), "789", ""))
	assert.Equal(t, []string{"789"}, fake.deleteCalls)

	_, err := commentStore.Get("789", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteRemoteFailureKeepsLocalRecord(t *testing.T) {
	fake := &fakeRemote{deleteErr: &instagram.APIError{StatusCode: 403, Message: "denied"}}
	svc, commentStore := newTestService(t, fake)
	seedComment(t, commentStore, "789", "")

	err := svc.Delete(context.Background(), "789", "")
	require.Error(t, err)

	// No partial deletion: the record survives a failed remote delete.
	got, err := commentStore.Get("789", "")
	require.NoError(t, err)
	assert.Equal(t, "seeded", got.Text)
}

func TestListSortsFiltersAndPaginates(t *testing.T) {
	svc, commentStore := newTestService(t, &fakeRemote{})

	_, _, err := commentStore.Upsert(models.Comment{ID: "c1", PostID: "m1", Text: "oldest", CreatedAt: "2026-08-01T10:00:00.000000Z"}, "")
	require.NoError(t, err)
	_, _, err = commentStore.Upsert(models.Comment{ID: "c2", PostID: "m2", Text: "middle", CreatedAt: "2026-08-02T10:00:00.000000Z"}, "")
	require.NoError(t, err)
	_, _, err = commentStore.Upsert(models.Comment{ID: "c3", PostID: "m1", Text: "newest", CreatedAt: "2026-08-03T10:00:00.000000Z"}, "")
	require.NoError(t, err)

	all, err := svc.List("", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c3", all[0].ID)
	assert.Equal(t, "c1", all[2].ID)

	m1, err := svc.List("", "m1", 0, 0)
	require.NoError(t, err)
	require.Len(t, m1, 2)
	assert.Equal(t, "c3", m1[0].ID)

	paged, err := svc.List("", "", 1, 1)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "c2", paged[0].ID)

	empty, err := svc.List("", "", 10, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.List("account_404", "", 0, 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
