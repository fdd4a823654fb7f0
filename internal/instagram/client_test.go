package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMediaComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/m1/comments", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		assert.Equal(t, commentFields, r.URL.Query().Get("fields"))

		json.NewEncoder(w).Encode(commentListResponse{Data: []RawComment{
			{ID: "c1", Text: "nice", Username: "alice", LikeCount: 2},
			{ID: "c2", Text: "wow", Username: "bob"},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	comments, err := c.MediaComments(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c1", comments[0].ID)
	assert.Equal(t, 2, comments[0].LikeCount)
}

func TestClientGetCommentParsesReplyEdge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/c1", r.URL.Path)
		w.Write([]byte(`{"id":"c1","text":"hi","like_count":3,"replies":{"data":[{"id":"r1","text":"yo","username":"bob"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	comment, err := c.GetComment(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, comment.LikeCount)
	require.NotNil(t, comment.Replies)
	require.Len(t, comment.Replies.Data, 1)
	assert.Equal(t, "r1", comment.Replies.Data[0].ID)
}

func TestClientReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/c1/replies", r.URL.Path)
		assert.Equal(t, "thanks!", r.URL.Query().Get("message"))
		w.Write([]byte(`{"id":"17890000000000001"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	resp, err := c.Reply(context.Background(), "c1", "thanks!")
	require.NoError(t, err)
	assert.Equal(t, "17890000000000001", resp.ID)
}

func TestClientDeleteComment(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	require.NoError(t, c.DeleteComment(context.Background(), "c1"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/c1", path)
}

func TestClientSurfacesGraphErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-token")
	_, err := c.CurrentUser(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid OAuth access token", apiErr.Message)
}

func TestClientUserMediaPassesLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/u1/media", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(mediaListResponse{Data: []Media{{ID: "m1"}, {ID: "m2"}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	media, err := c.UserMedia(context.Background(), "u1", 7)
	require.NoError(t, err)
	assert.Len(t, media, 2)
}

func TestClientMediaInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/m1", r.URL.Path)
		w.Write([]byte(`{"id":"m1","caption":"launch day","permalink":"https://instagr.am/p/m1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	media, err := c.MediaInfo(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "launch day", media.Caption)
	assert.Equal(t, "https://instagr.am/p/m1", media.Permalink)
}
