// Package instagram wraps the Instagram Graph API endpoints the service
// depends on. Every call is one synchronous round trip; any non-2xx response
// surfaces as *APIError and callers treat all of them the same way, as a
// failed remote attempt.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultGraphURL is the production Graph API base for Instagram accounts.
const DefaultGraphURL = "https://graph.instagram.com"

const commentFields = "id,text,username,timestamp,like_count,replies"

// API is the remote surface consumed by the ingestion and mutation
// coordinators. It exists so tests can substitute a fake remote.
type API interface {
	MediaComments(ctx context.Context, mediaID string) ([]RawComment, error)
	GetComment(ctx context.Context, commentID string) (*RawComment, error)
	Reply(ctx context.Context, commentID, message string) (*ReplyResponse, error)
	DeleteComment(ctx context.Context, commentID string) error
	CurrentUser(ctx context.Context) (*User, error)
	UserMedia(ctx context.Context, userID string, limit int) ([]Media, error)
}

// ClientFactory builds an API client bound to one account's access token.
type ClientFactory func(accessToken string) API

// APIError is a failed Graph API call.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instagram api: %s (status %d)", e.Message, e.StatusCode)
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Client talks to the Graph API with a single access token.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a Graph API client. An empty baseURL selects the
// production endpoint; tests point it at a local server.
func NewClient(baseURL, accessToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(1*time.Second), 5), // 5 requests per second
	}
}

// NewFactory returns a ClientFactory producing clients against baseURL.
func NewFactory(baseURL string) ClientFactory {
	return func(accessToken string) API {
		return NewClient(baseURL, accessToken)
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.accessToken)

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, strings.TrimLeft(endpoint, "/"), params.Encode())
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
		}
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		return &APIError{StatusCode: status, Message: ge.Error.Message}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// MediaComments fetches the comments on a media item.
func (c *Client) MediaComments(ctx context.Context, mediaID string) ([]RawComment, error) {
	params := url.Values{"fields": {commentFields}}
	var resp commentListResponse
	if err := c.do(ctx, http.MethodGet, mediaID+"/comments", params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetComment fetches one comment with its like count and reply thread.
func (c *Client) GetComment(ctx context.Context, commentID string) (*RawComment, error) {
	params := url.Values{"fields": {commentFields}}
	var comment RawComment
	if err := c.do(ctx, http.MethodGet, commentID, params, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// Reply posts a reply under the given comment on Instagram.
func (c *Client) Reply(ctx context.Context, commentID, message string) (*ReplyResponse, error) {
	params := url.Values{"message": {message}}
	var resp ReplyResponse
	if err := c.do(ctx, http.MethodPost, commentID+"/replies", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteComment removes the comment from Instagram.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.do(ctx, http.MethodDelete, commentID, nil, nil)
}

// CurrentUser resolves the account behind the client's access token.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	params := url.Values{"fields": {"id,username"}}
	var user User
	if err := c.do(ctx, http.MethodGet, "me", params, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserMedia lists the user's most recent media items. The Graph API only
// returns posts created after the account became a business/creator account.
func (c *Client) UserMedia(ctx context.Context, userID string, limit int) ([]Media, error) {
	params := url.Values{
		"fields": {"id,caption,media_type,media_url,permalink,timestamp,thumbnail_url"},
		"limit":  {strconv.Itoa(limit)},
	}
	var resp mediaListResponse
	if err := c.do(ctx, http.MethodGet, userID+"/media", params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// MediaInfo fetches a single media item. It is not part of the API
// interface; it exists for callers holding a concrete *Client, such as
// diagnostic tooling.
func (c *Client) MediaInfo(ctx context.Context, mediaID string) (*Media, error) {
	params := url.Values{"fields": {"id,caption,media_type,media_url,permalink,timestamp"}}
	var media Media
	if err := c.do(ctx, http.MethodGet, mediaID, params, &media); err != nil {
		return nil, err
	}
	return &media, nil
}
