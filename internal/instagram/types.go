package instagram

// RawComment is a comment as the Graph API returns it. Replies come back as
// an edge wrapper; detail fetches include like_count.
type RawComment struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Username  string     `json:"username"`
	Timestamp string     `json:"timestamp"`
	LikeCount int        `json:"like_count"`
	Replies   *ReplyEdge `json:"replies,omitempty"`
}

// ReplyEdge wraps the nested reply list in Graph API responses.
type ReplyEdge struct {
	Data []RawComment `json:"data"`
}

// ReplyResponse is the Graph API response to posting a reply.
type ReplyResponse struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
}

// User is the authenticated account behind an access token.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Media is a media item (post) owned by a user.
type Media struct {
	ID           string `json:"id"`
	Caption      string `json:"caption"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url"`
	Permalink    string `json:"permalink"`
	Timestamp    string `json:"timestamp"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type commentListResponse struct {
	Data []RawComment `json:"data"`
}

type mediaListResponse struct {
	Data []Media `json:"data"`
}
