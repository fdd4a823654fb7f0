package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultOAuthGraphURL is the Facebook Graph base used for the OAuth code
// exchange and business-account discovery. Instagram logins go through
// Facebook OAuth.
const DefaultOAuthGraphURL = "https://graph.facebook.com/v18.0"

// OAuthDialogURL is the Facebook authorization dialog.
const OAuthDialogURL = "https://www.facebook.com/v18.0/dialog/oauth"

// OAuthScope covers comment management plus the page access needed to find
// the linked business account.
const OAuthScope = "instagram_basic,instagram_manage_comments,pages_read_engagement,instagram_content_publish,pages_show_list"

// BusinessAccount is the outcome of a completed login: the remote identity
// plus the credential the service should store for it.
type BusinessAccount struct {
	UserID      string
	Username    string
	AccessToken string
}

// OAuthClient performs the credential-exchange flow against the Facebook
// Graph API.
type OAuthClient struct {
	graphURL   string
	httpClient *http.Client
}

// NewOAuthClient creates an OAuth client. An empty graphURL selects the
// production endpoint.
func NewOAuthClient(graphURL string) *OAuthClient {
	if graphURL == "" {
		graphURL = DefaultOAuthGraphURL
	}
	return &OAuthClient{
		graphURL:   strings.TrimRight(graphURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthorizeURL builds the dialog URL the user is sent to.
func AuthorizeURL(appID, redirectURI, state string) string {
	params := url.Values{
		"client_id":     {appID},
		"redirect_uri":  {redirectURI},
		"scope":         {OAuthScope},
		"response_type": {"code"},
		"state":         {state},
	}
	return OAuthDialogURL + "?" + params.Encode()
}

func (o *OAuthClient) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s/%s?%s", o.graphURL, strings.TrimLeft(endpoint, "/"), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
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

// ExchangeCode trades an authorization code for a user access token.
func (o *OAuthClient) ExchangeCode(ctx context.Context, appID, appSecret, redirectURI, code string) (string, error) {
	params := url.Values{
		"client_id":     {appID},
		"client_secret": {appSecret},
		"redirect_uri":  {redirectURI},
		"code":          {code},
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := o.get(ctx, "oauth/access_token", params, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no access token")
	}
	return resp.AccessToken, nil
}

// DiscoverBusinessAccount resolves the Instagram business account linked to
// the user's Facebook pages. When a page with a linked account is found, the
// page token becomes the stored credential. Without one, the flow falls back
// to the Facebook user identity on the user token.
func (o *OAuthClient) DiscoverBusinessAccount(ctx context.Context, userToken string) (*BusinessAccount, error) {
	var pages struct {
		Data []struct {
			ID          string `json:"id"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	// Page listing failures are not fatal; the user-token fallback below
	// still identifies the account.
	_ = o.get(ctx, "me/accounts", url.Values{"access_token": {userToken}}, &pages)

	for _, page := range pages.Data {
		var info struct {
			InstagramBusinessAccount *struct {
				ID string `json:"id"`
			} `json:"instagram_business_account"`
		}
		err := o.get(ctx, page.ID, url.Values{
			"access_token": {page.AccessToken},
			"fields":       {"instagram_business_account"},
		}, &info)
		if err != nil || info.InstagramBusinessAccount == nil {
			continue
		}

		var ig struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		}
		err = o.get(ctx, info.InstagramBusinessAccount.ID, url.Values{
			"access_token": {page.AccessToken},
			"fields":       {"id,username"},
		}, &ig)
		if err != nil {
			continue
		}

		return &BusinessAccount{
			UserID:      ig.ID,
			Username:    ig.Username,
			AccessToken: page.AccessToken,
		}, nil
	}

	var me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := o.get(ctx, "me", url.Values{"access_token": {userToken}}, &me); err != nil {
		return nil, fmt.Errorf("failed to resolve user identity: %w", err)
	}

	return &BusinessAccount{
		UserID:      me.ID,
		Username:    me.Name,
		AccessToken: userToken,
	}, nil
}
