package api

import (
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/gramstack/internal/instagram"
	"github.com/gramstack/internal/store"
	"github.com/gramstack/pkg/models"
)

// stateTokenTTL bounds how long a login attempt can sit between the redirect
// and the callback.
const stateTokenTTL = 10 * time.Minute

// newStateToken mints the CSRF state for the OAuth round trip. A signed JWT
// keeps the server stateless: nothing has to be remembered between the
// redirect and the callback.
func (s *Server) newStateToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    "gramstack",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Instagram.AppSecret))
}

func (s *Server) verifyStateToken(state string) bool {
	token, err := jwt.Parse(state, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Instagram.AppSecret), nil
	})
	return err == nil && token.Valid
}

// instagramLogin redirects the browser into the Facebook authorization
// dialog.
func (s *Server) instagramLogin(c echo.Context) error {
	if s.cfg.Instagram.AppID == "" {
		return echo.NewHTTPError(http.StatusInternalServerError, "Instagram app_id is not configured")
	}

	state, err := s.newStateToken()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create login state")
	}

	authURL := instagram.AuthorizeURL(s.cfg.Instagram.AppID, s.cfg.Instagram.OAuthRedirectURI, state)
	return c.Redirect(http.StatusFound, authURL)
}

// instagramLoginURL returns the dialog URL as JSON for frontends that open
// the login in a popup instead of following a redirect.
func (s *Server) instagramLoginURL(c echo.Context) error {
	if s.cfg.Instagram.AppID == "" {
		return echo.NewHTTPError(http.StatusInternalServerError, "Instagram app_id is not configured")
	}

	state, err := s.newStateToken()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create login state")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"auth_url": instagram.AuthorizeURL(s.cfg.Instagram.AppID, s.cfg.Instagram.OAuthRedirectURI, state),
		"state":    state,
	})
}

// instagramCallback completes the login: code exchange, business account
// discovery, then account upsert keyed on the remote identity.
func (s *Server) instagramCallback(c echo.Context) error {
	if errParam := c.QueryParam("error"); errParam != "" {
		reason := c.QueryParam("error_description")
		if reason == "" {
			reason = errParam
		}
		return s.authResultPage(c, false, reason)
	}

	code := c.QueryParam("code")
	if code == "" {
		return s.authResultPage(c, false, "Missing authorization code")
	}
	if !s.verifyStateToken(c.QueryParam("state")) {
		return s.authResultPage(c, false, "Invalid or expired login state")
	}

	ctx := c.Request().Context()
	userToken, err := s.oauth.ExchangeCode(ctx, s.cfg.Instagram.AppID, s.cfg.Instagram.AppSecret, s.cfg.Instagram.OAuthRedirectURI, code)
	if err != nil {
		log.Error().Err(err).Msg("oauth code exchange failed")
		return s.authResultPage(c, false, "Token exchange failed")
	}

	business, err := s.oauth.DiscoverBusinessAccount(ctx, userToken)
	if err != nil {
		log.Error().Err(err).Msg("business account discovery failed")
		return s.authResultPage(c, false, "Could not resolve the Instagram account")
	}

	account, err := s.upsertAuthorizedAccount(business.UserID, business.Username, business.AccessToken)
	if err != nil {
		log.Error().Err(err).Msg("failed to persist authorized account")
		return s.authResultPage(c, false, "Failed to save the account")
	}

	log.Info().Str("account_id", account.ID).Str("username", account.Username).Msg("instagram login completed")
	return s.authResultPage(c, true, fmt.Sprintf("Connected @%s", account.Username))
}

// upsertAuthorizedAccount refreshes the credential of an already-connected
// account or registers a new one. Matching is on the remote user id, with
// username as fallback for accounts created before ids were recorded.
func (s *Server) upsertAuthorizedAccount(userID, username, accessToken string) (models.Account, error) {
	for _, existing := range s.accounts.List() {
		if (userID != "" && existing.UserID == userID) || (username != "" && existing.Username == username) {
			return s.accounts.Update(existing.ID, store.AccountUpdate{
				AccessToken: &accessToken,
				UserID:      &userID,
				Username:    &username,
			})
		}
	}
	name := username
	if name == "" {
		name = "Instagram account"
	}
	return s.accounts.Add(name, accessToken, userID, username)
}

// authResultPage renders a tiny HTML page that reports the outcome to an
// opener window and closes itself, so popup-based logins finish cleanly.
func (s *Server) authResultPage(c echo.Context, ok bool, message string) error {
	status := "error"
	heading := "Login failed"
	if ok {
		status = "success"
		heading = "Login successful"
	}
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<h3>%s</h3>
<p>%s</p>
<script>
if (window.opener) {
	window.opener.postMessage({type: "instagram-auth", status: "%s"}, "*");
	window.close();
}
</script>
</body>
</html>`, heading, heading, html.EscapeString(message), status)

	code := http.StatusOK
	if !ok {
		code = http.StatusBadRequest
	}
	return c.HTML(code, page)
}
