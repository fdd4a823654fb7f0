package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/gramstack/pkg/models"
)

// listAccounts returns all accounts with access tokens blanked.
func (s *Server) listAccounts(c echo.Context) error {
	accounts := s.accounts.List()
	sanitized := make([]models.Account, 0, len(accounts))
	for _, a := range accounts {
		sanitized = append(sanitized, a.Sanitized())
	}
	return c.JSON(http.StatusOK, sanitized)
}

func (s *Server) getAccount(c echo.Context) error {
	account, err := s.accounts.Get(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, account.Sanitized())
}

type accountCreateRequest struct {
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

// createAccount registers a manually supplied token. The token is verified
// against the Graph API before anything is stored.
func (s *Server) createAccount(c echo.Context) error {
	var req accountCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Name == "" || req.AccessToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name and access_token are required")
	}

	user, err := s.factory(req.AccessToken).CurrentUser(c.Request().Context())
	if err != nil {
		log.Warn().Err(err).Msg("account creation rejected: token verification failed")
		return echo.NewHTTPError(http.StatusBadRequest, "Access token verification failed")
	}

	account, err := s.accounts.Add(req.Name, req.AccessToken, user.ID, user.Username)
	if err != nil {
		return httpError(err)
	}

	log.Info().Str("account_id", account.ID).Str("username", account.Username).Msg("account created")
	return c.JSON(http.StatusOK, account.Sanitized())
}

func (s *Server) deleteAccount(c echo.Context) error {
	removed, err := s.accounts.Delete(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if !removed {
		return echo.NewHTTPError(http.StatusNotFound, "Account not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Account deleted",
	})
}
