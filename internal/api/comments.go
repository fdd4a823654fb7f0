package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

func intQuery(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// listComments returns the account's comments, newest first.
func (s *Server) listComments(c echo.Context) error {
	accountID := c.QueryParam("account_id")
	postID := c.QueryParam("post_id")
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)

	list, err := s.service.List(accountID, postID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) getComment(c echo.Context) error {
	comment, err := s.service.Get(c.Param("id"), c.QueryParam("account_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, comment)
}

type replyRequest struct {
	Message string `json:"message"`
}

func (s *Server) replyToComment(c echo.Context) error {
	var req replyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Message is required")
	}

	result, err := s.service.Reply(c.Request().Context(), c.Param("id"), c.QueryParam("account_id"), req.Message)
	if err != nil {
		return httpError(err)
	}

	resp := map[string]interface{}{
		"success": true,
		"reply":   result.Reply,
	}
	if result.RemoteID != "" {
		resp["instagram_id"] = result.RemoteID
	} else {
		resp["note"] = "Test comment: reply saved locally only"
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) deleteComment(c echo.Context) error {
	if err := s.service.Delete(c.Request().Context(), c.Param("id"), c.QueryParam("account_id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Comment deleted",
	})
}

// syncComments triggers an on-demand pull from the Graph API.
func (s *Server) syncComments(c echo.Context) error {
	accountID := c.QueryParam("account_id")
	mediaID := c.QueryParam("media_id")
	limit := intQuery(c, "limit", 10)

	result, err := s.ingest.Sync(c.Request().Context(), accountID, mediaID, limit)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"synced_count": result.SyncedCount,
		"message":      result.Message,
	})
}
