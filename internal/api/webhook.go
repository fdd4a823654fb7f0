package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/gramstack/internal/config"
	"github.com/gramstack/internal/ingest"
)

// verifyWebhook answers the Meta subscription handshake. The challenge is
// echoed back as plain text only when the verify token matches.
func (s *Server) verifyWebhook(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == "subscribe" && token == s.cfg.Instagram.VerifyToken {
		log.Info().Msg("webhook subscription verified")
		return c.String(http.StatusOK, challenge)
	}

	log.Warn().Str("mode", mode).Msg("webhook verification rejected")
	return echo.NewHTTPError(http.StatusForbidden, "Verification failed")
}

// handleWebhook receives comment event deliveries. The raw body is read
// before any parsing because the signature covers the exact bytes sent.
func (s *Server) handleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	signature := c.Request().Header.Get("X-Hub-Signature-256")
	switch {
	case signature == "":
		if s.cfg.Webhook.Signature == config.SignatureRequired {
			return echo.NewHTTPError(http.StatusForbidden, "Missing signature")
		}
		log.Warn().Msg("webhook delivery without signature accepted under advisory policy")
	case !ingest.VerifySignature(s.cfg.Instagram.AppSecret, body, signature):
		return echo.NewHTTPError(http.StatusForbidden, "Invalid signature")
	}

	processed, err := s.ingest.ProcessWebhook(c.Request().Context(), body)
	if err != nil {
		if errors.Is(err, ingest.ErrMalformedPayload) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON")
		}
		log.Error().Err(err).Msg("webhook processing failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to process webhook")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"processed": processed,
	})
}
