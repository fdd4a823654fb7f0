package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gramstack/internal/comments"
	"github.com/gramstack/internal/config"
	"github.com/gramstack/internal/ingest"
	"github.com/gramstack/internal/instagram"
	"github.com/gramstack/internal/store"
)

const version = "0.1.0"

// Server represents the API server
type Server struct {
	echo     *echo.Echo
	cfg      *config.Config
	accounts *store.AccountStore
	service  *comments.Service
	ingest   *ingest.Coordinator
	oauth    *instagram.OAuthClient
	factory  instagram.ClientFactory
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, accounts *store.AccountStore, service *comments.Service, coordinator *ingest.Coordinator, oauth *instagram.OAuthClient, factory instagram.ClientFactory) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowCredentials: true,
	}))

	server := &Server{
		echo:     e,
		cfg:      cfg,
		accounts: accounts,
		service:  service,
		ingest:   coordinator,
		oauth:    oauth,
		factory:  factory,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"message": "gramstack comment manager API",
			"version": version,
		})
	})

	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	// Meta webhook endpoints
	s.echo.GET("/webhook", s.verifyWebhook)
	s.echo.POST("/webhook", s.handleWebhook)

	api := s.echo.Group("/api")

	// Comments endpoints
	api.GET("/comments", s.listComments)
	api.GET("/comments/:id", s.getComment)
	api.POST("/comments/:id/reply", s.replyToComment)
	api.DELETE("/comments/:id", s.deleteComment)
	api.POST("/comments/sync", s.syncComments)

	// Accounts endpoints
	api.GET("/accounts", s.listAccounts)
	api.GET("/accounts/:id", s.getAccount)
	api.POST("/accounts", s.createAccount)
	api.DELETE("/accounts/:id", s.deleteAccount)

	// OAuth endpoints
	api.GET("/auth/instagram", s.instagramLogin)
	api.GET("/auth/instagram/url", s.instagramLoginURL)
	api.GET("/auth/instagram/callback", s.instagramCallback)
}

// Start begins the API server
func (s *Server) Start() error {
	// Start server in a goroutine
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.cfg.Server.Port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

// httpError maps core errors onto HTTP status codes.
func httpError(err error) *echo.HTTPError {
	var apiErr *instagram.APIError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDefaultAccountProtected):
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot delete default account")
	case errors.Is(err, ingest.ErrMalformedPayload):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON")
	case errors.As(err, &apiErr):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
