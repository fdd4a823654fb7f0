package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/gramstack/internal/api"
	"github.com/gramstack/internal/comments"
	"github.com/gramstack/internal/config"
	"github.com/gramstack/internal/ingest"
	"github.com/gramstack/internal/instagram"
	"github.com/gramstack/internal/logging"
	"github.com/gramstack/internal/store"
)

// ServeCommand returns the CLI command for starting the API server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the gramstack API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if port := c.Int("port"); port != 0 {
				cfg.Server.Port = port
			}
			logging.Setup(cfg.Log.Level)

			accounts, commentStore, factory, err := buildCore(cfg)
			if err != nil {
				return err
			}

			service := comments.NewService(accounts, commentStore, factory)
			coordinator := ingest.New(accounts, commentStore, factory)
			oauth := instagram.NewOAuthClient(cfg.Instagram.OAuthGraphURL)

			server := api.NewServer(cfg, accounts, service, coordinator, oauth, factory)

			fmt.Printf("Starting gramstack API server on port %d...\n", cfg.Server.Port)
			return server.Start()
		},
	}
}

// buildCore wires the stores and the Graph client factory shared by every
// command.
func buildCore(cfg *config.Config) (*store.AccountStore, *store.CommentStore, instagram.ClientFactory, error) {
	accounts, err := store.NewAccountStore(cfg.Storage.DataDir, cfg.Instagram.AccessToken)
	if err != nil {
		return nil, nil, nil, err
	}
	commentStore, err := store.NewCommentStore(cfg.Storage.DataDir, cfg.Storage.CommentsFile)
	if err != nil {
		return nil, nil, nil, err
	}
	factory := instagram.NewFactory(cfg.Instagram.GraphURL)
	return accounts, commentStore, factory, nil
}
