package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/gramstack/internal/config"
	"github.com/gramstack/internal/ingest"
	"github.com/gramstack/internal/logging"
)

// SyncCommand returns the CLI command for pulling comments from the Graph
// API, either once or on an interval.
func SyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Pull comments from Instagram into local storage",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single sync and exit",
			},
			&cli.IntFlag{
				Name:  "interval",
				Usage: "Seconds between sync runs",
				Value: 300,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of recent media items to scan",
				Value: 10,
			},
			&cli.StringFlag{
				Name:  "account",
				Usage: "Account id to sync (defaults to the default account)",
			},
			&cli.StringFlag{
				Name:  "media",
				Usage: "Sync a single media id instead of scanning recent media",
			},
		},
		Action: runSync,
	}
}

func runSync(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Setup(cfg.Log.Level)

	accounts, commentStore, factory, err := buildCore(cfg)
	if err != nil {
		return err
	}
	coordinator := ingest.New(accounts, commentStore, factory)

	accountID := c.String("account")
	mediaID := c.String("media")
	limit := c.Int("limit")

	runOnce := func(ctx context.Context) {
		result, err := coordinator.Sync(ctx, accountID, mediaID, limit)
		if err != nil {
			log.Error().Err(err).Msg("sync failed")
			return
		}
		log.Info().Int("synced", result.SyncedCount).Msg(result.Message)
	}

	ctx := context.Background()
	if c.Bool("once") {
		result, err := coordinator.Sync(ctx, accountID, mediaID, limit)
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	}

	interval := time.Duration(c.Int("interval")) * time.Second
	log.Info().Dur("interval", interval).Msg("starting periodic sync")

	runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	for {
		select {
		case <-ticker.C:
			runOnce(ctx)
		case <-quit:
			log.Info().Msg("stopping periodic sync")
			return nil
		}
	}
}
