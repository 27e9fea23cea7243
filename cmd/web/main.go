package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"forum_backend/database"
	"forum_backend/internal/app"
	"forum_backend/internal/auth"
	"forum_backend/internal/config"
	"forum_backend/internal/logger"
	"forum_backend/internal/repositories"
	"forum_backend/internal/workers"

	"github.com/urfave/cli/v3"
)

var (
	ErrUserIDRequired    = errors.New("--user-id is required")
	ErrRetentionDisabled = errors.New("retention.action_log_days is not set")
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "forum",
		Usage: "Realtime comments and notifications server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file (default $CONFIG_PATH or config/config.yaml)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP and WebSocket server",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}
					return app.Run(ctx, cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "Create or update the database schema",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}
					logger.Init(cfg.Server.Env)

					db, err := database.Open(ctx, cfg.Database.DSN, cfg.Database.MaxRetries)
					if err != nil {
						return err
					}
					return database.AutoMigrate(db)
				},
			},
			{
				Name:  "prune",
				Usage: "Delete expired action log entries once and exit",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}
					logger.Init(cfg.Server.Env)
					if cfg.ActionLogMaxAge() <= 0 {
						return ErrRetentionDisabled
					}

					db, err := database.Open(ctx, cfg.Database.DSN, cfg.Database.MaxRetries)
					if err != nil {
						return err
					}
					w := workers.NewRetentionWorker(db, repositories.NewActionLogRepository(),
						cfg.ActionLogMaxAge(), cfg.SweepInterval())
					deleted, err := w.Sweep(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("deleted %d action log entries\n", deleted)
					return nil
				},
			},
			{
				Name:  "token",
				Usage: "Issue an access token for a user (local development)",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "user-id",
						Usage: "ID of the user the token is issued for",
					},
					&cli.BoolFlag{
						Name:  "admin",
						Usage: "Mark the token holder as admin",
					},
				},
				Action: func(_ context.Context, c *cli.Command) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}
					userID := c.Int("user-id")
					if userID <= 0 {
						return ErrUserIDRequired
					}

					tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.TokenTTL())
					token, err := tokens.GenerateToken(uint(userID), c.Bool("admin"))
					if err != nil {
						return err
					}
					fmt.Println(token)
					return nil
				},
			},
		},
	}

	return cmd.Run(ctx, os.Args)
}
