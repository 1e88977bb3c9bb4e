package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "linkgate",
		Usage:   "discord bot deleting messages with blocklisted links",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the bot",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "discord-token",
			Usage:    "bot token from the discord developer portal",
			Required: true,
			EnvVars:  []string{"DISCORD_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "command-prefix",
			Usage:   "prefix for admin commands in chat",
			Value:   "!lg",
			EnvVars: []string{"LINKGATE_COMMAND_PREFIX"},
		},
		&cli.StringFlag{
			Name:    "state-file",
			Usage:   "path of the canonical rule snapshot file",
			Value:   "data/linkgate/rules.json",
			EnvVars: []string{"LINKGATE_STATE_FILE"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "if set, keep rule state in redis instead of a file",
			EnvVars: []string{"LINKGATE_REDIS_URL"},
		},
		&cli.DurationFlag{
			Name:    "backup-interval",
			Usage:   "how often to write a timestamped snapshot backup",
			Value:   6 * time.Hour,
			EnvVars: []string{"LINKGATE_BACKUP_INTERVAL"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"LINKGATE_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		srv, err := NewServer(Config{
			DiscordToken:   cctx.String("discord-token"),
			CommandPrefix:  cctx.String("command-prefix"),
			StateFile:      cctx.String("state-file"),
			RedisURL:       cctx.String("redis-url"),
			BackupInterval: cctx.Duration("backup-interval"),
			Logger:         logger,
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx)
	},
}
