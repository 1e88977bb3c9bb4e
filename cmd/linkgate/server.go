package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linkgatebot/linkgate/blocklist"
	"github.com/linkgatebot/linkgate/discord"
	"github.com/linkgatebot/linkgate/snapshot"
)

type Server struct {
	logger         *slog.Logger
	bot            *discord.Bot
	store          *blocklist.Store
	state          snapshot.StateStore
	backupInterval time.Duration
}

type Config struct {
	DiscordToken   string
	CommandPrefix  string
	StateFile      string
	RedisURL       string
	BackupInterval time.Duration
	Logger         *slog.Logger
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var state snapshot.StateStore
	if config.RedisURL != "" {
		rs, err := snapshot.NewRedisStore(config.RedisURL, "linkgate/rules", logger)
		if err != nil {
			return nil, fmt.Errorf("initializing redis state store: %w", err)
		}
		state = rs
		logger.Info("keeping rule state in redis")
	} else {
		state = snapshot.NewFileStore(config.StateFile, logger)
		logger.Info("keeping rule state on disk", "path", config.StateFile)
	}

	// load never fails: missing or broken state degrades to empty
	store, err := state.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loading rule state: %w", err)
	}
	registerStatsMetrics(store)

	bot, err := discord.NewBot(config.DiscordToken, config.CommandPrefix, store, state, logger)
	if err != nil {
		return nil, err
	}

	return &Server{
		logger:         logger,
		bot:            bot,
		store:          store,
		state:          state,
		backupInterval: config.BackupInterval,
	}, nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

// Run connects to the gateway and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.bot.Open(); err != nil {
		return err
	}
	defer func() {
		if err := s.bot.Close(); err != nil {
			s.logger.Error("closing gateway connection", "err", err)
		}
	}()

	go s.RunPeriodicBackup(ctx)

	<-ctx.Done()
	s.logger.Info("shutting down")
	return nil
}

// RunPeriodicBackup writes a timestamped snapshot copy on a fixed
// interval. Backup failures are logged and swallowed.
func (s *Server) RunPeriodicBackup(ctx context.Context) {
	if s.backupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.backupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.state.Backup(ctx, s.store); err != nil {
				s.logger.Error("periodic backup failed", "err", err)
			}
		}
	}
}
