// Package discord wires the moderation engine and admin commands to the
// Discord gateway.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/linkgatebot/linkgate/blocklist"
	"github.com/linkgatebot/linkgate/engine"
	"github.com/linkgatebot/linkgate/snapshot"
)

type Bot struct {
	Logger   *slog.Logger
	Session  *discordgo.Session
	Engine   *engine.Engine
	Commands *Dispatcher
	Prefix   string
}

func NewBot(token, prefix string, store *blocklist.Store, state snapshot.StateStore, logger *slog.Logger) (*Bot, error) {
	sess, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	// message content is a privileged intent and must also be enabled in
	// the developer portal
	sess.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		Logger:  logger,
		Session: sess,
		Engine: &engine.Engine{
			Logger:   logger,
			Store:    store,
			Messages: &Service{Session: sess},
		},
		Commands: &Dispatcher{
			Logger: logger,
			Store:  store,
			State:  state,
		},
		Prefix: prefix,
	}
	sess.AddHandler(b.onReady)
	sess.AddHandler(b.onMessageCreate)
	return b, nil
}

// Open connects to the gateway and starts receiving events.
func (b *Bot) Open() error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("opening gateway connection: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.Session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.Engine.SelfID = r.User.ID
	b.Logger.Info("connected to discord", "user", r.User.Username, "id", r.User.ID)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	ctx := context.Background()

	if cmd, ok := ParseCommand(b.Prefix, m.Content); ok {
		b.handleCommand(ctx, s, m, cmd)
		return
	}
	b.Engine.ProcessMessage(ctx, fromDiscordMessage(m.Message))
}

func (b *Bot) handleCommand(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, cmd Command) {
	if m.GuildID == "" || m.Author == nil || m.Author.Bot {
		return
	}
	perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		b.Logger.Error("resolving invoker permissions", "user", m.Author.ID, "err", err)
		return
	}
	if perms&discordgo.PermissionManageMessages == 0 {
		b.reply(s, m.ChannelID, "you need the Manage Messages permission for that")
		return
	}
	b.reply(s, m.ChannelID, b.Commands.Run(ctx, cmd, m.ChannelID, m.GuildID))
}

func (b *Bot) reply(s *discordgo.Session, channelID, text string) {
	if _, err := s.ChannelMessageSend(channelID, text); err != nil {
		b.Logger.Error("sending reply", "channel", channelID, "err", err)
	}
}
