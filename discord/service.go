package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/linkgatebot/linkgate/engine"
)

// Service implements engine.MessageService on a discordgo session.
type Service struct {
	Session *discordgo.Session
}

func (s *Service) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return s.Session.ChannelMessageDelete(channelID, messageID)
}

func (s *Service) RecentMessages(ctx context.Context, channelID string, limit int) ([]engine.Message, error) {
	msgs, err := s.Session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("fetching channel history: %w", err)
	}
	out := make([]engine.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, fromDiscordMessage(m))
	}
	return out, nil
}

func (s *Service) CanManageMessages(ctx context.Context, guildID, channelID string) (bool, error) {
	self := s.Session.State.User
	if self == nil {
		return false, fmt.Errorf("session not ready")
	}
	perms, err := s.Session.UserChannelPermissions(self.ID, channelID)
	if err != nil {
		return false, fmt.Errorf("resolving own permissions: %w", err)
	}
	return perms&discordgo.PermissionManageMessages != 0, nil
}

// fromDiscordMessage maps the gateway shape onto the engine's. History
// fetches come back without guild or member info populated, so callers
// relying on those fill them in from the triggering event.
func fromDiscordMessage(m *discordgo.Message) engine.Message {
	msg := engine.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Text:      m.Content,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorIsBot = m.Author.Bot
	}
	if m.Member != nil {
		msg.AuthorRoleIDs = m.Member.Roles
	}
	return msg
}
