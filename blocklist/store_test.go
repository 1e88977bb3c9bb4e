package blocklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelRuleBasics(t *testing.T) {
	assert := assert.New(t)

	s := NewStore()
	assert.Empty(s.ListChannelRules("c1"))

	assert.True(s.AddChannelRule("c1", "TikTok"))
	assert.Equal([]string{"tiktok"}, s.ListChannelRules("c1"))

	// duplicate add is a no-op
	assert.False(s.AddChannelRule("c1", "tiktok"))
	assert.Equal([]string{"tiktok"}, s.ListChannelRules("c1"))

	assert.NoError(s.RemoveChannelRule("c1", "TIKTOK"))
	assert.Empty(s.ListChannelRules("c1"))

	assert.ErrorIs(s.RemoveChannelRule("c1", "tiktok"), ErrNotFound)
	assert.ErrorIs(s.RemoveChannelRule("nope", "tiktok"), ErrNotFound)
}

func TestChannelRuleOrder(t *testing.T) {
	assert := assert.New(t)

	s := NewStore()
	s.AddChannelRule("c1", "bbb")
	s.AddChannelRule("c1", "aaa")
	s.AddChannelRule("c1", "ccc")
	assert.Equal([]string{"bbb", "aaa", "ccc"}, s.ListChannelRules("c1"))

	assert.NoError(s.RemoveChannelRule("c1", "aaa"))
	assert.Equal([]string{"bbb", "ccc"}, s.ListChannelRules("c1"))
}

func TestGuildRuleBasics(t *testing.T) {
	assert := assert.New(t)

	s := NewStore()
	assert.True(s.AddGuildRule("g1", "Discord.gg"))
	assert.False(s.AddGuildRule("g1", "discord.gg"))
	assert.Equal([]string{"discord.gg"}, s.ListGuildRules("g1"))
	assert.Empty(s.ListGuildRules("g2"))

	assert.NoError(s.RemoveGuildRule("g1", "discord.gg"))
	assert.ErrorIs(s.RemoveGuildRule("g1", "discord.gg"), ErrNotFound)
}

func TestAllowList(t *testing.T) {
	assert := assert.New(t)

	s := NewStore()
	users, roles := s.ListAllowList("g1")
	assert.Empty(users)
	assert.Empty(roles)
	assert.False(s.IsAllowed("g1", "u1", nil))

	assert.True(s.AllowUser("g1", "u1"))
	assert.False(s.AllowUser("g1", "u1"))
	assert.True(s.AllowRole("g1", "r1"))

	assert.True(s.IsAllowed("g1", "u1", nil))
	assert.True(s.IsAllowed("g1", "u2", []string{"r9", "r1"}))
	assert.False(s.IsAllowed("g1", "u2", []string{"r9"}))
	// allowlists are per-guild
	assert.False(s.IsAllowed("g2", "u1", []string{"r1"}))

	assert.NoError(s.DisallowUser("g1", "u1"))
	assert.ErrorIs(s.DisallowUser("g1", "u1"), ErrNotFound)
	assert.NoError(s.DisallowRole("g1", "r1"))
	assert.ErrorIs(s.DisallowRole("g1", "r1"), ErrNotFound)
	assert.ErrorIs(s.DisallowUser("g2", "u1"), ErrNotFound)
}

func TestWatchmanToggle(t *testing.T) {
	assert := assert.New(t)

	s := NewStore()
	assert.False(s.WatchmanEnabled("c1"))

	assert.NoError(s.SetWatchman("c1", true))
	assert.True(s.WatchmanEnabled("c1"))
	assert.ErrorIs(s.SetWatchman("c1", true), ErrAlreadyExists)

	assert.NoError(s.SetWatchman("c1", false))
	assert.False(s.WatchmanEnabled("c1"))
	assert.ErrorIs(s.SetWatchman("c1", false), ErrNotFound)
}

func TestStatsSkipsEmptySets(t *testing.T) {
	assert := assert.New(t)

	s := NewStore()
	s.AddChannelRule("c1", "tiktok")
	s.AddChannelRule("c1", "youtube")
	s.AddChannelRule("c2", "spam.example")
	s.AddGuildRule("g1", "scam")
	s.AllowUser("g1", "u1")
	_ = s.SetWatchman("c1", true)

	st := s.Stats()
	assert.Equal(2, st.ChannelsWithRules)
	assert.Equal(3, st.ChannelRuleTotal)
	assert.Equal(1, st.GuildsWithRules)
	assert.Equal(1, st.GuildRuleTotal)
	assert.Equal(1, st.GuildsWithAllow)
	assert.Equal(1, st.WatchmanChannels)

	// emptied set stays in the map but drops out of the counts
	assert.NoError(s.RemoveChannelRule("c2", "spam.example"))
	st = s.Stats()
	assert.Equal(1, st.ChannelsWithRules)
	assert.Equal(2, st.ChannelRuleTotal)
	assert.Contains(s.ChannelRules, "c2")
}
