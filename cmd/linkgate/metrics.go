package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/linkgatebot/linkgate/blocklist"
)

// registerStatsMetrics exports the store aggregates as gauges, computed
// at scrape time.
func registerStatsMetrics(store *blocklist.Store) {
	statGauge := func(name, help string, get func(blocklist.Stats) int) {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: name,
			Help: help,
		}, func() float64 {
			return float64(get(store.Stats()))
		})
	}

	statGauge("linkgate_channels_with_rules",
		"Number of channels with a non-empty rule set",
		func(s blocklist.Stats) int { return s.ChannelsWithRules })
	statGauge("linkgate_guilds_with_rules",
		"Number of guilds with a non-empty global rule set",
		func(s blocklist.Stats) int { return s.GuildsWithRules })
	statGauge("linkgate_guilds_with_allowlists",
		"Number of guilds with an allowlist",
		func(s blocklist.Stats) int { return s.GuildsWithAllow })
	statGauge("linkgate_watchman_channels",
		"Number of channels with watchman scanning enabled",
		func(s blocklist.Stats) int { return s.WatchmanChannels })
	statGauge("linkgate_channel_rules_total",
		"Total partials across all channel rule sets",
		func(s blocklist.Stats) int { return s.ChannelRuleTotal })
	statGauge("linkgate_guild_rules_total",
		"Total partials across all global rule sets",
		func(s blocklist.Stats) int { return s.GuildRuleTotal })
}
