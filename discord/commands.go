package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linkgatebot/linkgate/blocklist"
	"github.com/linkgatebot/linkgate/snapshot"
)

type CommandKind int

const (
	CmdHelp CommandKind = iota
	CmdBlock
	CmdUnblock
	CmdBlockGlobal
	CmdUnblockGlobal
	CmdAllowUser
	CmdDisallowUser
	CmdAllowRole
	CmdDisallowRole
	CmdWatchman
	CmdListRules
	CmdListGlobal
	CmdListAllow
	CmdStats
	CmdBackup
)

// Command is one parsed admin command. Arg is the partial, the user or
// role ID, or "on"/"off" for watchman, depending on Kind.
type Command struct {
	Kind CommandKind
	Arg  string
}

// ParseCommand turns a prefixed message into a Command. Returns false
// for anything that doesn't start with the prefix; those messages go to
// the moderation scan instead. Unknown or incomplete commands parse as
// CmdHelp so the reply explains usage.
func ParseCommand(prefix, content string) (Command, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(content), prefix)
	if !ok {
		return Command{}, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Command{Kind: CmdHelp}, true
	}
	verb := strings.ToLower(fields[0])
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	needArg := func(kind CommandKind) (Command, bool) {
		if arg == "" {
			return Command{Kind: CmdHelp}, true
		}
		return Command{Kind: kind, Arg: arg}, true
	}

	switch verb {
	case "block":
		return needArg(CmdBlock)
	case "unblock":
		return needArg(CmdUnblock)
	case "blockglobal":
		return needArg(CmdBlockGlobal)
	case "unblockglobal":
		return needArg(CmdUnblockGlobal)
	case "allowuser":
		return needArg(CmdAllowUser)
	case "disallowuser":
		return needArg(CmdDisallowUser)
	case "allowrole":
		return needArg(CmdAllowRole)
	case "disallowrole":
		return needArg(CmdDisallowRole)
	case "watchman":
		if arg != "on" && arg != "off" {
			return Command{Kind: CmdHelp}, true
		}
		return Command{Kind: CmdWatchman, Arg: arg}, true
	case "rules":
		return Command{Kind: CmdListRules}, true
	case "globalrules":
		return Command{Kind: CmdListGlobal}, true
	case "allowlist":
		return Command{Kind: CmdListAllow}, true
	case "stats":
		return Command{Kind: CmdStats}, true
	case "backup":
		return Command{Kind: CmdBackup}, true
	default:
		return Command{Kind: CmdHelp}, true
	}
}

// StripMention reduces a Discord user or role mention to its bare ID.
// Raw IDs pass through unchanged.
func StripMention(arg string) string {
	arg = strings.TrimPrefix(arg, "<")
	arg = strings.TrimSuffix(arg, ">")
	arg = strings.TrimPrefix(arg, "@")
	arg = strings.TrimPrefix(arg, "!")
	arg = strings.TrimPrefix(arg, "&")
	return arg
}

// Dispatcher executes admin commands against the store. Every mutating
// arm performs exactly one store operation and one state save.
type Dispatcher struct {
	Logger *slog.Logger
	Store  *blocklist.Store
	State  snapshot.StateStore
}

const usage = "commands: block/unblock <partial>, blockglobal/unblockglobal <partial>, " +
	"allowuser/disallowuser <user>, allowrole/disallowrole <role>, " +
	"watchman on|off, rules, globalrules, allowlist, stats, backup"

// Run executes one command in the context of the invoking channel and
// guild, returning the confirmation text to post back.
func (d *Dispatcher) Run(ctx context.Context, cmd Command, channelID, guildID string) string {
	switch cmd.Kind {
	case CmdBlock:
		if !d.Store.AddChannelRule(channelID, cmd.Arg) {
			return fmt.Sprintf("links containing %q are already blocked in this channel", strings.ToLower(cmd.Arg))
		}
		return d.saved(ctx, fmt.Sprintf("now deleting links containing %q in this channel", strings.ToLower(cmd.Arg)))

	case CmdUnblock:
		if err := d.Store.RemoveChannelRule(channelID, cmd.Arg); err != nil {
			return fmt.Sprintf("%q is not blocked in this channel", strings.ToLower(cmd.Arg))
		}
		return d.saved(ctx, fmt.Sprintf("no longer blocking %q in this channel", strings.ToLower(cmd.Arg)))

	case CmdBlockGlobal:
		if !d.Store.AddGuildRule(guildID, cmd.Arg) {
			return fmt.Sprintf("links containing %q are already blocked server-wide", strings.ToLower(cmd.Arg))
		}
		return d.saved(ctx, fmt.Sprintf("now deleting links containing %q server-wide", strings.ToLower(cmd.Arg)))

	case CmdUnblockGlobal:
		if err := d.Store.RemoveGuildRule(guildID, cmd.Arg); err != nil {
			return fmt.Sprintf("%q is not blocked server-wide", strings.ToLower(cmd.Arg))
		}
		return d.saved(ctx, fmt.Sprintf("no longer blocking %q server-wide", strings.ToLower(cmd.Arg)))

	case CmdAllowUser:
		id := StripMention(cmd.Arg)
		if !d.Store.AllowUser(guildID, id) {
			return fmt.Sprintf("user %s is already exempt", id)
		}
		return d.saved(ctx, fmt.Sprintf("user %s is now exempt from block rules", id))

	case CmdDisallowUser:
		id := StripMention(cmd.Arg)
		if err := d.Store.DisallowUser(guildID, id); err != nil {
			return fmt.Sprintf("user %s is not exempt", id)
		}
		return d.saved(ctx, fmt.Sprintf("user %s is no longer exempt", id))

	case CmdAllowRole:
		id := StripMention(cmd.Arg)
		if !d.Store.AllowRole(guildID, id) {
			return fmt.Sprintf("role %s is already exempt", id)
		}
		return d.saved(ctx, fmt.Sprintf("role %s is now exempt from block rules", id))

	case CmdDisallowRole:
		id := StripMention(cmd.Arg)
		if err := d.Store.DisallowRole(guildID, id); err != nil {
			return fmt.Sprintf("role %s is not exempt", id)
		}
		return d.saved(ctx, fmt.Sprintf("role %s is no longer exempt", id))

	case CmdWatchman:
		enable := cmd.Arg == "on"
		if err := d.Store.SetWatchman(channelID, enable); err != nil {
			if errors.Is(err, blocklist.ErrAlreadyExists) {
				return "watchman is already on in this channel"
			}
			return "watchman is already off in this channel"
		}
		if enable {
			return d.saved(ctx, "watchman on: rescanning recent history in this channel")
		}
		return d.saved(ctx, "watchman off in this channel")

	case CmdListRules:
		rules := d.Store.ListChannelRules(channelID)
		if len(rules) == 0 {
			return "no blocked partials in this channel"
		}
		return "blocked in this channel: " + strings.Join(rules, ", ")

	case CmdListGlobal:
		rules := d.Store.ListGuildRules(guildID)
		if len(rules) == 0 {
			return "no server-wide blocked partials"
		}
		return "blocked server-wide: " + strings.Join(rules, ", ")

	case CmdListAllow:
		users, roles := d.Store.ListAllowList(guildID)
		if len(users) == 0 && len(roles) == 0 {
			return "no exempt users or roles"
		}
		return fmt.Sprintf("exempt users: [%s], exempt roles: [%s]",
			strings.Join(users, ", "), strings.Join(roles, ", "))

	case CmdStats:
		st := d.Store.Stats()
		return fmt.Sprintf(
			"channels with rules: %d (%d partials), guilds with global rules: %d (%d partials), "+
				"guilds with allowlists: %d, watchman channels: %d",
			st.ChannelsWithRules, st.ChannelRuleTotal,
			st.GuildsWithRules, st.GuildRuleTotal,
			st.GuildsWithAllow, st.WatchmanChannels)

	case CmdBackup:
		if err := d.State.Backup(ctx, d.Store); err != nil {
			d.Logger.Error("snapshot backup failed", "err", err)
			return "backup failed, see logs"
		}
		return "backup written"

	default:
		return usage
	}
}

// saved persists the store after a successful mutation. The in-memory
// change stands even when the write fails; the reply says so.
func (d *Dispatcher) saved(ctx context.Context, reply string) string {
	if err := d.State.Save(ctx, d.Store); err != nil {
		d.Logger.Error("snapshot save failed", "err", err)
		return reply + " (warning: saving rule state failed, change is not durable)"
	}
	return reply
}
