// Package engine decides whether inbound messages violate configured
// block rules and emits delete intents through a MessageService.
package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/linkgatebot/linkgate/blocklist"
)

// WatchWindow is how many recent messages (the newest plus its
// predecessors) a watchman channel rescans on every arrival.
const WatchWindow = 6

var (
	// ErrNoPermission means the bot lacks Manage Messages in the guild.
	ErrNoPermission = errors.New("missing manage messages permission")

	// ErrDeleteFailed wraps a deletion the platform rejected (already
	// deleted, network error).
	ErrDeleteFailed = errors.New("delete failed")
)

// Message is the platform-neutral shape of an inbound message. Text is
// empty when the content was unavailable; such messages are skipped.
type Message struct {
	ID            string
	ChannelID     string
	GuildID       string
	AuthorID      string
	AuthorIsBot   bool
	AuthorRoleIDs []string
	Text          string
}

// MessageService is the messaging boundary: deleting messages, fetching
// recent channel history, and checking the bot's own permissions. The
// engine decides whether and what to delete; the service does the I/O.
type MessageService interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
	CanManageMessages(ctx context.Context, guildID, channelID string) (bool, error)
}

type Scope string

const (
	ScopeChannel Scope = "channel"
	ScopeGlobal  Scope = "global"
)

// Result is the terminal state of a moderation decision.
type Result struct {
	Deleted   bool
	MessageID string
	Partial   string
	Scope     Scope
}

var skipped = Result{}

// Engine runs the moderation decision for each inbound message.
type Engine struct {
	Logger   *slog.Logger
	Store    *blocklist.Store
	Messages MessageService

	// SelfID is the bot's own user ID; its messages are never scanned.
	SelfID string
}

// ProcessMessage runs the full decision state machine for one inbound
// message. It never returns an error for moderation outcomes; the
// Result says what happened, and failures at the messaging boundary are
// logged and folded into "nothing deleted".
func (e *Engine) ProcessMessage(ctx context.Context, msg Message) Result {
	messagesScanned.Inc()

	if msg.AuthorID == e.SelfID || msg.AuthorIsBot || msg.GuildID == "" || msg.Text == "" {
		return skipped
	}

	if e.Store.IsAllowed(msg.GuildID, msg.AuthorID, msg.AuthorRoleIDs) {
		return skipped
	}

	if e.Store.WatchmanEnabled(msg.ChannelID) {
		return e.scanWindow(ctx, msg)
	}
	return e.scanSingle(ctx, msg)
}

// scanSingle evaluates only the triggering message: channel rules first,
// and only if no channel rule matched, the guild's global rules. A
// channel match ends the decision even when the delete itself fails.
func (e *Engine) scanSingle(ctx context.Context, msg Message) Result {
	if partial, ok := MatchRule(msg.Text, e.Store.ListChannelRules(msg.ChannelID)); ok {
		return e.deleteMatched(ctx, msg, partial, ScopeChannel)
	}
	if partial, ok := MatchRule(msg.Text, e.Store.ListGuildRules(msg.GuildID)); ok {
		return e.deleteMatched(ctx, msg, partial, ScopeGlobal)
	}
	return skipped
}

// scanWindow rescans the recent window of the channel: every window
// member against the channel rules, and only if none matched, every
// member again against the global rules. First match deletes that
// specific message and stops; a failed delete also stops the scan.
func (e *Engine) scanWindow(ctx context.Context, trigger Message) Result {
	watchmanScans.Inc()

	window, err := e.Messages.RecentMessages(ctx, trigger.ChannelID, WatchWindow)
	if err != nil {
		e.Logger.Error("history fetch failed, checking newest only",
			"channel", trigger.ChannelID, "err", err)
		window = []Message{trigger}
	}

	for _, scope := range []Scope{ScopeChannel, ScopeGlobal} {
		var rules []string
		switch scope {
		case ScopeChannel:
			rules = e.Store.ListChannelRules(trigger.ChannelID)
		case ScopeGlobal:
			rules = e.Store.ListGuildRules(trigger.GuildID)
		}
		for _, m := range window {
			if m.AuthorID == e.SelfID || m.Text == "" {
				continue
			}
			if partial, ok := MatchRule(m.Text, rules); ok {
				return e.deleteMatched(ctx, m, partial, scope)
			}
		}
	}
	return skipped
}

// deleteMatched attempts to remove a matched message. The permission
// check runs before every delete attempt; without the permission the
// decision is abandoned rather than sending a request that will bounce.
func (e *Engine) deleteMatched(ctx context.Context, msg Message, partial string, scope Scope) Result {
	res := Result{MessageID: msg.ID, Partial: partial, Scope: scope}

	canManage, err := e.Messages.CanManageMessages(ctx, msg.GuildID, msg.ChannelID)
	if err != nil || !canManage {
		e.Logger.Warn("cannot delete matched message",
			"channel", msg.ChannelID, "message", msg.ID, "partial", partial,
			"err", errors.Join(ErrNoPermission, err))
		permissionDenials.Inc()
		return res
	}

	if err := e.Messages.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		e.Logger.Error("delete rejected by platform",
			"channel", msg.ChannelID, "message", msg.ID, "partial", partial,
			"err", errors.Join(ErrDeleteFailed, err))
		deleteFailures.Inc()
		return res
	}

	e.Logger.Info("deleted message matching block rule",
		"channel", msg.ChannelID, "message", msg.ID, "partial", partial, "scope", scope)
	messagesDeleted.Inc()
	res.Deleted = true
	return res
}
