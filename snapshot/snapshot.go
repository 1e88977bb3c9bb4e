// Package snapshot projects blocklist state to and from its durable JSON
// form, and provides the file and redis backed state stores.
package snapshot

import (
	"context"

	"github.com/linkgatebot/linkgate/blocklist"
)

// Snapshot is the full serializable projection of a blocklist store.
// Sets become ordered sequences; field names are the on-disk schema and
// must stay stable across versions.
type Snapshot struct {
	BlockRules       map[string][]string  `json:"blockRules"`
	GlobalBlockRules map[string][]string  `json:"globalBlockRules"`
	AllowLists       map[string]AllowList `json:"allowLists"`
	WatchmanChannels []string             `json:"watchmanChannels"`
}

type AllowList struct {
	Users []string `json:"users"`
	Roles []string `json:"roles"`
}

// StateStore is a durable home for rule state. Save overwrites the single
// canonical location with a full snapshot; Backup writes a timestamped
// copy beside it and never touches the canonical location.
type StateStore interface {
	Load(ctx context.Context) (*blocklist.Store, error)
	Save(ctx context.Context, store *blocklist.Store) error
	Backup(ctx context.Context, store *blocklist.Store) error
}

// Capture projects the store into a Snapshot. It is pure and total.
func Capture(store *blocklist.Store) Snapshot {
	v := store.View()
	snap := Snapshot{
		BlockRules:       v.ChannelRules,
		GlobalBlockRules: v.GuildRules,
		AllowLists:       make(map[string]AllowList, len(v.AllowLists)),
		WatchmanChannels: v.WatchmanChannels,
	}
	for id, al := range v.AllowLists {
		snap.AllowLists[id] = AllowList{Users: al.Users, Roles: al.Roles}
	}
	return snap
}

// Restore is the inverse of Capture. Missing top-level fields default to
// empty collections, so snapshots written before a field existed (for
// example watchmanChannels) load cleanly.
func Restore(snap Snapshot) *blocklist.Store {
	store := blocklist.NewStore()
	for id, set := range snap.BlockRules {
		store.ChannelRules[id] = append([]string{}, set...)
	}
	for id, set := range snap.GlobalBlockRules {
		store.GuildRules[id] = append([]string{}, set...)
	}
	for id, al := range snap.AllowLists {
		store.AllowLists[id] = &blocklist.AllowList{
			Users: append([]string{}, al.Users...),
			Roles: append([]string{}, al.Roles...),
		}
	}
	store.WatchmanChannels = append([]string{}, snap.WatchmanChannels...)
	return store
}
