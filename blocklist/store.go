// Package blocklist holds the mutable rule state for link moderation:
// per-channel and per-guild prohibited partials, per-guild allowlists, and
// the set of channels with watchman scanning enabled.
package blocklist

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned when removing a rule, allowlist entry, or
	// watchman state that is not present. Callers report it as a warning;
	// it is never fatal.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when enabling watchman on a channel
	// that already has it enabled.
	ErrAlreadyExists = errors.New("already exists")
)

// AllowList is the per-guild exemption state. Members bypass all block
// rules in that guild.
type AllowList struct {
	Users []string
	Roles []string
}

// Store owns all rule state. Rule partials are stored lowercased and
// unique, in insertion order; matching iterates in that order.
//
// Gateway events and admin commands can arrive on different goroutines,
// so all access goes through the mutex.
type Store struct {
	mu sync.Mutex

	ChannelRules     map[string][]string
	GuildRules       map[string][]string
	AllowLists       map[string]*AllowList
	WatchmanChannels []string
}

func NewStore() *Store {
	return &Store{
		ChannelRules: make(map[string][]string),
		GuildRules:   make(map[string][]string),
		AllowLists:   make(map[string]*AllowList),
	}
}

// AddChannelRule inserts a partial into the channel's rule set, creating
// the set if absent. Returns false if the partial was already present;
// the duplicate add is a no-op, not an error.
func (s *Store) AddChannelRule(channelID, partial string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addPartial(s.ChannelRules, channelID, partial)
}

// RemoveChannelRule removes a partial from the channel's rule set.
// Returns ErrNotFound if the channel has no rules or the partial is
// absent. An emptied set stays in place.
func (s *Store) RemoveChannelRule(channelID, partial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removePartial(s.ChannelRules, channelID, partial)
}

// AddGuildRule is AddChannelRule at guild scope.
func (s *Store) AddGuildRule(guildID, partial string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addPartial(s.GuildRules, guildID, partial)
}

// RemoveGuildRule is RemoveChannelRule at guild scope.
func (s *Store) RemoveGuildRule(guildID, partial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removePartial(s.GuildRules, guildID, partial)
}

func addPartial(rules map[string][]string, key, partial string) bool {
	partial = strings.ToLower(partial)
	set := rules[key]
	if slices.Contains(set, partial) {
		return false
	}
	rules[key] = append(set, partial)
	return true
}

func removePartial(rules map[string][]string, key, partial string) error {
	partial = strings.ToLower(partial)
	set, ok := rules[key]
	if !ok {
		return ErrNotFound
	}
	idx := slices.Index(set, partial)
	if idx < 0 {
		return ErrNotFound
	}
	rules[key] = slices.Delete(set, idx, idx+1)
	return nil
}

// AllowUser adds a user to the guild's allowlist, creating the allowlist
// on first use. Returns false if the user was already allowlisted.
func (s *Store) AllowUser(guildID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	al := s.allowList(guildID)
	if slices.Contains(al.Users, userID) {
		return false
	}
	al.Users = append(al.Users, userID)
	return true
}

// DisallowUser removes a user from the guild's allowlist. Returns
// ErrNotFound if the guild has no allowlist or the user is not in it.
func (s *Store) DisallowUser(guildID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	al, ok := s.AllowLists[guildID]
	if !ok {
		return ErrNotFound
	}
	idx := slices.Index(al.Users, userID)
	if idx < 0 {
		return ErrNotFound
	}
	al.Users = slices.Delete(al.Users, idx, idx+1)
	return nil
}

// AllowRole is AllowUser for role IDs.
func (s *Store) AllowRole(guildID, roleID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	al := s.allowList(guildID)
	if slices.Contains(al.Roles, roleID) {
		return false
	}
	al.Roles = append(al.Roles, roleID)
	return true
}

// DisallowRole is DisallowUser for role IDs.
func (s *Store) DisallowRole(guildID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	al, ok := s.AllowLists[guildID]
	if !ok {
		return ErrNotFound
	}
	idx := slices.Index(al.Roles, roleID)
	if idx < 0 {
		return ErrNotFound
	}
	al.Roles = slices.Delete(al.Roles, idx, idx+1)
	return nil
}

func (s *Store) allowList(guildID string) *AllowList {
	al, ok := s.AllowLists[guildID]
	if !ok {
		al = &AllowList{}
		s.AllowLists[guildID] = al
	}
	return al
}

// SetWatchman flips watchman membership for a channel. Enabling an
// already-enabled channel returns ErrAlreadyExists; disabling a channel
// that is not enabled returns ErrNotFound.
func (s *Store) SetWatchman(channelID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.Index(s.WatchmanChannels, channelID)
	if enabled {
		if idx >= 0 {
			return ErrAlreadyExists
		}
		s.WatchmanChannels = append(s.WatchmanChannels, channelID)
		return nil
	}
	if idx < 0 {
		return ErrNotFound
	}
	s.WatchmanChannels = slices.Delete(s.WatchmanChannels, idx, idx+1)
	return nil
}

// WatchmanEnabled reports whether the channel has extended scanning on.
func (s *Store) WatchmanEnabled(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.WatchmanChannels, channelID)
}

// ListChannelRules returns a copy of the channel's rule set, empty (not
// nil) when the channel has none.
func (s *Store) ListChannelRules(channelID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.ChannelRules[channelID]...)
}

// ListGuildRules returns a copy of the guild's global rule set.
func (s *Store) ListGuildRules(guildID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.GuildRules[guildID]...)
}

// ListAllowList returns copies of the guild's allowlisted user and role
// IDs; both empty when the guild has no allowlist.
func (s *Store) ListAllowList(guildID string) (users, roles []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	al, ok := s.AllowLists[guildID]
	if !ok {
		return []string{}, []string{}
	}
	return append([]string{}, al.Users...), append([]string{}, al.Roles...)
}

// IsAllowed reports whether the author is exempt in this guild, either
// directly or through any of their roles.
func (s *Store) IsAllowed(guildID, userID string, roleIDs []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	al, ok := s.AllowLists[guildID]
	if !ok {
		return false
	}
	if slices.Contains(al.Users, userID) {
		return true
	}
	for _, r := range roleIDs {
		if slices.Contains(al.Roles, r) {
			return true
		}
	}
	return false
}

// View is a deep copy of the store's state, safe to read and serialize
// while the store keeps mutating.
type View struct {
	ChannelRules     map[string][]string
	GuildRules       map[string][]string
	AllowLists       map[string]AllowList
	WatchmanChannels []string
}

func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ChannelRules:     make(map[string][]string, len(s.ChannelRules)),
		GuildRules:       make(map[string][]string, len(s.GuildRules)),
		AllowLists:       make(map[string]AllowList, len(s.AllowLists)),
		WatchmanChannels: append([]string{}, s.WatchmanChannels...),
	}
	for id, set := range s.ChannelRules {
		v.ChannelRules[id] = append([]string{}, set...)
	}
	for id, set := range s.GuildRules {
		v.GuildRules[id] = append([]string{}, set...)
	}
	for id, al := range s.AllowLists {
		v.AllowLists[id] = AllowList{
			Users: append([]string{}, al.Users...),
			Roles: append([]string{}, al.Roles...),
		}
	}
	return v
}

// Stats is the aggregate view of the store.
type Stats struct {
	ChannelsWithRules int
	GuildsWithRules   int
	GuildsWithAllow   int
	WatchmanChannels  int
	ChannelRuleTotal  int
	GuildRuleTotal    int
}

// Stats counts only non-empty rule sets; a channel whose last rule was
// removed no longer counts as having rules.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	for _, set := range s.ChannelRules {
		if len(set) > 0 {
			st.ChannelsWithRules++
			st.ChannelRuleTotal += len(set)
		}
	}
	for _, set := range s.GuildRules {
		if len(set) > 0 {
			st.GuildsWithRules++
			st.GuildRuleTotal += len(set)
		}
	}
	st.GuildsWithAllow = len(s.AllowLists)
	st.WatchmanChannels = len(s.WatchmanChannels)
	return st
}
