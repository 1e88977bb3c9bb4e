package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkgatebot/linkgate/blocklist"
)

func populatedStore() *blocklist.Store {
	s := blocklist.NewStore()
	s.AddChannelRule("c1", "tiktok")
	s.AddChannelRule("c1", "youtube")
	s.AddChannelRule("c2", "spam.example")
	s.AddGuildRule("g1", "scam")
	s.AllowUser("g1", "u1")
	s.AllowRole("g1", "r1")
	_ = s.SetWatchman("c1", true)
	// leave an emptied set behind, it must survive the round trip
	s.AddChannelRule("c3", "temp")
	_ = s.RemoveChannelRule("c3", "temp")
	return s
}

func TestRoundTrip(t *testing.T) {
	assert := assert.New(t)

	orig := populatedStore()
	got := Restore(Capture(orig))

	assert.Equal(orig.View(), got.View())
	assert.Contains(got.ChannelRules, "c3")
	assert.Empty(got.ChannelRules["c3"])
	assert.True(got.WatchmanEnabled("c1"))
	assert.True(got.IsAllowed("g1", "u1", nil))
}

func TestRoundTripEmpty(t *testing.T) {
	assert := assert.New(t)

	got := Restore(Capture(blocklist.NewStore()))
	assert.Empty(got.ChannelRules)
	assert.Empty(got.GuildRules)
	assert.Empty(got.AllowLists)
	assert.Empty(got.WatchmanChannels)
}

func TestRestoreMissingFields(t *testing.T) {
	assert := assert.New(t)

	// snapshot written before watchmanChannels existed
	raw := []byte(`{"blockRules": {"c1": ["tiktok"]}, "globalBlockRules": {}, "allowLists": {}}`)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))

	store := Restore(snap)
	assert.Equal([]string{"tiktok"}, store.ListChannelRules("c1"))
	assert.Empty(store.WatchmanChannels)
	assert.False(store.WatchmanEnabled("c1"))
}

func TestFileStoreSaveLoad(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "data", "rules.json")
	fs := NewFileStore(path, nil)

	// first run: no file
	store, err := fs.Load(ctx)
	assert.NoError(err)
	assert.Empty(store.ChannelRules)

	require.NoError(t, fs.Save(ctx, populatedStore()))
	got, err := fs.Load(ctx)
	assert.NoError(err)
	assert.Equal(populatedStore().View(), got.View())

	// save is a full overwrite, not a merge
	require.NoError(t, fs.Save(ctx, blocklist.NewStore()))
	got, err = fs.Load(ctx)
	assert.NoError(err)
	assert.Empty(got.ChannelRules)
}

func TestFileStoreMalformed(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := NewFileStore(path, nil).Load(ctx)
	assert.NoError(err)
	assert.Empty(store.ChannelRules)
}

func TestFileStoreBackup(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "rules.json")
	fs := NewFileStore(path, nil)
	require.NoError(t, fs.Save(ctx, populatedStore()))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, fs.Backup(ctx, blocklist.NewStore()))

	// canonical file untouched
	after, err := os.ReadFile(path)
	assert.NoError(err)
	assert.Equal(before, after)

	matches, err := filepath.Glob(path + ".*.bak")
	assert.NoError(err)
	assert.Len(matches, 1)
}

func TestBackupPathNaming(t *testing.T) {
	assert := assert.New(t)

	fs := NewFileStore("/data/rules.json", nil)
	at := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	assert.Equal("/data/rules.json.20240501T123045Z.bak", fs.BackupPath(at))
}
