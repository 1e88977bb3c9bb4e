package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/linkgatebot/linkgate/blocklist"
)

// backupStamp is the timestamp layout in backup file names.
const backupStamp = "20060102T150405Z"

// FileStore keeps the canonical snapshot in a single JSON file. Saves
// overwrite it whole; backups are written as timestamped siblings.
type FileStore struct {
	Path   string
	Logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{Path: path, Logger: logger}
}

// Load reads the canonical snapshot. A missing file is the expected
// first-run state and yields a fresh empty store; an unreadable or
// malformed file is logged and also degrades to an empty store rather
// than blocking startup.
func (f *FileStore) Load(ctx context.Context) (*blocklist.Store, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		f.Logger.Info("no snapshot file yet, starting empty", "path", f.Path)
		return Restore(Snapshot{}), nil
	}
	if err != nil {
		f.Logger.Error("snapshot file unreadable, starting empty", "path", f.Path, "err", err)
		return Restore(Snapshot{}), nil
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		f.Logger.Error("snapshot file malformed, starting empty", "path", f.Path, "err", err)
		return Restore(Snapshot{}), nil
	}
	return Restore(snap), nil
}

// Save overwrites the canonical file with the full current snapshot,
// via a temp file and rename so a crash mid-write can't corrupt it.
func (f *FileStore) Save(ctx context.Context, store *blocklist.Store) error {
	raw, err := json.MarshalIndent(Capture(store), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Backup writes a timestamped copy next to the canonical file, never
// touching the canonical file itself.
func (f *FileStore) Backup(ctx context.Context, store *blocklist.Store) error {
	raw, err := json.MarshalIndent(Capture(store), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	path := f.BackupPath(time.Now().UTC())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	f.Logger.Info("wrote snapshot backup", "path", path)
	return nil
}

// BackupPath is the backup file name for a given moment.
func (f *FileStore) BackupPath(at time.Time) string {
	return fmt.Sprintf("%s.%s.bak", f.Path, at.UTC().Format(backupStamp))
}
