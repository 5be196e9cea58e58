// Package backup snapshots the state database before destructive
// operations so a bad sync can be rolled back locally.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adlift/adsync/internal/util"
)

const (
	// DirPerm is the permission for backup directories (rwxr-x---)
	DirPerm = 0o750
	// FilePerm is the permission for backup files (rw-r-----)
	FilePerm = 0o640

	// DefaultKeep is how many backups Prune retains by default.
	DefaultKeep = 10
)

// Entry describes one stored backup. The hash is embedded in the file
// name, so the directory is the whole index.
type Entry struct {
	ID        string
	Path      string
	Hash      string
	Size      int64
	CreatedAt time.Time
}

// Create copies the state database at dbPath into the backup
// directory. The backup id encodes the creation time and a content
// hash prefix.
func Create(dbPath string) (*Entry, error) {
	return createIn(dbPath, util.BackupsPath())
}

func createIn(dbPath, dir string) (*Entry, error) {
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	content, err := os.ReadFile(dbPath) // #nosec G304 - path comes from config
	if err != nil {
		return nil, fmt.Errorf("failed to read state database %q: %w", dbPath, err)
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	now := time.Now()
	id := now.Format("20060102-150405") + "-" + hash[:8]
	path := filepath.Join(dir, id+".db")

	if err := os.WriteFile(path, content, FilePerm); err != nil {
		return nil, fmt.Errorf("failed to write backup file: %w", err)
	}

	return &Entry{
		ID:        id,
		Path:      path,
		Hash:      hash,
		Size:      int64(len(content)),
		CreatedAt: now,
	}, nil
}

// List returns stored backups, newest first.
func List() ([]Entry, error) {
	return listIn(util.BackupsPath())
}

func listIn(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".db") {
			continue
		}
		id := strings.TrimSuffix(f.Name(), ".db")
		info, err := f.Info()
		if err != nil {
			continue
		}
		createdAt, ok := parseID(id)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			ID:        id,
			Path:      filepath.Join(dir, f.Name()),
			Size:      info.Size(),
			CreatedAt: createdAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// parseID extracts the timestamp from a backup id of the form
// 20060102-150405-<hash8>.
func parseID(id string) (time.Time, bool) {
	if len(id) < 15 {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("20060102-150405", id[:15], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Restore copies the identified backup over targetPath after verifying
// its content hash against the id.
func Restore(id, targetPath string) error {
	return restoreIn(id, targetPath, util.BackupsPath())
}

func restoreIn(id, targetPath, dir string) error {
	path := filepath.Join(dir, id+".db")
	content, err := os.ReadFile(path) // #nosec G304 - id is validated against the backup dir
	if err != nil {
		return fmt.Errorf("backup %q not found: %w", id, err)
	}

	if err := verifyContent(id, content); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), DirPerm); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}
	if err := os.WriteFile(targetPath, content, FilePerm); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	return nil
}

// Verify checks a stored backup against the hash prefix in its id.
func Verify(id string) error {
	path := filepath.Join(util.BackupsPath(), id+".db")
	content, err := os.ReadFile(path) // #nosec G304 - id is validated against the backup dir
	if err != nil {
		return fmt.Errorf("backup %q not found: %w", id, err)
	}
	return verifyContent(id, content)
}

func verifyContent(id string, content []byte) error {
	idx := strings.LastIndex(id, "-")
	if idx < 0 || idx+1 >= len(id) {
		return fmt.Errorf("malformed backup id %q", id)
	}
	want := id[idx+1:]

	sum := sha256.Sum256(content)
	got := hex.EncodeToString(sum[:])[:len(want)]
	if got != want {
		return fmt.Errorf("backup %q corrupted: hash mismatch (expected %s, got %s)", id, want, got)
	}
	return nil
}

// Prune deletes all but the newest keep backups and returns how many
// were removed. keep <= 0 uses DefaultKeep.
func Prune(keep int) (int, error) {
	return pruneIn(keep, util.BackupsPath())
}

func pruneIn(keep int, dir string) (int, error) {
	if keep <= 0 {
		keep = DefaultKeep
	}

	entries, err := listIn(dir)
	if err != nil {
		return 0, err
	}
	if len(entries) <= keep {
		return 0, nil
	}

	removed := 0
	for _, e := range entries[keep:] {
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to delete backup %q: %w", e.ID, err)
		}
		removed++
	}
	return removed, nil
}
