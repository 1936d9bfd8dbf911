package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ClearDir removes the directory and all contents. It recreates the directory
// afterwards to leave a valid empty cache location.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeByAge removes cache entries older than maxAge. It inspects each
// <key>.summary.json for its created_at timestamp and deletes both the record
// and the paired <key>.html when expired. Markup files left without a record
// are purged by file modification time.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		switch {
		case strings.HasSuffix(name, ".summary.json"):
			b, err := os.ReadFile(path)
			if err != nil {
				return nil // skip unreadable
			}
			var rec Record
			if err := json.Unmarshal(b, &rec); err != nil {
				return nil // skip malformed
			}
			if now.Sub(rec.CreatedAt) <= maxAge {
				return nil
			}
			removed++
			_ = os.Remove(path)
			base := strings.TrimSuffix(path, ".summary.json")
			_ = os.Remove(base + ".html")
		case strings.HasSuffix(name, ".html"):
			// Orphaned markup: expire by mtime when its record is gone
			base := strings.TrimSuffix(path, ".html")
			if _, err := os.Stat(base + ".summary.json"); err == nil {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if now.Sub(info.ModTime().UTC()) <= maxAge {
				return nil
			}
			removed++
			_ = os.Remove(path)
		}
		return nil
	})
	return removed, err
}
