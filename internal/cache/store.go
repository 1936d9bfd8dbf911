package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Record is the persisted summary document for one URL.
type Record struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	FetchMode  string    `json:"fetch_mode"`
	Model      string    `json:"model"`
	ElapsedSec float64   `json:"elapsed_sec"`
	Bullets    []string  `json:"bullets"`
	TLDR       string    `json:"tl_dr"`
	CreatedAt  time.Time `json:"created_at"`
}

// Entry pairs the raw fetched markup with its summary record.
type Entry struct {
	Key     string
	RawHTML []byte
	Record  Record
}

// Error reports a cache I/O failure. Callers treat it as non-fatal and fall
// back to the in-memory store for the rest of the run.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store is the persistence contract shared by the disk and memory backends.
type Store interface {
	Get(ctx context.Context, url string) (*Entry, bool, error)
	Put(ctx context.Context, url string, rawHTML []byte, rec Record) error
}

// Key derives the deterministic cache key for a URL.
func Key(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

// DiskStore persists entries as <key>.html and <key>.summary.json under Dir,
// where key is sha256(url). Deterministic and collision-resistant; no
// eviction policy beyond the explicit clear and age purge helpers.
type DiskStore struct {
	Dir string
	// StrictPerms, when true, enforces 0700 on the cache directory and 0600
	// on files to provide at-rest protection via restricted permissions.
	StrictPerms bool
}

func (s *DiskStore) ensureDir() error {
	if s == nil || s.Dir == "" {
		return errors.New("cache dir not configured")
	}
	perm := os.FileMode(0o755)
	if s.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(s.Dir, perm); err != nil {
		return err
	}
	// If the directory already existed and StrictPerms is on, tighten perms
	if s.StrictPerms {
		if info, err := os.Stat(s.Dir); err == nil {
			if info.Mode()&0o777 != 0o700 {
				_ = os.Chmod(s.Dir, 0o700)
			}
		}
	}
	return nil
}

func (s *DiskStore) htmlPath(key string) string    { return filepath.Join(s.Dir, key+".html") }
func (s *DiskStore) summaryPath(key string) string { return filepath.Join(s.Dir, key+".summary.json") }

// SummaryPath returns where the summary record for url lives on disk.
func (s *DiskStore) SummaryPath(url string) string {
	return s.summaryPath(Key(url))
}

// Get returns the entry for url. An entry counts as present only when both
// the markup file and the summary record exist and the record decodes;
// partial or corrupt state reads as a miss so the caller re-fetches.
func (s *DiskStore) Get(_ context.Context, url string) (*Entry, bool, error) {
	if err := s.ensureDir(); err != nil {
		return nil, false, &Error{Op: "open", Path: s.Dir, Err: err}
	}
	key := Key(url)
	raw, err := os.ReadFile(s.htmlPath(key))
	if err != nil {
		return nil, false, nil
	}
	b, err := os.ReadFile(s.summaryPath(key))
	if err != nil {
		return nil, false, nil
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, false, nil
	}
	return &Entry{Key: key, RawHTML: raw, Record: rec}, true, nil
}

// Put writes the markup file, then the summary record atomically via a temp
// file and rename so readers never observe a half-written record.
func (s *DiskStore) Put(_ context.Context, url string, rawHTML []byte, rec Record) error {
	if err := s.ensureDir(); err != nil {
		return &Error{Op: "mkdir", Path: s.Dir, Err: err}
	}
	key := Key(url)
	mode := os.FileMode(0o644)
	if s.StrictPerms {
		mode = 0o600
	}
	if err := os.WriteFile(s.htmlPath(key), rawHTML, mode); err != nil {
		return &Error{Op: "write", Path: s.htmlPath(key), Err: err}
	}
	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return &Error{Op: "encode", Path: s.summaryPath(key), Err: err}
	}
	tmp := s.summaryPath(key) + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return &Error{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, s.summaryPath(key)); err != nil {
		return &Error{Op: "rename", Path: s.summaryPath(key), Err: err}
	}
	return nil
}

// MemoryStore holds entries in process memory. It backs the degraded mode
// used when the disk cache is unusable; entries live only for this run.
type MemoryStore struct {
	c *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, 0)}
}

func (s *MemoryStore) Get(_ context.Context, url string) (*Entry, bool, error) {
	v, ok := s.c.Get(Key(url))
	if !ok {
		return nil, false, nil
	}
	e, ok := v.(*Entry)
	if !ok {
		return nil, false, nil
	}
	return e, true, nil
}

func (s *MemoryStore) Put(_ context.Context, url string, rawHTML []byte, rec Record) error {
	key := Key(url)
	s.c.Set(key, &Entry{Key: key, RawHTML: rawHTML, Record: rec}, gocache.DefaultExpiration)
	return nil
}
