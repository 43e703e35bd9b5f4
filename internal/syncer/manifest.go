package syncer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/tdbstream/s3syncer/internal/utils"
)

// StateDirName holds the manifest and hash cache under the source root.
const StateDirName = ".s3syncer"

const (
	manifestVersion  = "1.0"
	ManifestFileName = "manifest.json"
)

// ManifestEntry records the state of one object as last confirmed synced.
// It can go stale if the remote is modified by someone else; the engine
// treats it as a hint, never as remote truth.
type ManifestEntry struct {
	LocalPath string    `json:"local_path"`
	Size      int64     `json:"size"`
	ETag      string    `json:"etag"`
	SyncedAt  time.Time `json:"synced_at"`
}

// Manifest is the persistent record of previously-synced file state,
// keyed by object key. Loading is fail-soft, persisting is atomic.
type Manifest struct {
	Version  string                    `json:"version"`
	LastSync time.Time                 `json:"last_sync"`
	Files    map[string]*ManifestEntry `json:"files"`

	path string
	mu   sync.Mutex
}

// NewManifest returns an empty manifest that will persist to path.
func NewManifest(path string) *Manifest {
	return &Manifest{
		Version: manifestVersion,
		Files:   make(map[string]*ManifestEntry),
		path:    path,
	}
}

// LoadManifest reads the manifest at path. A missing, unreadable or
// version-incompatible file yields an empty manifest: the sync can always
// proceed by rebuilding from remote truth.
func LoadManifest(path string) *Manifest {
	m := NewManifest(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("manifest unreadable, starting empty", "path", path, "error", err)
		}
		return m
	}

	var loaded Manifest
	if err := json.Unmarshal(data, &loaded); err != nil {
		slog.Warn("manifest corrupt, starting empty", "path", path, "error", err)
		return m
	}

	if !versionCompatible(loaded.Version) {
		slog.Warn("manifest version incompatible, starting empty", "path", path, "version", loaded.Version)
		return m
	}

	m.LastSync = loaded.LastSync
	if loaded.Files != nil {
		m.Files = loaded.Files
	}
	return m
}

// versionCompatible accepts any minor bump within the same major version.
func versionCompatible(v string) bool {
	major, _, _ := strings.Cut(v, ".")
	currentMajor, _, _ := strings.Cut(manifestVersion, ".")
	return major == currentMajor
}

// Get returns the entry for key, if present.
func (m *Manifest) Get(key string) (*ManifestEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Files[key]
	return e, ok
}

// Record upserts the entry for key with the current timestamp. Safe for
// concurrent use by transfer workers.
func (m *Manifest) Record(key, localPath string, size int64, etag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[key] = &ManifestEntry{
		LocalPath: localPath,
		Size:      size,
		ETag:      etag,
		SyncedAt:  time.Now().UTC(),
	}
}

// Len returns the number of recorded entries.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Files)
}

// Save writes the whole manifest atomically: marshal to a temp file in the
// same directory, then rename over the previous one. A crash mid-write
// never corrupts the existing manifest. Must not run concurrently with
// Record.
func (m *Manifest) Save() error {
	m.mu.Lock()
	m.Version = manifestVersion
	m.LastSync = time.Now().UTC()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := utils.EnsureParent(m.path); err != nil {
		return fmt.Errorf("manifest dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp manifest: %w", err)
	}

	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
