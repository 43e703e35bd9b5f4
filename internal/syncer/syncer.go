package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tdbstream/s3syncer/internal/store"
)

var ErrSyncInProgress = errors.New("sync pass already in progress")

// Options configures a Syncer.
type Options struct {
	// SourceDir is the resolved local tree to sync.
	SourceDir string
	// Prefix is prepended to every object key.
	Prefix string
	// Workers bounds upload concurrency.
	Workers int
	// ManifestPath locates the persisted manifest.
	ManifestPath string
	// HashCachePath locates the fingerprint cache; empty disables caching.
	HashCachePath string
	// DryRun reconciles and reports without uploading or persisting.
	DryRun bool
}

// Syncer runs complete sync passes: enumerate, reconcile, transfer,
// persist.
type Syncer struct {
	opts     Options
	store    store.Store
	manifest *Manifest
	fp       *Fingerprinter
	scanner  *Scanner
	cache    *HashCache
	muPass   sync.Mutex
}

// New wires a Syncer against st. The manifest is loaded fail-soft here;
// a broken hash cache only disables caching.
func New(opts Options, st store.Store) *Syncer {
	ignore := NewIgnoreList(opts.SourceDir)
	ignore.Load()

	var cache *HashCache
	if opts.HashCachePath != "" {
		c, err := NewHashCache(opts.HashCachePath)
		if err != nil {
			slog.Warn("hash cache unavailable, hashing without cache", "error", err)
		} else {
			cache = c
		}
	}

	return &Syncer{
		opts:     opts,
		store:    st,
		manifest: LoadManifest(opts.ManifestPath),
		fp:       NewFingerprinter(cache),
		scanner:  NewScanner(opts.SourceDir, opts.Prefix, ignore),
		cache:    cache,
	}
}

func (s *Syncer) Close() error {
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}

// RunPass performs one full sync pass. It returns the pass statistics
// together with any fatal error; per-file upload failures are not fatal
// and are reported through the stats.
func (s *Syncer) RunPass(ctx context.Context) (*SyncStats, error) {
	if !s.muPass.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.muPass.Unlock()

	runID := uuid.NewString()[:8]
	tStart := time.Now()

	if err := s.store.VerifyBucket(ctx); err != nil {
		return nil, err
	}

	tScan := time.Now()
	files, err := s.scanner.Scan()
	if err != nil {
		return nil, err
	}
	scanTook := time.Since(tScan)

	tReconcile := time.Now()
	reconciler := NewReconciler(s.manifest, s.fp)
	plan, err := reconciler.Plan(ctx, files, s.fetchInventory)
	if err != nil {
		return nil, err
	}
	reconcileTook := time.Since(tReconcile)

	stats := plan.Stats
	stats.RunID = runID

	slog.Debug("reconcile done",
		"pass", runID,
		"total", stats.Total,
		"manifestSkips", stats.ManifestSkips,
		"remoteSkips", stats.RemoteSkips,
		"needsTransfer", stats.NeedsTransfer,
		"tsScan", scanTook,
		"tsReconcile", reconcileTook,
	)

	if s.opts.DryRun {
		for _, f := range plan.Transfers {
			slog.Info("would upload", "pass", runID, "key", f.Key, "size", f.Size)
		}
		stats.Elapsed = time.Since(tStart)
		return stats, nil
	}

	coordinator := NewCoordinator(s.store, s.manifest, s.opts.Workers)
	failures, err := coordinator.Run(ctx, plan.Transfers, stats)
	stats.Elapsed = time.Since(tStart)

	for _, f := range failures {
		slog.Warn("upload failed", "pass", runID, "key", f.Key, "error", f.Err)
	}
	if err != nil {
		return stats, fmt.Errorf("persist manifest: %w", err)
	}

	slog.Info("sync pass complete", "pass", runID, "summary", stats.Summary())
	return stats, nil
}

// fetchInventory lists the remote namespace once and merges all pages
// into one map. A partial listing degrades the unlisted keys to absent,
// which over-transfers but never loses data; a listing with no pages at
// all aborts the pass.
func (s *Syncer) fetchInventory(ctx context.Context) (map[string]*store.ObjectInfo, error) {
	objects, err := s.store.ListObjects(ctx, s.opts.Prefix)
	if err != nil {
		if len(objects) == 0 {
			return nil, err
		}
		slog.Warn("partial remote inventory, unlisted keys treated as absent", "listed", len(objects), "error", err)
	}

	inventory := make(map[string]*store.ObjectInfo, len(objects))
	for _, obj := range objects {
		inventory[obj.Key] = obj
	}
	return inventory, nil
}

// Manifest exposes the live manifest, for status reporting.
func (s *Syncer) Manifest() *Manifest {
	return s.manifest
}
