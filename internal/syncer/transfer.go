package syncer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tdbstream/s3syncer/internal/store"
)

const DefaultWorkers = 4

// TransferError pairs a failed upload with its cause.
type TransferError struct {
	Key string
	Err error
}

// Coordinator executes the planned uploads with a bounded pool of
// workers. Each success records the fresh hash in the manifest; a failure
// leaves the manifest untouched so the file is retried next pass. The
// manifest is persisted exactly once, after all workers have joined.
type Coordinator struct {
	store    store.Store
	manifest *Manifest
	workers  int
}

func NewCoordinator(st store.Store, manifest *Manifest, workers int) *Coordinator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Coordinator{store: st, manifest: manifest, workers: workers}
}

// Run uploads transfers and persists the manifest. The returned slice
// holds per-file failures; the returned error reports a failed persist,
// which does not undo the in-memory results of the pass.
func (c *Coordinator) Run(ctx context.Context, transfers []*LocalFile, stats *SyncStats) ([]TransferError, error) {
	failures := c.uploadAll(ctx, transfers, stats)

	if err := c.manifest.Save(); err != nil {
		return failures, err
	}
	return failures, nil
}

func (c *Coordinator) uploadAll(ctx context.Context, transfers []*LocalFile, stats *SyncStats) []TransferError {
	if len(transfers) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []TransferError
		opsChan  = make(chan *LocalFile, len(transfers))
	)

	upload := func(f *LocalFile) {
		res, err := c.store.PutFile(ctx, f.Key, f.Path)
		if err != nil {
			slog.Error("sync", "op", "upload", "key", f.Key, "error", err)
			stats.addFailed()
			mu.Lock()
			failures = append(failures, TransferError{Key: f.Key, Err: err})
			mu.Unlock()
			return
		}

		slog.Info("sync", "op", "upload", "key", f.Key, "size", res.Size)
		c.manifest.Record(f.Key, f.Path, res.Size, res.ETag)
		stats.addUploaded(res.Size)
	}

	wg.Add(c.workers)
	for i := 0; i < c.workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					// stop dispatching; siblings already in PutFile finish
					// or fail on their own
					return
				case f, ok := <-opsChan:
					if !ok {
						return
					}
					upload(f)
				}
			}
		}()
	}

	for _, f := range transfers {
		opsChan <- f
	}
	close(opsChan)

	wg.Wait()
	return failures
}
