package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/rjeczalik/notify"
	"github.com/tdbstream/s3syncer/internal/utils"
	"golang.org/x/sync/errgroup"
)

const (
	watchBufferSize = 64
	// Writes arrive as bursts of events per file; one debounce window
	// coalesces a whole burst into a single follow-up pass.
	watchDebounce = 500 * time.Millisecond
)

// Watch runs an initial pass and then re-runs a pass whenever the source
// tree changes, until ctx is cancelled. Events for ignored paths and for
// the syncer's own state directory are discarded.
func (s *Syncer) Watch(ctx context.Context) error {
	events := make(chan notify.EventInfo, watchBufferSize)
	watchPath := filepath.Join(s.opts.SourceDir, "...")
	if err := notify.Watch(watchPath, events, notify.Write, notify.Create, notify.Rename); err != nil {
		return fmt.Errorf("watch %s: %w", s.opts.SourceDir, err)
	}
	defer notify.Stop(events)

	if _, err := s.RunPass(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("sync pass failed", "error", err)
	}

	slog.Info("watching for changes", "dir", s.opts.SourceDir)

	trigger := make(chan struct{}, 1)
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var timer *time.Timer
		var timerC <-chan time.Time

		for {
			select {
			case <-egCtx.Done():
				if timer != nil {
					timer.Stop()
				}
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if s.shouldIgnoreEvent(ev.Path()) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			case <-timerC:
				timer = nil
				timerC = nil
				select {
				case trigger <- struct{}{}:
				default:
				}
			}
		}
	})

	eg.Go(func() error {
		for {
			select {
			case <-egCtx.Done():
				return nil
			case <-trigger:
				_, err := s.RunPass(egCtx)
				if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrSyncInProgress) {
					slog.Error("sync pass failed", "error", err)
				}
			}
		}
	})

	return eg.Wait()
}

func (s *Syncer) shouldIgnoreEvent(absPath string) bool {
	relPath, err := filepath.Rel(s.opts.SourceDir, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return true
	}
	return s.scanner.ignore.ShouldIgnore(utils.NormPath(relPath))
}
