package syncer

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// SyncStats is the externally visible result of one sync pass. The
// reconcile counts are filled sequentially by the engine; the transfer
// counts are incremented concurrently by upload workers.
type SyncStats struct {
	RunID string

	// reconcile phase
	Total         int
	ManifestSkips int
	RemoteSkips   int
	NeedsTransfer int
	Decisions     []SyncDecision

	// transfer phase
	Uploaded      int
	Failed        int
	BytesUploaded int64

	Elapsed time.Duration

	mu sync.Mutex
}

func (s *SyncStats) addUploaded(bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Uploaded++
	s.BytesUploaded += bytes
}

func (s *SyncStats) addFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failed++
}

// ReasonCounts aggregates decisions per reason.
func (s *SyncStats) ReasonCounts() map[Reason]int {
	counts := make(map[Reason]int)
	for _, d := range s.Decisions {
		counts[d.Reason]++
	}
	return counts
}

// Summary renders a human-readable one-pass report.
func (s *SyncStats) Summary() string {
	speed := ""
	if s.BytesUploaded > 0 && s.Elapsed > 0 {
		bps := float64(s.BytesUploaded) / s.Elapsed.Seconds()
		speed = fmt.Sprintf(", %s/s", humanize.Bytes(uint64(bps)))
	}
	return fmt.Sprintf(
		"total %d, skipped %d (manifest %d, remote %d), uploaded %d (%s%s), failed %d in %s",
		s.Total,
		s.ManifestSkips+s.RemoteSkips,
		s.ManifestSkips,
		s.RemoteSkips,
		s.Uploaded,
		humanize.Bytes(uint64(s.BytesUploaded)),
		speed,
		s.Failed,
		s.Elapsed.Round(time.Millisecond),
	)
}
