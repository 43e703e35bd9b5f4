package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tdbstream/s3syncer/internal/store"
)

// InventoryFunc fetches the remote inventory as a key-indexed map. The
// engine calls it at most once per pass, and only when the manifest fast
// path left unresolved candidates.
type InventoryFunc func(ctx context.Context) (map[string]*store.ObjectInfo, error)

// SyncPlan is the output of one reconciliation: every decision plus the
// descriptors that need uploading, in enumeration order.
type SyncPlan struct {
	Decisions []SyncDecision
	Transfers []*LocalFile
	Stats     *SyncStats
}

// Reconciler classifies enumerated local files into skip or transfer
// using a three-phase cascade: manifest fast path, one batched remote
// inventory fetch, then a per-candidate comparison chain ordered so the
// expensive hash comparison runs only when nothing cheaper resolves.
type Reconciler struct {
	manifest *Manifest
	fp       *Fingerprinter
}

func NewReconciler(manifest *Manifest, fp *Fingerprinter) *Reconciler {
	return &Reconciler{manifest: manifest, fp: fp}
}

// Plan reconciles files against the manifest and, if needed, the remote
// inventory. Only a total inventory failure is returned as an error.
func (r *Reconciler) Plan(ctx context.Context, files []*LocalFile, fetchInventory InventoryFunc) (*SyncPlan, error) {
	plan := &SyncPlan{
		Stats: &SyncStats{Total: len(files)},
	}

	// Phase 1: manifest fast path. Resolves the overwhelming majority of
	// files on a repeat pass without any remote calls.
	var candidates []*LocalFile
	for _, f := range files {
		if r.manifestHit(f) {
			plan.record(SyncDecision{Key: f.Key, Outcome: OutcomeSkip, Reason: ReasonManifestHit}, nil)
			plan.Stats.ManifestSkips++
			continue
		}
		candidates = append(candidates, f)
	}

	if len(candidates) == 0 {
		plan.Stats.Decisions = plan.Decisions
		return plan, nil
	}

	// Phase 2: one batched inventory fetch, amortized across all
	// candidates.
	inventory, err := fetchInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch remote inventory: %w", err)
	}

	// Phase 3: per-candidate comparison chain.
	for _, f := range candidates {
		decision, repairETag := r.compare(f, inventory[f.Key])
		plan.record(decision, f)
		if decision.Outcome == OutcomeSkip {
			plan.Stats.RemoteSkips++
			// repair the manifest so phase 1 catches this file next pass
			r.manifest.Record(f.Key, f.Path, f.Size, repairETag)
		} else {
			plan.Stats.NeedsTransfer++
		}
	}

	plan.Stats.Decisions = plan.Decisions
	return plan, nil
}

func (p *SyncPlan) record(d SyncDecision, transfer *LocalFile) {
	p.Decisions = append(p.Decisions, d)
	if d.Outcome == OutcomeTransfer && transfer != nil {
		p.Transfers = append(p.Transfers, transfer)
	}
}

// manifestHit reports whether the manifest already proves f unchanged:
// the entry must match both the current size and the current content
// hash. This is the only phase that reads local file content on the fast
// path, and the hash cache usually reduces it to a lookup.
func (r *Reconciler) manifestHit(f *LocalFile) bool {
	entry, ok := r.manifest.Get(f.Key)
	if !ok || entry.Size != f.Size {
		return false
	}
	etag, err := r.fp.Hash(f)
	if err != nil {
		slog.Warn("fingerprint failed, treating as candidate", "path", f.Path, "error", err)
		return false
	}
	return etag == entry.ETag
}

// compareRule inspects one candidate against its remote counterpart.
// It returns ok=false to pass the candidate to the next rule. localHash
// is lazy so only the last rule pays the hashing cost.
type compareRule func(f *LocalFile, remote *store.ObjectInfo, localHash func() (string, error)) (SyncDecision, string, bool)

// The chain is ordered cheapest-first: size and timestamp comparisons
// avoid hashing whenever they can, while any ambiguity still falls
// through to a transfer, never to a silent skip.
var compareRules = []compareRule{
	ruleNotFound,
	ruleSizeMismatch,
	ruleRemoteTimestamp,
	ruleHashCompare,
}

func (r *Reconciler) compare(f *LocalFile, remote *store.ObjectInfo) (SyncDecision, string) {
	localHash := func() (string, error) { return r.fp.Hash(f) }

	for _, rule := range compareRules {
		if decision, repairETag, ok := rule(f, remote, localHash); ok {
			return decision, repairETag
		}
	}

	// The chain is terminal; reaching here means a rule is missing.
	return SyncDecision{Key: f.Key, Outcome: OutcomeTransfer, Reason: ReasonHashMismatch}, ""
}

func ruleNotFound(f *LocalFile, remote *store.ObjectInfo, _ func() (string, error)) (SyncDecision, string, bool) {
	if remote != nil {
		return SyncDecision{}, "", false
	}
	return SyncDecision{Key: f.Key, Outcome: OutcomeTransfer, Reason: ReasonNotFound}, "", true
}

func ruleSizeMismatch(f *LocalFile, remote *store.ObjectInfo, _ func() (string, error)) (SyncDecision, string, bool) {
	if f.Size == remote.Size {
		return SyncDecision{}, "", false
	}
	return SyncDecision{Key: f.Key, Outcome: OutcomeTransfer, Reason: ReasonSizeMismatch}, "", true
}

// ruleRemoteTimestamp skips files whose sizes match when the remote copy
// is at least as fresh as the local one, without paying a hash cost. This
// trusts the remote clock; a skewed clock can produce a false skip, which
// is accepted as a precision/cost tradeoff.
func ruleRemoteTimestamp(f *LocalFile, remote *store.ObjectInfo, _ func() (string, error)) (SyncDecision, string, bool) {
	if f.ModTime.After(remote.LastModified) {
		return SyncDecision{}, "", false
	}
	return SyncDecision{Key: f.Key, Outcome: OutcomeSkip, Reason: ReasonRemoteTimestampNewer}, remote.ETag, true
}

// ruleHashCompare is the terminal rule. A hash failure resolves to
// transfer: conservative over-transfer is always preferred over the risk
// of skipping a changed file. Multipart-uploaded remote objects carry a
// non-MD5 ETag and land here as a mismatch, which re-uploads them once.
func ruleHashCompare(f *LocalFile, remote *store.ObjectInfo, localHash func() (string, error)) (SyncDecision, string, bool) {
	etag, err := localHash()
	if err != nil {
		slog.Warn("fingerprint failed, transferring", "path", f.Path, "error", err)
		return SyncDecision{Key: f.Key, Outcome: OutcomeTransfer, Reason: ReasonHashMismatch}, "", true
	}
	if etag == remote.ETag {
		return SyncDecision{Key: f.Key, Outcome: OutcomeSkip, Reason: ReasonRemoteHashMatch}, etag, true
	}
	return SyncDecision{Key: f.Key, Outcome: OutcomeTransfer, Reason: ReasonHashMismatch}, "", true
}
