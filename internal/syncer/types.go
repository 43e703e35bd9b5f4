package syncer

import "time"

// LocalFile describes one enumerated local file. The content hash is
// deliberately not part of it: hashing is deferred until a comparison
// actually needs it.
type LocalFile struct {
	// Path is the absolute filesystem path.
	Path string
	// Key is the object key the file syncs to (prefix + slash-relative path).
	Key string
	// Size in bytes.
	Size int64
	// ModTime is the local modification time.
	ModTime time.Time
}

// Outcome is the result of reconciling one file.
type Outcome string

const (
	OutcomeSkip     Outcome = "Skip"
	OutcomeTransfer Outcome = "Transfer"
)

// Reason explains why a file received its outcome.
type Reason string

const (
	// ReasonManifestHit: manifest entry matched local size and hash.
	ReasonManifestHit Reason = "ManifestHit"
	// ReasonNotFound: key absent from the remote inventory.
	ReasonNotFound Reason = "NotFound"
	// ReasonSizeMismatch: local and remote sizes differ.
	ReasonSizeMismatch Reason = "SizeMismatch"
	// ReasonRemoteTimestampNewer: sizes match and the remote copy is at
	// least as fresh as the local file.
	ReasonRemoteTimestampNewer Reason = "RemoteTimestampNewer"
	// ReasonRemoteHashMatch: local content hash equals the remote ETag.
	ReasonRemoteHashMatch Reason = "RemoteHashMatch"
	// ReasonHashMismatch: local content hash differs from the remote ETag,
	// or the local file could not be hashed.
	ReasonHashMismatch Reason = "HashMismatch"
)

// SyncDecision is the per-file output of the reconciliation engine.
type SyncDecision struct {
	Key     string
	Outcome Outcome
	Reason  Reason
}
