package store

import (
	"context"
	"time"
)

// ObjectInfo describes one remote object as reported by the store.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// PutResult is the store's acknowledgement of a completed upload.
type PutResult struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// Store is the remote object store surface the sync engine depends on.
type Store interface {
	// VerifyBucket checks that the target bucket exists and is reachable
	// with the configured credentials.
	VerifyBucket(ctx context.Context) error

	// ListObjects enumerates all objects under prefix. On a pagination
	// failure it returns the objects collected so far together with the
	// error, so callers can degrade to a partial inventory.
	ListObjects(ctx context.Context, prefix string) ([]*ObjectInfo, error)

	// PutFile uploads the file at localPath under key.
	PutFile(ctx context.Context, key string, localPath string) (*PutResult, error)
}
