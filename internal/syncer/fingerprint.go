package syncer

import (
	"crypto/md5"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Chunked reads keep memory bounded regardless of file size.
const fingerprintChunkSize = 4 * 1024 * 1024

// FingerprintFile computes the MD5 content hash of the file at path as a
// hex string. MD5 matches the ETag S3 reports for single-part uploads, so
// local and remote hashes are directly comparable.
func FingerprintFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	h := md5.New()
	buf := make([]byte, fingerprintChunkSize)
	if _, err := io.CopyBuffer(h, file, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Fingerprinter hashes local files, short-circuiting through a persistent
// cache keyed by (path, size, mtime). The cache is optional; without one
// every call hashes the file.
type Fingerprinter struct {
	cache *HashCache
}

func NewFingerprinter(cache *HashCache) *Fingerprinter {
	return &Fingerprinter{cache: cache}
}

// Hash returns the content hash of f, consulting the cache first.
func (fp *Fingerprinter) Hash(f *LocalFile) (string, error) {
	if fp.cache != nil {
		if etag, ok := fp.cache.Get(f.Path, f.Size, f.ModTime); ok {
			return etag, nil
		}
	}

	etag, err := FingerprintFile(f.Path)
	if err != nil {
		return "", err
	}

	if fp.cache != nil {
		if err := fp.cache.Put(f.Path, f.Size, f.ModTime, etag); err != nil {
			slog.Warn("hash cache update failed", "path", f.Path, "error", err)
		}
	}
	return etag, nil
}
