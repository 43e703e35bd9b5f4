package syncer

import (
	"crypto/md5"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintFile_KnownDigest(t *testing.T) {
	p := writeFile(t, t.TempDir(), "hello.txt", "Hello, World!")

	etag, err := FingerprintFile(p)
	require.NoError(t, err)
	assert.Equal(t, "65a8e27d8879283831b664bd8b7f0ad4", etag)
	assert.Len(t, etag, 32)
}

func TestFingerprintFile_LargerThanChunk(t *testing.T) {
	// spans two read chunks
	data := make([]byte, fingerprintChunkSize+1024)
	_, err := rand.Read(data)
	require.NoError(t, err)

	p := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(p, data, 0o644))

	etag, err := FingerprintFile(p)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%x", md5.Sum(data)), etag)
}

func TestFingerprintFile_MissingFile(t *testing.T) {
	_, err := FingerprintFile(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestFingerprinter_UsesCache(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewHashCache(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	fp := NewFingerprinter(cache)
	f := localFile(t, dir, "a.txt", "content-a")

	etag, err := fp.Hash(f)
	require.NoError(t, err)
	assert.Equal(t, md5hex("content-a"), etag)

	// second call is served from the cache even if the file vanishes
	require.NoError(t, os.Remove(f.Path))
	etag2, err := fp.Hash(f)
	require.NoError(t, err)
	assert.Equal(t, etag, etag2)
}

func TestFingerprinter_CacheInvalidatedByMtime(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewHashCache(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	fp := NewFingerprinter(cache)
	f := localFile(t, dir, "a.txt", "before!!!")

	_, err = fp.Hash(f)
	require.NoError(t, err)

	// same size, new mtime and content
	require.NoError(t, os.WriteFile(f.Path, []byte("after!!!!"), 0o644))
	require.NoError(t, os.Chtimes(f.Path, time.Now(), f.ModTime.Add(2*time.Second)))
	info, err := os.Stat(f.Path)
	require.NoError(t, err)
	f.ModTime = info.ModTime()

	etag, err := fp.Hash(f)
	require.NoError(t, err)
	assert.Equal(t, md5hex("after!!!!"), etag)
}

func TestFingerprinter_NoCache(t *testing.T) {
	fp := NewFingerprinter(nil)
	f := localFile(t, t.TempDir(), "a.txt", "plain")

	etag, err := fp.Hash(f)
	require.NoError(t, err)
	assert.Equal(t, md5hex("plain"), etag)
}
