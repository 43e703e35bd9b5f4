package syncer

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tdbstream/s3syncer/internal/store"
)

// fakeStore implements store.Store in memory. Uploads hash the real file
// content so ETags behave like single-part S3 uploads.
type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]*store.ObjectInfo
	failKeys  map[string]error
	verifyErr error
	listErr   error
	listCalls int
	putCalls  int
	inFlight  int
	maxBusy   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:  make(map[string]*store.ObjectInfo),
		failKeys: make(map[string]error),
	}
}

func (f *fakeStore) VerifyBucket(ctx context.Context) error {
	return f.verifyErr
}

func (f *fakeStore) ListObjects(ctx context.Context, prefix string) ([]*store.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	var objects []*store.ObjectInfo
	for _, obj := range f.objects {
		if prefix == "" || strings.HasPrefix(obj.Key, prefix) {
			objects = append(objects, obj)
		}
	}
	return objects, f.listErr
}

func (f *fakeStore) PutFile(ctx context.Context, key string, localPath string) (*store.PutResult, error) {
	f.mu.Lock()
	f.putCalls++
	f.inFlight++
	if f.inFlight > f.maxBusy {
		f.maxBusy = f.inFlight
	}
	failErr := f.failKeys[key]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if failErr != nil {
		return nil, failErr
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	etag := fmt.Sprintf("%x", md5.Sum(data))

	obj := &store.ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         etag,
		LastModified: time.Now().UTC(),
	}

	f.mu.Lock()
	f.objects[key] = obj
	f.mu.Unlock()

	return &store.PutResult{
		Key:          key,
		Size:         obj.Size,
		ETag:         etag,
		LastModified: obj.LastModified,
	}, nil
}

// addObject seeds a remote object without going through an upload.
func (f *fakeStore) addObject(key, content string, lastModified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = &store.ObjectInfo{
		Key:          key,
		Size:         int64(len(content)),
		ETag:         fmt.Sprintf("%x", md5.Sum([]byte(content))),
		LastModified: lastModified,
	}
}

func writeFile(t *testing.T, dir, relPath, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func localFile(t *testing.T, dir, relPath, content string) *LocalFile {
	t.Helper()
	p := writeFile(t, dir, relPath, content)
	info, err := os.Stat(p)
	require.NoError(t, err)
	return &LocalFile{
		Path:    p,
		Key:     relPath,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

func md5hex(content string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(content)))
}
