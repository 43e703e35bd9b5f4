package syncer

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tdbstream/s3syncer/internal/db"
)

const hashCacheSchema = `
CREATE TABLE IF NOT EXISTS hash_cache (
    path TEXT PRIMARY KEY,
    size INTEGER NOT NULL,
    mtime_ns INTEGER NOT NULL,
    etag TEXT NOT NULL
);
`

// HashCache persists content hashes keyed by local path so that repeat
// passes don't rehash files whose size and mtime are unchanged. It is a
// pure performance aid: deleting the database only costs rehashing.
type HashCache struct {
	db *sqlx.DB
}

type hashCacheRow struct {
	Path    string `db:"path"`
	Size    int64  `db:"size"`
	MtimeNs int64  `db:"mtime_ns"`
	ETag    string `db:"etag"`
}

// NewHashCache opens (or creates) the cache database at dbPath.
func NewHashCache(dbPath string) (*HashCache, error) {
	sqldb, err := db.NewSqliteDB(db.WithPath(dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return nil, fmt.Errorf("open hash cache: %w", err)
	}
	if _, err := sqldb.Exec(hashCacheSchema); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("init hash cache schema: %w", err)
	}
	return &HashCache{db: sqldb}, nil
}

// Get returns the cached hash for path if size and mtime still match.
func (c *HashCache) Get(path string, size int64, mtime time.Time) (string, bool) {
	var row hashCacheRow
	err := c.db.Get(&row, "SELECT path, size, mtime_ns, etag FROM hash_cache WHERE path = ?", path)
	if err != nil {
		// cache trouble is just a miss
		return "", false
	}
	if row.Size != size || row.MtimeNs != mtime.UnixNano() {
		return "", false
	}
	return row.ETag, true
}

// Put upserts the hash for path.
func (c *HashCache) Put(path string, size int64, mtime time.Time, etag string) error {
	row := hashCacheRow{
		Path:    path,
		Size:    size,
		MtimeNs: mtime.UnixNano(),
		ETag:    etag,
	}
	_, err := c.db.NamedExec(`INSERT OR REPLACE INTO hash_cache (path, size, mtime_ns, etag)
	          VALUES (:path, :size, :mtime_ns, :etag)`, row)
	if err != nil {
		return fmt.Errorf("cache hash for %s: %w", path, err)
	}
	return nil
}

func (c *HashCache) Close() error {
	return c.db.Close()
}
