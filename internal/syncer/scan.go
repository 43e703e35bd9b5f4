package syncer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/tdbstream/s3syncer/internal/utils"
)

// Scanner enumerates the local tree into LocalFile descriptors. Files and
// directories matching the ignore list are excluded; keys are the
// slash-relative path under rootDir, prepended with prefix.
type Scanner struct {
	rootDir string
	prefix  string
	ignore  *IgnoreList
}

func NewScanner(rootDir, prefix string, ignore *IgnoreList) *Scanner {
	return &Scanner{rootDir: rootDir, prefix: prefix, ignore: ignore}
}

// Scan walks the tree once. An unreadable root is an error; an unreadable
// single file is logged and skipped.
func (s *Scanner) Scan() ([]*LocalFile, error) {
	var files []*LocalFile

	err := filepath.WalkDir(s.rootDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == s.rootDir {
				return fmt.Errorf("walk %s: %w", p, walkErr)
			}
			slog.Warn("scan skipping unreadable entry", "path", p, "error", walkErr)
			return nil
		}

		relPath, err := filepath.Rel(s.rootDir, p)
		if err != nil {
			return fmt.Errorf("rel path for %s: %w", p, err)
		}
		relPath = utils.NormPath(relPath)

		if d.IsDir() {
			if p != s.rootDir && s.ignore.ShouldIgnore(relPath+"/") {
				return fs.SkipDir
			}
			return nil
		}

		if s.ignore.ShouldIgnore(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.Warn("scan failed to stat file", "path", p, "error", err)
			return nil
		}

		files = append(files, &LocalFile{
			Path:    p,
			Key:     s.keyFor(relPath),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local scan failed: %w", err)
	}

	return files, nil
}

func (s *Scanner) keyFor(relPath string) string {
	if s.prefix == "" {
		return relPath
	}
	return path.Join(s.prefix, relPath)
}
