package syncer

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/tdbstream/s3syncer/internal/utils"
)

// IgnoreFileName is an optional per-tree rules file in gitignore syntax.
const IgnoreFileName = ".syncignore"

var defaultIgnoreLines = []string{
	// own state
	StateDirName + "/",
	IgnoreFileName,
	// VCS and env
	".git/",
	".venv/",
	".env",
	// python
	"__pycache__/",
	".pytest_cache/",
	"*.py[cod]",
	// node
	"node_modules/",
	// build artifacts
	"*.so",
	"*.o",
	"*.a",
	// OS-specific
	".DS_Store",
}

// IgnoreList decides which local paths are excluded from syncing.
type IgnoreList struct {
	baseDir string
	ignore  *gitignore.GitIgnore
}

func NewIgnoreList(baseDir string) *IgnoreList {
	return &IgnoreList{baseDir: baseDir}
}

// Load compiles the default rules plus any rules found in the tree's
// .syncignore file.
func (s *IgnoreList) Load() {
	ignorePath := filepath.Join(s.baseDir, IgnoreFileName)
	ignoreLines := defaultIgnoreLines

	if utils.FileExists(ignorePath) {
		file, err := os.Open(ignorePath)
		if err != nil {
			slog.Warn("failed to open ignore file", "path", ignorePath, "error", err)
		} else {
			defer file.Close()
			rules := 0
			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				line := scanner.Text()
				if line != "" {
					ignoreLines = append(ignoreLines, line)
					rules++
				}
			}
			if err := scanner.Err(); err != nil {
				slog.Warn("error reading ignore file", "path", ignorePath, "error", err)
			} else {
				slog.Info("loaded ignore file", "path", ignorePath, "rules", rules)
			}
		}
	}

	s.ignore = gitignore.CompileIgnoreLines(ignoreLines...)
}

// ShouldIgnore matches a slash-relative path against the rules.
func (s *IgnoreList) ShouldIgnore(relPath string) bool {
	if s.ignore == nil {
		return false
	}
	return s.ignore.MatchesPath(relPath)
}
