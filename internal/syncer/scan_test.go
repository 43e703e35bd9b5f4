package syncer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanKeys(files []*LocalFile) []string {
	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, f.Key)
	}
	return keys
}

func TestScanner_Basic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.json", `{"books": []}`)
	writeFile(t, dir, "translations/en/genesis.json", "{}")
	writeFile(t, dir, "translations/fr/genesis.json", "{}")

	ignore := NewIgnoreList(dir)
	ignore.Load()

	files, err := NewScanner(dir, "", ignore).Scan()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"index.json",
		"translations/en/genesis.json",
		"translations/fr/genesis.json",
	}, scanKeys(files))

	for _, f := range files {
		assert.True(t, filepath.IsAbs(f.Path))
		assert.Positive(t, f.Size)
		assert.False(t, f.ModTime.IsZero())
	}
}

func TestScanner_Prefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a")

	ignore := NewIgnoreList(dir)
	ignore.Load()

	files, err := NewScanner(dir, "backups/db", ignore).Scan()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "backups/db/a.txt", files[0].Key)
}

func TestScanner_IgnoresExcludedTrees(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.txt", "k")
	writeFile(t, dir, ".git/HEAD", "ref")
	writeFile(t, dir, "__pycache__/mod.pyc", "x")
	writeFile(t, dir, "code/script.pyc", "x")
	writeFile(t, dir, StateDirName+"/manifest.json", "{}")

	ignore := NewIgnoreList(dir)
	ignore.Load()

	files, err := NewScanner(dir, "", ignore).Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, scanKeys(files))
}

func TestScanner_MissingRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	ignore := NewIgnoreList(dir)
	ignore.Load()

	_, err := NewScanner(dir, "", ignore).Scan()
	assert.Error(t, err)
}
