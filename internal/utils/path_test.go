package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := ResolvePath("")
		assert.Error(t, err)
	})

	t.Run("tilde expansion", func(t *testing.T) {
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		resolved, err := ResolvePath("~/data")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "data"), resolved)
	})

	t.Run("relative path becomes absolute", func(t *testing.T) {
		resolved, err := ResolvePath("./some/dir")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(resolved))
	})
}

func TestNormPath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"a/b/c.txt", "a/b/c.txt"},
		{"/a/b/c.txt", "a/b/c.txt"},
		{"a//b/./c.txt", "a/b/c.txt"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormPath(tc.in), "input %q", tc.in)
	}
}

func TestEnsureDirAndExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, FileExists(dir))

	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.True(t, FileExists(file))
	assert.False(t, DirExists(file))

	// idempotent on existing dirs
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureParent(file))
}
