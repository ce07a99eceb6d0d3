package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.md", "b.MARKDOWN", "c.txt", "sub/d.md", ".git/e.md"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}
	explicit := filepath.Join(dir, "c.txt")

	got, err := Markdown([]string{dir, explicit})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.md"),
		filepath.Join(dir, "b.MARKDOWN"),
		filepath.Join(dir, "sub", "d.md"),
		explicit,
	}, got)
}

func TestScanMissingRoot(t *testing.T) {
	_, err := Markdown([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestScanCustomMatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), nil, 0o600))

	got, err := Scan([]string{dir}, func(path string) bool { return filepath.Ext(path) == ".txt" })
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "notes.txt")}, got)
}

func TestIsMarkdown(t *testing.T) {
	assert.True(t, IsMarkdown("README.md"))
	assert.True(t, IsMarkdown("doc.Markdown"))
	assert.False(t, IsMarkdown("main.go"))
	assert.False(t, IsMarkdown("md"))
}
