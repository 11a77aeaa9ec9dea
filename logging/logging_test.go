package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriter_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawler.log")
	w, err := NewRotatingWriter(path, 64)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte(strings.Repeat("a", 70)))
	require.NoError(t, err)
	_, err = w.Write([]byte("fresh\n"))
	require.NoError(t, err)

	backup, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Len(t, backup, 70)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", string(current))
}

func TestRotatingWriter_TruncatesOversizedOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawler.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 100)), 0o644))

	w, err := NewRotatingWriter(path, 64)
	require.NoError(t, err)
	defer w.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestSetup_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawler.log")
	w, err := Setup(path, "debug")
	require.NoError(t, err)
	defer w.Close()

	lg := For("test")
	lg.Info().Str("target", "shibuya").Msg("crawl started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "crawl started")
	assert.Contains(t, string(data), "component=test")
}
