package seeds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/harvest/internal/common"
)

func writeSeedFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestReadDirParsesPrefixedAndBareURLs(t *testing.T) {
	dir := t.TempDir()
	writeSeedFile(t, dir, "results_cn.txt", `
Title: some result
URL: https://example.com/news/1
random noise line
https://example.com/news/2 (from page 3)
ftp://example.com/ignored
`)

	reader := NewReader("summary.txt", common.GetLogger())
	entries, err := reader.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "https://example.com/news/1", entries[0].URL)
	assert.Equal(t, "results_cn.txt", entries[0].Provenance)
	assert.Equal(t, 3, entries[0].LineNumber)
	assert.Equal(t, "https://example.com/news/2", entries[1].URL)
	assert.Equal(t, 5, entries[1].LineNumber)
}

func TestReadDirAcceptsAnyLabelCasing(t *testing.T) {
	dir := t.TempDir()
	writeSeedFile(t, dir, "mixed.txt", `
url: https://example.com/lower
Url: https://example.com/mixed
URL: https://example.com/upper
`)

	reader := NewReader("summary.txt", common.GetLogger())
	entries, err := reader.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "https://example.com/lower", entries[0].URL)
	assert.Equal(t, "https://example.com/mixed", entries[1].URL)
	assert.Equal(t, "https://example.com/upper", entries[2].URL)
}

func TestReadDirDeduplicatesAcrossTextualForms(t *testing.T) {
	dir := t.TempDir()
	// Same URL with and without a fragment must yield exactly one entry
	writeSeedFile(t, dir, "a.txt", `
URL: https://example.com/article?id=5#section-2
URL: https://example.com/article?id=5
URL: HTTPS://EXAMPLE.COM/article?id=5
`)

	reader := NewReader("summary.txt", common.GetLogger())
	entries, err := reader.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.com/article?id=5", entries[0].URL)
	assert.Equal(t, 2, entries[0].LineNumber)
}

func TestReadDirFirstOccurrenceWinsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeSeedFile(t, dir, "a.txt", "URL: https://example.com/x\n")
	writeSeedFile(t, dir, "b.txt", "URL: https://example.com/x\nURL: https://example.com/y\n")

	reader := NewReader("summary.txt", common.GetLogger())
	entries, err := reader.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Provenance)
	assert.Equal(t, "https://example.com/y", entries[1].URL)
}

func TestReadDirExcludesSummaryFile(t *testing.T) {
	dir := t.TempDir()
	writeSeedFile(t, dir, "summary.txt", "URL: https://example.com/from-summary\n")
	writeSeedFile(t, dir, "results.txt", "URL: https://example.com/kept\n")

	reader := NewReader("summary.txt", common.GetLogger())
	entries, err := reader.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.com/kept", entries[0].URL)
}

func TestReadDirMissingDirectory(t *testing.T) {
	reader := NewReader("summary.txt", common.GetLogger())
	_, err := reader.ReadDir(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
