package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"ai-agenthub-be/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPreviewExtractor(t *testing.T) (*consumerService, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{Uploads: config.UploadConfig{Dir: dir}}
	svc := NewConsumerService(cfg, nil, "file_processing", newFakeFactory(newFakeUnitOfWork()), nil)
	return svc.(*consumerService), dir
}

func TestExtractPreviewText(t *testing.T) {
	cs, dir := newPreviewExtractor(t)

	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("  line one\nline two  "), 0o644))

	preview := cs.extractPreview("txt", "notes.txt", path)
	assert.Equal(t, "line one\nline two", preview)
}

func TestExtractPreviewTruncatesLongText(t *testing.T) {
	cs, dir := newPreviewExtractor(t)

	path := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a", 5000)), 0o644))

	preview := cs.extractPreview("txt", "big.txt", path)
	assert.Len(t, preview, contextPreviewLimit)
}

func TestExtractPreviewKeepsValidUTF8(t *testing.T) {
	cs, dir := newPreviewExtractor(t)

	// Three-byte runes, so the byte cap lands mid-rune.
	content := strings.Repeat("€", contextPreviewLimit)
	path := filepath.Join(dir, "utf8.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	preview := cs.extractPreview("txt", "utf8.txt", path)
	assert.True(t, len(preview) < contextPreviewLimit)
	assert.True(t, strings.HasPrefix(preview, "€"))
	assert.True(t, utf8.ValidString(preview))
}

func TestExtractPreviewNonText(t *testing.T) {
	cs, _ := newPreviewExtractor(t)

	assert.Equal(t, "[attached image: photo.png]", cs.extractPreview("png", "photo.png", "/nowhere"))
	assert.Equal(t, "[attached image: pic.jpeg]", cs.extractPreview("jpeg", "pic.jpeg", "/nowhere"))
	assert.Equal(t, "[attached document: paper.pdf]", cs.extractPreview("pdf", "paper.pdf", "/nowhere"))
	assert.Equal(t, "[attached document: memo.docx]", cs.extractPreview("docx", "memo.docx", "/nowhere"))
}

func TestExtractPreviewMissingFile(t *testing.T) {
	cs, dir := newPreviewExtractor(t)

	preview := cs.extractPreview("txt", "ghost.txt", filepath.Join(dir, "ghost.txt"))
	assert.Equal(t, "[attached file: ghost.txt]", preview)
}
