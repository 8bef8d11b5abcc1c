package mediastore_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"appstore/pkg/mediastore"

	"github.com/stretchr/testify/assert"
)

func TestLocalStorage_Upload(t *testing.T) {
	mediaDir := t.TempDir()
	storage, err := mediastore.NewLocalStorage(mediaDir, "https://media.example.com")
	assert.NoError(t, err)

	staged := filepath.Join(t.TempDir(), "thumb.png")
	assert.NoError(t, os.WriteFile(staged, []byte("png-bytes"), 0o644))

	url, err := storage.Upload(staged)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://media.example.com/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	// The stored copy carries the staged content
	name := strings.TrimPrefix(url, "https://media.example.com/")
	content, err := os.ReadFile(filepath.Join(mediaDir, name))
	assert.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), content)
}

func TestLocalStorage_UploadMissingFile(t *testing.T) {
	storage, err := mediastore.NewLocalStorage(t.TempDir(), "/media")
	assert.NoError(t, err)

	_, err = storage.Upload(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.png")
	second := filepath.Join(dir, "b.png")
	assert.NoError(t, os.WriteFile(first, []byte("a"), 0o644))
	assert.NoError(t, os.WriteFile(second, []byte("b"), 0o644))

	// Removes what exists and tolerates blanks and missing paths.
	mediastore.Cleanup(first, "", filepath.Join(dir, "missing.png"), second)

	_, err := os.Stat(first)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(second)
	assert.True(t, os.IsNotExist(err))
}
