package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutWritesObject(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "https://files.example.com/")
	require.NoError(t, err)

	key := "user-1/diploma_1.pdf"
	require.NoError(t, store.Put(context.Background(), key, strings.NewReader("content")))

	raw, err := os.ReadFile(filepath.Join(dir, "user-1", "diploma_1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(raw))

	assert.Equal(t, "https://files.example.com/user-1/diploma_1.pdf", store.URL(key))
}

func TestLocalStore_DeleteRemovesObject(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/files")
	require.NoError(t, err)

	key := "user-1/photo_1.png"
	require.NoError(t, store.Put(context.Background(), key, strings.NewReader("png")))
	require.NoError(t, store.Delete(context.Background(), key))

	_, statErr := os.Stat(filepath.Join(dir, "user-1", "photo_1.png"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalStore_DeleteMissingKeyIsNoError(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/files")
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "user-1/ghost.pdf"))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "objects"), "/files")
	require.NoError(t, err)

	err = store.Put(context.Background(), "../escape.txt", strings.NewReader("x"))
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
}
