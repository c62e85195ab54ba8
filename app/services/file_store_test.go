package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskFileStore_SaveAndRead(t *testing.T) {
	root := t.TempDir()
	store := NewDiskFileStore(root)
	ctx := context.Background()

	path, size, err := store.Save(ctx, "documents", ".PDF", strings.NewReader("%PDF-1.4 body"), 1024)
	require.NoError(t, err)
	assert.Equal(t, int64(13), size)
	assert.True(t, strings.HasPrefix(path, "documents/"))
	assert.True(t, strings.HasSuffix(path, ".pdf"))

	data, err := store.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))

	require.NoError(t, store.Remove(ctx, path))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(path)))
	assert.True(t, os.IsNotExist(err))
}

func TestDiskFileStore_RejectsOversize(t *testing.T) {
	root := t.TempDir()
	store := NewDiskFileStore(root)

	_, _, err := store.Save(context.Background(), "evidence", ".png", bytes.NewReader(make([]byte, 11)), 10)
	assert.ErrorIs(t, err, ErrStoredFileTooLarge)
}

func TestDiskFileStore_RejectsEscapingPaths(t *testing.T) {
	store := NewDiskFileStore(t.TempDir())
	ctx := context.Background()

	for _, p := range []string{"", "../etc/passwd", "/etc/passwd", ".."} {
		_, err := store.Read(ctx, p)
		assert.ErrorIs(t, err, ErrInvalidStoredPath, p)
	}
}
