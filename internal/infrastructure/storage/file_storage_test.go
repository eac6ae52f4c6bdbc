package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_SaveRead(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalFileStorage(dir, zap.NewNop())
	ctx := context.Background()

	t.Run("creates parent directories", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "receipts/ab/abcdef", []byte("receipt")))
		assert.FileExists(t, filepath.Join(dir, "receipts", "ab", "abcdef"))

		got, err := s.Read(ctx, "receipts/ab/abcdef")
		require.NoError(t, err)
		assert.Equal(t, []byte("receipt"), got)
		assert.True(t, s.Exists(ctx, "receipts/ab/abcdef"))
	})

	t.Run("overwrites existing blobs", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "x/file.txt", []byte("original")))
		require.NoError(t, s.Save(ctx, "x/file.txt", []byte("updated")))
		got, _ := os.ReadFile(filepath.Join(dir, "x", "file.txt"))
		assert.Equal(t, []byte("updated"), got)

		entries, err := os.ReadDir(filepath.Join(dir, "x"))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "no temp files are left behind")
	})

	t.Run("missing blob", func(t *testing.T) {
		_, err := s.Read(ctx, "nope")
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.False(t, s.Exists(ctx, "nope"))
	})
}

func TestLocalFileStorage_Delete(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "a.txt", []byte("a")))
	require.NoError(t, s.Delete(ctx, "a.txt"))
	assert.False(t, s.Exists(ctx, "a.txt"))
	assert.NoError(t, s.Delete(ctx, "a.txt"), "deleting twice is fine")
}

func TestLocalFileStorage_RejectsEscapes(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	for _, p := range []string{"../outside", "a/../../outside", ""} {
		assert.Error(t, s.Save(ctx, p, []byte("x")), p)
		_, err := s.Read(ctx, p)
		assert.Error(t, err, p)
		assert.Error(t, s.Delete(ctx, p), p)
	}
}
