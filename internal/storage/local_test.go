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

func newTestLocal(t *testing.T) *LocalStorage {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocalStorage(Config{BasePath: dir, BaseURL: "/files"})
	require.NoError(t, err)
	return s
}

func TestLocalPutAndDelete(t *testing.T) {
	t.Parallel()

	s := newTestLocal(t)

	res, err := s.PutObject(context.Background(), "photo.png", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/files/photo.png", res.URL)

	data, err := os.ReadFile(filepath.Join(s.basePath, "photo.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.DeleteObject(context.Background(), "photo.png", ""))
	_, err = os.Stat(filepath.Join(s.basePath, "photo.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalDelete_MissingFileIsNotAnError(t *testing.T) {
	t.Parallel()

	s := newTestLocal(t)
	assert.NoError(t, s.DeleteObject(context.Background(), "never-existed.png", ""))
}

func TestLocalListObjects(t *testing.T) {
	t.Parallel()

	s := newTestLocal(t)
	_, err := s.PutObject(context.Background(), "a.png", strings.NewReader("a"), 1, "image/png")
	require.NoError(t, err)
	_, err = s.PutObject(context.Background(), "b.pdf", strings.NewReader("b"), 1, "application/pdf")
	require.NoError(t, err)

	objects, err := s.ListObjects(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 2)

	names := []string{objects[0].Name, objects[1].Name}
	assert.Contains(t, names, "a.png")
	assert.Contains(t, names, "b.pdf")
}
