package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func collect(t *testing.T, src Source) ([]string, map[string]string) {
	t.Helper()
	var ids []string
	bodies := map[string]string{}
	err := src.Walk(context.Background(), func(e Entry) error {
		ids = append(ids, e.ID)
		rc, err := e.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		bodies[e.ID] = string(data)
		return nil
	})
	require.NoError(t, err)
	return ids, bodies
}

func TestFilesystemWalksLexically(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "bee")
	writeFile(t, filepath.Join(root, "a", "z.txt"), "zed")
	writeFile(t, filepath.Join(root, "a.txt"), "ay")

	ids, bodies := collect(t, NewFilesystem(root))
	assert.Equal(t, []string{
		filepath.Join(root, "a", "z.txt"),
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.txt"),
	}, ids)
	assert.Equal(t, "zed", bodies[filepath.Join(root, "a", "z.txt")])
}

func TestFilesystemSingleFileRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "only.txt")
	writeFile(t, path, "single")

	ids, bodies := collect(t, NewFilesystem(path))
	assert.Equal(t, []string{path}, ids)
	assert.Equal(t, "single", bodies[path])
}

func TestFilesystemMissingRoot(t *testing.T) {
	src := NewFilesystem(filepath.Join(t.TempDir(), "missing"))
	err := src.Walk(context.Background(), func(Entry) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrSourceUnreadable)
}

func TestFilesystemCallbackErrorStops(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "1.txt"), "one")
	writeFile(t, filepath.Join(root, "2.txt"), "two")

	stop := errors.New("stop")
	calls := 0
	err := NewFilesystem(root).Walk(context.Background(), func(Entry) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestFilesystemCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "1.txt"), "one")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewFilesystem(root).Walk(ctx, func(Entry) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
