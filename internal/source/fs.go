package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Filesystem reads regular files below a root directory in lexical order.
// The root may also be a single file.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) *Filesystem {
	return &Filesystem{root: root}
}

func (f *Filesystem) Root() string {
	return f.root
}

func (f *Filesystem) Walk(ctx context.Context, fn func(Entry) error) error {
	info, err := os.Stat(f.root)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrSourceUnreadable, err)
	}
	if !info.IsDir() {
		return fn(fileEntry(f.root, info))
	}

	return filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == f.root {
				return fmt.Errorf("%w: %v", apperrors.ErrSourceUnreadable, err)
			}
			if cbErr := fn(Entry{ID: path, Open: failing(err)}); cbErr != nil {
				return cbErr
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fn(Entry{ID: path, Open: failing(err)})
		}
		return fn(fileEntry(path, info))
	})
}

func fileEntry(path string, info fs.FileInfo) Entry {
	return Entry{
		ID:       path,
		Modified: info.ModTime(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}
