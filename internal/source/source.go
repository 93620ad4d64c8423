// Package source enumerates the documents a build ingests. A Source yields
// entries in a stable order; each entry carries an id, a modification time
// and a lazily opened byte stream.
package source

import (
	"context"
	"io"
	"time"
)

// Entry is one candidate document. Open may fail for a single member without
// failing the walk.
type Entry struct {
	ID       string
	Modified time.Time
	Open     func() (io.ReadCloser, error)
}

// Source walks a document collection. Walk returns an error wrapping
// ErrSourceUnreadable when the collection itself cannot be read, and stops
// early with fn's error if fn returns one.
type Source interface {
	Walk(ctx context.Context, fn func(Entry) error) error
}

func failing(err error) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return nil, err }
}
