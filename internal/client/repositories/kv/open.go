package kv

import (
	"context"
	"fmt"
)

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

type Options struct {
	Backend string
	// Path is the SQLite file (or DSN) or the Badger directory.
	Path string
}

// Open returns the Store selected by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		return OpenSQLite(ctx, opts.Path)
	case BackendBadger:
		return OpenBadger(opts.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, opts.Backend)
	}
}
