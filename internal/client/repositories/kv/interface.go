package kv

import (
	"context"
	"errors"
)

// Keys used by the client.
const (
	KeyUser    = "ciq_user"
	KeyHistory = "ciq_history"
)

var ErrUnsupportedBackend = errors.New("unsupported local store backend")

// Store is the local durable key-value store.
//
// Get returns (nil, nil) for a missing key. Delete is idempotent and removes
// all given keys atomically.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
