// Package credentials persists the console session (access token, refresh
// token, serialized user) as opaque key/value entries.
//
// Two backends are provided: SQLiteRepository (a table managed by goose
// migrations) and DiskvRepository (one file per key under a directory).
package credentials

import (
	"context"
)

// Repository is a durable key/value store.
//
// Get returns (nil, nil) when the key is absent. Delete of an absent key
// is not an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetAll writes every entry; backends that support it do so atomically.
	SetAll(ctx context.Context, entries map[string][]byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
