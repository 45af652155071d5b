package storage

import (
	"context"
)

// Storage is the durable key/value backend behind the persistence gateway.
// Snapshots are opaque JSON documents; flags are booleans that outlive any
// single adventure.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Snapshot operations. LoadSnapshot returns nil, nil when the key is absent.
	SaveSnapshot(ctx context.Context, key string, data []byte) error
	LoadSnapshot(ctx context.Context, key string) ([]byte, error)
	DeleteSnapshot(ctx context.Context, key string) error

	// Flag operations. GetFlag returns false, nil when the flag was never set.
	SetFlag(ctx context.Context, key string, value bool) error
	GetFlag(ctx context.Context, key string) (bool, error)
}
