// Package blobstore is the key-value view of blob storage used for OAuth
// state and installation records. A Store is one container; keys are blob
// names and may contain "/".
package blobstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("blobstore: blob not found")

// Store reads and writes whole blobs in one container.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Put creates or overwrites the blob.
	Put(ctx context.Context, key string, value []byte) error
	// Delete returns ErrNotFound when the blob does not exist.
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// TTLStore is implemented by backends that can expire blobs on their own.
type TTLStore interface {
	Store
	PutTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Opener returns the Store for a named container, creating it if needed.
type Opener func(ctx context.Context, container string) (Store, error)
