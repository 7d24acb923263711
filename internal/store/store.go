// Package store provides the durable per-device key-value storage and the
// draft cache built on top of it.
package store

import (
	"context"
	"errors"
)

// ErrStorageFull is returned by Set when the value budget is exhausted.
var ErrStorageFull = errors.New("storage quota exceeded")

// KV is a string keyed, string valued durable store.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Entry is a raw key-value pair.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
