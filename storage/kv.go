package storage

import (
	"context"
	"errors"
)

// Storage keys used across the app. Values are JSON-serialized; readers must
// tolerate missing or malformed entries.
const (
	CartKeyPrefix    = "pizza-cart-v2:"
	DraftKeyPrefix   = "checkout-draft:"
	PrefsKeyPrefix   = "employee-prefs:"
	OfflineOrdersKey = "offline-orders"
)

// ErrNotFound is returned when a key holds no value. Callers treat it as an
// empty/default value, never as a failure.
var ErrNotFound = errors.New("storage: key not found")

// KV is a durable key-value store for JSON blobs. Backed by Redis in
// production and an in-memory map in tests.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
