package cache

import (
	"context"
	"errors"
)

// ErrUnavailable marks transport-level failures of the backing store.
// Callers own retry policy; nothing in this package retries.
var ErrUnavailable = errors.New("cache store unavailable")

// Store is a key/field volatile store with hash-per-entity semantics.
// Keys map to field->string hashes. Operations are atomic per key at the
// store level; multi-field reads racing concurrent single-field writes give
// no cross-field snapshot guarantee.
type Store interface {
	// Exists reports whether any fields are stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// GetField returns the value of a single field. The bool is false when
	// the field (or the whole key) is absent.
	GetField(ctx context.Context, key, field string) (string, bool, error)
	// GetFields bulk-reads the given fields in order. Absent fields are nil
	// entries; the result always has len(fields) entries.
	GetFields(ctx context.Context, key string, fields []string) ([]*string, error)
	// SetFields writes the given field values under key, creating the key if
	// needed and overwriting existing fields.
	SetFields(ctx context.Context, key string, fields map[string]string) error
	// DeleteKey removes the key and all its fields. Deleting a missing key is
	// not an error.
	DeleteKey(ctx context.Context, key string) error
}
