package shared

import "context"

// --- Persistence Interfaces ---

// Database is the narrow persistence surface the pipeline is allowed to
// depend on: a station key-existence oracle plus user/api-key resolution.
type Database interface {
	// KnownStationKeys returns the subset of keys that already exist in the
	// given (technology, shard) partition. One batched read per call.
	KnownStationKeys(ctx context.Context, technology, shard string, keys []string) ([]string, error)

	// GetUserByNickname returns nil without error when no user matches.
	GetUserByNickname(ctx context.Context, nickname string) (*User, error)
	CreateUser(ctx context.Context, nickname string) (*User, error)

	// GetAPIKey returns nil without error for unknown keys.
	GetAPIKey(ctx context.Context, key string) (*APIKey, error)
}

// --- Messaging Interfaces ---

type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte) (string, error)
}

// --- Metrics Interfaces ---

// StatsClient emits tagged counters. Implementations must be safe to call
// with a zero value count guard left to the caller.
type StatsClient interface {
	Count(name string, value int64, tags ...string)
	Close() error
}

// --- Storage Interfaces ---

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}
