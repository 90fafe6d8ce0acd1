// Package cache provides the persistent TTL cache shared by the provider
// adapters and the local evidence loader. Entries are keyed by
// (provider, key); freshness is decided at read time against a per-provider
// TTL, so stale rows are simply ignored until the next write replaces them.
//
// A [Store] sits on top of a pluggable [Backend] (SQLite by default, Redis
// when several processes share one cache) with an optional in-process [L1]
// front backed by ristretto.
package cache

import (
	"context"
	"time"
)

// Entry is one cached payload. Timestamp is the write time in epoch seconds.
type Entry struct {
	Provider  string `json:"provider"`
	Key       string `json:"key"`
	Timestamp int64  `json:"ts"`
	Payload   []byte `json:"payload"`
}

// Backend is the storage contract behind a [Store]. Implementations report
// errors; the Store is the layer that swallows them.
type Backend interface {
	// Init prepares the storage. It must be idempotent.
	Init(ctx context.Context) error

	// Load returns the entry for (provider, key) regardless of age.
	// The boolean is false when no entry exists.
	Load(ctx context.Context, provider, key string) (Entry, bool, error)

	// Save inserts or replaces the entry for (e.Provider, e.Key). ttl is a
	// hint for backends that can expire data on their own; it never makes an
	// entry live longer than the Store's freshness check allows.
	Save(ctx context.Context, e Entry, ttl time.Duration) error

	Close() error
}

// Pinger is implemented by backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
