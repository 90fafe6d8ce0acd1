package cache

import (
	"bytes"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// L1 is an in-process front cache backed by ristretto. It holds whole
// entries so the Store can apply its own freshness rule on every hit.
type L1 struct {
	rc *ristretto.Cache[string, Entry]
}

// NewL1 creates a new L1 cache holding at most maxBytes of entries. An
// entry costs its payload plus its identity; entries larger than the whole
// budget are not admitted.
func NewL1(maxBytes int64) (*L1, error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, Entry]{
		// ten counters per expected entry, sized for ~1 KiB payloads
		NumCounters: max(maxBytes/1024*10, 1000),
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &L1{rc: rc}, nil
}

func l1Key(provider, key string) string {
	return provider + "\x00" + key
}

// Get returns a copy of the entry for (provider, key).
func (l *L1) Get(provider, key string) (Entry, bool) {
	e, ok := l.rc.Get(l1Key(provider, key))
	if !ok {
		return Entry{}, false
	}
	e.Payload = bytes.Clone(e.Payload)
	return e, true
}

// Set stores e for at most ttl. Non-positive TTLs are ignored.
func (l *L1) Set(e Entry, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	e.Payload = bytes.Clone(e.Payload)
	l.rc.SetWithTTL(l1Key(e.Provider, e.Key), e, entryCost(e), ttl)
	l.rc.Wait()
}

func entryCost(e Entry) int64 {
	return int64(len(e.Payload) + len(e.Provider) + len(e.Key))
}

// Close stops ristretto's background goroutines.
func (l *L1) Close() {
	l.rc.Close()
}
