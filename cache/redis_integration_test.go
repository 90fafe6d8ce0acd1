package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func redisBackend(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis integration test")
	}
	r := NewRedis(addr, "", 0)
	r.prefix = "oncoannot-test"
	t.Cleanup(func() { _ = r.Close() })
	if err := r.Ping(t.Context()); err != nil {
		t.Fatalf("cannot reach Redis at %s: %v", addr, err)
	}
	return r
}

func TestRedis_LoadSave(t *testing.T) {
	r := redisBackend(t)
	ctx := t.Context()

	key := "getset:" + t.Name()

	// Miss returns false.
	_, ok, err := r.Load(ctx, ProviderCIViC, key)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}

	e := Entry{Provider: ProviderCIViC, Key: key, Timestamp: time.Now().Unix(), Payload: []byte("v1")}
	if err := r.Save(ctx, e, 10*time.Second); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, ok, err := r.Load(ctx, ProviderCIViC, key)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got.Payload) != "v1" || got.Timestamp != e.Timestamp {
		t.Fatalf("got %+v, want %+v", got, e)
	}
}

func TestRedis_StoreSharesEntriesAcrossInstances(t *testing.T) {
	r := redisBackend(t)
	ctx := t.Context()
	key := "shared:" + t.Name()

	a := NewStore(r)
	a.Set(ctx, ProviderClinVar, key, []byte("from-a"))

	b := NewStore(r)
	got, ok := b.Get(ctx, ProviderClinVar, key)
	if !ok {
		t.Fatal("expected second store to see the entry")
	}
	if string(got) != "from-a" {
		t.Fatalf("got %q, want %q", got, "from-a")
	}
}

func TestRedis_UnreachableIsMissThroughStore(t *testing.T) {
	// Connect to a bogus address: the Store must neither panic nor surface errors.
	r := NewRedis("localhost:1", "", 0)
	t.Cleanup(func() { _ = r.Close() })
	s := NewStore(r)

	ctx, cancel := context.WithTimeout(t.Context(), 500*time.Millisecond)
	defer cancel()

	s.Set(ctx, ProviderVEP, "k", []byte("v"))
	if _, ok := s.Get(ctx, ProviderVEP, "no-such-key"); ok {
		t.Fatal("expected miss")
	}
	if err := s.Ping(ctx); err == nil {
		t.Fatal("expected ping to report the unreachable server")
	}
}
