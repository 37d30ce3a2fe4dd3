package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iho/captable/internal/usecase"
)

func TestCacheSetAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "captable:summary:acme", []byte(`{"total_equity":"100"}`), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := cache.Get(ctx, "captable:summary:acme")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if string(val) != `{"total_equity":"100"}` {
		t.Fatalf("unexpected value %s", val)
	}

	if !mr.Exists("cache:captable:summary:acme") {
		t.Fatalf("expected key to be stored under the cache prefix")
	}
}

func TestCacheGetMissReturnsErrCacheMiss(t *testing.T) {
	client, _ := newTestRedisClient(t)

	_, err := NewCache(client).Get(context.Background(), "absent")
	if !errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestCacheEntriesExpire(t *testing.T) {
	client, mr := newTestRedisClient(t)

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "short", []byte("v"), time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, err := cache.Get(ctx, "short"); !errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected expired key to miss, got %v", err)
	}
}

func TestCacheDelete(t *testing.T) {
	client, _ := newTestRedisClient(t)

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "foo", []byte("bar"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := cache.Delete(ctx, "foo"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := cache.Get(ctx, "foo"); !errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}

	if err := cache.Delete(ctx, "foo"); err != nil {
		t.Fatalf("deleting a missing key should succeed: %v", err)
	}
}

func TestCacheGetPropagatesConnectionErrors(t *testing.T) {
	client, mr := newTestRedisClient(t)

	mr.Close()

	_, err := NewCache(client).Get(context.Background(), "foo")
	if err == nil || errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected connection error, got %v", err)
	}
}
