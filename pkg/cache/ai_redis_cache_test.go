package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, "test:"), mr
}

func TestRedisCache_JSONRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	want := []float32{0.25, -0.5, 1}
	if err := c.SetJSON(ctx, "vec", want, time.Hour); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:vec") {
		t.Fatal("key should be stored with the prefix")
	}

	var got []float32
	found, err := c.GetJSON(ctx, "vec", &got)
	if err != nil || !found {
		t.Fatalf("GetJSON = %v, %v", found, err)
	}
	if len(got) != 3 || got[1] != -0.5 {
		t.Errorf("got %v", got)
	}
}

func TestRedisCache_MissAndExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var v []float32
	if found, err := c.GetJSON(ctx, "missing", &v); found || err != nil {
		t.Errorf("miss = %v, %v", found, err)
	}

	if err := c.SetJSON(ctx, "short", []float32{1}, time.Minute); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)
	if found, _ := c.GetJSON(ctx, "short", &v); found {
		t.Error("entry should have expired")
	}
}

func TestRedisCache_Ping(t *testing.T) {
	c, mr := newTestCache(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	mr.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Error("ping should fail after the server stops")
	}
}
