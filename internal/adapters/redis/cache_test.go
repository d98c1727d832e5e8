package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	redisad "review_insights/internal/adapters/redis"
	"review_insights/internal/domain"
)

func newCache(t *testing.T) (*miniredis.Miniredis, *redisad.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), redisad.DefaultPrefix)
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestCache_SetGetDel(t *testing.T) {
	ctx := context.Background()
	mr, c := newCache(t)
	if err := c.Ping(ctx); err != nil {
		t.Fatal(err)
	}

	var dst []domain.KV
	if ok, err := c.Get(ctx, "versions:zoom", &dst); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	in := []domain.KV{{Key: "5.9.1", Count: 3}, {Key: "unknown", Count: 1}}
	if err := c.Set(ctx, "versions:zoom", in, 60); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("reviews:versions:zoom") {
		t.Fatalf("key not prefixed: %v", mr.Keys())
	}
	if ttl := mr.TTL("reviews:versions:zoom"); ttl != time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	ok, err := c.Get(ctx, "versions:zoom", &dst)
	if !ok || err != nil || len(dst) != 2 || dst[0] != in[0] {
		t.Fatalf("hit: ok=%v err=%v dst=%+v", ok, err, dst)
	}

	if err := c.Del(ctx, "versions:zoom"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.Get(ctx, "versions:zoom", &dst); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestCache_ExpiresAndIgnoresBadPayload(t *testing.T) {
	ctx := context.Background()
	mr, c := newCache(t)

	if err := c.Set(ctx, "apps", []string{"Zoom"}, 1); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Second)
	var apps []string
	if ok, _ := c.Get(ctx, "apps", &apps); ok {
		t.Fatalf("expected expiry")
	}

	if err := mr.Set("reviews:insights:zoom", "not json"); err != nil {
		t.Fatal(err)
	}
	var in domain.Insights
	if ok, err := c.Get(ctx, "insights:zoom", &in); ok || err != nil {
		t.Fatalf("bad payload should be a miss: ok=%v err=%v", ok, err)
	}
}

func TestCache_ServerDown(t *testing.T) {
	mr, c := newCache(t)
	mr.Close()
	var v any
	if _, err := c.Get(context.Background(), "apps", &v); err == nil {
		t.Fatalf("expected error when redis is unreachable")
	}
}
