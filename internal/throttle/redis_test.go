package throttle

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"profile-api/pkg/utils"
)

func TestNewRedisLimiter_Validation(t *testing.T) {
	if _, err := NewRedisLimiter(nil, "p:", 1, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

// Runs against a live Redis when REDIS_TEST_ADDR is set.
func TestRedisLimiter_CapsConcurrency(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: addr})
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	defer rdb.Close()

	l, err := NewRedisLimiter(rdb, fmt.Sprintf("test:%d:", time.Now().UnixNano()), 2, 10*time.Second)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	r1, ok, err := l.Acquire(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	r2, ok, err := l.Acquire(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("second acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, err := l.Acquire(ctx, "k"); err != nil || ok {
		t.Fatalf("third acquire must be refused: ok=%v err=%v", ok, err)
	}

	r1()
	r3, ok, err := l.Acquire(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
	r2()
	r3()
}
