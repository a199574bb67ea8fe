package throttle

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestLocalLimiter_BurstThenRefuse(t *testing.T) {
	l := NewLocalLimiter(1, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		release, ok, err := l.Acquire(ctx, "ip:10.0.0.1")
		if err != nil || !ok {
			t.Fatalf("call %d: expected admit, got ok=%v err=%v", i, ok, err)
		}
		release()
	}
	if _, ok, _ := l.Acquire(ctx, "ip:10.0.0.1"); ok {
		t.Fatalf("expected refusal once burst is spent")
	}

	// Other keys have their own bucket.
	if _, ok, _ := l.Acquire(ctx, "ip:10.0.0.2"); !ok {
		t.Fatalf("expected independent bucket per key")
	}

	now = now.Add(time.Second)
	if _, ok, _ := l.Acquire(ctx, "ip:10.0.0.1"); !ok {
		t.Fatalf("expected a token after refill")
	}
}

func TestLocalLimiter_EvictsIdleBuckets(t *testing.T) {
	l := NewLocalLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < sweepEveryN-1; i++ {
		_, _, _ = l.Acquire(ctx, fmt.Sprintf("k%d", i))
	}
	now = now.Add(defaultIdleTTL + time.Second)
	_, _, _ = l.Acquire(ctx, "fresh")

	if got := l.size(); got != 1 {
		t.Fatalf("expected only the fresh bucket to remain, got %d", got)
	}
}

func TestLocalLimiter_CanceledContext(t *testing.T) {
	l := NewLocalLimiter(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok, err := l.Acquire(ctx, "k"); ok || err == nil {
		t.Fatalf("expected error for canceled context")
	}
}
