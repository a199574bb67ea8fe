package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultIdleTTL = 5 * time.Minute
	sweepEveryN    = 256
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// LocalLimiter is an in-process token bucket per key.
type LocalLimiter struct {
	perSecond rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	calls   int
}

func NewLocalLimiter(perSecond float64, burst int) *LocalLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &LocalLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		idleTTL:   defaultIdleTTL,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
	}
}

func (l *LocalLimiter) Acquire(ctx context.Context, key string) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%sweepEveryN == 0 {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.perSecond, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	if !b.lim.AllowN(now, 1) {
		return nil, false, nil
	}
	return noop, true, nil
}

// sweep drops buckets idle for longer than idleTTL. Caller holds mu.
func (l *LocalLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.idleTTL {
			delete(l.buckets, k)
		}
	}
}

func (l *LocalLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
