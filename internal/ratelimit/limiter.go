package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a process-wide token bucket shared by every range worker.
// Capacity equals one second of the configured rate, so idle periods never
// bank more than one second of burst. A nil or zero-limit Limiter never
// blocks.
type Limiter struct {
	limiter *rate.Limiter
	limit   int64
}

// New returns a limiter for bytesPerSec; values <= 0 mean unbounded.
func New(bytesPerSec int64) *Limiter {
	if bytesPerSec <= 0 {
		return &Limiter{}
	}
	burst := int(bytesPerSec)
	l := rate.NewLimiter(rate.Limit(bytesPerSec), burst)
	// start with an empty bucket so the first second is not a free burst
	l.AllowN(time.Now(), burst)
	return &Limiter{limiter: l, limit: bytesPerSec}
}

// Acquire blocks until n bytes of budget are available and debits them.
// Requests larger than the bucket are split so they wait for refills.
func (l *Limiter) Acquire(ctx context.Context, n int) error {
	if l == nil || l.limiter == nil || n <= 0 {
		return nil
	}
	burst := l.limiter.Burst()
	for n > 0 {
		take := min(n, burst)
		if err := l.limiter.WaitN(ctx, take); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		n -= take
	}
	return nil
}

// Limit reports the configured ceiling in bytes/sec, 0 when unbounded.
func (l *Limiter) Limit() int64 {
	if l == nil {
		return 0
	}
	return l.limit
}
