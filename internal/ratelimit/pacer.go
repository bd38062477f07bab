package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces logical units of outbound work by a fixed interval. It is a
// cooperative limiter: callers Wait between units, they are not gated per
// request. Because Wait runs after each unit, the pause applies from the
// very first call; consecutive units always start at least one interval
// apart.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a Pacer with the given inter-unit interval.
// An interval <= 0 disables pacing entirely, which keeps tests fast.
func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	lim := rate.NewLimiter(rate.Every(interval), 1)
	// Burn the initial burst token: the first unit of work needs no pause
	// before it, but the Wait that follows it must pay the full interval.
	lim.Allow()
	return &Pacer{limiter: lim}
}

// Wait blocks until the next unit of work may proceed.
// It returns an error only if the context is canceled first.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
