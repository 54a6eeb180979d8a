package scraper

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out requests to the site: at most one per delay, plus a
// random jitter on top so the cadence is not perfectly regular.
type Pacer struct {
	limiter *rate.Limiter
	jitter  time.Duration
}

func NewPacer(delay, jitter time.Duration) *Pacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Pacer{
		limiter: rate.NewLimiter(limit, 1),
		jitter:  jitter,
	}
}

// Wait blocks until the next request may go out or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	if p.jitter <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(time.Duration(rand.Int63n(int64(p.jitter))))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
