package source

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

// Limited gates an adapter behind a rate limiter shared with every other
// adapter on the same transport.
type Limited struct {
	Adapter
	limiter *rate.Limiter
}

// WithLimiter wraps a with l. A nil limiter returns a unchanged.
func WithLimiter(a Adapter, l *rate.Limiter) Adapter {
	if l == nil {
		return a
	}
	return &Limited{Adapter: a, limiter: l}
}

func (l *Limited) Fetch(ctx context.Context, q Query) (model.SourcePayload, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrapf(err, "%s: rate limit wait", l.ID())
	}
	return l.Adapter.Fetch(ctx, q)
}

// Ready forwards to the wrapped adapter.
func (l *Limited) Ready() error {
	return Ready(l.Adapter)
}

// NewLimiter returns a token bucket for rps/burst, or nil when rps <= 0.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
