package lastfm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// gate is the single admission gate for every outbound Last.fm request.
// The API limit is per-credential, not per-operation, so pagination and
// entity lookups share one gate: a call may start only after minInterval
// has elapsed since the start of the previous call, process-wide.
// Concurrent callers queue on the limiter and are released one at a time.
type gate struct {
	limiter *rate.Limiter
}

// newGate creates a gate enforcing minInterval between call starts.
// A non-positive interval disables spacing entirely (used in tests).
func newGate(minInterval time.Duration) *gate {
	if minInterval <= 0 {
		return &gate{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &gate{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the caller may issue a request, or until ctx is done.
func (g *gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
