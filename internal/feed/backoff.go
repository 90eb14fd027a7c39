package feed

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newReconnectBackOff returns the reconnect schedule min(base*2^attempt, maxDelay)
// with no jitter and no elapsed-time limit, so NextBackOff never returns
// backoff.Stop.
func newReconnectBackOff(base, maxDelay time.Duration) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}
