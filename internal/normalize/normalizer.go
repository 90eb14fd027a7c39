package normalize

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Normalizer carries the time source used for the "now" timestamp fallback.
type Normalizer struct {
	clock clockwork.Clock
}

// New returns a Normalizer. A nil clock means the real clock.
func New(clock clockwork.Clock) *Normalizer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Normalizer{clock: clock}
}

func (n *Normalizer) now() time.Time {
	return n.clock.Now().UTC()
}
