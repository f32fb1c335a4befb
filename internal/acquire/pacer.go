package acquire

import (
	"context"
	"math/rand"
	"time"
)

// Pacer inserts pauses between pipeline stages. Targets penalize inhumanly
// fast form interaction, so production runs use HumanPacer; tests use
// NopPacer.
type Pacer interface {
	Pause(ctx context.Context)
}

// HumanPacer sleeps a random interval inside [Min, Max].
type HumanPacer struct {
	Min time.Duration
	Max time.Duration
}

// NewHumanPacer returns a pacer with the pacing window used against the live
// targets.
func NewHumanPacer() HumanPacer {
	return HumanPacer{Min: 800 * time.Millisecond, Max: 2500 * time.Millisecond}
}

func (p HumanPacer) Pause(ctx context.Context) {
	span := p.Max - p.Min
	d := p.Min
	if span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// NopPacer skips pacing entirely.
type NopPacer struct{}

func (NopPacer) Pause(context.Context) {}
